package modules

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/tendermint/vmruntime/internal/state"
	"github.com/tendermint/vmruntime/types"
	"github.com/tendermint/vmruntime/vm"
)

// StateStore loads modules from global state, where each is kept
// snappy-compressed under its code access path.
type StateStore struct {
	view state.StateView
}

var _ Store = (*StateStore)(nil)

func NewStateStore(view state.StateView) *StateStore {
	return &StateStore{view: view}
}

func (s *StateStore) Load(id types.ModuleID) ([]byte, bool, error) {
	bz, err := s.view.Get(types.CodePath(id))
	if err != nil {
		return nil, false, err
	}
	if bz == nil {
		return nil, false, nil
	}
	blob, err := snappy.Decode(nil, bz)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing %v: %w", id, err)
	}
	return blob, true, nil
}

// EncodeBlob returns the stored form of m.
func EncodeBlob(m *vm.Module) []byte {
	return snappy.Encode(nil, vm.EncodeModule(m))
}

// PublishOp returns the write that publishes m.
func PublishOp(m *vm.Module) types.WriteOp {
	return types.WriteOp{AccessPath: types.CodePath(m.ID), Value: EncodeBlob(m)}
}
