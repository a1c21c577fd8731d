package state

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/vmruntime/types"
)

// key prefixes
const (
	prefixAccessPath = int64(0)
	prefixVersion    = int64(1)
)

func accessPathKey(ap types.AccessPath) []byte {
	key, err := orderedcode.Append(nil, prefixAccessPath)
	if err != nil {
		panic(err)
	}
	return append(key, ap.Key()...)
}

func versionKey() []byte {
	key, err := orderedcode.Append(nil, prefixVersion)
	if err != nil {
		panic(err)
	}
	return key
}

// StateView is read access to committed global state. Get returns nil for
// an absent entry.
type StateView interface {
	Get(ap types.AccessPath) ([]byte, error)
}

// Store is the global state store. It is only mutated by Commit, once per
// block.
type Store struct {
	db      dbm.DB
	metrics *Metrics
}

var _ StateView = (*Store)(nil)

// StoreOption sets an optional parameter on the Store.
type StoreOption func(*Store)

// StoreMetrics sets the metrics.
func StoreMetrics(metrics *Metrics) StoreOption {
	return func(s *Store) { s.metrics = metrics }
}

// NewStore returns a Store over db.
func NewStore(db dbm.DB, options ...StoreOption) *Store {
	s := &Store{db: db, metrics: NopMetrics()}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) observe(method string, start time.Time) {
	s.metrics.StoreAccessDurationSeconds.With("method", method).Observe(time.Since(start).Seconds())
}

// Get returns the committed value at ap, or nil.
func (s *Store) Get(ap types.AccessPath) ([]byte, error) {
	defer s.observe("get", time.Now())
	bz, err := s.db.Get(accessPathKey(ap))
	if err != nil {
		return nil, ErrStoreAccess{Op: "get", Err: err}
	}
	return bz, nil
}

// Version returns the number of write-sets committed so far.
func (s *Store) Version() (uint64, error) {
	bz, err := s.db.Get(versionKey())
	if err != nil {
		return 0, ErrStoreAccess{Op: "get version", Err: err}
	}
	if len(bz) == 0 {
		return 0, nil
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("corrupt version entry of %d bytes", len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}

// Commit atomically applies ws and bumps the version. It returns the new
// version.
func (s *Store) Commit(ws types.WriteSet) (uint64, error) {
	defer s.observe("commit", time.Now())

	version, err := s.Version()
	if err != nil {
		return 0, err
	}
	version++

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, op := range ws {
		key := accessPathKey(op.AccessPath)
		switch {
		case op.Deletion:
			err = batch.Delete(key)
		case op.Value == nil:
			return 0, fmt.Errorf("%v: %w", op.AccessPath, ErrNilValue)
		default:
			err = batch.Set(key, op.Value)
		}
		if err != nil {
			return 0, ErrStoreAccess{Op: "commit", Err: err}
		}
	}

	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, version)
	if err := batch.Set(versionKey(), bz); err != nil {
		return 0, ErrStoreAccess{Op: "commit", Err: err}
	}
	if err := batch.WriteSync(); err != nil {
		return 0, ErrStoreAccess{Op: "commit", Err: err}
	}
	s.metrics.CommittedWrites.Add(float64(len(ws)))
	return version, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
