package types

import (
	"bytes"
	"sort"
)

// WriteOp is a single state change: either a new value or a deletion.
type WriteOp struct {
	AccessPath AccessPath
	Value      []byte
	Deletion   bool
}

// WriteSet is an ordered list of state changes. Sets built by the caches
// are sorted by access path key and hold at most one op per path.
type WriteSet []WriteOp

// NewWriteSet sorts ops by key. When the same path appears more than once
// the last op wins.
func NewWriteSet(ops ...WriteOp) WriteSet {
	byKey := make(map[string]int, len(ops))
	ws := make(WriteSet, 0, len(ops))
	for _, op := range ops {
		k := string(op.AccessPath.Key())
		if i, ok := byKey[k]; ok {
			ws[i] = op
			continue
		}
		byKey[k] = len(ws)
		ws = append(ws, op)
	}
	sort.Sort(ws)
	return ws
}

func (ws WriteSet) Len() int      { return len(ws) }
func (ws WriteSet) Swap(i, j int) { ws[i], ws[j] = ws[j], ws[i] }
func (ws WriteSet) Less(i, j int) bool {
	return bytes.Compare(ws[i].AccessPath.Key(), ws[j].AccessPath.Key()) < 0
}

func (ws WriteSet) IsEmpty() bool {
	return len(ws) == 0
}
