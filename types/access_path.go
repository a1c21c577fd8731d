package types

import (
	"bytes"
	"fmt"

	"github.com/google/orderedcode"
)

const (
	codeTag     byte = 0x00
	resourceTag byte = 0x01
)

// AccessPath addresses one entry in global state: a module blob or a
// resource under an account.
type AccessPath struct {
	Address AccountAddress
	Path    []byte
}

// CodePath returns the access path of the module blob for id.
func CodePath(id ModuleID) AccessPath {
	path := append([]byte{codeTag}, id.Name...)
	return AccessPath{Address: id.Address, Path: path}
}

// ResourcePath returns the access path of the resource of type tag held by
// addr.
func ResourcePath(addr AccountAddress, tag StructTag) AccessPath {
	path := make([]byte, 0, 1+AddressLength+len(tag.Module.Name)+len(tag.Name)+2)
	path = append(path, resourceTag)
	path = append(path, tag.Module.Address[:]...)
	path = append(path, tag.Module.Name...)
	path = append(path, "::"...)
	path = append(path, tag.Name...)
	return AccessPath{Address: addr, Path: path}
}

func (ap AccessPath) IsCode() bool {
	return len(ap.Path) > 0 && ap.Path[0] == codeTag
}

// Key returns the store key for the access path. Keys sort by address
// first and path second.
func (ap AccessPath) Key() []byte {
	key, err := orderedcode.Append(nil, string(ap.Address[:]), string(ap.Path))
	if err != nil {
		panic(err)
	}
	return key
}

// ParseAccessPathKey is the inverse of AccessPath.Key.
func ParseAccessPathKey(key []byte) (AccessPath, error) {
	var addr, path string
	remaining, err := orderedcode.Parse(string(key), &addr, &path)
	if err != nil {
		return AccessPath{}, fmt.Errorf("invalid access path key: %w", err)
	}
	if len(remaining) != 0 {
		return AccessPath{}, fmt.Errorf("invalid access path key: %d trailing bytes", len(remaining))
	}
	a, err := AddressFromBytes([]byte(addr))
	if err != nil {
		return AccessPath{}, err
	}
	return AccessPath{Address: a, Path: []byte(path)}, nil
}

func (ap AccessPath) Equal(other AccessPath) bool {
	return ap.Address == other.Address && bytes.Equal(ap.Path, other.Path)
}

func (ap AccessPath) String() string {
	return fmt.Sprintf("AccessPath{%v %X}", ap.Address.ShortString(), ap.Path)
}
