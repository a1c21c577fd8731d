package types

import (
	"errors"
	"fmt"
	"strings"
)

// MaxIdentifierLength bounds module, function and struct names.
const MaxIdentifierLength = 255

// IsValidIdentifier reports whether s is a legal module, struct or
// function name: a letter or underscore followed by letters, digits or
// underscores.
func IsValidIdentifier(s string) bool {
	if len(s) == 0 || len(s) > MaxIdentifierLength {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ModuleID is the identity of a published module: the address that
// published it and its name.
type ModuleID struct {
	Address AccountAddress
	Name    string
}

func NewModuleID(addr AccountAddress, name string) ModuleID {
	return ModuleID{Address: addr, Name: name}
}

// ParseModuleID parses "<address>::<name>".
func ParseModuleID(s string) (ModuleID, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 2 {
		return ModuleID{}, fmt.Errorf("invalid module id %q", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return ModuleID{}, err
	}
	id := ModuleID{Address: addr, Name: parts[1]}
	return id, id.ValidateBasic()
}

func (id ModuleID) ValidateBasic() error {
	if !IsValidIdentifier(id.Name) {
		return fmt.Errorf("invalid module name %q", id.Name)
	}
	return nil
}

func (id ModuleID) String() string {
	return id.Address.ShortString() + "::" + id.Name
}

// StructTag names a struct type declared in a module. Resources are stored
// under the access path derived from their tag.
type StructTag struct {
	Module ModuleID
	Name   string
}

func (t StructTag) ValidateBasic() error {
	if err := t.Module.ValidateBasic(); err != nil {
		return err
	}
	if !IsValidIdentifier(t.Name) {
		return errors.New("invalid struct name " + t.Name)
	}
	return nil
}

func (t StructTag) String() string {
	return t.Module.String() + "::" + t.Name
}
