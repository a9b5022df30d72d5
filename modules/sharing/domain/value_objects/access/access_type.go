package access

import (
	"fmt"
	"strings"
)

// Type is the kind of operation a caller wants to perform on shared data.
type Type string

const (
	TypeRead   Type = "READ"
	TypeWrite  Type = "WRITE"
	TypeDelete Type = "DELETE"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRead, TypeWrite, TypeDelete:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// Mutates reports whether the access type changes state.
func (t Type) Mutates() bool {
	return t == TypeWrite || t == TypeDelete
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown access type %q", s)
	}
	return t, nil
}

// Types is a set of access types carried by a permission grant.
type Types []Type

func (ts Types) Contains(t Type) bool {
	for _, member := range ts {
		if member == t {
			return true
		}
	}
	return false
}

func (ts Types) Valid() bool {
	if len(ts) == 0 {
		return false
	}
	for _, member := range ts {
		if !member.Valid() {
			return false
		}
	}
	return true
}

func (ts Types) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
