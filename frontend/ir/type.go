package ir

import (
	"encoding/binary"
	"hash/fnv"
	"strings"
)

// Type is the surface form of a type annotation, as supplied by the parser.
// The checker resolves it into its internal interned representation, so
// structural equality here is only used for hashing and caching.
type Type interface {
	String() string
	Hash() uint64
	Positioner
}

// NullaryType is a Type which takes no type arguments
type NullaryType interface {
	Type
	isNullaryType()
}

var (
	_ NullaryType = (*TypeName)(nil)
	_ NullaryType = (*PrimitiveType)(nil)

	_ Type = (*AppliedType)(nil)
	_ Type = (*WildcardType)(nil)
)

func hashOf(tag string, children ...uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	arr := make([]byte, 0, 8*len(children))
	for _, child := range children {
		arr = binary.LittleEndian.AppendUint64(arr, child)
	}
	_, _ = h.Write(arr)
	return h.Sum64()
}

func hashOfString(tag, s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// TypeName references a declared class, interface, or type parameter by name.
// Which of those it resolves to depends on the scope it appears in
type TypeName struct {
	Name string
	Range
}

func (t *TypeName) isNullaryType() {}
func (t *TypeName) String() string { return t.Name }
func (t *TypeName) Hash() uint64   { return hashOfString("TypeName", t.Name) }

// PrimitiveType is an unboxed scalar type (int, double, boolean).
// Primitives may appear as member and parameter types but never as type
// arguments
type PrimitiveType struct {
	Name string
	Range
}

func (t *PrimitiveType) isNullaryType() {}
func (t *PrimitiveType) String() string { return t.Name }
func (t *PrimitiveType) Hash() uint64   { return hashOfString("PrimitiveType", t.Name) }

// AppliedType is a parameterized type: a head type applied to type arguments,
// like List<Integer>
type AppliedType struct {
	Base TypeName
	Args []Type
	Range
}

func (t *AppliedType) String() string {
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return t.Base.Name + "<" + strings.Join(args, ", ") + ">"
}

func (t *AppliedType) Hash() uint64 {
	children := make([]uint64, 0, len(t.Args)+1)
	children = append(children, t.Base.Hash())
	for _, arg := range t.Args {
		children = append(children, arg.Hash())
	}
	return hashOf("AppliedType", children...)
}

type WildcardKind uint8

const (
	// WildcardAny is an unbounded wildcard '?'
	WildcardAny WildcardKind = iota
	// WildcardUpper is '? extends Bound'
	WildcardUpper
	// WildcardLower is '? super Bound'
	WildcardLower
)

func (k WildcardKind) String() string {
	switch k {
	case WildcardAny:
		return "?"
	case WildcardUpper:
		return "? extends"
	case WildcardLower:
		return "? super"
	default:
		return "invalid"
	}
}

// WildcardType is a use-site-only type argument denoting an unknown type.
// Bound is nil exactly when Kind is WildcardAny
type WildcardType struct {
	Kind  WildcardKind
	Bound Type
	Range
}

func (t *WildcardType) String() string {
	if t.Bound == nil {
		return "?"
	}
	return t.Kind.String() + " " + t.Bound.String()
}

func (t *WildcardType) Hash() uint64 {
	if t.Bound == nil {
		return hashOf("WildcardType", uint64(t.Kind))
	}
	return hashOf("WildcardType", uint64(t.Kind), t.Bound.Hash())
}

// TypeString renders a type for diagnostics and logs
func TypeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
