package types

import (
	"encoding/binary"
	"fmt"
	"go/token"
	"hash/fnv"
	"iter"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/opal-lang/opal/frontend/ir"
)

type typeName = string

// TopName is the universal top type: every reference type is a subtype of it,
// and it is the erasure of an unbounded type parameter
const TopName typeName = "Object"

type withProvenance struct {
	provenance typeProvenance
}

func (w withProvenance) prov() typeProvenance {
	return w.provenance
}

// typeProvenance tracks the origin and description of types
type typeProvenance struct {
	Range ir.Range
	desc  string
}

var emptyProv = typeProvenance{}

func (tp typeProvenance) embed() withProvenance {
	return withProvenance{provenance: tp}
}

func (tp typeProvenance) Pos() token.Pos { return tp.Range.Pos() }
func (tp typeProvenance) End() token.Pos { return tp.Range.End() }

// Equal can be used to compare SimpleType instances for equality.
// Types are interned per TypeCtx, so comparing hashes is both cheap and exact
func Equal[H, HH set.Hasher[uint64]](this H, other HH) bool {
	return this.Hash() == other.Hash()
}

// SimpleType is the checker's internal, interned representation of a type.
// Surface ir.Type annotations are resolved into SimpleTypes during checking
type SimpleType interface {
	fmt.Stringer
	Hash() uint64
	prov() typeProvenance
	children() iter.Seq[SimpleType]
}

var (
	_ SimpleType = (*classTag)(nil)
	_ SimpleType = (*primitiveType)(nil)
	_ SimpleType = (*paramRef)(nil)
	_ SimpleType = (*appliedType)(nil)
	_ SimpleType = (*wildcardType)(nil)
	_ SimpleType = (*errType)(nil)
)

func hashTagged(tag string, children ...uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	arr := make([]byte, 0, 8*len(children))
	for _, child := range children {
		arr = binary.LittleEndian.AppendUint64(arr, child)
	}
	_, _ = h.Write(arr)
	return h.Sum64()
}

func hashTaggedString(tag, s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tag))
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func noChildren() iter.Seq[SimpleType] {
	return func(yield func(SimpleType) bool) {}
}

// classTag is a reference to a declared class or interface by name, with no
// type arguments: either a non-generic type or the raw form of a generic one
type classTag struct {
	name typeName
	withProvenance
}

func (t *classTag) String() string { return t.name }
func (t *classTag) Hash() uint64   { return hashTaggedString("classTag", t.name) }
func (t *classTag) children() iter.Seq[SimpleType] {
	return noChildren()
}

// primitiveType is an unboxed scalar. Primitives take part in no subtyping
// besides identity and are never legal type arguments
type primitiveType struct {
	name typeName
	withProvenance
}

func (t *primitiveType) String() string { return t.name }
func (t *primitiveType) Hash() uint64   { return hashTaggedString("primitiveType", t.name) }
func (t *primitiveType) children() iter.Seq[SimpleType] {
	return noChildren()
}

// ParamID is the synthetic identity of a TypeParameter. Two parameters with
// the same surface name are unrelated unless their IDs match, which is what
// makes substitution capture-avoiding
type ParamID uint64

// TypeParameter is a declared type parameter: a placeholder identity with an
// ordered list of upper bounds. Bounds are resolved once while the declaring
// scope is processed and are immutable afterwards
type TypeParameter struct {
	id     ParamID
	name   string
	bounds []SimpleType
	// owner describes the declaring scope, e.g. "class Box" or "method sum"
	owner string
}

func (p *TypeParameter) ID() ParamID  { return p.id }
func (p *TypeParameter) Name() string { return p.name }
func (p *TypeParameter) Owner() string {
	return p.owner
}

// Bounds returns the declared upper bounds. A parameter declared without
// bounds has the top type as its single implicit bound
func (p *TypeParameter) Bounds() []SimpleType {
	return p.bounds
}

// setBounds may be called exactly once, by declaration processing
func (p *TypeParameter) setBounds(bounds []SimpleType) {
	if p.bounds != nil {
		panic("bounds of a type parameter are immutable once set")
	}
	p.bounds = bounds
}

func (p *TypeParameter) String() string {
	return fmt.Sprintf("%s#%d", p.name, p.id)
}

// paramRef is a use of a type parameter inside its declaring scope
type paramRef struct {
	param *TypeParameter
	withProvenance
}

func (t *paramRef) String() string { return t.param.name }
func (t *paramRef) Hash() uint64   { return hashTagged("paramRef", uint64(t.param.id)) }
func (t *paramRef) children() iter.Seq[SimpleType] {
	return noChildren()
}

// appliedType is a parameterized type: a generic head applied to as many
// arguments as the head declares. Arity is enforced at construction
type appliedType struct {
	base typeName
	args []SimpleType
	withProvenance
}

func (t *appliedType) String() string {
	args := make([]string, len(t.args))
	for i, arg := range t.args {
		args[i] = arg.String()
	}
	return t.base + "<" + strings.Join(args, ", ") + ">"
}

func (t *appliedType) Hash() uint64 {
	children := make([]uint64, 0, len(t.args)+1)
	children = append(children, hashTaggedString("", t.base))
	for _, arg := range t.args {
		children = append(children, arg.Hash())
	}
	return hashTagged("appliedType", children...)
}

func (t *appliedType) children() iter.Seq[SimpleType] {
	return func(yield func(SimpleType) bool) {
		for _, arg := range t.args {
			if !yield(arg) {
				return
			}
		}
	}
}

// wildcardType is a use-site type argument denoting an unknown type.
// It may only ever appear as an argument of an appliedType
type wildcardType struct {
	kind  ir.WildcardKind
	bound SimpleType // nil iff kind is ir.WildcardAny
	withProvenance
}

func (t *wildcardType) String() string {
	if t.bound == nil {
		return "?"
	}
	return t.kind.String() + " " + t.bound.String()
}

func (t *wildcardType) Hash() uint64 {
	if t.bound == nil {
		return hashTagged("wildcardType", uint64(t.kind))
	}
	return hashTagged("wildcardType", uint64(t.kind), t.bound.Hash())
}

func (t *wildcardType) children() iter.Seq[SimpleType] {
	return func(yield func(SimpleType) bool) {
		if t.bound != nil {
			yield(t.bound)
		}
	}
}

// errType absorbs checking after a diagnostic was already reported, so a
// single defect does not cascade into spurious follow-up errors
type errType struct {
	withProvenance
}

func (t *errType) String() string { return "<error>" }
func (t *errType) Hash() uint64   { return hashTaggedString("errType", "") }
func (t *errType) children() iter.Seq[SimpleType] {
	return noChildren()
}

var errorTypeInstance = &errType{}

func errorType() SimpleType { return errorTypeInstance }

func isError(t SimpleType) bool {
	_, ok := t.(*errType)
	return ok
}

// mentionsParam reports whether t contains a reference to param, at any depth
func mentionsParam(t SimpleType, param *TypeParameter) bool {
	if ref, ok := t.(*paramRef); ok {
		return ref.param.id == param.id
	}
	for child := range t.children() {
		if mentionsParam(child, param) {
			return true
		}
	}
	return false
}
