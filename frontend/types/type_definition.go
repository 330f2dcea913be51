package types

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/opal-lang/opal/frontend/ir"
)

// declState is the lifecycle of a declaration inside the checker.
// Rejected declarations stay in the context so siblings can still resolve
// references to them, but they are excluded from erasure
type declState uint8

const (
	stateUnchecked declState = iota
	stateChecking
	stateChecked
	stateRejected
)

func (s declState) String() string {
	switch s {
	case stateUnchecked:
		return "unchecked"
	case stateChecking:
		return "checking"
	case stateChecked:
		return "checked"
	case stateRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// TypeDefinition is a processed class or interface declaration.
// Universe definitions (Object, Number, List, ...) are pre-populated
// read-only and share the representation of user declarations
type TypeDefinition struct {
	defKind    ir.TypeDefKind
	name       typeName
	typeParams []*TypeParameter
	// super is the instantiated direct superclass, nil for the top type and
	// for interfaces
	super      SimpleType
	interfaces []SimpleType
	fields     []FieldSig
	methods    []MethodSig
	// baseClasses holds the names of all transitive ancestors, self included
	baseClasses *set.Set[typeName]
	state       declState
	// selfRefs counts bound references back to this definition while it was
	// in the Checking state; recursive bounds are permitted exactly once
	selfRefs int
	syntax   *ir.ClassDecl // nil for universe definitions
	from     ir.Positioner
}

func (d *TypeDefinition) Name() string                 { return d.name }
func (d *TypeDefinition) Kind() ir.TypeDefKind         { return d.defKind }
func (d *TypeDefinition) TypeParams() []*TypeParameter { return d.typeParams }
func (d *TypeDefinition) Super() SimpleType            { return d.super }
func (d *TypeDefinition) Interfaces() []SimpleType     { return d.interfaces }
func (d *TypeDefinition) Fields() []FieldSig           { return d.fields }
func (d *TypeDefinition) Methods() []MethodSig         { return d.methods }
func (d *TypeDefinition) Syntax() *ir.ClassDecl        { return d.syntax }

func (d *TypeDefinition) arity() int { return len(d.typeParams) }

// Method returns the signature declared directly on this definition with the
// given name and parameter count
func (d *TypeDefinition) Method(name string, arity int) (MethodSig, bool) {
	for _, m := range d.methods {
		if m.name == name && len(m.params) == arity {
			return m, true
		}
	}
	return MethodSig{}, false
}

type FieldSig struct {
	name string
	typ  SimpleType
}

func (f FieldSig) Name() string     { return f.name }
func (f FieldSig) Type() SimpleType { return f.typ }

// MethodSig is a member signature with any method-scoped type parameters.
// Types in params and ret may reference both method-scoped and class-scoped
// parameters; callers substitute the class-scoped ones per receiver
type MethodSig struct {
	name       string
	typeParams []*TypeParameter
	params     []SimpleType
	paramNames []string
	ret        SimpleType // nil for void
	owner      typeName
	syntax     *ir.MethodDecl // nil for universe members
}

func (m MethodSig) Name() string                 { return m.name }
func (m MethodSig) TypeParams() []*TypeParameter { return m.typeParams }
func (m MethodSig) Params() []SimpleType         { return m.params }
func (m MethodSig) ParamNames() []string         { return m.paramNames }
func (m MethodSig) Return() SimpleType           { return m.ret }
func (m MethodSig) Owner() string                { return m.owner }
func (m MethodSig) Syntax() *ir.MethodDecl       { return m.syntax }
