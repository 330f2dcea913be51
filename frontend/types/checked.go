package types

import (
	"iter"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
)

// CheckedUnit is the result of checking one compilation unit. It keeps the
// surface declarations alongside the context that checked them, and is the
// read-only seam the erasure pass consumes
type CheckedUnit struct {
	Syntax []ir.ClassDecl
	ctx    *TypeCtx
}

// TypeOf returns the recorded static type of a checked expression
func (u *CheckedUnit) TypeOf(expr ir.Expr) (SimpleType, bool) {
	t, ok := u.ctx.exprTypes[cacheKeyOf(expr)]
	return t, ok
}

// DeclaredReturn returns the declared (pre-substitution) return type of the
// member a call site resolved to. It differs from TypeOf exactly where the
// substituted type is more specific than what the erased member will produce
func (u *CheckedUnit) DeclaredReturn(call *ir.Call) (SimpleType, bool) {
	t, ok := u.ctx.declaredReturns[cacheKeyOf(call)]
	return t, ok
}

// Definition looks up a processed declaration, universe definitions included
func (u *CheckedUnit) Definition(name string) (*TypeDefinition, bool) {
	return u.ctx.Definition(name)
}

// CheckedDecls yields the unit's own declarations that passed checking, in
// declaration order. Rejected declarations are excluded from erasure
func (u *CheckedUnit) CheckedDecls() []*TypeDefinition {
	out := make([]*TypeDefinition, 0, len(u.Syntax))
	for i := range u.Syntax {
		def, ok := u.ctx.typeDefs[u.Syntax[i].Name]
		if !ok || def.syntax != &u.Syntax[i] {
			continue
		}
		if def.state == stateChecked {
			out = append(out, def)
		}
	}
	return out
}

// Ancestors yields every proper supertype definition of def paired with the
// substitution from that ancestor's own parameters to the instantiation def
// inherits it at. The bridge pass compares member signatures through exactly
// these substitutions
func (u *CheckedUnit) Ancestors(def *TypeDefinition) iter.Seq2[*TypeDefinition, Substitution] {
	return func(yield func(*TypeDefinition, Substitution) bool) {
		self := u.ctx.selfInstanceOf(def)
		for instance := range u.ctx.supertypeInstances(self) {
			name := headNameOf(instance)
			if name == def.name {
				continue
			}
			ancestor, ok := u.ctx.typeDefs[name]
			if !ok {
				continue
			}
			subst := make(Substitution, ancestor.arity())
			if applied, isApplied := instance.(*appliedType); isApplied && len(applied.args) == ancestor.arity() {
				for i, param := range ancestor.typeParams {
					subst[param.id] = applied.args[i]
				}
			} else {
				for _, param := range ancestor.typeParams {
					subst[param.id] = u.ctx.rawUpper(param)
				}
			}
			if !yield(ancestor, subst) {
				return
			}
		}
	}
}

// IsSubtype reports this <: that under the unit's declarations
func (u *CheckedUnit) IsSubtype(this, that SimpleType) bool {
	return u.ctx.IsSubtype(this, that)
}

func (u *CheckedUnit) Errors() *opalerr.Errors { return u.ctx.Errors }
func (u *CheckedUnit) Failures() []error       { return u.ctx.Failures }

func (u *CheckedUnit) HasErrors() bool {
	return u.ctx.Errors.HasError() || len(u.ctx.Failures) > 0
}

// Erase maps a type to its runtime representation: parameters collapse to the
// erasure of their first bound, parameterizations to their raw head, and
// wildcards to the erasure of the only side that survives reading. Erase is
// idempotent: erasing an already-erased type returns it unchanged
func Erase(t SimpleType) SimpleType {
	return erase(t, nil)
}

func erase(t SimpleType, seen map[ParamID]bool) SimpleType {
	switch t := t.(type) {
	case nil:
		return nil
	case *paramRef:
		bounds := t.param.Bounds()
		// a parameter whose bound chain leads back to itself is rejected at
		// declaration time; collapse to the top type rather than recurse
		if len(bounds) == 0 || seen[t.param.id] {
			return &classTag{name: TopName}
		}
		if seen == nil {
			seen = make(map[ParamID]bool, 1)
		}
		seen[t.param.id] = true
		return erase(bounds[0], seen)
	case *appliedType:
		return &classTag{name: t.base}
	case *wildcardType:
		if t.kind != ir.WildcardUpper || t.bound == nil {
			return &classTag{name: TopName}
		}
		return erase(t.bound, seen)
	default:
		// class tags, primitives, and the error sentinel erase to themselves
		return t
	}
}

// SurfaceOf renders an internal type back into surface syntax, for passes
// that rewrite declarations
func SurfaceOf(t SimpleType) ir.Type {
	switch t := t.(type) {
	case nil:
		return nil
	case *classTag:
		return &ir.TypeName{Name: t.name}
	case *primitiveType:
		return &ir.PrimitiveType{Name: t.name}
	case *paramRef:
		return &ir.TypeName{Name: t.param.name}
	case *appliedType:
		args := make([]ir.Type, len(t.args))
		for i, arg := range t.args {
			args[i] = SurfaceOf(arg)
		}
		return &ir.AppliedType{Base: ir.TypeName{Name: t.base}, Args: args}
	case *wildcardType:
		return &ir.WildcardType{Kind: t.kind, Bound: SurfaceOf(t.bound)}
	default:
		return &ir.TypeName{Name: t.String()}
	}
}
