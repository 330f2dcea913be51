package types

import (
	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/opal-lang/opal/util"
)

// checkArgument validates candidate against every declared bound of param.
// subst carries the assignments of the other parameters of the same list
// (bounds may reference earlier parameters, and F-bounded parameters
// reference themselves), and is applied to each bound before the check.
// Reports BoundViolation and returns false on failure
func (ctx *TypeCtx) checkArgument(param *TypeParameter, candidate SimpleType, subst Substitution, pos ir.Positioner) bool {
	if isError(candidate) {
		return true
	}
	if _, ok := candidate.(*primitiveType); ok {
		ctx.addError(opalerr.New(opalerr.NewUnsupportedTypeArgument{
			Positioner: pos,
			Type:       candidate,
		}))
		return false
	}

	// a wildcard argument is checked through the range of types it denotes
	effective := candidate
	if wild, ok := candidate.(*wildcardType); ok {
		switch wild.kind {
		case ir.WildcardUpper:
			effective = wild.bound
		case ir.WildcardLower:
			// the capture ranges from the wildcard's bound up to the
			// parameter's bounds; the range is empty unless the bound
			// itself satisfies them
			effective = wild.bound
		default:
			// an unbounded wildcard captures below the parameter's own
			// bounds, so it satisfies them trivially
			return true
		}
	}

	ok := true
	for _, bound := range param.Bounds() {
		substituted := subst.Apply(bound)
		if !ctx.isSubtype(effective, substituted, nil) {
			ctx.addError(opalerr.New(opalerr.NewBoundViolation{
				Positioner: pos,
				Param:      param.Name(),
				Bound:      substituted,
				Candidate:  candidate,
			}))
			ok = false
		}
	}
	return ok
}

// boundsWellFormed enforces the shape rules on a resolved bound list:
// at most one class-like bound, listed first, and a bound that is itself a
// type parameter must not lead back to param through other parameter bounds
func (ctx *TypeCtx) boundsWellFormed(param *TypeParameter, pos ir.Positioner) bool {
	ok := true
	for i, bound := range param.Bounds() {
		if ref, isRef := bound.(*paramRef); isRef {
			if boundChainReaches(ref.param, param) {
				ctx.addError(opalerr.New(opalerr.NewMalformedType{
					Positioner: pos,
					Detail:     "bounds of '" + param.Name() + "' cycle back through '" + ref.param.Name() + "'",
				}))
				ok = false
			}
			continue
		}
		def, known := ctx.typeDefs[headNameOf(bound)]
		if !known {
			// error types have no head to classify
			continue
		}
		if i > 0 && def.defKind == ir.KindClass && def.name != TopName {
			ctx.addError(opalerr.New(opalerr.NewMalformedType{
				Positioner: pos,
				Detail:     "class bound '" + def.name + "' of '" + param.Name() + "' must be listed before interface bounds",
			}))
			ok = false
		}
	}
	return ok
}

// boundChainReaches walks parameter-headed bounds transitively from start
// and reports whether target is reachable. Bounds of parameters later in the
// same list may still be unresolved; those chains end there and are checked
// again once that parameter's own bounds land
func boundChainReaches(start, target *TypeParameter) bool {
	seen := util.NewEmptySet[ParamID]()
	work := []*TypeParameter{start}
	for len(work) > 0 {
		param := work[len(work)-1]
		work = work[:len(work)-1]
		if param.id == target.id {
			return true
		}
		if seen.Contains(param.id) {
			continue
		}
		seen.Add(param.id)
		for _, bound := range param.Bounds() {
			if ref, isRef := bound.(*paramRef); isRef {
				work = append(work, ref.param)
			}
		}
	}
	return false
}
