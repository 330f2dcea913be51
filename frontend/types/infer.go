package types

import (
	"slices"
	"strings"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/opal-lang/opal/util"
)

// inferTypeArgs solves the method-scoped type parameters of sig for a call
// with omitted type arguments. Each formal parameter type is unified against
// the corresponding actual argument type; every free parameter is then
// assigned the least upper bound of its collected candidates. A parameter
// with contradictory candidates, or whose candidates admit no unique least
// upper bound, fails with InferenceFailure. Solved arguments are still
// subject to the declared bounds, which report BoundViolation like an
// explicit argument would
func (ctx *TypeCtx) inferTypeArgs(call *ir.Call, sig MethodSig, classOut Substitution, formals, actuals []SimpleType) Substitution {
	owned := make(map[ParamID]*TypeParameter, len(sig.typeParams))
	for _, param := range sig.typeParams {
		owned[param.id] = param
	}

	var constraints []util.Pair[*TypeParameter, SimpleType]
	for i, formal := range formals {
		if !ctx.unify(formal, actuals[i], owned, &constraints) {
			ctx.addError(opalerr.New(opalerr.NewInferenceFailure{
				Positioner: call.Args[i],
				Reason:     "argument '" + actuals[i].String() + "' does not match parameter '" + formal.String() + "'",
			}))
			return nil
		}
	}

	solved := make(Substitution, len(sig.typeParams))
	for _, param := range sig.typeParams {
		var candidates []SimpleType
		for _, c := range constraints {
			if c.Fst.id == param.id {
				candidates = append(candidates, c.Snd)
			}
		}
		if len(candidates) == 0 {
			// nothing to go on besides the declaration itself: fall back to
			// the parameter's first bound
			solved[param.id] = classOut.compose(solved).Apply(ctx.rawUpper(param))
			continue
		}
		assignment := candidates[0]
		for _, candidate := range candidates[1:] {
			joined, ambiguous, ok := ctx.lub(assignment, candidate)
			if !ok {
				reason := "no common supertype of '" + assignment.String() + "' and '" + candidate.String() + "'"
				if ambiguous != nil {
					reason = "ambiguous: " + strings.Join(ambiguous, ", ") + " are all minimal common supertypes"
				}
				ctx.addError(opalerr.New(opalerr.NewInferenceFailure{
					Positioner: call,
					Param:      param.Name(),
					Reason:     reason,
				}))
				return nil
			}
			assignment = joined
		}
		solved[param.id] = assignment
	}

	ok := true
	for _, param := range sig.typeParams {
		boundSubst := classOut.compose(solved)
		if !ctx.checkArgument(param, solved[param.id], boundSubst, call) {
			ok = false
		}
	}
	if !ok {
		return nil
	}
	ctx.logger.Debug("inferred type arguments", "method", sig.name, "count", len(solved))
	return solved
}

// unify walks formal and actual together, collecting a candidate for every
// reference to an owned parameter. It is deliberately permissive: the final
// argument-compatibility check validates whatever assignment solving picks,
// so unify only fails where no assignment could ever reconcile the shapes
func (ctx *TypeCtx) unify(formal, actual SimpleType, owned map[ParamID]*TypeParameter, constraints *[]util.Pair[*TypeParameter, SimpleType]) bool {
	if isError(formal) || isError(actual) {
		return true
	}
	switch formal := formal.(type) {
	case *paramRef:
		if param, ok := owned[formal.param.id]; ok {
			*constraints = append(*constraints, util.NewPair(param, actual))
		}
		return true
	case *appliedType:
		instance, ok := ctx.asSupertypeInstance(actual, formal.base)
		if !ok {
			return false
		}
		applied, ok := instance.(*appliedType)
		if !ok {
			// raw instance: no argument information to mine
			return true
		}
		for i, formalArg := range formal.args {
			if !ctx.unifyArg(formalArg, applied.args[i], owned, constraints) {
				return false
			}
		}
		return true
	case *wildcardType:
		if formal.bound == nil {
			return true
		}
		return ctx.unify(formal.bound, actual, owned, constraints)
	default:
		return true
	}
}

func (ctx *TypeCtx) unifyArg(formalArg, actualArg SimpleType, owned map[ParamID]*TypeParameter, constraints *[]util.Pair[*TypeParameter, SimpleType]) bool {
	// read the actual argument down to the type it produces
	actual := actualArg
	if wild, ok := actualArg.(*wildcardType); ok {
		switch wild.kind {
		case ir.WildcardUpper:
			actual = wild.bound
		default:
			actual = ctx.topType()
		}
	}
	if wild, ok := formalArg.(*wildcardType); ok {
		if wild.bound == nil {
			return true
		}
		return ctx.unify(wild.bound, actual, owned, constraints)
	}
	return ctx.unify(formalArg, actual, owned, constraints)
}

// lub computes the least upper bound of a and b under the unit's hierarchy.
// When several unrelated supertypes are all minimal, there is no unique
// answer: ok is false and ambiguous lists them, so the caller rejects rather
// than silently picking one
func (ctx *TypeCtx) lub(a, b SimpleType) (result SimpleType, ambiguous []string, ok bool) {
	if Equal(a, b) {
		return a, nil, true
	}
	if isError(a) || isError(b) {
		return errorType(), nil, true
	}
	if ctx.isSubtype(a, b, nil) {
		return b, nil, true
	}
	if ctx.isSubtype(b, a, nil) {
		return a, nil, true
	}
	_, aPrim := a.(*primitiveType)
	_, bPrim := b.(*primitiveType)
	if aPrim || bPrim {
		return nil, nil, false
	}

	var common []SimpleType
	bAncestors := util.SetFromSeq(util.MapIter(ctx.supertypeInstances(b), SimpleType.Hash), 8)
	for instance := range ctx.supertypeInstances(a) {
		if bAncestors.Contains(instance.Hash()) {
			common = append(common, instance)
		}
	}

	var minimal []SimpleType
	for _, candidate := range common {
		isMinimal := true
		for _, other := range common {
			if !Equal(other, candidate) && ctx.isSubtype(other, candidate, nil) {
				isMinimal = false
				break
			}
		}
		if isMinimal {
			minimal = append(minimal, candidate)
		}
	}
	switch len(minimal) {
	case 0:
		return nil, nil, false
	case 1:
		return minimal[0], nil, true
	default:
		names := make([]string, len(minimal))
		for i, t := range minimal {
			names[i] = "'" + t.String() + "'"
		}
		slices.Sort(names)
		return nil, names, false
	}
}
