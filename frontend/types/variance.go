package types

import (
	"github.com/opal-lang/opal/frontend/ir"
)

// argBinding is the captured range of one type-argument position of a
// receiver. out is the type a read at that position produces; in is the type
// a write at that position must supply, nil when no safe static type exists
type argBinding struct {
	out SimpleType
	in  SimpleType
}

// receiverCapture is the result of capturing every argument position of a
// receiver instance. It implements the single governing variance rule:
// reads substitute out (upper bound, or top), writes substitute in (lower
// bound, or reject). There are no per-call special cases on top of this
type receiverCapture struct {
	def      *TypeDefinition
	instance SimpleType
	bindings map[ParamID]argBinding
}

// captureReceiver captures instance, which must be an instantiation (or the
// raw form) of def
func (ctx *TypeCtx) captureReceiver(def *TypeDefinition, instance SimpleType) receiverCapture {
	capture := receiverCapture{
		def:      def,
		instance: instance,
		bindings: make(map[ParamID]argBinding, def.arity()),
	}
	applied, isApplied := instance.(*appliedType)
	for i, param := range def.typeParams {
		if !isApplied || i >= len(applied.args) {
			// raw receiver: members degrade to the parameter's erasure
			upper := ctx.rawUpper(param)
			capture.bindings[param.id] = argBinding{out: upper, in: upper}
			continue
		}
		capture.bindings[param.id] = ctx.captureArg(applied.args[i])
	}
	return capture
}

func (ctx *TypeCtx) captureArg(arg SimpleType) argBinding {
	wild, isWild := arg.(*wildcardType)
	if !isWild {
		return argBinding{out: arg, in: arg}
	}
	switch wild.kind {
	case ir.WildcardUpper:
		return argBinding{out: wild.bound, in: nil}
	case ir.WildcardLower:
		return argBinding{out: ctx.topType(), in: wild.bound}
	default:
		return argBinding{out: ctx.topType(), in: nil}
	}
}

// outSubst is the substitution for read positions (return types)
func (c receiverCapture) outSubst() Substitution {
	subst := make(Substitution, len(c.bindings))
	for id, binding := range c.bindings {
		subst[id] = binding.out
	}
	return subst
}

// writeFormal substitutes a formal parameter type for a write position.
// If the formal mentions a captured parameter with no safe write type, it
// returns that parameter as the offender and the caller must reject the call
// with VarianceViolation
func (c receiverCapture) writeFormal(formal SimpleType) (SimpleType, *TypeParameter) {
	for _, param := range c.def.typeParams {
		binding := c.bindings[param.id]
		if binding.in == nil && mentionsParam(formal, param) {
			return nil, param
		}
	}
	subst := make(Substitution, len(c.bindings))
	for id, binding := range c.bindings {
		if binding.in != nil {
			subst[id] = binding.in
		}
	}
	return subst.Apply(formal), nil
}
