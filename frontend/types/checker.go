package types

import (
	"maps"
	"strconv"

	"github.com/hashicorp/go-set/v3"
	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
)

// ProcessDeclarations checks a whole unit: declares every type, resolves
// headers (type parameters, bounds, supertypes, member signatures), then
// checks method bodies. Diagnostics accumulate across the unit; a rejected
// declaration never aborts its siblings
func (ctx *TypeCtx) ProcessDeclarations(decls []ir.ClassDecl) *CheckedUnit {
	userDefs := make([]*TypeDefinition, 0, len(decls))

	// declare headers first so declarations can reference each other and
	// themselves (F-bounded parameters) in any order
	for i := range decls {
		decl := &decls[i]
		if existing, ok := ctx.typeDefs[decl.Name]; ok {
			ctx.addError(opalerr.New(opalerr.NewNameRedeclaration{
				Positioner: decl,
				Name:       decl.Name,
				Other:      existing.from,
			}))
			continue
		}
		def := &TypeDefinition{
			defKind: decl.Kind,
			name:    decl.Name,
			state:   stateUnchecked,
			syntax:  decl,
			from:    decl,
		}
		seen := make(map[string]ir.Positioner, len(decl.TypeParams))
		for _, paramDecl := range decl.TypeParams {
			if existing, ok := seen[paramDecl.Name]; ok {
				ctx.addError(opalerr.New(opalerr.NewNameRedeclaration{
					Positioner: paramDecl,
					Name:       paramDecl.Name,
					Other:      existing,
				}))
				continue
			}
			seen[paramDecl.Name] = paramDecl
			def.typeParams = append(def.typeParams, ctx.fresher.newTypeParameter(paramDecl.Name, decl.Kind.String()+" "+decl.Name))
		}
		ctx.typeDefs[decl.Name] = def
		userDefs = append(userDefs, def)
	}

	for _, def := range userDefs {
		ctx.resolveHeader(def)
	}

	for _, def := range userDefs {
		before := len(ctx.Errors.Errors()) + len(ctx.Failures)
		ctx.checkBodies(def)
		if len(ctx.Errors.Errors())+len(ctx.Failures) > before || def.state == stateRejected {
			def.state = stateRejected
			ctx.logger.Debug("declaration rejected", "decl", def.name)
		} else {
			def.state = stateChecked
		}
	}

	return &CheckedUnit{Syntax: decls, ctx: ctx}
}

// resolveHeader moves def into the Checking state and resolves its type
// parameters, supertypes, fields, and method signatures. References back to
// def itself are legal while it is Checking: that is exactly the recursive
// bound case
func (ctx *TypeCtx) resolveHeader(def *TypeDefinition) {
	errsBefore := len(ctx.Errors.Errors())
	def.state = stateChecking
	ctx.checking.Push(def)
	defer func() {
		ctx.checking.Pop()
		if len(ctx.Errors.Errors()) > errsBefore {
			def.state = stateRejected
		}
	}()

	declCtx := ctx.nest()
	declCtx.currentDecl = def
	declCtx.typeParamScope = maps.Clone(ctx.typeParamScope)
	for _, param := range def.typeParams {
		declCtx.typeParamScope[param.name] = param
	}
	declCtx.currentPos = def.from

	syntax := def.syntax
	for i, paramDecl := range syntax.TypeParams {
		if i >= len(def.typeParams) {
			break // duplicate name, already reported
		}
		param := def.typeParams[i]
		bounds := make([]SimpleType, 0, len(paramDecl.Bounds))
		for _, boundSyntax := range paramDecl.Bounds {
			bounds = append(bounds, declCtx.typeFromSyntax(boundSyntax, false))
		}
		if len(bounds) == 0 {
			bounds = append(bounds, ctx.topType())
		}
		param.setBounds(bounds)
		declCtx.boundsWellFormed(param, paramDecl)
	}

	baseClasses := set.From([]typeName{def.name, TopName})
	if syntax.Super != nil {
		super := declCtx.typeFromSyntax(syntax.Super, false)
		def.super = declCtx.checkSupertype(super, ir.KindClass, syntax.Super)
	} else if def.defKind == ir.KindClass && def.name != TopName {
		def.super = ctx.topType()
	}
	if def.super != nil {
		insertBases(ctx, baseClasses, def.super)
	}
	for _, ifaceSyntax := range syntax.Interfaces {
		iface := declCtx.typeFromSyntax(ifaceSyntax, false)
		iface = declCtx.checkSupertype(iface, ir.KindInterface, ifaceSyntax)
		if iface != nil {
			def.interfaces = append(def.interfaces, iface)
			insertBases(ctx, baseClasses, iface)
		}
	}
	def.baseClasses = baseClasses

	for _, fieldDecl := range syntax.Fields {
		def.fields = append(def.fields, FieldSig{
			name: fieldDecl.Name,
			typ:  declCtx.typeFromSyntax(fieldDecl.Type, false),
		})
	}

	for i := range syntax.Methods {
		methodDecl := &syntax.Methods[i]
		def.methods = append(def.methods, declCtx.resolveMethodSig(def, methodDecl))
	}
}

func insertBases(ctx *TypeCtx, bases *set.Set[typeName], instance SimpleType) {
	name := headNameOf(instance)
	bases.Insert(name)
	if superDef, ok := ctx.typeDefs[name]; ok && superDef.baseClasses != nil {
		bases.InsertSet(superDef.baseClasses)
	}
}

// checkSupertype validates an extends/implements clause: the right kind of
// head, and no wildcard arguments (a declaration cannot specialize itself to
// an unknown type)
func (ctx *TypeCtx) checkSupertype(instance SimpleType, want ir.TypeDefKind, pos ir.Positioner) SimpleType {
	if instance == nil || isError(instance) {
		return nil
	}
	name := headNameOf(instance)
	def, ok := ctx.typeDefs[name]
	if !ok {
		ctx.addError(opalerr.New(opalerr.NewMalformedType{
			Positioner: pos,
			Detail:     "'" + instance.String() + "' cannot be used as a supertype",
		}))
		return nil
	}
	if def.defKind != want {
		ctx.addError(opalerr.New(opalerr.NewMalformedType{
			Positioner: pos,
			Detail:     "expected a " + want.String() + " but '" + name + "' is a " + def.defKind.String(),
		}))
		return nil
	}
	if applied, ok := instance.(*appliedType); ok {
		for _, arg := range applied.args {
			if _, isWild := arg.(*wildcardType); isWild {
				ctx.addError(opalerr.New(opalerr.NewMalformedType{
					Positioner: pos,
					Detail:     "wildcard cannot appear in a supertype",
				}))
				return nil
			}
		}
	}
	return instance
}

func (ctx *TypeCtx) resolveMethodSig(def *TypeDefinition, methodDecl *ir.MethodDecl) MethodSig {
	methodCtx := ctx.nest()
	methodCtx.typeParamScope = maps.Clone(ctx.typeParamScope)

	sig := MethodSig{
		name:   methodDecl.Name,
		owner:  def.name,
		syntax: methodDecl,
	}
	for _, paramDecl := range methodDecl.TypeParams {
		param := ctx.fresher.newTypeParameter(paramDecl.Name, "method "+def.name+"."+methodDecl.Name)
		// method-scoped parameters shadow class-scoped ones by name; the
		// substitution engine tells them apart by identity
		methodCtx.typeParamScope[paramDecl.Name] = param
		sig.typeParams = append(sig.typeParams, param)
	}
	// bounds may reference any parameter of the same list, so resolve them
	// after all parameters are in scope
	for i, paramDecl := range methodDecl.TypeParams {
		param := sig.typeParams[i]
		bounds := make([]SimpleType, 0, len(paramDecl.Bounds))
		for _, boundSyntax := range paramDecl.Bounds {
			bounds = append(bounds, methodCtx.typeFromSyntax(boundSyntax, false))
		}
		if len(bounds) == 0 {
			bounds = append(bounds, ctx.topType())
		}
		param.setBounds(bounds)
		methodCtx.boundsWellFormed(param, paramDecl)
	}
	for _, paramDecl := range methodDecl.Params {
		sig.params = append(sig.params, methodCtx.typeFromSyntax(paramDecl.Type, false))
		sig.paramNames = append(sig.paramNames, paramDecl.Name)
	}
	if methodDecl.Return != nil {
		sig.ret = methodCtx.typeFromSyntax(methodDecl.Return, false)
	}
	return sig
}

// checkBodies type-checks every method body of def, annotating each
// expression with its most specific static type
func (ctx *TypeCtx) checkBodies(def *TypeDefinition) {
	if def.state == stateRejected {
		return
	}
	selfType := ctx.selfInstanceOf(def)
	for i := range def.methods {
		sig := &def.methods[i]
		if sig.syntax == nil || sig.syntax.Body == nil {
			continue
		}
		bodyCtx := ctx.nest()
		bodyCtx.currentDecl = def
		bodyCtx.typeParamScope = maps.Clone(ctx.typeParamScope)
		for _, param := range def.typeParams {
			bodyCtx.typeParamScope[param.name] = param
		}
		for _, param := range sig.typeParams {
			bodyCtx.typeParamScope[param.name] = param
		}
		bodyCtx.env = bodyCtx.env.Set("this", selfType)
		for j, paramType := range sig.params {
			bodyCtx.env = bodyCtx.env.Set(sig.paramNames[j], paramType)
		}

		var last SimpleType
		for _, expr := range sig.syntax.Body {
			last = bodyCtx.typeExpr(expr)
			if let, ok := expr.(*ir.Let); ok {
				bound, _ := bodyCtx.exprTypes[cacheKeyOf(let)]
				bodyCtx = bodyCtx.withBinding(let.Name, bound)
			}
		}
		if sig.ret != nil && last != nil && !ctx.isSubtype(last, sig.ret, nil) {
			ctx.addError(opalerr.New(opalerr.NewTypeMismatch{
				Positioner: sig.syntax,
				Want:       sig.ret,
				Got:        last,
				Reason:     "method body does not produce the declared return type",
			}))
		}
	}
}

// selfInstanceOf is the type of 'this' inside def: the declaration applied to
// its own parameters
func (ctx *TypeCtx) selfInstanceOf(def *TypeDefinition) SimpleType {
	if def.arity() == 0 {
		return ctx.classTagFor(def.name, emptyProv)
	}
	args := make([]SimpleType, def.arity())
	for i, param := range def.typeParams {
		args[i] = ctx.paramRefFor(param, emptyProv)
	}
	return ctx.appliedFor(def.name, args, emptyProv)
}

// typeFromSyntax resolves a surface annotation into the interned internal
// representation, reporting well-formedness violations as it goes.
// allowWildcard is true only in type-argument positions
func (ctx *TypeCtx) typeFromSyntax(t ir.Type, allowWildcard bool) SimpleType {
	prov := typeProvenance{Range: ir.RangeOf(t), desc: "type annotation"}
	switch t := t.(type) {
	case *ir.TypeName:
		if param, ok := ctx.typeParamScope[t.Name]; ok {
			return ctx.paramRefFor(param, prov)
		}
		if def, ok := ctx.typeDefs[t.Name]; ok {
			ctx.noteSelfReference(def)
			return ctx.classTagFor(t.Name, prov)
		}
		ctx.addError(opalerr.New(opalerr.NewUnknownType{Positioner: t, Name: t.Name}))
		return errorType()
	case *ir.PrimitiveType:
		if !isPrimitiveName(t.Name) {
			ctx.addError(opalerr.New(opalerr.NewUnknownType{Positioner: t, Name: t.Name}))
			return errorType()
		}
		return ctx.primitiveFor(t.Name, prov)
	case *ir.AppliedType:
		if _, isParam := ctx.typeParamScope[t.Base.Name]; isParam {
			ctx.addError(opalerr.New(opalerr.NewMalformedType{
				Positioner: t,
				Detail:     "type parameter '" + t.Base.Name + "' cannot take type arguments",
			}))
			return errorType()
		}
		def, ok := ctx.typeDefs[t.Base.Name]
		if !ok {
			ctx.addError(opalerr.New(opalerr.NewUnknownType{Positioner: t, Name: t.Base.Name}))
			return errorType()
		}
		ctx.noteSelfReference(def)
		if def.arity() != len(t.Args) {
			ctx.addError(opalerr.New(opalerr.NewMalformedType{
				Positioner: t,
				Detail:     "'" + def.name + "' declares " + strconv.Itoa(def.arity()) + " type parameter(s), got " + strconv.Itoa(len(t.Args)),
			}))
			return errorType()
		}
		args := make([]SimpleType, len(t.Args))
		for i, argSyntax := range t.Args {
			args[i] = ctx.typeFromSyntax(argSyntax, true)
		}
		// bounds may reference any parameter of the same list, own
		// parameter included, so substitute the whole argument vector
		subst := make(Substitution, def.arity())
		for i, param := range def.typeParams {
			subst[param.id] = args[i]
		}
		for i, param := range def.typeParams {
			ctx.checkArgument(param, args[i], subst, t)
		}
		return ctx.appliedFor(def.name, args, prov)
	case *ir.WildcardType:
		if !allowWildcard {
			ctx.addError(opalerr.New(opalerr.NewMalformedType{
				Positioner: t,
				Detail:     "wildcard is only allowed as a type argument",
			}))
			return errorType()
		}
		if (t.Kind == ir.WildcardAny) != (t.Bound == nil) {
			detail := "bounded wildcard is missing its bound"
			if t.Bound != nil {
				detail = "unbounded wildcard cannot carry a bound"
			}
			ctx.addError(opalerr.New(opalerr.NewMalformedType{
				Positioner: t,
				Detail:     detail,
			}))
			return errorType()
		}
		var bound SimpleType
		if t.Bound != nil {
			if _, nested := t.Bound.(*ir.WildcardType); nested {
				ctx.addError(opalerr.New(opalerr.NewMalformedType{
					Positioner: t,
					Detail:     "wildcard cannot be bounded by another wildcard",
				}))
				return errorType()
			}
			bound = ctx.typeFromSyntax(t.Bound, false)
		}
		return ctx.wildcardFor(t.Kind, bound, prov)
	default:
		ctx.addFailure("unknown surface type form", t)
		return errorType()
	}
}

// noteSelfReference records references back to a declaration that is still
// in the Checking state. The first such reference is the recursive-bound case
// (T extends Comparable<T>) and is always legal; it must never be mistaken
// for runaway recursion
func (ctx *TypeCtx) noteSelfReference(def *TypeDefinition) {
	if def.state != stateChecking {
		return
	}
	if current, ok := ctx.checking.Peek(); ok && current == def {
		def.selfRefs++
	}
}

// typeExpr checks one expression and records its static type
func (ctx *TypeCtx) typeExpr(expr ir.Expr) (ret SimpleType) {
	defer func() {
		if ret == nil {
			ret = errorType()
		}
		ctx.putExprType(expr, ret)
	}()
	switch expr := expr.(type) {
	case *ir.Var:
		t, ok := ctx.get(expr.Name)
		if !ok {
			ctx.addError(opalerr.New(opalerr.NewUndefinedVariable{Positioner: expr, Name: expr.Name}))
			return errorType()
		}
		return t
	case *ir.This:
		t, ok := ctx.get("this")
		if !ok {
			ctx.addFailure("'this' outside of a method body", expr)
			return errorType()
		}
		return t
	case *ir.IntLit:
		// integer literals box directly; there is no unboxed literal form
		return ctx.classTagFor("Integer", emptyProv)
	case *ir.StringLit:
		return ctx.classTagFor("String", emptyProv)
	case *ir.Let:
		value := ctx.typeExpr(expr.Value)
		if expr.Ann == nil {
			return value
		}
		annotated := ctx.typeFromSyntax(expr.Ann, false)
		if !ctx.isSubtype(value, annotated, nil) {
			ctx.addError(opalerr.New(opalerr.NewTypeMismatch{
				Positioner: expr,
				Want:       annotated,
				Got:        value,
			}))
		}
		return annotated
	case *ir.Call:
		recv := ctx.typeExpr(expr.Recv)
		return ctx.checkCall(expr, recv)
	case *ir.New:
		return ctx.typeNew(expr)
	case *ir.NewArray:
		return ctx.typeNewArray(expr)
	case *ir.TypeTest:
		return ctx.typeTypeTest(expr)
	case *ir.Cast:
		ctx.typeExpr(expr.Value)
		return ctx.typeFromSyntax(expr.To, false)
	default:
		ctx.addFailure("unknown expression form", expr)
		return errorType()
	}
}

func (ctx *TypeCtx) typeNew(expr *ir.New) SimpleType {
	if name, ok := expr.Type.(*ir.TypeName); ok {
		if _, isParam := ctx.typeParamScope[name.Name]; isParam {
			// no runtime type stands behind the parameter after erasure
			ctx.addError(opalerr.New(opalerr.NewErasedContextViolation{
				Positioner: expr,
				Construct:  "instantiation",
				Type:       name,
			}))
			return errorType()
		}
	}
	resolved := ctx.typeFromSyntax(expr.Type, false)
	if applied, ok := resolved.(*appliedType); ok {
		for _, arg := range applied.args {
			if _, isWild := arg.(*wildcardType); isWild {
				ctx.addError(opalerr.New(opalerr.NewMalformedType{
					Positioner: expr,
					Detail:     "cannot instantiate a wildcard parameterization",
				}))
				return errorType()
			}
		}
	}
	for _, arg := range expr.Args {
		ctx.typeExpr(arg)
	}
	return resolved
}

func (ctx *TypeCtx) typeNewArray(expr *ir.NewArray) SimpleType {
	if name, ok := expr.Elem.(*ir.TypeName); ok {
		if _, isParam := ctx.typeParamScope[name.Name]; isParam {
			ctx.addError(opalerr.New(opalerr.NewErasedContextViolation{
				Positioner: expr,
				Construct:  "array creation",
				Type:       name,
			}))
			return errorType()
		}
	}
	elem := ctx.typeFromSyntax(expr.Elem, false)
	length := ctx.typeExpr(expr.Len)
	intType := ctx.primitiveFor(PrimInt, emptyProv)
	if !Equal(length, intType) && !ctx.isSubtype(length, ctx.classTagFor("Integer", emptyProv), nil) {
		ctx.addError(opalerr.New(opalerr.NewTypeMismatch{
			Positioner: expr.Len,
			Want:       intType,
			Got:        length,
			Reason:     "array length",
		}))
	}
	if isError(elem) {
		return errorType()
	}
	return ctx.appliedFor("Array", []SimpleType{elem}, typeProvenance{Range: ir.RangeOf(expr), desc: "array creation"})
}

func (ctx *TypeCtx) typeTypeTest(expr *ir.TypeTest) SimpleType {
	ctx.typeExpr(expr.Value)
	boolean := ctx.classTagFor("Boolean", emptyProv)
	switch tested := expr.Tested.(type) {
	case *ir.AppliedType:
		// only the raw head survives erasure, so testing the full
		// parameterization is unanswerable at runtime
		ctx.addError(opalerr.New(opalerr.NewErasedContextViolation{
			Positioner: expr,
			Construct:  "type test against a parameterization",
			Type:       tested,
		}))
		return errorType()
	case *ir.TypeName:
		if _, isParam := ctx.typeParamScope[tested.Name]; isParam {
			ctx.addError(opalerr.New(opalerr.NewErasedContextViolation{
				Positioner: expr,
				Construct:  "type test",
				Type:       tested,
			}))
			return errorType()
		}
		ctx.typeFromSyntax(tested, false)
		return boolean
	default:
		ctx.typeFromSyntax(expr.Tested, false)
		return boolean
	}
}

// findMember resolves a member by name and parameter count along the
// supertype instances of the receiver, capturing the receiver's argument
// positions at the instance that declares the member. Type parameters as
// receivers resolve members through their bounds
func (ctx *TypeCtx) findMember(recv SimpleType, name string, argc int) (receiverCapture, MethodSig, bool) {
	starts := []SimpleType{recv}
	if ref, ok := recv.(*paramRef); ok {
		starts = ref.param.Bounds()
	}
	for _, start := range starts {
		for instance := range ctx.supertypeInstances(start) {
			def, ok := ctx.typeDefs[headNameOf(instance)]
			if !ok {
				continue
			}
			if sig, ok := def.Method(name, argc); ok {
				return ctx.captureReceiver(def, instance), sig, true
			}
		}
	}
	return receiverCapture{}, MethodSig{}, false
}

// checkCall validates one call site: receiver capture (variance), method
// type arguments (explicit or inferred), argument compatibility, and the
// resulting static type
func (ctx *TypeCtx) checkCall(call *ir.Call, recv SimpleType) SimpleType {
	if isError(recv) {
		return errorType()
	}
	capture, sig, found := ctx.findMember(recv, call.Method, len(call.Args))
	if !found {
		ctx.addError(opalerr.New(opalerr.NewUnknownMember{
			Positioner: call,
			Receiver:   recv,
			Member:     call.Method,
		}))
		return errorType()
	}

	actuals := make([]SimpleType, len(call.Args))
	for i, arg := range call.Args {
		actuals[i] = ctx.typeExpr(arg)
	}

	// arguments are write positions of the receiver: the single variance
	// rule substitutes each class parameter's safe write type or rejects
	formals := make([]SimpleType, len(sig.params))
	for i, formal := range sig.params {
		substituted, offender := capture.writeFormal(formal)
		if offender != nil {
			ctx.addError(opalerr.New(opalerr.NewVarianceViolation{
				Positioner: call,
				Receiver:   capture.instance,
				Member:     call.Method,
				Detail:     "no value can be safely written for '" + offender.Name() + "' through this receiver",
			}))
			return errorType()
		}
		formals[i] = substituted
	}

	classOut := capture.outSubst()
	var methodSubst Substitution
	if len(sig.typeParams) > 0 {
		if len(call.TypeArgs) > 0 {
			methodSubst = ctx.explicitTypeArgs(call, sig, classOut)
		} else {
			methodSubst = ctx.inferTypeArgs(call, sig, classOut, formals, actuals)
		}
		if methodSubst == nil {
			return errorType()
		}
		for i := range formals {
			formals[i] = methodSubst.Apply(formals[i])
		}
	} else if len(call.TypeArgs) > 0 {
		ctx.addError(opalerr.New(opalerr.NewArityMismatch{
			Positioner: call,
			Name:       call.Method,
			Want:       0,
			Got:        len(call.TypeArgs),
		}))
		return errorType()
	}

	for i, actual := range actuals {
		if !ctx.isSubtype(actual, formals[i], nil) {
			ctx.addError(opalerr.New(opalerr.NewTypeMismatch{
				Positioner: call.Args[i],
				Want:       formals[i],
				Got:        actual,
			}))
		}
	}

	if sig.ret == nil {
		return ctx.primitiveFor("void", emptyProv)
	}
	ctx.declaredReturns[cacheKeyOf(call)] = sig.ret
	// the return is a read position: class parameters substitute their safe
	// read types
	ret := classOut.Apply(sig.ret)
	if methodSubst != nil {
		ret = methodSubst.Apply(ret)
	}
	return ctx.intern(ret)
}

// explicitTypeArgs validates supplied method type arguments against the
// signature's parameter bounds
func (ctx *TypeCtx) explicitTypeArgs(call *ir.Call, sig MethodSig, classOut Substitution) Substitution {
	if len(call.TypeArgs) != len(sig.typeParams) {
		ctx.addError(opalerr.New(opalerr.NewArityMismatch{
			Positioner: call,
			Name:       call.Method,
			Want:       len(sig.typeParams),
			Got:        len(call.TypeArgs),
		}))
		return nil
	}
	subst := make(Substitution, len(sig.typeParams))
	for i, param := range sig.typeParams {
		argSyntax := call.TypeArgs[i]
		if _, isWild := argSyntax.(*ir.WildcardType); isWild {
			ctx.addError(opalerr.New(opalerr.NewUnsupportedTypeArgument{
				Positioner: argSyntax,
				Type:       argSyntax,
			}))
			return nil
		}
		subst[param.id] = ctx.typeFromSyntax(argSyntax, false)
	}
	ok := true
	for i, param := range sig.typeParams {
		boundSubst := classOut.compose(subst)
		if !ctx.checkArgument(param, subst[param.id], boundSubst, call.TypeArgs[i]) {
			ok = false
		}
	}
	if !ok {
		return nil
	}
	return subst
}
