package types

import (
	"fmt"
	"iter"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/opal-lang/opal/internal/log"
	"github.com/opal-lang/opal/util"
)

type typeError struct {
	message string
	// Positioner may be nil
	ir.Positioner
	stack []byte
}

func (err typeError) String() string {
	stack := strings.Split(string(err.stack), "\n")[6]
	return fmt.Sprintf("( %s ): %s", strings.TrimSpace(stack), err.message)
}
func (err typeError) Error() string {
	return err.String()
}

// TypeCtx holds the scope and mutable state of checking one compilation unit.
// Nested scopes copy the ctx and share the TypeState
type TypeCtx struct {
	parent *TypeCtx // can be nil
	// env binds term variables (method params, lets, this) to their types
	env      *immutable.Map[string, SimpleType]
	typeDefs map[typeName]*TypeDefinition
	// typeParamScope binds surface names of in-scope type parameters;
	// method scopes shadow class scopes by name, never by identity
	typeParamScope map[string]*TypeParameter

	// currentDecl is the definition whose members are being checked, if any
	currentDecl *TypeDefinition

	// here to avoid passing a position on every function call
	currentPos ir.Positioner

	logger *slog.Logger

	*TypeState
}

// TypeState is shared across all nested copies of a TypeCtx during the
// checking of a single unit. It is not concurrency safe; independent units
// each own their own state
type TypeState struct {
	fresher *Fresher

	// interner hash-conses every constructed SimpleType so structural
	// equality is a hash comparison
	interner map[uint64]SimpleType

	// Failures are irrecoverable unexpected scenarios
	// that a normal program should never hit
	Failures []error
	// Errors are language problems that a malformed program could cause
	Errors *opalerr.Errors

	// exprTypes records the most specific static type of every checked
	// expression; the erasure pass reads it to decide cast insertion
	exprTypes map[exprCacheEntry]SimpleType
	// declaredReturns records, per call site, the resolved member's declared
	// (pre-substitution) return type
	declaredReturns map[exprCacheEntry]SimpleType

	// checking tracks the declarations currently in the Checking state
	checking util.Stack[*TypeDefinition]
}

type exprCacheEntry struct {
	r        ir.Range
	exprHash uint64
}

func cacheKeyOf(expr ir.Expr) exprCacheEntry {
	return exprCacheEntry{r: ir.RangeOf(expr), exprHash: expr.Hash()}
}

func (ctx *TypeCtx) putExprType(expr ir.Expr, typ SimpleType) {
	ctx.exprTypes[cacheKeyOf(expr)] = typ
}

// NewEmptyTypeCtx is the entry point to get a TypeCtx for a fresh unit; it
// comes pre-populated with the immutable universe declarations.
// To derive a ctx from another one, use nest
func NewEmptyTypeCtx() *TypeCtx {
	fresher := NewFresher()
	ctx := &TypeCtx{
		parent:         nil,
		env:            immutable.NewMap[string, SimpleType](nil),
		typeDefs:       make(map[typeName]*TypeDefinition),
		typeParamScope: make(map[string]*TypeParameter),
		TypeState: &TypeState{
			fresher:         fresher,
			interner:        make(map[uint64]SimpleType),
			Errors:          &opalerr.Errors{},
			exprTypes:       make(map[exprCacheEntry]SimpleType),
			declaredReturns: make(map[exprCacheEntry]SimpleType),
		},
		logger: slog.New(ir.OpalIRSlogHandler(log.DefaultLogger.Handler())).With("section", "types"),
	}
	ctx.populateUniverse()
	return ctx
}

// nest returns a child scope sharing the TypeState
func (ctx *TypeCtx) nest() *TypeCtx {
	copied := *ctx
	copied.parent = ctx
	return &copied
}

func (ctx *TypeCtx) withBinding(name string, typ SimpleType) *TypeCtx {
	child := ctx.nest()
	child.env = ctx.env.Set(name, typ)
	return child
}

func (ctx *TypeCtx) get(name string) (SimpleType, bool) {
	return ctx.env.Get(name)
}

func (ctx *TypeState) addFailure(message string, pos ir.Positioner) {
	ctx.Failures = append(ctx.Failures, typeError{message: message, Positioner: pos, stack: debug.Stack()})
}

func (ctx *TypeCtx) addError(err opalerr.OpalError) {
	ctx.logger.Warn("error during checking", "message", err.Error(), "at", opalerr.FormatWithCode(err))
	ctx.Errors = ctx.Errors.With(err)
}

// intern returns the canonical instance for t so later comparisons are O(1).
// Provenance of the first construction wins; provenance never takes part in
// type identity
func (ctx *TypeCtx) intern(t SimpleType) SimpleType {
	if existing, ok := ctx.interner[t.Hash()]; ok {
		return existing
	}
	ctx.interner[t.Hash()] = t
	return t
}

func (ctx *TypeCtx) classTagFor(name typeName, prov typeProvenance) SimpleType {
	return ctx.intern(&classTag{name: name, withProvenance: prov.embed()})
}

func (ctx *TypeCtx) primitiveFor(name typeName, prov typeProvenance) SimpleType {
	return ctx.intern(&primitiveType{name: name, withProvenance: prov.embed()})
}

func (ctx *TypeCtx) paramRefFor(param *TypeParameter, prov typeProvenance) SimpleType {
	return ctx.intern(&paramRef{param: param, withProvenance: prov.embed()})
}

// appliedFor interns a parameterized type. Arity against the declared head is
// the caller's responsibility; use typeFromSyntax for checked construction
func (ctx *TypeCtx) appliedFor(base typeName, args []SimpleType, prov typeProvenance) SimpleType {
	return ctx.intern(&appliedType{base: base, args: args, withProvenance: prov.embed()})
}

func (ctx *TypeCtx) wildcardFor(kind ir.WildcardKind, bound SimpleType, prov typeProvenance) SimpleType {
	return ctx.intern(&wildcardType{kind: kind, bound: bound, withProvenance: prov.embed()})
}

func (ctx *TypeCtx) topType() SimpleType {
	return ctx.classTagFor(TopName, emptyProv)
}

// Definition looks up a processed declaration by name
func (ctx *TypeCtx) Definition(name typeName) (*TypeDefinition, bool) {
	def, ok := ctx.typeDefs[name]
	return def, ok
}

// ctxCache stores ordered pairs of types' hashes mapped to whether they are
// subtypes; it makes recursive bounds (T extends Comparable<T>) converge
// instead of recursing forever
type ctxCache map[[2]uint64]bool

func (c ctxCache) get(l, r SimpleType) (sub bool, ok bool) {
	sub, ok = c[[2]uint64{l.Hash(), r.Hash()}]
	return sub, ok
}
func (c ctxCache) put(l, r SimpleType, sub bool) {
	c[[2]uint64{l.Hash(), r.Hash()}] = sub
}

// IsSubtype reports whether this <: that under the unit's declarations
func (ctx *TypeCtx) IsSubtype(this, that SimpleType) bool {
	return ctx.isSubtype(this, that, nil)
}

func (ctx *TypeCtx) isSubtype(this, that SimpleType, cache ctxCache) bool {
	if this == nil || that == nil {
		return this == that
	}
	if Equal(this, that) {
		return true
	}
	// a reported defect already covers anything the error type touches
	if isError(this) || isError(that) {
		return true
	}
	if cache == nil {
		cache = make(ctxCache)
	}
	if sub, ok := cache.get(this, that); ok {
		return sub
	}
	// assume true while deciding, so recursive bounds converge
	cache.put(this, that, true)
	sub := ctx.isSubtypeUncached(this, that, cache)
	cache.put(this, that, sub)
	return sub
}

func (ctx *TypeCtx) isSubtypeUncached(this, that SimpleType, cache ctxCache) bool {
	// a primitive and its box convert implicitly in assignment positions
	if p, ok := this.(*primitiveType); ok {
		if boxed, ok := boxOf(p.name); ok {
			return ctx.isSubtype(ctx.classTagFor(boxed, emptyProv), that, cache)
		}
		return false
	}
	if p, ok := that.(*primitiveType); ok {
		if boxed, ok := boxOf(p.name); ok {
			return ctx.isSubtype(this, ctx.classTagFor(boxed, emptyProv), cache)
		}
		return false
	}
	// everything boxed is below the top type
	if tag, ok := that.(*classTag); ok && tag.name == TopName {
		return true
	}
	// a parameter is below anything above one of its bounds
	if ref, ok := this.(*paramRef); ok {
		for _, bound := range ref.param.Bounds() {
			if ctx.isSubtype(bound, that, cache) {
				return true
			}
		}
		return false
	}
	if _, ok := that.(*paramRef); ok {
		// only reachable via identity, handled above
		return false
	}
	// wildcards never stand alone; containment is handled per argument
	// position in appliedArgsContained
	if _, ok := this.(*wildcardType); ok {
		return false
	}
	if _, ok := that.(*wildcardType); ok {
		return false
	}

	switch that := that.(type) {
	case *classTag:
		// raw supertype: any instantiation of a subclass will do
		for instance := range ctx.supertypeInstances(this) {
			if headNameOf(instance) == that.name {
				return true
			}
		}
		return false
	case *appliedType:
		for instance := range ctx.supertypeInstances(this) {
			applied, ok := instance.(*appliedType)
			if !ok || applied.base != that.base {
				continue
			}
			return ctx.appliedArgsContained(applied, that, cache)
		}
		return false
	default:
		ctx.addFailure(fmt.Sprintf("isSubtype not implemented for: %s: %T and %s: %T", this, this, that, that), this.prov())
		return false
	}
}

// appliedArgsContained checks the use-site containment rule for each argument
// position: invariance for ground arguments, bound checks for wildcards
func (ctx *TypeCtx) appliedArgsContained(this, that *appliedType, cache ctxCache) bool {
	if len(this.args) != len(that.args) {
		return false
	}
	for i, thatArg := range that.args {
		thisArg := this.args[i]
		if !ctx.argContained(thisArg, thatArg, cache) {
			return false
		}
	}
	return true
}

func (ctx *TypeCtx) argContained(thisArg, thatArg SimpleType, cache ctxCache) bool {
	thatWild, thatIsWild := thatArg.(*wildcardType)
	if !thatIsWild {
		// invariant position
		return Equal(thisArg, thatArg)
	}
	// read thisArg down to the range of types it can be
	var thisUpper, thisLower SimpleType
	switch thisArg := thisArg.(type) {
	case *wildcardType:
		switch thisArg.kind {
		case ir.WildcardUpper:
			thisUpper = thisArg.bound
		case ir.WildcardLower:
			thisLower = thisArg.bound
		}
	default:
		thisUpper, thisLower = thisArg, thisArg
	}
	switch thatWild.kind {
	case ir.WildcardAny:
		return true
	case ir.WildcardUpper:
		return thisUpper != nil && ctx.isSubtype(thisUpper, thatWild.bound, cache)
	case ir.WildcardLower:
		return thisLower != nil && ctx.isSubtype(thatWild.bound, thisLower, cache)
	default:
		return false
	}
}

func headNameOf(t SimpleType) typeName {
	switch t := t.(type) {
	case *classTag:
		return t.name
	case *appliedType:
		return t.base
	default:
		return ""
	}
}

// supertypeInstances yields t and every transitive supertype instance of t,
// with type arguments substituted along extends/implements edges. For a raw
// head the hierarchy is walked raw: arguments are discarded upward
func (ctx *TypeCtx) supertypeInstances(t SimpleType) iter.Seq[SimpleType] {
	return func(yield func(SimpleType) bool) {
		seen := util.NewEmptySet[uint64]()
		var walk func(SimpleType) bool
		walk = func(t SimpleType) bool {
			if t == nil {
				return true
			}
			if seen.Contains(t.Hash()) {
				return true
			}
			seen.Add(t.Hash())
			if !yield(t) {
				return false
			}
			name := headNameOf(t)
			def, ok := ctx.typeDefs[name]
			if !ok {
				return true
			}
			var subst Substitution
			if applied, ok := t.(*appliedType); ok && len(def.typeParams) == len(applied.args) {
				subst = make(Substitution, len(applied.args))
				for i, param := range def.typeParams {
					subst[param.id] = applied.args[i]
				}
			} else if def.arity() > 0 {
				// raw walk: erase arguments upward
				subst = make(Substitution, def.arity())
				for _, param := range def.typeParams {
					subst[param.id] = ctx.rawUpper(param)
				}
			}
			if def.super != nil {
				if !walk(ctx.rawOrSubstituted(def.super, subst)) {
					return false
				}
			}
			for _, iface := range def.interfaces {
				if !walk(ctx.rawOrSubstituted(iface, subst)) {
					return false
				}
			}
			if name != TopName {
				return walk(ctx.topType())
			}
			return true
		}
		walk(t)
	}
}

// rawOrSubstituted applies subst, then collapses any instance that still
// mentions free parameters into its raw head (the raw-walk case)
func (ctx *TypeCtx) rawOrSubstituted(t SimpleType, subst Substitution) SimpleType {
	substituted := subst.Apply(t)
	return ctx.intern(substituted)
}

// rawUpper is the argument a raw walk substitutes for param: its first bound,
// or the top type
func (ctx *TypeCtx) rawUpper(param *TypeParameter) SimpleType {
	bounds := param.Bounds()
	if len(bounds) == 0 {
		return ctx.topType()
	}
	return bounds[0]
}

// asSupertypeInstance finds the instantiation of base among the supertypes of
// t, if any
func (ctx *TypeCtx) asSupertypeInstance(t SimpleType, base typeName) (SimpleType, bool) {
	for instance := range ctx.supertypeInstances(t) {
		if headNameOf(instance) == base {
			return instance, true
		}
	}
	return nil, false
}
