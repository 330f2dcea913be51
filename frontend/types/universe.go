package types

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/opal-lang/opal/frontend/ir"
)

// Primitive type names accepted in surface annotations
const (
	PrimInt     = "int"
	PrimDouble  = "double"
	PrimBoolean = "boolean"
)

var primitiveNames = []string{PrimInt, PrimDouble, PrimBoolean}

// populateUniverse installs the library declarations every unit can assume:
// the boxed scalar hierarchy below Object, Comparable, and the List and Array
// containers. A host build system merging more shared declarations would add
// them the same way, before any checking starts, and they stay immutable
// afterwards
func (ctx *TypeCtx) populateUniverse() {
	top := ctx.topType()

	object := &TypeDefinition{
		defKind:     ir.KindClass,
		name:        TopName,
		state:       stateChecked,
		baseClasses: set.From([]typeName{TopName}),
	}
	ctx.typeDefs[TopName] = object

	// Comparable<T> is declared before its implementors so their interface
	// instances resolve
	comparableT := ctx.fresher.newTypeParameter("T", "interface Comparable")
	comparableT.setBounds([]SimpleType{top})
	comparable := &TypeDefinition{
		defKind:    ir.KindInterface,
		name:       "Comparable",
		typeParams: []*TypeParameter{comparableT},
		methods: []MethodSig{{
			name:       "compareTo",
			params:     []SimpleType{ctx.paramRefFor(comparableT, emptyProv)},
			paramNames: []string{"other"},
			ret:        ctx.primitiveFor(PrimInt, emptyProv),
			owner:      "Comparable",
		}},
		state:       stateChecked,
		baseClasses: set.From([]typeName{"Comparable", TopName}),
	}
	ctx.typeDefs["Comparable"] = comparable

	ctx.declareUniverseClass("Number", top, nil, nil)
	number := ctx.classTagFor("Number", emptyProv)

	ctx.declareUniverseClass("Integer", number,
		[]SimpleType{ctx.comparableOf("Integer")},
		[]MethodSig{{
			name:  "intValue",
			ret:   ctx.primitiveFor(PrimInt, emptyProv),
			owner: "Integer",
		}})
	ctx.declareUniverseClass("Double", number,
		[]SimpleType{ctx.comparableOf("Double")},
		[]MethodSig{{
			name:  "doubleValue",
			ret:   ctx.primitiveFor(PrimDouble, emptyProv),
			owner: "Double",
		}})
	ctx.declareUniverseClass("Boolean", top, nil, nil)
	ctx.declareUniverseClass("String", top, []SimpleType{ctx.comparableOf("String")}, nil)

	// List<E> carries the canonical producer/consumer member pair: get reads
	// E, add writes E
	listE := ctx.fresher.newTypeParameter("E", "class List")
	listE.setBounds([]SimpleType{top})
	eRef := ctx.paramRefFor(listE, emptyProv)
	list := &TypeDefinition{
		defKind:    ir.KindClass,
		name:       "List",
		typeParams: []*TypeParameter{listE},
		super:      top,
		methods: []MethodSig{
			{
				name:       "get",
				params:     []SimpleType{ctx.primitiveFor(PrimInt, emptyProv)},
				paramNames: []string{"index"},
				ret:        eRef,
				owner:      "List",
			},
			{
				name:       "add",
				params:     []SimpleType{eRef},
				paramNames: []string{"element"},
				ret:        ctx.classTagFor("Boolean", emptyProv),
				owner:      "List",
			},
			{
				name:  "size",
				ret:   ctx.primitiveFor(PrimInt, emptyProv),
				owner: "List",
			},
		},
		state:       stateChecked,
		baseClasses: set.From([]typeName{"List", TopName}),
	}
	ctx.typeDefs["List"] = list

	// Array<T> backs the surface array-creation construct
	arrayT := ctx.fresher.newTypeParameter("T", "class Array")
	arrayT.setBounds([]SimpleType{top})
	tRef := ctx.paramRefFor(arrayT, emptyProv)
	array := &TypeDefinition{
		defKind:    ir.KindClass,
		name:       "Array",
		typeParams: []*TypeParameter{arrayT},
		super:      top,
		methods: []MethodSig{
			{
				name:       "at",
				params:     []SimpleType{ctx.primitiveFor(PrimInt, emptyProv)},
				paramNames: []string{"index"},
				ret:        tRef,
				owner:      "Array",
			},
			{
				name:  "length",
				ret:   ctx.primitiveFor(PrimInt, emptyProv),
				owner: "Array",
			},
		},
		state:       stateChecked,
		baseClasses: set.From([]typeName{"Array", TopName}),
	}
	ctx.typeDefs["Array"] = array
}

func (ctx *TypeCtx) declareUniverseClass(name typeName, super SimpleType, interfaces []SimpleType, methods []MethodSig) {
	bases := set.From([]typeName{name, TopName})
	if super != nil {
		if superDef, ok := ctx.typeDefs[headNameOf(super)]; ok {
			bases.InsertSet(superDef.baseClasses)
		}
	}
	for _, iface := range interfaces {
		bases.Insert(headNameOf(iface))
	}
	ctx.typeDefs[name] = &TypeDefinition{
		defKind:     ir.KindClass,
		name:        name,
		super:       super,
		interfaces:  interfaces,
		methods:     methods,
		state:       stateChecked,
		baseClasses: bases,
	}
}

func (ctx *TypeCtx) comparableOf(name typeName) SimpleType {
	return ctx.appliedFor("Comparable", []SimpleType{ctx.classTagFor(name, emptyProv)}, emptyProv)
}

// boxOf maps a primitive to its box in the universe hierarchy
func boxOf(name string) (typeName, bool) {
	switch name {
	case PrimInt:
		return "Integer", true
	case PrimDouble:
		return "Double", true
	case PrimBoolean:
		return "Boolean", true
	default:
		return "", false
	}
}

func isPrimitiveName(name string) bool {
	for _, p := range primitiveNames {
		if p == name {
			return true
		}
	}
	return false
}
