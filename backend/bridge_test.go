package backend

import (
	"testing"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeForNarrowedOverride(t *testing.T) {
	stringBox := ir.ClassDecl{
		Kind:    ir.KindClass,
		Name:    "StringBox",
		Super:   applied("Box", tn("String")),
		Methods: []ir.MethodDecl{{Name: "get", Return: tn("String")}},
	}
	unit := erase(t, boxDecl(), stringBox)

	require.Len(t, unit.Bridges, 1)
	bridge := unit.Bridges[0]
	assert.Equal(t, "StringBox", bridge.Class)
	assert.Equal(t, "get", bridge.Method)
	assert.Equal(t, "() Object", bridge.Inherited.String())
	assert.Equal(t, "() String", bridge.Target.String())
}

func TestNoBridgeWhenErasuresAgree(t *testing.T) {
	objectBox := ir.ClassDecl{
		Kind:    ir.KindClass,
		Name:    "ObjectBox",
		Super:   applied("Box", tn("Object")),
		Methods: []ir.MethodDecl{{Name: "get", Return: tn("Object")}},
	}
	unit := erase(t, boxDecl(), objectBox)
	assert.Empty(t, unit.Bridges)
}

func TestBridgeForInterfaceOverride(t *testing.T) {
	point := ir.ClassDecl{
		Kind:       ir.KindClass,
		Name:       "Point",
		Interfaces: []ir.Type{applied("Comparable", tn("Point"))},
		Methods: []ir.MethodDecl{{
			Name:   "compareTo",
			Params: []ir.ParamDecl{{Name: "other", Type: tn("Point")}},
			Return: &ir.PrimitiveType{Name: "int"},
		}},
	}
	unit := erase(t, point)

	require.Len(t, unit.Bridges, 1)
	bridge := unit.Bridges[0]
	assert.Equal(t, "Point", bridge.Class)
	assert.Equal(t, "compareTo", bridge.Method)
	assert.Equal(t, "(Object) int", bridge.Inherited.String())
	assert.Equal(t, "(Point) int", bridge.Target.String())
}

func TestBridgeTableIsSorted(t *testing.T) {
	sub := func(name, arg string) ir.ClassDecl {
		return ir.ClassDecl{
			Kind:    ir.KindClass,
			Name:    name,
			Super:   applied("Box", tn(arg)),
			Methods: []ir.MethodDecl{{Name: "get", Return: tn(arg)}},
		}
	}
	unit := erase(t, boxDecl(), sub("ZBox", "String"), sub("ABox", "Integer"))

	require.Len(t, unit.Bridges, 2)
	assert.Equal(t, "ABox", unit.Bridges[0].Class)
	assert.Equal(t, "ZBox", unit.Bridges[1].Class)
}
