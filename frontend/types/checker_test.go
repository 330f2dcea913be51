package types

import (
	"go/token"
	"testing"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tn(name string) *ir.TypeName {
	return &ir.TypeName{Name: name}
}

func applied(base string, args ...ir.Type) *ir.AppliedType {
	return &ir.AppliedType{Base: ir.TypeName{Name: base}, Args: args}
}

func prim(name string) *ir.PrimitiveType {
	return &ir.PrimitiveType{Name: name}
}

func wildAny() *ir.WildcardType {
	return &ir.WildcardType{Kind: ir.WildcardAny}
}

func wildExtends(bound ir.Type) *ir.WildcardType {
	return &ir.WildcardType{Kind: ir.WildcardUpper, Bound: bound}
}

func wildSuper(bound ir.Type) *ir.WildcardType {
	return &ir.WildcardType{Kind: ir.WildcardLower, Bound: bound}
}

func at(line int) ir.Range {
	return ir.Range{PosStart: token.Pos(line), PosEnd: token.Pos(line)}
}

func check(decls ...ir.ClassDecl) *CheckedUnit {
	return NewEmptyTypeCtx().ProcessDeclarations(decls)
}

func codesOf(unit *CheckedUnit) []opalerr.ErrCode {
	var codes []opalerr.ErrCode
	for _, err := range unit.Errors().Errors() {
		codes = append(codes, err.Code())
	}
	return codes
}

// boxDecl is the running example: a container with one parameter, a field,
// a reader, and a writer
func boxDecl(bounds ...ir.Type) ir.ClassDecl {
	return ir.ClassDecl{
		Kind:       ir.KindClass,
		Name:       "Box",
		TypeParams: []ir.TypeParamDecl{{Name: "T", Bounds: bounds}},
		Fields:     []ir.FieldDecl{{Name: "value", Type: tn("T")}},
		Methods: []ir.MethodDecl{
			{Name: "get", Return: tn("T")},
			{Name: "set", Params: []ir.ParamDecl{{Name: "v", Type: tn("T")}}},
		},
	}
}

func TestGenericDeclarationChecks(t *testing.T) {
	unit := check(boxDecl())

	require.Empty(t, unit.Errors().Errors())
	require.Empty(t, unit.Failures())
	def, ok := unit.Definition("Box")
	require.True(t, ok)
	assert.Equal(t, stateChecked, def.state)
	assert.Len(t, def.TypeParams(), 1)
	// an unbounded parameter gets the top type as its implicit bound
	bounds := def.TypeParams()[0].Bounds()
	require.Len(t, bounds, 1)
	assert.Equal(t, TopName, bounds[0].String())
}

func TestDeclarationStates(t *testing.T) {
	testCases := []struct {
		name      string
		decls     []ir.ClassDecl
		rejected  []string
		checked   []string
		wantCodes []opalerr.ErrCode
	}{
		{
			name: "unknown supertype rejects only the declaring class",
			decls: []ir.ClassDecl{
				{Kind: ir.KindClass, Name: "Broken", Super: tn("Missing")},
				{Kind: ir.KindClass, Name: "Fine"},
			},
			rejected:  []string{"Broken"},
			checked:   []string{"Fine"},
			wantCodes: []opalerr.ErrCode{opalerr.UnknownType},
		},
		{
			name: "sibling may reference a rejected declaration",
			decls: []ir.ClassDecl{
				{Kind: ir.KindClass, Name: "Broken", Super: tn("Missing")},
				{
					Kind: ir.KindClass, Name: "User",
					Fields: []ir.FieldDecl{{Name: "b", Type: tn("Broken")}},
				},
			},
			rejected:  []string{"Broken"},
			checked:   []string{"User"},
			wantCodes: []opalerr.ErrCode{opalerr.UnknownType},
		},
		{
			name: "redeclared name",
			decls: []ir.ClassDecl{
				{Kind: ir.KindClass, Name: "Twice"},
				{Kind: ir.KindClass, Name: "Twice"},
			},
			checked:   []string{"Twice"},
			wantCodes: []opalerr.ErrCode{opalerr.NameRedeclaration},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			unit := check(tc.decls...)
			assert.Equal(t, tc.wantCodes, codesOf(unit))
			for _, name := range tc.rejected {
				def, ok := unit.Definition(name)
				require.True(t, ok)
				assert.Equal(t, stateRejected, def.state, "state of %s", name)
			}
			for _, name := range tc.checked {
				def, ok := unit.Definition(name)
				require.True(t, ok)
				assert.Equal(t, stateChecked, def.state, "state of %s", name)
			}
		})
	}
}

func TestBoundChecks(t *testing.T) {
	testCases := []struct {
		name      string
		use       ir.Type
		wantCodes []opalerr.ErrCode
	}{
		{name: "argument within bound", use: applied("Box", tn("Integer"))},
		{name: "argument below bound transitively", use: applied("Box", tn("Double"))},
		{name: "argument violating bound", use: applied("Box", tn("String")),
			wantCodes: []opalerr.ErrCode{opalerr.BoundViolation}},
		{name: "primitive argument", use: applied("Box", prim("int")),
			wantCodes: []opalerr.ErrCode{opalerr.UnsupportedTypeArgument}},
		{name: "upper wildcard within bound", use: applied("Box", wildExtends(tn("Integer")))},
		{name: "upper wildcard outside bound", use: applied("Box", wildExtends(tn("String"))),
			wantCodes: []opalerr.ErrCode{opalerr.BoundViolation}},
		{name: "unbounded wildcard always satisfies", use: applied("Box", wildAny())},
		{name: "lower wildcard within bound", use: applied("Box", wildSuper(tn("Integer")))},
		{name: "lower wildcard outside bound", use: applied("Box", wildSuper(tn("String"))),
			wantCodes: []opalerr.ErrCode{opalerr.BoundViolation}},
		{name: "arity mismatch", use: applied("Box", tn("Integer"), tn("Integer")),
			wantCodes: []opalerr.ErrCode{opalerr.MalformedType}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := ir.ClassDecl{
				Kind:   ir.KindClass,
				Name:   "Client",
				Fields: []ir.FieldDecl{{Name: "b", Type: tc.use}},
			}
			unit := check(boxDecl(tn("Number")), client)
			assert.Equal(t, tc.wantCodes, codesOf(unit))
		})
	}
}

func TestClassBoundMustComeFirst(t *testing.T) {
	sorter := func(bounds ...ir.Type) ir.ClassDecl {
		return ir.ClassDecl{
			Kind:       ir.KindClass,
			Name:       "Sorter",
			TypeParams: []ir.TypeParamDecl{{Name: "T", Bounds: bounds}},
		}
	}

	t.Run("class bound first is well formed", func(t *testing.T) {
		unit := check(sorter(tn("Number"), applied("Comparable", tn("T"))))
		assert.Empty(t, unit.Errors().Errors())
	})
	t.Run("class bound after interface bound is malformed", func(t *testing.T) {
		unit := check(sorter(applied("Comparable", tn("T")), tn("Number")))
		assert.Equal(t, []opalerr.ErrCode{opalerr.MalformedType}, codesOf(unit))
	})
}

func TestCyclicParameterBounds(t *testing.T) {
	cyclic := func(params ...ir.TypeParamDecl) ir.ClassDecl {
		return ir.ClassDecl{
			Kind:       ir.KindClass,
			Name:       "Chain",
			TypeParams: params,
			Methods:    []ir.MethodDecl{{Name: "get", Return: tn(params[0].Name)}},
		}
	}

	t.Run("mutually bounded parameters are malformed", func(t *testing.T) {
		unit := check(cyclic(
			ir.TypeParamDecl{Name: "T", Bounds: []ir.Type{tn("U")}},
			ir.TypeParamDecl{Name: "U", Bounds: []ir.Type{tn("T")}},
		))
		assert.Equal(t, []opalerr.ErrCode{opalerr.MalformedType}, codesOf(unit))
		def, ok := unit.Definition("Chain")
		require.True(t, ok)
		assert.Equal(t, stateRejected, def.state)
	})
	t.Run("self-bounded parameter is malformed", func(t *testing.T) {
		unit := check(cyclic(ir.TypeParamDecl{Name: "T", Bounds: []ir.Type{tn("T")}}))
		assert.Equal(t, []opalerr.ErrCode{opalerr.MalformedType}, codesOf(unit))
	})
	t.Run("one-directional chain is accepted", func(t *testing.T) {
		unit := check(cyclic(
			ir.TypeParamDecl{Name: "T", Bounds: []ir.Type{tn("U")}},
			ir.TypeParamDecl{Name: "U", Bounds: []ir.Type{tn("Number")}},
		))
		assert.Empty(t, unit.Errors().Errors())
		def, ok := unit.Definition("Chain")
		require.True(t, ok)
		assert.Equal(t, stateChecked, def.state)
	})
}

func TestWildcardKindBoundMismatch(t *testing.T) {
	testCases := []struct {
		name string
		wild *ir.WildcardType
	}{
		{name: "bounded kind without a bound", wild: &ir.WildcardType{Kind: ir.WildcardUpper}},
		{name: "lower kind without a bound", wild: &ir.WildcardType{Kind: ir.WildcardLower}},
		{name: "unbounded kind with a bound", wild: &ir.WildcardType{Kind: ir.WildcardAny, Bound: tn("Number")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := ir.ClassDecl{
				Kind:   ir.KindClass,
				Name:   "Client",
				Fields: []ir.FieldDecl{{Name: "b", Type: applied("Box", tc.wild)}},
			}
			unit := check(boxDecl(), client)
			assert.Equal(t, []opalerr.ErrCode{opalerr.MalformedType}, codesOf(unit))
		})
	}
}

func TestRecursiveBound(t *testing.T) {
	sorter := ir.ClassDecl{
		Kind:       ir.KindClass,
		Name:       "Sorter",
		TypeParams: []ir.TypeParamDecl{{Name: "T", Bounds: []ir.Type{applied("Comparable", tn("T"))}}},
	}
	item := ir.ClassDecl{
		Kind:       ir.KindClass,
		Name:       "Item",
		Interfaces: []ir.Type{applied("Comparable", tn("Item"))},
		Methods: []ir.MethodDecl{{
			Name:   "compareTo",
			Params: []ir.ParamDecl{{Name: "other", Type: tn("Item")}},
			Return: prim("int"),
		}},
	}

	t.Run("self-satisfying argument accepted", func(t *testing.T) {
		use := ir.ClassDecl{
			Kind:   ir.KindClass,
			Name:   "Client",
			Fields: []ir.FieldDecl{{Name: "s", Type: applied("Sorter", tn("Item"))}},
		}
		unit := check(sorter, item, use)
		assert.Empty(t, unit.Errors().Errors())
		// Item references itself in its own implements clause while still in
		// the Checking state, which must be permitted
		def, ok := unit.Definition("Item")
		require.True(t, ok)
		assert.Greater(t, def.selfRefs, 0)
	})
	t.Run("non-comparable argument rejected", func(t *testing.T) {
		use := ir.ClassDecl{
			Kind:   ir.KindClass,
			Name:   "Client",
			Fields: []ir.FieldDecl{{Name: "s", Type: applied("Sorter", tn("Object"))}},
		}
		unit := check(sorter, item, use)
		assert.Equal(t, []opalerr.ErrCode{opalerr.BoundViolation}, codesOf(unit))
	})
}

func TestErasedContextViolations(t *testing.T) {
	method := func(body ...ir.Expr) ir.ClassDecl {
		return ir.ClassDecl{
			Kind:       ir.KindClass,
			Name:       "Holder",
			TypeParams: []ir.TypeParamDecl{{Name: "T"}},
			Methods: []ir.MethodDecl{{
				Name:   "make",
				Params: []ir.ParamDecl{{Name: "x", Type: tn("Object")}},
				Body:   body,
			}},
		}
	}
	testCases := []struct {
		name      string
		body      ir.Expr
		wantCodes []opalerr.ErrCode
	}{
		{
			name:      "new T()",
			body:      &ir.New{Type: tn("T")},
			wantCodes: []opalerr.ErrCode{opalerr.ErasedContextViolation},
		},
		{
			name:      "new T[10]",
			body:      &ir.NewArray{Elem: tn("T"), Len: &ir.IntLit{Value: 10}},
			wantCodes: []opalerr.ErrCode{opalerr.ErasedContextViolation},
		},
		{
			name:      "x instanceof T",
			body:      &ir.TypeTest{Value: &ir.Var{Name: "x"}, Tested: tn("T")},
			wantCodes: []opalerr.ErrCode{opalerr.ErasedContextViolation},
		},
		{
			name:      "x instanceof List<Integer>",
			body:      &ir.TypeTest{Value: &ir.Var{Name: "x"}, Tested: applied("List", tn("Integer"))},
			wantCodes: []opalerr.ErrCode{opalerr.ErasedContextViolation},
		},
		{
			name: "x instanceof List raw head is permitted",
			body: &ir.TypeTest{Value: &ir.Var{Name: "x"}, Tested: tn("List")},
		},
		{
			name: "new List<Integer>() is permitted",
			body: &ir.New{Type: applied("List", tn("Integer"))},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			unit := check(method(tc.body))
			assert.Equal(t, tc.wantCodes, codesOf(unit))
		})
	}
}

func TestWildcardReceivers(t *testing.T) {
	t.Run("read through an upper wildcard produces the bound", func(t *testing.T) {
		call := &ir.Call{
			Range:  at(1),
			Recv:   &ir.Var{Name: "xs"},
			Method: "get",
			Args:   []ir.Expr{&ir.IntLit{Value: 0}},
		}
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "readNum",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", wildExtends(tn("Number")))}},
				Return: tn("Number"),
				Body:   []ir.Expr{call},
			}},
		}
		unit := check(client)
		require.Empty(t, unit.Errors().Errors())
		got, ok := unit.TypeOf(call)
		require.True(t, ok)
		assert.Equal(t, "Number", got.String())
	})

	t.Run("write through an upper wildcard is rejected", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "poke",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", wildExtends(tn("Number")))}},
				Body: []ir.Expr{&ir.Call{
					Recv:   &ir.Var{Name: "xs"},
					Method: "add",
					Args:   []ir.Expr{&ir.IntLit{Value: 10}},
				}},
			}},
		}
		unit := check(client)
		assert.Equal(t, []opalerr.ErrCode{opalerr.VarianceViolation}, codesOf(unit))
	})

	t.Run("write through a lower wildcard accepts the bound", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "fill",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", wildSuper(tn("Integer")))}},
				Body: []ir.Expr{&ir.Call{
					Recv:   &ir.Var{Name: "xs"},
					Method: "add",
					Args:   []ir.Expr{&ir.IntLit{Value: 10}},
				}},
			}},
		}
		unit := check(client)
		assert.Empty(t, unit.Errors().Errors())
	})

	t.Run("read through a lower wildcard produces the top type", func(t *testing.T) {
		call := &ir.Call{
			Range:  at(2),
			Recv:   &ir.Var{Name: "xs"},
			Method: "get",
			Args:   []ir.Expr{&ir.IntLit{Value: 0}},
		}
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "peek",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", wildSuper(tn("Integer")))}},
				Return: tn("Object"),
				Body:   []ir.Expr{call},
			}},
		}
		unit := check(client)
		require.Empty(t, unit.Errors().Errors())
		got, ok := unit.TypeOf(call)
		require.True(t, ok)
		assert.Equal(t, TopName, got.String())
	})

	t.Run("write through an unbounded wildcard is rejected", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "poke",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", wildAny())}},
				Body: []ir.Expr{&ir.Call{
					Recv:   &ir.Var{Name: "xs"},
					Method: "add",
					Args:   []ir.Expr{&ir.IntLit{Value: 10}},
				}},
			}},
		}
		unit := check(client)
		assert.Equal(t, []opalerr.ErrCode{opalerr.VarianceViolation}, codesOf(unit))
	})

	t.Run("ground argument allows both directions", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "both",
				Params: []ir.ParamDecl{{Name: "xs", Type: applied("List", tn("Integer"))}},
				Return: tn("Integer"),
				Body: []ir.Expr{
					&ir.Call{Recv: &ir.Var{Name: "xs"}, Method: "add", Args: []ir.Expr{&ir.IntLit{Value: 1}}},
					&ir.Call{Range: at(3), Recv: &ir.Var{Name: "xs"}, Method: "get", Args: []ir.Expr{&ir.IntLit{Value: 0}}},
				},
			}},
		}
		unit := check(client)
		assert.Empty(t, unit.Errors().Errors())
	})
}

func TestMethodTypeArguments(t *testing.T) {
	// <T extends Number> List<T> twice(List<T> xs)
	util := ir.ClassDecl{
		Kind: ir.KindClass,
		Name: "Util",
		Methods: []ir.MethodDecl{{
			Name:       "twice",
			TypeParams: []ir.TypeParamDecl{{Name: "T", Bounds: []ir.Type{tn("Number")}}},
			Params:     []ir.ParamDecl{{Name: "xs", Type: applied("List", tn("T"))}},
			Return:     applied("List", tn("T")),
		}},
	}
	client := func(call *ir.Call) ir.ClassDecl {
		return ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name: "use",
				Params: []ir.ParamDecl{
					{Name: "u", Type: tn("Util")},
					{Name: "ints", Type: applied("List", tn("Integer"))},
					{Name: "strs", Type: applied("List", tn("String"))},
				},
				Body: []ir.Expr{call},
			}},
		}
	}

	t.Run("explicit argument within bound", func(t *testing.T) {
		call := &ir.Call{
			Range:    at(4),
			Recv:     &ir.Var{Name: "u"},
			Method:   "twice",
			TypeArgs: []ir.Type{tn("Integer")},
			Args:     []ir.Expr{&ir.Var{Name: "ints"}},
		}
		unit := check(util, client(call))
		require.Empty(t, unit.Errors().Errors())
		got, ok := unit.TypeOf(call)
		require.True(t, ok)
		assert.Equal(t, "List<Integer>", got.String())
	})
	t.Run("explicit argument violating bound", func(t *testing.T) {
		call := &ir.Call{
			Recv:     &ir.Var{Name: "u"},
			Method:   "twice",
			TypeArgs: []ir.Type{tn("String")},
			Args:     []ir.Expr{&ir.Var{Name: "strs"}},
		}
		unit := check(util, client(call))
		assert.Equal(t, []opalerr.ErrCode{opalerr.BoundViolation}, codesOf(unit))
	})
	t.Run("explicit wildcard argument", func(t *testing.T) {
		call := &ir.Call{
			Recv:     &ir.Var{Name: "u"},
			Method:   "twice",
			TypeArgs: []ir.Type{wildExtends(tn("Number"))},
			Args:     []ir.Expr{&ir.Var{Name: "ints"}},
		}
		unit := check(util, client(call))
		assert.Equal(t, []opalerr.ErrCode{opalerr.UnsupportedTypeArgument}, codesOf(unit))
	})
	t.Run("wrong number of explicit arguments", func(t *testing.T) {
		call := &ir.Call{
			Recv:     &ir.Var{Name: "u"},
			Method:   "twice",
			TypeArgs: []ir.Type{tn("Integer"), tn("Integer")},
			Args:     []ir.Expr{&ir.Var{Name: "ints"}},
		}
		unit := check(util, client(call))
		assert.Equal(t, []opalerr.ErrCode{opalerr.ArityMismatch}, codesOf(unit))
	})
}

func TestBodyReturnMismatch(t *testing.T) {
	client := ir.ClassDecl{
		Kind: ir.KindClass,
		Name: "Client",
		Methods: []ir.MethodDecl{{
			Name:   "answer",
			Return: tn("String"),
			Body:   []ir.Expr{&ir.IntLit{Value: 42}},
		}},
	}
	unit := check(client)
	assert.Equal(t, []opalerr.ErrCode{opalerr.TypeMismatch}, codesOf(unit))
	def, ok := unit.Definition("Client")
	require.True(t, ok)
	assert.Equal(t, stateRejected, def.state)
}

func TestLetBindings(t *testing.T) {
	t.Run("annotated binding must hold its value", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name: "bad",
				Body: []ir.Expr{
					&ir.Let{Name: "s", Ann: tn("String"), Value: &ir.IntLit{Value: 1}},
				},
			}},
		}
		unit := check(client)
		assert.Equal(t, []opalerr.ErrCode{opalerr.TypeMismatch}, codesOf(unit))
	})
	t.Run("binding visible to later expressions", func(t *testing.T) {
		use := &ir.Call{
			Range:  at(5),
			Recv:   &ir.Var{Name: "n"},
			Method: "intValue",
		}
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name:   "good",
				Return: prim("int"),
				Body: []ir.Expr{
					&ir.Let{Name: "n", Value: &ir.IntLit{Value: 1}},
					use,
				},
			}},
		}
		unit := check(client)
		require.Empty(t, unit.Errors().Errors())
		got, ok := unit.TypeOf(use)
		require.True(t, ok)
		assert.Equal(t, "int", got.String())
	})
	t.Run("undefined variable", func(t *testing.T) {
		client := ir.ClassDecl{
			Kind: ir.KindClass,
			Name: "Client",
			Methods: []ir.MethodDecl{{
				Name: "bad",
				Body: []ir.Expr{&ir.Var{Name: "nope"}},
			}},
		}
		unit := check(client)
		assert.Equal(t, []opalerr.ErrCode{opalerr.UndefinedVariable}, codesOf(unit))
	})
}

func TestThisType(t *testing.T) {
	get := &ir.Call{
		Range:  at(6),
		Recv:   &ir.This{},
		Method: "get",
	}
	box := boxDecl()
	box.Methods = append(box.Methods, ir.MethodDecl{
		Name:   "reread",
		Return: tn("T"),
		Body:   []ir.Expr{get},
	})
	unit := check(box)
	require.Empty(t, unit.Errors().Errors())
	got, ok := unit.TypeOf(get)
	require.True(t, ok)
	assert.Equal(t, "T", got.String())
}
