package frontend

import (
	"testing"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnit(t *testing.T) {
	src := []byte(`
classes:
  - name: Box
    typeParams:
      - name: T
        bounds: [Number]
    fields:
      - name: value
        type: T
    methods:
      - name: get
        return: T
      - name: set
        params:
          - name: v
            type: T
  - name: Client
    kind: class
    methods:
      - name: use
        params:
          - name: b
            type: {name: Box, args: [Integer]}
        return: Integer
        body:
          - call:
              recv: {var: b}
              method: get
`)
	decls, err := DecodeUnit(src)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	box := decls[0]
	assert.Equal(t, "Box", box.Name)
	assert.Equal(t, ir.KindClass, box.Kind)
	require.Len(t, box.TypeParams, 1)
	assert.Equal(t, "T", box.TypeParams[0].Name)
	require.Len(t, box.TypeParams[0].Bounds, 1)
	assert.Equal(t, "Number", box.TypeParams[0].Bounds[0].String())
	require.Len(t, box.Fields, 1)
	assert.Equal(t, "T", box.Fields[0].Type.String())
	require.Len(t, box.Methods, 2)
	assert.Equal(t, "T", box.Methods[0].Return.String())
	assert.Nil(t, box.Methods[1].Return)

	client := decls[1]
	use := client.Methods[0]
	assert.Equal(t, "Box<Integer>", use.Params[0].Type.String())
	require.Len(t, use.Body, 1)
	call, ok := use.Body[0].(*ir.Call)
	require.True(t, ok)
	assert.Equal(t, "get", call.Method)
	assert.Equal(t, "b", call.Recv.(*ir.Var).Name)
	// decoded nodes carry their source line
	assert.NotZero(t, ir.RangeOf(call).PosStart)
}

func TestDecodeTypes(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want string
	}{
		{name: "bare name", src: `Integer`, want: "Integer"},
		{name: "applied", src: `{name: List, args: [Integer]}`, want: "List<Integer>"},
		{name: "nested applied", src: `{name: List, args: [{name: List, args: [Integer]}]}`, want: "List<List<Integer>>"},
		{name: "primitive", src: `{primitive: int}`, want: "int"},
		{name: "unbounded wildcard", src: `{wildcard: any}`, want: "?"},
		{name: "upper wildcard", src: `{wildcard: extends, bound: Number}`, want: "? extends Number"},
		{name: "lower wildcard", src: `{wildcard: super, bound: Integer}`, want: "? super Integer"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := []byte(`
classes:
  - name: C
    fields:
      - name: f
        type: ` + tc.src + `
`)
			decls, err := DecodeUnit(src)
			require.NoError(t, err)
			require.Len(t, decls, 1)
			assert.Equal(t, tc.want, decls[0].Fields[0].Type.String())
		})
	}
}

func TestDecodeExpressions(t *testing.T) {
	src := []byte(`
classes:
  - name: C
    typeParams: [T]
    methods:
      - name: m
        params:
          - name: x
            type: Object
        body:
          - let:
              name: n
              type: Integer
              value: {int: 3}
          - let:
              name: s
              value: {string: hello}
          - this: true
          - new:
              type: {name: List, args: [Integer]}
          - newArray:
              elem: Integer
              len: {int: 4}
          - is:
              value: {var: x}
              type: List
          - cast:
              to: Integer
              value: {var: x}
`)
	decls, err := DecodeUnit(src)
	require.NoError(t, err)
	body := decls[0].Methods[0].Body
	require.Len(t, body, 7)
	assert.IsType(t, &ir.Let{}, body[0])
	assert.Equal(t, "Integer", body[0].(*ir.Let).Ann.String())
	assert.Nil(t, body[1].(*ir.Let).Ann)
	assert.IsType(t, &ir.This{}, body[2])
	assert.IsType(t, &ir.New{}, body[3])
	assert.IsType(t, &ir.NewArray{}, body[4])
	assert.IsType(t, &ir.TypeTest{}, body[5])
	assert.IsType(t, &ir.Cast{}, body[6])
	// a bare scalar in typeParams is an unbounded parameter
	assert.Equal(t, "T", decls[0].TypeParams[0].Name)
	assert.Empty(t, decls[0].TypeParams[0].Bounds)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "not yaml", src: `{{`},
		{name: "unknown kind", src: `
classes:
  - name: C
    kind: enum
`},
		{name: "unknown wildcard", src: `
classes:
  - name: C
    fields:
      - name: f
        type: {wildcard: sideways}
`},
		{name: "bounded any wildcard", src: `
classes:
  - name: C
    fields:
      - name: f
        type: {wildcard: any, bound: Number}
`},
		{name: "empty type", src: `
classes:
  - name: C
    fields:
      - name: f
        type: {}
`},
		{name: "empty expression", src: `
classes:
  - name: C
    methods:
      - name: m
        body:
          - {}
`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeUnit([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}
