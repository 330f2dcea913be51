// Package frontend decodes the structural surface form of a compilation unit
// into ir declarations. The surface form is YAML: a host that already has a
// syntax tree can skip this package and build ir values directly
package frontend

import (
	"go/token"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DecodeUnit decodes one unit: a document with a top-level `classes` list
func DecodeUnit(src []byte) ([]ir.ClassDecl, error) {
	var unit unitNode
	if err := yaml.Unmarshal(src, &unit); err != nil {
		return nil, errors.Wrap(err, "decode unit")
	}
	decls := make([]ir.ClassDecl, 0, len(unit.Classes))
	for i, class := range unit.Classes {
		decl, err := class.toIR()
		if err != nil {
			return nil, errors.Wrapf(err, "class %d (%s)", i, class.Name)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func rangeAt(node *yaml.Node) ir.Range {
	return ir.Range{PosStart: token.Pos(node.Line), PosEnd: token.Pos(node.Line)}
}

type unitNode struct {
	Classes []classNode `yaml:"classes"`
}

type classNode struct {
	classNodeBody
	r ir.Range
}

type classNodeBody struct {
	Name       string          `yaml:"name"`
	Kind       string          `yaml:"kind"` // class (default) or interface
	TypeParams []typeParamNode `yaml:"typeParams"`
	Extends    *typeNode       `yaml:"extends"`
	Implements []typeNode      `yaml:"implements"`
	Fields     []fieldNode     `yaml:"fields"`
	Methods    []methodNode    `yaml:"methods"`
}

func (c *classNode) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&c.classNodeBody); err != nil {
		return err
	}
	c.r = rangeAt(value)
	return nil
}

func (c *classNode) toIR() (ir.ClassDecl, error) {
	decl := ir.ClassDecl{Range: c.r, Name: c.Name}
	switch c.Kind {
	case "", "class":
		decl.Kind = ir.KindClass
	case "interface":
		decl.Kind = ir.KindInterface
	default:
		return decl, errors.Errorf("unknown declaration kind %q", c.Kind)
	}
	for _, param := range c.TypeParams {
		p, err := param.toIR()
		if err != nil {
			return decl, err
		}
		decl.TypeParams = append(decl.TypeParams, p)
	}
	if c.Extends != nil {
		super, err := c.Extends.toIR()
		if err != nil {
			return decl, err
		}
		decl.Super = super
	}
	for _, iface := range c.Implements {
		t, err := iface.toIR()
		if err != nil {
			return decl, err
		}
		decl.Interfaces = append(decl.Interfaces, t)
	}
	for _, field := range c.Fields {
		f, err := field.toIR()
		if err != nil {
			return decl, err
		}
		decl.Fields = append(decl.Fields, f)
	}
	for _, method := range c.Methods {
		m, err := method.toIR()
		if err != nil {
			return decl, errors.Wrapf(err, "method %s", method.Name)
		}
		decl.Methods = append(decl.Methods, m)
	}
	return decl, nil
}

type typeParamNode struct {
	typeParamNodeBody
	r ir.Range
}

type typeParamNodeBody struct {
	Name   string     `yaml:"name"`
	Bounds []typeNode `yaml:"bounds"`
}

func (p *typeParamNode) UnmarshalYAML(value *yaml.Node) error {
	// a bare scalar is an unbounded parameter name
	if value.Kind == yaml.ScalarNode {
		p.r = rangeAt(value)
		return value.Decode(&p.Name)
	}
	if err := value.Decode(&p.typeParamNodeBody); err != nil {
		return err
	}
	p.r = rangeAt(value)
	return nil
}

func (p *typeParamNode) toIR() (ir.TypeParamDecl, error) {
	decl := ir.TypeParamDecl{Range: p.r, Name: p.Name}
	for _, bound := range p.Bounds {
		t, err := bound.toIR()
		if err != nil {
			return decl, err
		}
		decl.Bounds = append(decl.Bounds, t)
	}
	return decl, nil
}

type fieldNode struct {
	fieldNodeBody
	r ir.Range
}

type fieldNodeBody struct {
	Name string   `yaml:"name"`
	Type typeNode `yaml:"type"`
}

func (f *fieldNode) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&f.fieldNodeBody); err != nil {
		return err
	}
	f.r = rangeAt(value)
	return nil
}

func (f *fieldNode) toIR() (ir.FieldDecl, error) {
	t, err := f.Type.toIR()
	if err != nil {
		return ir.FieldDecl{}, err
	}
	return ir.FieldDecl{Range: f.r, Name: f.Name, Type: t}, nil
}

type methodNode struct {
	methodNodeBody
	r ir.Range
}

type methodNodeBody struct {
	Name       string          `yaml:"name"`
	TypeParams []typeParamNode `yaml:"typeParams"`
	Params     []paramNode     `yaml:"params"`
	Return     *typeNode       `yaml:"return"`
	Body       []exprNode      `yaml:"body"`
}

func (m *methodNode) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&m.methodNodeBody); err != nil {
		return err
	}
	m.r = rangeAt(value)
	return nil
}

func (m *methodNode) toIR() (ir.MethodDecl, error) {
	decl := ir.MethodDecl{Range: m.r, Name: m.Name}
	for _, param := range m.TypeParams {
		p, err := param.toIR()
		if err != nil {
			return decl, err
		}
		decl.TypeParams = append(decl.TypeParams, p)
	}
	for _, param := range m.Params {
		p, err := param.toIR()
		if err != nil {
			return decl, err
		}
		decl.Params = append(decl.Params, p)
	}
	if m.Return != nil {
		ret, err := m.Return.toIR()
		if err != nil {
			return decl, err
		}
		decl.Return = ret
	}
	for _, expr := range m.Body {
		e, err := expr.toIR()
		if err != nil {
			return decl, err
		}
		decl.Body = append(decl.Body, e)
	}
	return decl, nil
}

type paramNode struct {
	paramNodeBody
	r ir.Range
}

type paramNodeBody struct {
	Name string   `yaml:"name"`
	Type typeNode `yaml:"type"`
}

func (p *paramNode) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&p.paramNodeBody); err != nil {
		return err
	}
	p.r = rangeAt(value)
	return nil
}

func (p *paramNode) toIR() (ir.ParamDecl, error) {
	t, err := p.Type.toIR()
	if err != nil {
		return ir.ParamDecl{}, err
	}
	return ir.ParamDecl{Range: p.r, Name: p.Name, Type: t}, nil
}

// typeNode is the structural form of a type: exactly one of name (with
// optional args), primitive, or wildcard must be present
type typeNode struct {
	typeNodeBody
	r ir.Range
}

type typeNodeBody struct {
	Name      string     `yaml:"name"`
	Args      []typeNode `yaml:"args"`
	Primitive string     `yaml:"primitive"`
	Wildcard  string     `yaml:"wildcard"` // any, extends, or super
	Bound     *typeNode  `yaml:"bound"`
}

func (t *typeNode) UnmarshalYAML(value *yaml.Node) error {
	// a bare scalar is a plain type name
	if value.Kind == yaml.ScalarNode {
		t.r = rangeAt(value)
		return value.Decode(&t.Name)
	}
	if err := value.Decode(&t.typeNodeBody); err != nil {
		return err
	}
	t.r = rangeAt(value)
	return nil
}

func (t *typeNode) toIR() (ir.Type, error) {
	switch {
	case t.Primitive != "":
		if t.Name != "" || t.Wildcard != "" || len(t.Args) > 0 {
			return nil, errors.New("a primitive type takes no name, arguments, or wildcard")
		}
		return &ir.PrimitiveType{Range: t.r, Name: t.Primitive}, nil
	case t.Wildcard != "":
		if t.Name != "" || len(t.Args) > 0 {
			return nil, errors.New("a wildcard takes no name or arguments")
		}
		var kind ir.WildcardKind
		switch t.Wildcard {
		case "any":
			kind = ir.WildcardAny
		case "extends":
			kind = ir.WildcardUpper
		case "super":
			kind = ir.WildcardLower
		default:
			return nil, errors.Errorf("unknown wildcard kind %q", t.Wildcard)
		}
		if (kind == ir.WildcardAny) != (t.Bound == nil) {
			return nil, errors.New("bounded wildcards take exactly one bound")
		}
		wild := &ir.WildcardType{Range: t.r, Kind: kind}
		if t.Bound != nil {
			bound, err := t.Bound.toIR()
			if err != nil {
				return nil, err
			}
			wild.Bound = bound
		}
		return wild, nil
	case t.Name != "":
		if len(t.Args) == 0 {
			return &ir.TypeName{Range: t.r, Name: t.Name}, nil
		}
		applied := &ir.AppliedType{
			Range: t.r,
			Base:  ir.TypeName{Range: t.r, Name: t.Name},
		}
		for _, arg := range t.Args {
			a, err := arg.toIR()
			if err != nil {
				return nil, err
			}
			applied.Args = append(applied.Args, a)
		}
		return applied, nil
	default:
		return nil, errors.New("a type needs a name, primitive, or wildcard")
	}
}

// exprNode is the structural form of an expression: exactly one form field
// must be present
type exprNode struct {
	exprNodeBody
	r ir.Range
}

type exprNodeBody struct {
	Var      *string       `yaml:"var"`
	This     bool          `yaml:"this"`
	Int      *int64        `yaml:"int"`
	String   *string       `yaml:"string"`
	Let      *letNode      `yaml:"let"`
	Call     *callNode     `yaml:"call"`
	New      *newNode      `yaml:"new"`
	NewArray *newArrayNode `yaml:"newArray"`
	Is       *isNode       `yaml:"is"`
	Cast     *castNode     `yaml:"cast"`
}

func (e *exprNode) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&e.exprNodeBody); err != nil {
		return err
	}
	e.r = rangeAt(value)
	return nil
}

func (e *exprNode) toIR() (ir.Expr, error) {
	switch {
	case e.Var != nil:
		return &ir.Var{Range: e.r, Name: *e.Var}, nil
	case e.This:
		return &ir.This{Range: e.r}, nil
	case e.Int != nil:
		return &ir.IntLit{Range: e.r, Value: *e.Int}, nil
	case e.String != nil:
		return &ir.StringLit{Range: e.r, Value: *e.String}, nil
	case e.Let != nil:
		return e.Let.toIR(e.r)
	case e.Call != nil:
		return e.Call.toIR(e.r)
	case e.New != nil:
		return e.New.toIR(e.r)
	case e.NewArray != nil:
		return e.NewArray.toIR(e.r)
	case e.Is != nil:
		return e.Is.toIR(e.r)
	case e.Cast != nil:
		return e.Cast.toIR(e.r)
	default:
		return nil, errors.New("empty expression")
	}
}

type letNode struct {
	Name  string    `yaml:"name"`
	Ann   *typeNode `yaml:"type"`
	Value exprNode  `yaml:"value"`
}

func (n *letNode) toIR(r ir.Range) (ir.Expr, error) {
	value, err := n.Value.toIR()
	if err != nil {
		return nil, err
	}
	let := &ir.Let{Range: r, Name: n.Name, Value: value}
	if n.Ann != nil {
		ann, err := n.Ann.toIR()
		if err != nil {
			return nil, err
		}
		let.Ann = ann
	}
	return let, nil
}

type callNode struct {
	Recv     exprNode   `yaml:"recv"`
	Method   string     `yaml:"method"`
	TypeArgs []typeNode `yaml:"typeArgs"`
	Args     []exprNode `yaml:"args"`
}

func (n *callNode) toIR(r ir.Range) (ir.Expr, error) {
	recv, err := n.Recv.toIR()
	if err != nil {
		return nil, err
	}
	call := &ir.Call{Range: r, Recv: recv, Method: n.Method}
	for _, arg := range n.TypeArgs {
		t, err := arg.toIR()
		if err != nil {
			return nil, err
		}
		call.TypeArgs = append(call.TypeArgs, t)
	}
	for _, arg := range n.Args {
		e, err := arg.toIR()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, e)
	}
	return call, nil
}

type newNode struct {
	Type typeNode   `yaml:"type"`
	Args []exprNode `yaml:"args"`
}

func (n *newNode) toIR(r ir.Range) (ir.Expr, error) {
	t, err := n.Type.toIR()
	if err != nil {
		return nil, err
	}
	out := &ir.New{Range: r, Type: t}
	for _, arg := range n.Args {
		e, err := arg.toIR()
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, e)
	}
	return out, nil
}

type newArrayNode struct {
	Elem typeNode `yaml:"elem"`
	Len  exprNode `yaml:"len"`
}

func (n *newArrayNode) toIR(r ir.Range) (ir.Expr, error) {
	elem, err := n.Elem.toIR()
	if err != nil {
		return nil, err
	}
	length, err := n.Len.toIR()
	if err != nil {
		return nil, err
	}
	return &ir.NewArray{Range: r, Elem: elem, Len: length}, nil
}

type isNode struct {
	Value exprNode `yaml:"value"`
	Type  typeNode `yaml:"type"`
}

func (n *isNode) toIR(r ir.Range) (ir.Expr, error) {
	value, err := n.Value.toIR()
	if err != nil {
		return nil, err
	}
	tested, err := n.Type.toIR()
	if err != nil {
		return nil, err
	}
	return &ir.TypeTest{Range: r, Value: value, Tested: tested}, nil
}

type castNode struct {
	To    typeNode `yaml:"to"`
	Value exprNode `yaml:"value"`
}

func (n *castNode) toIR(r ir.Range) (ir.Expr, error) {
	to, err := n.To.toIR()
	if err != nil {
		return nil, err
	}
	value, err := n.Value.toIR()
	if err != nil {
		return nil, err
	}
	return &ir.Cast{Range: r, To: to, Value: value}, nil
}
