package backend

import (
	"fmt"
	"log/slog"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/types"
)

// Eraser lowers a checked unit to its runtime representation: type parameters
// disappear, parameterized annotations collapse to their raw heads, and reads
// whose static type is narrower than what the erased member produces get an
// explicit cast
type Eraser struct {
	checked *types.CheckedUnit

	*slog.Logger
}

func NewEraser(checked *types.CheckedUnit) *Eraser {
	return &Eraser{
		checked: checked,
		Logger:  slog.With("section", "erasure"),
	}
}

// ErasedUnit is the output of erasure: the rewritten declarations plus the
// bridge table the runtime needs to keep overriding intact
type ErasedUnit struct {
	Decls   []ir.ClassDecl
	Bridges []BridgeEntry
}

// EraseUnit erases every declaration that passed checking. It refuses units
// with reported defects: erasure output for a rejected program is meaningless
func (e *Eraser) EraseUnit() (*ErasedUnit, error) {
	if e.checked.HasErrors() {
		return nil, fmt.Errorf("cannot erase a unit with reported defects")
	}
	defs := e.checked.CheckedDecls()
	decls := make([]ir.ClassDecl, 0, len(defs))
	for _, def := range defs {
		decls = append(decls, e.eraseDecl(def))
	}
	bridges := e.bridgeTable(defs)
	e.Debug("unit erased", "decls", len(decls), "bridges", len(bridges))
	return &ErasedUnit{Decls: decls, Bridges: bridges}, nil
}

func (e *Eraser) eraseDecl(def *types.TypeDefinition) ir.ClassDecl {
	syntax := def.Syntax()
	out := ir.ClassDecl{
		Range: syntax.Range,
		Kind:  def.Kind(),
		Name:  def.Name(),
	}
	// the class-level parameter scope survives into every member position
	scope := make(map[string]*types.TypeParameter, len(def.TypeParams()))
	for _, param := range def.TypeParams() {
		scope[param.Name()] = param
	}

	if syntax.Super != nil && def.Super() != nil {
		out.Super = types.SurfaceOf(types.Erase(def.Super()))
	}
	for _, iface := range def.Interfaces() {
		out.Interfaces = append(out.Interfaces, types.SurfaceOf(types.Erase(iface)))
	}
	for i, field := range def.Fields() {
		erased := ir.FieldDecl{
			Name: field.Name(),
			Type: types.SurfaceOf(types.Erase(field.Type())),
		}
		if i < len(syntax.Fields) {
			erased.Range = syntax.Fields[i].Range
		}
		out.Fields = append(out.Fields, erased)
	}
	for _, sig := range def.Methods() {
		out.Methods = append(out.Methods, e.eraseMethod(scope, sig))
	}
	return out
}

func (e *Eraser) eraseMethod(classScope map[string]*types.TypeParameter, sig types.MethodSig) ir.MethodDecl {
	syntax := sig.Syntax()
	out := ir.MethodDecl{Name: sig.Name()}
	if syntax != nil {
		out.Range = syntax.Range
	}
	scope := classScope
	if len(sig.TypeParams()) > 0 {
		scope = make(map[string]*types.TypeParameter, len(classScope)+len(sig.TypeParams()))
		for name, param := range classScope {
			scope[name] = param
		}
		for _, param := range sig.TypeParams() {
			scope[param.Name()] = param
		}
	}
	names := sig.ParamNames()
	for i, paramType := range sig.Params() {
		param := ir.ParamDecl{
			Name: names[i],
			Type: types.SurfaceOf(types.Erase(paramType)),
		}
		if syntax != nil && i < len(syntax.Params) {
			param.Range = syntax.Params[i].Range
		}
		out.Params = append(out.Params, param)
	}
	if sig.Return() != nil {
		out.Return = types.SurfaceOf(types.Erase(sig.Return()))
	}
	if syntax != nil && syntax.Body != nil {
		out.Body = make([]ir.Expr, len(syntax.Body))
		for i, expr := range syntax.Body {
			out.Body[i] = e.eraseExpr(scope, expr)
		}
	}
	return out
}

// eraseExpr rewrites one body expression: type arguments disappear, embedded
// annotations erase, and calls get a cast wherever the checked static type is
// more specific than what the erased member will return
func (e *Eraser) eraseExpr(scope map[string]*types.TypeParameter, expr ir.Expr) ir.Expr {
	switch expr := expr.(type) {
	case *ir.Let:
		out := &ir.Let{
			Name:  expr.Name,
			Value: e.eraseExpr(scope, expr.Value),
			Range: expr.Range,
		}
		if expr.Ann != nil {
			out.Ann = e.eraseSurfaceType(scope, expr.Ann)
		}
		return out
	case *ir.Call:
		rewritten := &ir.Call{
			Recv:   e.eraseExpr(scope, expr.Recv),
			Method: expr.Method,
			Range:  expr.Range,
		}
		for _, arg := range expr.Args {
			rewritten.Args = append(rewritten.Args, e.eraseExpr(scope, arg))
		}
		return e.castIfNarrowed(expr, rewritten)
	case *ir.New:
		out := &ir.New{
			Type:  e.eraseSurfaceType(scope, expr.Type),
			Range: expr.Range,
		}
		for _, arg := range expr.Args {
			out.Args = append(out.Args, e.eraseExpr(scope, arg))
		}
		return out
	case *ir.NewArray:
		return &ir.NewArray{
			Elem:  e.eraseSurfaceType(scope, expr.Elem),
			Len:   e.eraseExpr(scope, expr.Len),
			Range: expr.Range,
		}
	case *ir.TypeTest:
		return &ir.TypeTest{
			Value:  e.eraseExpr(scope, expr.Value),
			Tested: e.eraseSurfaceType(scope, expr.Tested),
			Range:  expr.Range,
		}
	case *ir.Cast:
		return &ir.Cast{
			To:    e.eraseSurfaceType(scope, expr.To),
			Value: e.eraseExpr(scope, expr.Value),
			Range: expr.Range,
		}
	default:
		// variables, this, and literals carry no types to erase
		return expr
	}
}

// castIfNarrowed compares, at a call site, the erasure of the checked static
// type against the erasure of the resolved member's declared return. When they
// differ the erased member returns the wider type, so the read needs a cast
// back down to keep the surrounding code well typed
func (e *Eraser) castIfNarrowed(original *ir.Call, rewritten *ir.Call) ir.Expr {
	static, okStatic := e.checked.TypeOf(original)
	declared, okDeclared := e.checked.DeclaredReturn(original)
	if !okStatic || !okDeclared {
		return rewritten
	}
	erasedStatic := types.Erase(static)
	if types.Equal(erasedStatic, types.Erase(declared)) {
		return rewritten
	}
	e.Debug("inserting cast", "method", original.Method, "to", erasedStatic.String())
	return &ir.Cast{
		To:    types.SurfaceOf(erasedStatic),
		Value: rewritten,
		Range: original.Range,
	}
}

// eraseSurfaceType erases an annotation as written in a body, resolving type
// parameter names through the enclosing scope
func (e *Eraser) eraseSurfaceType(scope map[string]*types.TypeParameter, t ir.Type) ir.Type {
	switch t := t.(type) {
	case *ir.TypeName:
		if param, ok := scope[t.Name]; ok {
			return erasedParamSurface(param, t.Range)
		}
		return t
	case *ir.PrimitiveType:
		return t
	case *ir.AppliedType:
		// only the raw head survives
		return &ir.TypeName{Name: t.Base.Name, Range: t.Range}
	case *ir.WildcardType:
		if t.Kind == ir.WildcardUpper && t.Bound != nil {
			return e.eraseSurfaceType(scope, t.Bound)
		}
		return &ir.TypeName{Name: types.TopName, Range: t.Range}
	default:
		return t
	}
}

func erasedParamSurface(param *types.TypeParameter, r ir.Range) ir.Type {
	bounds := param.Bounds()
	if len(bounds) == 0 {
		return &ir.TypeName{Name: types.TopName, Range: r}
	}
	surface := types.SurfaceOf(types.Erase(bounds[0]))
	if named, ok := surface.(*ir.TypeName); ok {
		named.Range = r
	}
	return surface
}
