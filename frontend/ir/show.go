package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprString renders an expression for diagnostics and logs
func ExprString(e Expr) string {
	switch e := e.(type) {
	case *Var:
		return e.Name
	case *This:
		return "this"
	case *IntLit:
		return strconv.FormatInt(e.Value, 10)
	case *StringLit:
		return strconv.Quote(e.Value)
	case *Let:
		if e.Ann != nil {
			return fmt.Sprintf("let %s: %s = %s", e.Name, e.Ann, ExprString(e.Value))
		}
		return fmt.Sprintf("let %s = %s", e.Name, ExprString(e.Value))
	case *Call:
		var sb strings.Builder
		sb.WriteString(ExprString(e.Recv))
		sb.WriteString(".")
		if len(e.TypeArgs) > 0 {
			args := make([]string, len(e.TypeArgs))
			for i, arg := range e.TypeArgs {
				args[i] = arg.String()
			}
			sb.WriteString("<" + strings.Join(args, ", ") + ">")
		}
		sb.WriteString(e.Method)
		sb.WriteString("(" + exprListString(e.Args) + ")")
		return sb.String()
	case *New:
		return fmt.Sprintf("new %s(%s)", e.Type, exprListString(e.Args))
	case *NewArray:
		return fmt.Sprintf("new %s[%s]", e.Elem, ExprString(e.Len))
	case *TypeTest:
		return fmt.Sprintf("%s instanceof %s", ExprString(e.Value), e.Tested)
	case *Cast:
		return fmt.Sprintf("(%s) %s", e.To, ExprString(e.Value))
	default:
		return fmt.Sprintf("<%s>", e.Describe())
	}
}

// DeclString renders a whole declaration, one member per line
func DeclString(decl *ClassDecl) string {
	var sb strings.Builder
	sb.WriteString(decl.Kind.String())
	sb.WriteString(" ")
	sb.WriteString(decl.Name)
	if len(decl.TypeParams) > 0 {
		params := make([]string, len(decl.TypeParams))
		for i, param := range decl.TypeParams {
			params[i] = typeParamString(param)
		}
		sb.WriteString("<" + strings.Join(params, ", ") + ">")
	}
	if decl.Super != nil {
		sb.WriteString(" extends " + decl.Super.String())
	}
	if len(decl.Interfaces) > 0 {
		ifaces := make([]string, len(decl.Interfaces))
		for i, iface := range decl.Interfaces {
			ifaces[i] = iface.String()
		}
		sb.WriteString(" implements " + strings.Join(ifaces, ", "))
	}
	sb.WriteString(" {\n")
	for _, field := range decl.Fields {
		sb.WriteString(fmt.Sprintf("  %s %s\n", field.Type, field.Name))
	}
	for i := range decl.Methods {
		sb.WriteString(methodString(&decl.Methods[i]))
	}
	sb.WriteString("}")
	return sb.String()
}

func typeParamString(param TypeParamDecl) string {
	if len(param.Bounds) == 0 {
		return param.Name
	}
	bounds := make([]string, len(param.Bounds))
	for i, bound := range param.Bounds {
		bounds[i] = bound.String()
	}
	return param.Name + " extends " + strings.Join(bounds, " & ")
}

func methodString(m *MethodDecl) string {
	var sb strings.Builder
	sb.WriteString("  ")
	if len(m.TypeParams) > 0 {
		params := make([]string, len(m.TypeParams))
		for i, param := range m.TypeParams {
			params[i] = typeParamString(param)
		}
		sb.WriteString("<" + strings.Join(params, ", ") + "> ")
	}
	if m.Return == nil {
		sb.WriteString("void")
	} else {
		sb.WriteString(m.Return.String())
	}
	sb.WriteString(" " + m.Name + "(")
	params := make([]string, len(m.Params))
	for i, param := range m.Params {
		params[i] = param.Type.String() + " " + param.Name
	}
	sb.WriteString(strings.Join(params, ", ") + ")")
	if m.Body == nil {
		sb.WriteString(";\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, expr := range m.Body {
		sb.WriteString("    " + ExprString(expr) + "\n")
	}
	sb.WriteString("  }\n")
	return sb.String()
}

func exprListString(exprs []Expr) string {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = ExprString(e)
	}
	return strings.Join(strs, ", ")
}
