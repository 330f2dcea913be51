package ir

type TypeDefKind uint8

const (
	_ TypeDefKind = iota
	KindClass
	KindInterface
)

func (k TypeDefKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	default:
		return "invalid"
	}
}

// TypeParamDecl declares a type parameter at a class or method head.
// Bounds are ordered: a class bound, if present, must come first, followed by
// interface bounds. An empty Bounds list means the parameter is unbounded
type TypeParamDecl struct {
	Name   string
	Bounds []Type
	Range
}

// ClassDecl is a class or interface declaration. Super is nil for classes
// extending the top type directly and always nil for interfaces, whose
// supertypes all go in Interfaces
type ClassDecl struct {
	Range
	Kind       TypeDefKind
	Name       string
	TypeParams []TypeParamDecl
	Super      Type
	Interfaces []Type
	Fields     []FieldDecl
	Methods    []MethodDecl
}

type FieldDecl struct {
	Name string
	Type Type
	Range
}

type ParamDecl struct {
	Name string
	Type Type
	Range
}

// MethodDecl declares a method, possibly with its own type parameters.
// A nil Body means the method is abstract (or an interface member)
type MethodDecl struct {
	Range
	Name       string
	TypeParams []TypeParamDecl
	Params     []ParamDecl
	Return     Type
	Body       []Expr
}

var (
	_ Positioner = (*ClassDecl)(nil)
	_ Positioner = (*MethodDecl)(nil)
)
