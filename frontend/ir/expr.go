package ir

// Expr is an expression inside a method body. Bodies are a sequence of
// expressions; a Let introduces a binding visible to the expressions after it
type Expr interface {
	Positioner
	Hash() uint64
	// Describe names the kind of node for logs and diagnostics
	Describe() string
}

var (
	_ Expr = (*Var)(nil)
	_ Expr = (*This)(nil)
	_ Expr = (*IntLit)(nil)
	_ Expr = (*StringLit)(nil)
	_ Expr = (*Let)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*New)(nil)
	_ Expr = (*NewArray)(nil)
	_ Expr = (*TypeTest)(nil)
	_ Expr = (*Cast)(nil)
)

type Var struct {
	Name string
	Range
}

func (e *Var) Describe() string { return "variable" }
func (e *Var) Hash() uint64     { return hashOfString("Var", e.Name) }

// This references the receiver of the enclosing method
type This struct {
	Range
}

func (e *This) Describe() string { return "this" }
func (e *This) Hash() uint64     { return hashOfString("This", "") }

type IntLit struct {
	Value int64
	Range
}

func (e *IntLit) Describe() string { return "integer literal" }
func (e *IntLit) Hash() uint64     { return hashOf("IntLit", uint64(e.Value)) }

type StringLit struct {
	Value string
	Range
}

func (e *StringLit) Describe() string { return "string literal" }
func (e *StringLit) Hash() uint64     { return hashOfString("StringLit", e.Value) }

// Let binds Name to Value for the remainder of the enclosing body.
// Ann is an optional annotation; when nil the binding takes the static type
// of Value
type Let struct {
	Name  string
	Ann   Type
	Value Expr
	Range
}

func (e *Let) Describe() string { return "let binding" }
func (e *Let) Hash() uint64 {
	if e.Ann == nil {
		return hashOf("Let", hashOfString("", e.Name), e.Value.Hash())
	}
	return hashOf("Let", hashOfString("", e.Name), e.Ann.Hash(), e.Value.Hash())
}

// Call invokes Method on Recv. TypeArgs may be empty, in which case the
// checker infers any method-level type arguments from the actual arguments
type Call struct {
	Recv     Expr
	Method   string
	TypeArgs []Type
	Args     []Expr
	Range
}

func (e *Call) Describe() string { return "method call" }
func (e *Call) Hash() uint64 {
	children := make([]uint64, 0, len(e.TypeArgs)+len(e.Args)+2)
	children = append(children, e.Recv.Hash(), hashOfString("", e.Method))
	for _, arg := range e.TypeArgs {
		children = append(children, arg.Hash())
	}
	for _, arg := range e.Args {
		children = append(children, arg.Hash())
	}
	return hashOf("Call", children...)
}

// New is a constructor invocation
type New struct {
	Type Type
	Args []Expr
	Range
}

func (e *New) Describe() string { return "instantiation" }
func (e *New) Hash() uint64 {
	children := make([]uint64, 0, len(e.Args)+1)
	children = append(children, e.Type.Hash())
	for _, arg := range e.Args {
		children = append(children, arg.Hash())
	}
	return hashOf("New", children...)
}

// NewArray allocates an array of Elem with the given length
type NewArray struct {
	Elem Type
	Len  Expr
	Range
}

func (e *NewArray) Describe() string { return "array creation" }
func (e *NewArray) Hash() uint64     { return hashOf("NewArray", e.Elem.Hash(), e.Len.Hash()) }

// TypeTest is a runtime type-identity test (value instanceof Tested)
type TypeTest struct {
	Value  Expr
	Tested Type
	Range
}

func (e *TypeTest) Describe() string { return "type test" }
func (e *TypeTest) Hash() uint64     { return hashOf("TypeTest", e.Value.Hash(), e.Tested.Hash()) }

// Cast narrows Value to To. The checker accepts casts in input, but most
// casts are synthesized by the erasure pass at read sites
type Cast struct {
	To    Type
	Value Expr
	Range
}

func (e *Cast) Describe() string { return "cast" }
func (e *Cast) Hash() uint64     { return hashOf("Cast", e.To.Hash(), e.Value.Hash()) }
