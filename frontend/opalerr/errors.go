package opalerr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/opal-lang/opal/frontend/ir"
)

// enableDebugErrorPrinting makes errors include their stacktrace when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	MalformedType
	BoundViolation
	VarianceViolation
	InferenceFailure
	UnsupportedTypeArgument
	ErasedContextViolation
	NameRedeclaration
	UndefinedVariable
	UnknownType
	ArityMismatch
	TypeMismatch
	UnknownMember
)

type OpalError interface {
	Error() string
	Code() ErrCode
	ir.Positioner

	withStack([]byte) OpalError
	getStack() []byte
}

func FormatWithCode(e OpalError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			stack = strings.Split(stack, "\n")[6]
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E OpalError](err E) OpalError {
	return err.withStack(debug.Stack())
}

// Unclassified wraps an error that does not fit the taxonomy. It should only
// appear at the edges of the core, never from the checker itself
type Unclassified struct {
	From error
	ir.Positioner
	stack []byte
}

func (e Unclassified) Code() ErrCode { return None }
func (e Unclassified) Error() string {
	return e.From.Error()
}
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

// NewMalformedType reports a structural well-formedness violation: wrong
// argument count for a parameterized type, a class bound listed after an
// interface bound, or a wildcard outside a type-argument position
type NewMalformedType struct {
	ir.Positioner
	Detail string
	stack  []byte
}

func (e NewMalformedType) Code() ErrCode { return MalformedType }
func (e NewMalformedType) Error() string {
	return fmt.Sprintf("malformed type: %s", e.Detail)
}
func (e NewMalformedType) getStack() []byte { return e.stack }
func (e NewMalformedType) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

// NewBoundViolation reports a type argument failing a declared bound
type NewBoundViolation struct {
	ir.Positioner
	Param     string
	Bound     fmt.Stringer
	Candidate fmt.Stringer
	stack     []byte
}

func (e NewBoundViolation) Code() ErrCode { return BoundViolation }
func (e NewBoundViolation) Error() string {
	return fmt.Sprintf("type argument '%v' is not within bound '%v' of type parameter '%s'", e.Candidate, e.Bound, e.Param)
}
func (e NewBoundViolation) getStack() []byte { return e.stack }
func (e NewBoundViolation) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

// NewVarianceViolation reports an unsafe read or write through a wildcard
type NewVarianceViolation struct {
	ir.Positioner
	Receiver fmt.Stringer
	Member   string
	Detail   string
	stack    []byte
}

func (e NewVarianceViolation) Code() ErrCode { return VarianceViolation }
func (e NewVarianceViolation) Error() string {
	return fmt.Sprintf("cannot call '%s' on '%v': %s", e.Member, e.Receiver, e.Detail)
}
func (e NewVarianceViolation) getStack() []byte { return e.stack }
func (e NewVarianceViolation) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

// NewInferenceFailure reports that no consistent (or no unique) type-argument
// assignment exists for a call with omitted type arguments
type NewInferenceFailure struct {
	ir.Positioner
	Param  string
	Reason string
	stack  []byte
}

func (e NewInferenceFailure) Code() ErrCode { return InferenceFailure }
func (e NewInferenceFailure) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("cannot infer type arguments: %s", e.Reason)
	}
	return fmt.Sprintf("cannot infer type argument for '%s': %s", e.Param, e.Reason)
}
func (e NewInferenceFailure) getStack() []byte { return e.stack }
func (e NewInferenceFailure) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewUnsupportedTypeArgument struct {
	ir.Positioner
	Type  fmt.Stringer
	stack []byte
}

func (e NewUnsupportedTypeArgument) Code() ErrCode { return UnsupportedTypeArgument }
func (e NewUnsupportedTypeArgument) Error() string {
	return fmt.Sprintf("'%v' cannot be used as a type argument", e.Type)
}
func (e NewUnsupportedTypeArgument) getStack() []byte { return e.stack }
func (e NewUnsupportedTypeArgument) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

// NewErasedContextViolation reports a construct that would need a runtime
// type which erasure discards: new T(), new T[n], or a type test against a
// full parameterization
type NewErasedContextViolation struct {
	ir.Positioner
	Construct string
	Type      fmt.Stringer
	stack     []byte
}

func (e NewErasedContextViolation) Code() ErrCode { return ErasedContextViolation }
func (e NewErasedContextViolation) Error() string {
	return fmt.Sprintf("%s of '%v' requires a runtime type that is not available after erasure", e.Construct, e.Type)
}
func (e NewErasedContextViolation) getStack() []byte { return e.stack }
func (e NewErasedContextViolation) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewNameRedeclaration struct {
	ir.Positioner
	Name  string
	Other ir.Positioner
	stack []byte
}

func (e NewNameRedeclaration) Code() ErrCode { return NameRedeclaration }
func (e NewNameRedeclaration) Error() string {
	return fmt.Sprintf("'%s' is declared more than once", e.Name)
}
func (e NewNameRedeclaration) getStack() []byte { return e.stack }
func (e NewNameRedeclaration) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewUndefinedVariable struct {
	ir.Positioner
	Name  string
	stack []byte
}

func (e NewUndefinedVariable) Code() ErrCode { return UndefinedVariable }
func (e NewUndefinedVariable) Error() string {
	return fmt.Sprintf("variable '%s' is not defined", e.Name)
}
func (e NewUndefinedVariable) getStack() []byte { return e.stack }
func (e NewUndefinedVariable) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewUnknownType struct {
	ir.Positioner
	Name  string
	stack []byte
}

func (e NewUnknownType) Code() ErrCode { return UnknownType }
func (e NewUnknownType) Error() string {
	return fmt.Sprintf("type '%s' is not declared", e.Name)
}
func (e NewUnknownType) getStack() []byte { return e.stack }
func (e NewUnknownType) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewArityMismatch struct {
	ir.Positioner
	Name  string
	Want  int
	Got   int
	stack []byte
}

func (e NewArityMismatch) Code() ErrCode { return ArityMismatch }
func (e NewArityMismatch) Error() string {
	return fmt.Sprintf("'%s' takes %d type argument(s), got %d", e.Name, e.Want, e.Got)
}
func (e NewArityMismatch) getStack() []byte { return e.stack }
func (e NewArityMismatch) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewTypeMismatch struct {
	ir.Positioner
	Want   fmt.Stringer
	Got    fmt.Stringer
	Reason string
	stack  []byte
}

func (e NewTypeMismatch) Code() ErrCode { return TypeMismatch }
func (e NewTypeMismatch) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("type mismatch: expected '%v', got '%v'", e.Want, e.Got)
	}
	return fmt.Sprintf("type mismatch: expected '%v', got '%v': %s", e.Want, e.Got, e.Reason)
}
func (e NewTypeMismatch) getStack() []byte { return e.stack }
func (e NewTypeMismatch) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}

type NewUnknownMember struct {
	ir.Positioner
	Receiver fmt.Stringer
	Member   string
	stack    []byte
}

func (e NewUnknownMember) Code() ErrCode { return UnknownMember }
func (e NewUnknownMember) Error() string {
	return fmt.Sprintf("'%v' has no member '%s'", e.Receiver, e.Member)
}
func (e NewUnknownMember) getStack() []byte { return e.stack }
func (e NewUnknownMember) withStack(stack []byte) OpalError {
	e.stack = stack
	return e
}
