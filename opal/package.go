// Package opal ties the phases together: decode a unit, check it, erase it.
// It is the entry point for hosts embedding the compiler middle end
package opal

import (
	"github.com/opal-lang/opal/backend"
	"github.com/opal-lang/opal/frontend"
	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/opal-lang/opal/frontend/types"
	"github.com/opal-lang/opal/internal/log"
	"github.com/pkg/errors"
)

var unitLogger = log.DefaultLogger.With("section", "unit")

// Unit is a checked compilation unit. Diagnostics accumulate on it; erasure
// is only available when checking reported none
type Unit struct {
	syntax  []ir.ClassDecl
	checked *types.CheckedUnit
	erased  *backend.ErasedUnit
}

// LoadUnit decodes the YAML surface form and checks it end to end
func LoadUnit(src []byte) (*Unit, error) {
	decls, err := frontend.DecodeUnit(src)
	if err != nil {
		return nil, errors.Wrap(err, "load unit")
	}
	return NewUnit(decls), nil
}

// NewUnit checks already-built declarations. Hosts with their own parser call
// this directly
func NewUnit(decls []ir.ClassDecl) *Unit {
	ctx := types.NewEmptyTypeCtx()
	checked := ctx.ProcessDeclarations(decls)
	unitLogger.Debug("unit checked",
		"decls", len(decls),
		"errors", len(checked.Errors().Errors()),
		"failures", len(checked.Failures()),
	)
	return &Unit{syntax: checked.Syntax, checked: checked}
}

func (u *Unit) Syntax() []ir.ClassDecl      { return u.syntax }
func (u *Unit) Checked() *types.CheckedUnit { return u.checked }
func (u *Unit) Errors() *opalerr.Errors     { return u.checked.Errors() }
func (u *Unit) Failures() []error           { return u.checked.Failures() }
func (u *Unit) HasErrors() bool             { return u.checked.HasErrors() }

// Erase runs the erasure pass, memoized. It fails when checking reported
// defects
func (u *Unit) Erase() (*backend.ErasedUnit, error) {
	if u.erased != nil {
		return u.erased, nil
	}
	erased, err := backend.NewEraser(u.checked).EraseUnit()
	if err != nil {
		return nil, errors.Wrap(err, "erase unit")
	}
	u.erased = erased
	return erased, nil
}
