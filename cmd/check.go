package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/opal-lang/opal/frontend/opalerr"
	"github.com/opal-lang/opal/internal/log"
	"github.com/opal-lang/opal/opal"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check file.opal.yaml",
	Short:        "Type-check a unit",
	RunE:         runCheck,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var checkLogLevel *int

func init() {
	checkLogLevel = CheckCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runCheck(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*checkLogLevel))

	unit, err := loadUnitFile(args[0])
	if err != nil {
		return err
	}
	if err := reportDefects(unit); err != nil {
		return err
	}
	fmt.Printf("ok: %d declaration(s)\n", len(unit.Syntax()))
	return nil
}

func loadUnitFile(target string) (*opal.Unit, error) {
	src, err := os.ReadFile(path.Clean(target))
	if err != nil {
		return nil, errors.Wrap(err, "could not read unit")
	}
	return opal.LoadUnit(src)
}

func reportDefects(unit *opal.Unit) error {
	if !unit.HasErrors() {
		return nil
	}
	sb := &strings.Builder{}
	for _, opalError := range unit.Errors().Errors() {
		sb.WriteString("\n")
		sb.WriteString(opalerr.FormatWithCode(opalError))
	}
	for _, failure := range unit.Failures() {
		sb.WriteString("\ninternal: ")
		sb.WriteString(failure.Error())
	}
	return fmt.Errorf("errors found during checking:%s", sb.String())
}
