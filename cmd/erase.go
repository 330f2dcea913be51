package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/opal-lang/opal/frontend/ir"
	"github.com/opal-lang/opal/internal/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var EraseCmd = &cobra.Command{
	Use:          "erase file.opal.yaml",
	Short:        "Type-check a unit and print its erased form",
	RunE:         runErase,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var (
	eraseOutPath  *string
	eraseLogLevel *int
)

func init() {
	eraseOutPath = EraseCmd.Flags().StringP("out", "o", "", "output path (default stdout)")
	eraseLogLevel = EraseCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runErase(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*eraseLogLevel))

	unit, err := loadUnitFile(args[0])
	if err != nil {
		return err
	}
	if err := reportDefects(unit); err != nil {
		return err
	}
	erased, err := unit.Erase()
	if err != nil {
		return err
	}

	sb := &strings.Builder{}
	for i := range erased.Decls {
		sb.WriteString(ir.DeclString(&erased.Decls[i]))
		sb.WriteString("\n\n")
	}
	if len(erased.Bridges) > 0 {
		sb.WriteString("// bridges\n")
		for _, bridge := range erased.Bridges {
			sb.WriteString("// " + bridge.String() + "\n")
		}
	}

	if *eraseOutPath == "" {
		fmt.Print(sb.String())
		return nil
	}
	if err := os.WriteFile(path.Clean(*eraseOutPath), []byte(sb.String()), 0o644); err != nil {
		return errors.Wrap(err, "could not write output")
	}
	return nil
}
