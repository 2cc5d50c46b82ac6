// Package main implements the flint CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flint/internal/buildpipeline"
	"flint/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "flint",
	Short: "Flint language compiler and build orchestrator",
	Long:  `Flint compiles module graphs in parallel waves over a content-addressed artifact cache`,
}

// exitError переносит код завершения через RunE до main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Exit codes: 0 for a clean build, 1 for fatal diagnostics, 2 for an internal fault.
const (
	exitDiagnostics = 1
	exitInternal    = 2
)

func init() {
	// ошибки печатает main, одним сообщением
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
}

func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		var fault *buildpipeline.WorkerFault
		if errors.As(err, &fault) {
			os.Exit(exitInternal)
		}
		os.Exit(exitDiagnostics)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(colorFlag string, out *os.File) bool {
	switch colorFlag {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(out)
	}
}
