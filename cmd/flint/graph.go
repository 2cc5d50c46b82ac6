package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"flint/internal/buildpipeline"
	"flint/internal/diagfmt"
)

var graphCmd = &cobra.Command{
	Use:   "graph [entry]",
	Short: "Show the module graph and its build waves",
	Long:  "Discover the module graph of a project and print the wave layering the scheduler would use.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().Bool("imports", false, "also list the direct imports of every module")
	graphCmd.Flags().Bool("hashes", false, "show the aggregate hash of every module")
	graphCmd.SilenceUsage = true
}

func runGraph(cmd *cobra.Command, args []string) error {
	showImports, err := cmd.Flags().GetBool("imports")
	if err != nil {
		return err
	}
	showHashes, err := cmd.Flags().GetBool("hashes")
	if err != nil {
		return err
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	target, err := resolveBuildTarget(args)
	if err != nil {
		return err
	}
	plan, err := buildpipeline.Prepare(buildpipeline.Request{
		EntryPath:      target.entry,
		BaseDir:        target.baseDir,
		MaxDiagnostics: maxDiagnostics,
	})
	if err != nil {
		return err
	}

	if plan.Cycle != nil {
		bag := plan.MergedBag(maxDiagnostics)
		diagfmt.Pretty(os.Stderr, bag, plan.FileSet, diagfmt.PrettyOpts{
			Color:     useColor(colorFlag, os.Stderr),
			ShowNotes: true,
		})
		fmt.Fprintf(os.Stderr, "error: %v\n", plan.Cycle)
		return &exitError{code: exitDiagnostics}
	}

	waves := plan.Waves()
	total := 0
	for _, wave := range waves {
		total += len(wave)
	}
	fmt.Fprintf(os.Stdout, "entry %s: %d modules in %d waves\n", plan.EntryModule, total, len(waves))
	for i, wave := range waves {
		fmt.Fprintf(os.Stdout, "wave %d: %s\n", i, strings.Join(wave, ", "))
		for _, module := range wave {
			if showHashes {
				fmt.Fprintf(os.Stdout, "  %s %s\n", plan.ModuleHash(module).ShortHex(), module)
			}
			if showImports {
				if deps := plan.Imports(module); len(deps) > 0 {
					fmt.Fprintf(os.Stdout, "  %s <- %s\n", module, strings.Join(deps, ", "))
				}
			}
		}
	}
	return nil
}
