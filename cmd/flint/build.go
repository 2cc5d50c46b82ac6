package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"flint/internal/buildpipeline"
	"flint/internal/diagfmt"
	"flint/internal/project"
)

const noManifestMessage = "no flint.toml found; pass an entry file: flint build path/to/main.fl"

var buildCmd = &cobra.Command{
	Use:   "build [flags] [entry]",
	Short: "Build a flint project",
	Long:  "Build a flint project from flint.toml, or from an explicit entry file.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().IntP("jobs", "j", 0, "number of parallel workers (0 = all CPUs)")
	buildCmd.Flags().Bool("no-cache", false, "skip the artifact cache entirely")
	buildCmd.Flags().String("cache-dir", "", "artifact cache directory")
	buildCmd.Flags().StringP("output", "o", "", "output image path")
	buildCmd.Flags().String("ui", "auto", "interactive progress (auto|on|off)")
	buildCmd.Flags().Bool("json", false, "emit diagnostics as JSON")
	buildCmd.SilenceUsage = true
}

// buildTarget is everything the command resolved before handing off to the
// pipeline: entry file, project root and the output name.
type buildTarget struct {
	entry   string
	baseDir string
	output  string

	jobs     int
	cacheDir string
}

func resolveBuildTarget(args []string) (*buildTarget, error) {
	if len(args) > 0 && args[0] != "" {
		entry := args[0]
		if filepath.Ext(entry) != project.SourceExt {
			return nil, fmt.Errorf("entry must be a %s file, got %q", project.SourceExt, entry)
		}
		name := strings.TrimSuffix(filepath.Base(entry), project.SourceExt)
		return &buildTarget{
			entry:   entry,
			baseDir: filepath.Dir(entry),
			output:  name + ".fimg",
		}, nil
	}

	manifest, found, err := project.LoadManifest(".")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New(noManifestMessage)
	}
	entry, err := manifest.EntryFile()
	if err != nil {
		return nil, err
	}
	return &buildTarget{
		entry:    entry,
		baseDir:  manifest.Root,
		output:   manifest.Config.Package.Name + ".fimg",
		jobs:     manifest.Config.Build.Jobs,
		cacheDir: manifest.Config.Build.CacheDir,
	}, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	jsonDiags, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
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
	// флаги перекрывают манифест
	if jobs <= 0 {
		jobs = target.jobs
	}
	if cacheDir == "" {
		cacheDir = target.cacheDir
	}
	if output == "" {
		output = target.output
	}

	req := buildpipeline.Request{
		EntryPath:      target.entry,
		BaseDir:        target.baseDir,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		NoCache:        noCache,
		CacheDir:       cacheDir,
		CollectTimings: timings,
	}

	interactive := false
	switch uiValue {
	case "on":
		interactive = true
	case "auto":
		interactive = isTerminal(os.Stdout) && !quiet && !jsonDiags
	case "off":
	default:
		return fmt.Errorf("unsupported --ui value %q (must be auto, on or off)", uiValue)
	}

	var res *buildpipeline.Result
	if interactive {
		res, err = runBuildWithUI(cmd.Context(), "flint build", req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	if err != nil {
		// любая ошибка конвейера (паника воркера, кеш не открылся, I/O при
		// обнаружении) — сбой оркестратора, не диагностика исходников
		var fault *buildpipeline.WorkerFault
		if errors.As(err, &fault) && len(fault.Stack) > 0 {
			fmt.Fprintf(os.Stderr, "%s\n", fault.Stack)
		}
		return &exitError{code: exitInternal, err: err}
	}

	if err := reportDiagnostics(res, jsonDiags, colorFlag, maxDiagnostics); err != nil {
		return err
	}

	if timings && !quiet {
		if res.Timings != nil {
			fmt.Fprintln(os.Stderr, res.Timings)
		}
		fmt.Fprintln(os.Stderr, res.Metrics)
	}

	if res.Failed() {
		if !quiet {
			fmt.Fprintf(os.Stderr, "build failed: %s\n", diagfmt.Summary(res.Bag))
		}
		return &exitError{code: exitDiagnostics}
	}

	if err := os.WriteFile(output, res.Binary, 0o644); err != nil { // #nosec G306 -- build output is not sensitive
		return fmt.Errorf("failed to write %q: %w", output, err)
	}
	if !quiet {
		fmt.Fprintf(os.Stdout, "wrote %s (%d modules", output, res.Summary.Total)
		if warn := diagfmt.Summary(res.Bag); warn != "no diagnostics" {
			fmt.Fprintf(os.Stdout, ", %s", warn)
		}
		fmt.Fprintln(os.Stdout, ")")
	}
	return nil
}

func reportDiagnostics(res *buildpipeline.Result, jsonDiags bool, colorFlag string, maxDiagnostics int) error {
	if res.Bag == nil || res.Bag.Len() == 0 {
		return nil
	}
	if jsonDiags {
		return diagfmt.JSON(os.Stdout, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			Max:              maxDiagnostics,
		})
	}
	diagfmt.Pretty(os.Stderr, res.Bag, res.FileSet, diagfmt.PrettyOpts{
		Color:       useColor(colorFlag, os.Stderr),
		ShowNotes:   true,
		ShowPreview: true,
	})
	return nil
}
