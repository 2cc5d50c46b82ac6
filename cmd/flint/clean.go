package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flint/internal/cache"
	"flint/internal/project"
	"flint/internal/version"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Wipe the flint artifact cache",
	Long:  "Remove every cached stage artifact. The next build recomputes everything.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().String("cache-dir", "", "artifact cache directory")
	cleanCmd.SilenceUsage = true
}

func runClean(cmd *cobra.Command, _ []string) error {
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	if cacheDir == "" {
		if manifest, ok, err := project.LoadManifest("."); err == nil && ok {
			cacheDir = manifest.Config.Build.CacheDir
		}
	}

	store, err := cache.Open(cacheDir, version.Semver)
	if err != nil {
		return fmt.Errorf("failed to open artifact cache: %w", err)
	}
	if err := store.Invalidate(); err != nil {
		return fmt.Errorf("failed to wipe artifact cache: %w", err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "wiped %s\n", store.Dir())
	return nil
}
