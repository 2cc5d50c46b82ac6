package version

import "github.com/fatih/color"

// Version information for the flint CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Semver is the plain semantic version, free of ANSI sequences. It is
	// mixed into every cache key, so bumping it invalidates all artifacts.
	Semver = "0.1.0-dev"

	// Version is the colorized semantic version shown by --version.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0") + "-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)
