// Package version reports the adlib build version. Release builds get
// the values stamped via -ldflags; dev builds run from a git checkout
// pick up a describe suffix so bug reports name the exact commit.
package version

import (
	"os/exec"
	"strings"
)

// Set at build time with -ldflags "-X .../internal/version.Version=...".
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

type gitRunner func(args ...string) (string, error)

// Resolve returns the version string shown by `adlib version`. When the
// binary runs inside a git checkout whose HEAD is not on a release tag,
// the git describe output is appended.
func Resolve() string {
	return resolveVersion(Version, runGit)
}

func resolveVersion(base string, git gitRunner) string {
	if base == "" {
		base = "0.0.0"
	}

	suffix := describeSuffix(base, git)
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

// describeSuffix returns the dev-build suffix, or "" for release builds
// (HEAD on a tag) and for binaries run outside a checkout.
func describeSuffix(base string, git gitRunner) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}

	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}

	// v<base>-3-gabcdef reads better without repeating the base.
	prefix := "v" + base + "-"
	return strings.TrimPrefix(desc, prefix)
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
