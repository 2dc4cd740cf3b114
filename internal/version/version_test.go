package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNoTag = errors.New("no tag")

// scriptedGit answers rev-parse from inRepo and describe from the tag /
// describe fields, mirroring the three calls resolveVersion makes.
func scriptedGit(inRepo bool, onTag bool, describe string, describeErr error) gitRunner {
	return func(args ...string) (string, error) {
		if len(args) == 0 {
			return "", errors.New("missing git subcommand")
		}
		switch args[0] {
		case "rev-parse":
			if !inRepo {
				return "", errors.New("not a git repository")
			}
			return ".git", nil
		case "describe":
			for _, a := range args {
				if a == "--exact-match" {
					if onTag {
						return "v0.1.0", nil
					}
					return "", errNoTag
				}
			}
			return describe, describeErr
		}
		return "", errors.New("unexpected git subcommand")
	}
}

func TestResolveVersionOnReleaseTag(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(true, true, "", nil))
	require.Equal(t, "0.1.0", got)
}

func TestResolveVersionCommitsAfterTag(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(true, false, "v0.1.0-3-gabcdef", nil))
	require.Equal(t, "0.1.0-3-gabcdef", got)
}

func TestResolveVersionDirtyWorkingTree(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(true, false, "v0.1.0-3-gabcdef-dirty", nil))
	require.Equal(t, "0.1.0-3-gabcdef-dirty", got)
}

func TestResolveVersionNoTagsFallsBackToHash(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(true, false, "abcdef", nil))
	require.Equal(t, "0.1.0-abcdef", got)
}

func TestResolveVersionOutsideCheckout(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(false, false, "", nil))
	require.Equal(t, "0.1.0", got)
}

func TestResolveVersionEmptyBase(t *testing.T) {
	t.Parallel()
	got := resolveVersion("", scriptedGit(false, false, "", nil))
	require.Equal(t, "0.0.0", got)
}

func TestResolveVersionDescribeFailure(t *testing.T) {
	t.Parallel()
	got := resolveVersion("0.1.0", scriptedGit(true, false, "", errors.New("describe failed")))
	require.Equal(t, "0.1.0", got)
}
