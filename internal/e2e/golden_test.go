//go:build e2e

package e2e

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treeterminus/internal/export"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// goldenArtifacts lists the outputs compared against golden files, relative
// to the output prefix. Logs carrying scores are left out; their floats
// depend on summation order.
var goldenArtifacts = []string{
	filepath.Join("s1", export.GroupsFile),
	filepath.Join("s1", export.GoldenLog),
	filepath.Join("s2", export.GroupsFile),
	filepath.Join("s2", export.SplitsFile),
	filepath.Join("s3", export.GroupsFile),
	filepath.Join("s3", export.MergedNewick),
	export.MergedGroupsFile,
	export.MergedSplitsFile,
	export.ClusterNewick,
}

// goldenName flattens an artifact path into a golden file name.
func goldenName(artifact string) string {
	return strings.ReplaceAll(filepath.ToSlash(artifact), "/", "_") + ".golden"
}

// TestGolden compares the pipeline output against the golden files under
// testdata/golden.
func TestGolden(t *testing.T) {
	out := runFixture(t, 2)

	for _, artifact := range goldenArtifacts {
		name := goldenName(artifact)
		t.Run(name, func(t *testing.T) {
			golden, err := os.ReadFile(filepath.Join(goldenDir(), name))
			require.NoError(t, err, "missing golden file; run with -update to generate")

			actual, err := os.ReadFile(filepath.Join(out, artifact))
			require.NoError(t, err)
			assert.Equal(t, string(golden), string(actual), "output for %s does not match golden file", artifact)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current pipeline output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	out := runFixture(t, 2)
	require.NoError(t, os.MkdirAll(goldenDir(), 0o755))

	for _, artifact := range goldenArtifacts {
		data, err := os.ReadFile(filepath.Join(out, artifact))
		require.NoError(t, err)
		name := goldenName(artifact)
		require.NoError(t, os.WriteFile(filepath.Join(goldenDir(), name), data, 0o644))
		t.Logf("updated %s", name)
	}
}
