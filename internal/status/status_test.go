package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/export"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestScanSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s1")
	touch(t, filepath.Join(dir, export.ForestFile))
	touch(t, filepath.Join(dir, export.GroupsFile))

	st := ScanSample(dir)
	assert.Equal(t, "s1", st.Name)
	assert.False(t, st.Complete(StageGroup))
	assert.Equal(t, []string{export.ParamsFile}, st.Missing(StageGroup))
	assert.False(t, st.Complete(StageConsensus))

	touch(t, filepath.Join(dir, export.ParamsFile))
	st = ScanSample(dir)
	assert.True(t, st.Complete(StageGroup))
	for _, a := range st.Artifacts {
		if a.Name == export.ForestFile {
			assert.Equal(t, filepath.Join(dir, export.ForestFile), a.Path)
		}
		if a.Name == export.CollapseLog {
			assert.False(t, a.Complete)
			assert.Empty(t, a.Path)
		}
	}
}

func TestScanOutputsAndRequireGrouped(t *testing.T) {
	root := t.TempDir()
	samples := filepath.Join(root, "quant")
	out := filepath.Join(root, "out")
	for _, s := range []string{"a", "b", ".hidden"} {
		require.NoError(t, os.MkdirAll(filepath.Join(samples, s), 0o755))
	}
	for _, s := range []string{"a", "b"} {
		touch(t, filepath.Join(out, s, export.ForestFile))
		touch(t, filepath.Join(out, s, export.GroupsFile))
	}
	touch(t, filepath.Join(out, "a", export.ParamsFile))

	statuses, err := ScanOutputs(samples, out)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "a", statuses[0].Name)
	assert.Equal(t, "b", statuses[1].Name)

	err = RequireGrouped(statuses)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingInput))
	assert.Contains(t, err.Error(), "sample b")

	touch(t, filepath.Join(out, "b", export.ParamsFile))
	statuses, err = ScanOutputs(samples, out)
	require.NoError(t, err)
	assert.NoError(t, RequireGrouped(statuses))
}

func TestScanOutputs_MissingDir(t *testing.T) {
	_, err := ScanOutputs(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrMissingInput))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "group", StageGroup.String())
	assert.Equal(t, "consensus", StageConsensus.String())
}
