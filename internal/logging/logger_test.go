package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "treeterminus.log")
	l, err := NewLogger(path, "debug")
	require.NoError(t, err)

	l.WithPhase("group").WithSample("s1").Info("collapsed", "ncollapses", 3)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	recs := decodeLines(t, data)
	require.Len(t, recs, 1)
	assert.Equal(t, "collapsed", recs[0]["msg"])
	assert.Equal(t, "group", recs[0]["phase"])
	assert.Equal(t, "s1", recs[0]["sample"])
	assert.EqualValues(t, 3, recs[0]["ncollapses"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	recs := decodeLines(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "ERROR", recs[1]["level"])
}

func TestLogger_WithDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger(&buf, "info")
	child := parent.With("group", "3_7")

	child.Info("child")
	parent.Info("parent")

	recs := decodeLines(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, "3_7", recs[0]["group"])
	_, ok := recs[1]["group"]
	assert.False(t, ok)
}

func TestParseLevel_Unknown(t *testing.T) {
	assert.Equal(t, parseLevel("verbose"), parseLevel("INFO"))
	assert.Len(t, ValidLevels(), 4)
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info("nothing")
	assert.NoError(t, l.Close())
}
