package consensus

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

func TestParseNewick(t *testing.T) {
	c, err := ParseNewick("((1:0.5,2):3.0,3)root;")
	require.NoError(t, err)
	assert.Equal(t, "root", c.Name)
	assert.Equal(t, []string{"1", "2", "3"}, c.Leaves())
	require.Len(t, c.Children, 2)
	assert.Equal(t, "3.0", c.Children[0].Length)
	assert.Equal(t, "0.5", c.Children[0].Children[0].Length)

	leaf, err := ParseNewick(" 7; ")
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "7", leaf.Name)

	empty, err := ParseNewick("();")
	require.NoError(t, err)
	assert.Empty(t, empty.Leaves())
}

func TestParseNewick_Malformed(t *testing.T) {
	for _, in := range []string{
		"((1,2),3)",
		"((1,2),3;",
		"(1,2));",
		"(1,2)(3,4);",
		"1,2;",
		";",
		"(1;2);",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseNewick(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedInput))
		})
	}
}

func TestParseNewick_DeepChain(t *testing.T) {
	const n = 20000
	var b strings.Builder
	b.WriteString(strings.Repeat("(", n-1))
	b.WriteString("0")
	for i := 1; i < n; i++ {
		b.WriteString("," + strconv.Itoa(i) + ")")
	}
	b.WriteString(";")

	c, err := ParseNewick(b.String())
	require.NoError(t, err)
	assert.Len(t, c.Leaves(), n)
}

func TestMajorityRule(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		trees []string
		want  string
	}{
		{
			name:  "identical trees",
			trees: []string{"((1,2),3);", "((1,2),3);", "((1,2),3);"},
			want:  "((1,2):3.0,3);",
		},
		{
			name:  "majority cluster wins",
			trees: []string{"((1,2),3);", "((2,1),3);", "((2,3),1);"},
			want:  "((1,2):2.0,3);",
		},
		{
			name:  "compatible minority cluster is kept",
			trees: []string{"(((1,2),3),4);", "((1,2),(3,4));", "(((1,2),4),3);"},
			want:  "(((1,2):3.0,3):1.0,4);",
		},
		{
			name:  "pair has no internal clusters",
			trees: []string{"(3,7);", "(7,3);"},
			want:  "(3,7);",
		},
		{
			name:  "numeric leaf order",
			trees: []string{"((10,9),2);"},
			want:  "(2,(9,10):1.0);",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MajorityRule{}.Synthesize(ctx, tt.trees)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := MajorityRule{}.Synthesize(ctx, tt.trees)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestMajorityRule_LeafMismatch(t *testing.T) {
	_, err := MajorityRule{}.Synthesize(context.Background(), []string{"((1,2),3);", "(1,2);"})
	assert.Error(t, err)

	_, err = MajorityRule{}.Synthesize(context.Background(), []string{"((1,2),3);", "((1,2),4);"})
	assert.Error(t, err)

	_, err = MajorityRule{}.Synthesize(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	assert.IsType(t, MajorityRule{}, New("", 0))
	s := New("/usr/bin/consense", time.Minute)
	require.IsType(t, &ExecSynthesizer{}, s)
	assert.Equal(t, time.Minute, s.(*ExecSynthesizer).Timeout)
}

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "consense.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecSynthesizer(t *testing.T) {
	bin := script(t, `[ "$3" = mre ] && [ "$4$5$6$7" = 0000 ] || exit 9
head -n 1 "$1" > "$2"`)
	scratch := t.TempDir()
	s := &ExecSynthesizer{Binary: bin, Timeout: 10 * time.Second, TempDir: scratch}

	got, err := s.Synthesize(context.Background(), []string{"((1,2),3);", "((2,3),1);"})
	require.NoError(t, err)
	assert.Equal(t, "((1,2),3);", got)

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory is removed")
}

func TestExecSynthesizer_WrappedOutput(t *testing.T) {
	bin := script(t, `printf '((1,2):2.0,\n3);\n' > "$2"`)
	got, err := (&ExecSynthesizer{Binary: bin}).Synthesize(context.Background(), []string{"x;"})
	require.NoError(t, err)
	assert.Equal(t, "((1,2):2.0,3);", got)
}

func TestExecSynthesizer_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("non-zero exit", func(t *testing.T) {
		bin := script(t, "echo boom >&2\nexit 3")
		_, err := (&ExecSynthesizer{Binary: bin}).Synthesize(ctx, []string{"(1,2);"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("missing output", func(t *testing.T) {
		bin := script(t, "exit 0")
		_, err := (&ExecSynthesizer{Binary: bin}).Synthesize(ctx, []string{"(1,2);"})
		assert.Error(t, err)
	})

	t.Run("empty output", func(t *testing.T) {
		bin := script(t, `: > "$2"`)
		_, err := (&ExecSynthesizer{Binary: bin}).Synthesize(ctx, []string{"(1,2);"})
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		bin := script(t, "exec sleep 5")
		_, err := (&ExecSynthesizer{Binary: bin, Timeout: 100 * time.Millisecond}).Synthesize(ctx, []string{"(1,2);"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTimeout))
	})

	t.Run("no trees", func(t *testing.T) {
		_, err := (&ExecSynthesizer{Binary: "unused"}).Synthesize(ctx, nil)
		assert.Error(t, err)
	})
}
