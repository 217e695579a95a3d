// Package consensus turns the representative trees of a super-group into one
// consensus tree. A Synthesizer is either an external extended
// majority-rule binary or the built-in MajorityRule.
package consensus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// DefaultTimeout bounds a single external synthesizer call.
const DefaultTimeout = 5 * time.Minute

// Synthesizer builds a consensus tree from Newick trees over the same leaf
// set. Implementations must be safe for concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, trees []string) (string, error)
}

// New returns an ExecSynthesizer when binary is set and MajorityRule
// otherwise.
func New(binary string, timeout time.Duration) Synthesizer {
	if binary == "" {
		return MajorityRule{}
	}
	return &ExecSynthesizer{Binary: binary, Timeout: timeout}
}

// ExecSynthesizer runs an external consensus program as
//
//	<Binary> <input> <output> mre 0 0 0 0
//
// with the input trees written one per line. Each call works in its own
// scratch directory, removed afterwards.
type ExecSynthesizer struct {
	Binary  string
	Timeout time.Duration
	// TempDir is the parent of scratch directories; empty means os.TempDir.
	TempDir string
}

var _ Synthesizer = (*ExecSynthesizer)(nil)

// Synthesize implements Synthesizer.
func (e *ExecSynthesizer) Synthesize(ctx context.Context, trees []string) (string, error) {
	if len(trees) == 0 {
		return "", fmt.Errorf("no input trees")
	}
	dir, err := os.MkdirTemp(e.TempDir, "consense-")
	if err != nil {
		return "", errors.Wrap(err, "create scratch directory")
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "inp_tree.nwk")
	output := filepath.Join(dir, "out_tree.nwk")
	if err := os.WriteFile(input, []byte(strings.Join(trees, "\n")+"\n"), 0o644); err != nil {
		return "", errors.Wrap(err, "write input trees")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Binary, input, output, "mre", "0", "0", "0", "0")
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrapf(errors.ErrTimeout, "%s exceeded %s", filepath.Base(e.Binary), timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", filepath.Base(e.Binary), err, msg)
		}
		return "", fmt.Errorf("%s: %w", filepath.Base(e.Binary), err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return "", errors.Wrap(err, "read consensus tree")
	}
	// Trees may be wrapped across lines; labels never contain whitespace.
	out := strings.Join(strings.Fields(string(data)), "")
	if out == "" {
		return "", fmt.Errorf("%s wrote no tree", filepath.Base(e.Binary))
	}
	if i := strings.IndexByte(out, ';'); i >= 0 {
		out = out[:i+1]
	}
	return out, nil
}
