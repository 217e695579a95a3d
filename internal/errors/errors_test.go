package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Format(t *testing.T) {
	err := NewConfigError("number of txps 10 not equal to number of txps in eq class file 12", ErrCountMismatch).
		WithPath("t2g.tsv")

	assert.Equal(t,
		"config error [path=t2g.tsv]: number of txps 10 not equal to number of txps in eq class file 12: target count mismatch",
		err.Error())
	assert.True(t, Is(err, ErrCountMismatch))
	assert.True(t, Is(err, &ConfigError{}))
	assert.Equal(t, SeverityFatal, err.Severity())
}

func TestParseError_LineAndPath(t *testing.T) {
	err := NewParseError("expected 4 fields", ErrMalformedInput).WithPath("eq_classes.txt").WithLine(7)

	assert.Contains(t, err.Error(), "path=eq_classes.txt")
	assert.Contains(t, err.Error(), "line=7")
	assert.True(t, Is(err, ErrMalformedInput))
	assert.False(t, Is(err, ErrCountMismatch))
}

func TestSynthesisError_IsNotFatal(t *testing.T) {
	err := NewSynthesisError("1_2_3", ErrTimeout)

	assert.True(t, Is(err, ErrSynthesis))
	assert.True(t, Is(err, ErrTimeout))
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.Error(), "group=1_2_3")
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"config", NewConfigError("bad", nil), true},
		{"parse", NewParseError("bad", nil), true},
		{"wrapped config", fmt.Errorf("group: %w", NewConfigError("bad", nil)), true},
		{"synthesis", NewSynthesisError("3_7", nil), false},
		{"plain", New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ctx"))
	err := Wrapf(ErrMissingInput, "sample %s", "s1")
	assert.EqualError(t, err, "sample s1: missing input")
	assert.True(t, Is(err, ErrMissingInput))
}
