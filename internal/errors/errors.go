// Package errors provides the error taxonomy shared by the grouping and
// consensus stages.
//
// # Error Types
//
//   - ConfigError: missing or invalid input files, count mismatches between
//     the equivalence-class file and the mapping files, malformed maps.
//     Always fatal for the whole run.
//   - ParseError: corrupt persisted artifacts or malformed quantification
//     files. Fatal for the run or sample being read.
//   - SynthesisError: the consensus synthesizer failed for one merged group.
//     Reported per group; processing of the remaining groups continues.
//
// Degenerate inputs (empty components, singleton groups, groups absent in a
// sample) are handled by explicit policy and never produce errors.
//
// # Usage
//
//	err := errors.NewConfigError("t2g covers 10 targets, eq classes list 12", errors.ErrCountMismatch).
//		WithPath("t2g.tsv")
//	if errors.Is(err, errors.ErrCountMismatch) { ... }
//	if errors.IsFatal(err) { os.Exit(1) }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience so callers only
// import this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityWarning marks errors that affect one unit of work only.
	SeverityWarning Severity = iota
	// SeverityError marks errors that abort the current sample.
	SeverityError
	// SeverityFatal marks errors that abort the whole run.
	SeverityFatal
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors.
var (
	// ErrMissingInput indicates that a required file or directory is absent.
	ErrMissingInput = New("missing input")
	// ErrCountMismatch indicates inconsistent target counts between inputs.
	ErrCountMismatch = New("target count mismatch")
	// ErrInvalidMapping indicates a malformed or inconsistent mapping file.
	ErrInvalidMapping = New("invalid mapping")
	// ErrInvalidValue indicates an out-of-range parameter.
	ErrInvalidValue = New("invalid value")
	// ErrCorruptArtifact indicates a persisted artifact that cannot be decoded.
	ErrCorruptArtifact = New("corrupt artifact")
	// ErrMalformedInput indicates a quantification file that cannot be parsed.
	ErrMalformedInput = New("malformed input")
	// ErrSynthesis indicates that the consensus synthesizer produced no tree.
	ErrSynthesis = New("consensus synthesis failed")
	// ErrTimeout indicates that the synthesizer exceeded its deadline.
	ErrTimeout = New("operation timed out")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message  string
	cause    error
	severity Severity
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if the cause matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

func format(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// ConfigError represents an invalid run configuration or inconsistent
// inputs.
//
// Example:
//
//	err := errors.NewConfigError("number of alleles 9 not equal to number of targets 12", errors.ErrCountMismatch)
//	err = err.WithPath("a2t.tsv")
//	fmt.Println(err) // "config error [path=a2t.tsv]: number of alleles ...: target count mismatch"
type ConfigError struct {
	baseError
	Path string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityFatal,
		},
	}
}

// WithPath adds the offending file path.
func (e *ConfigError) WithPath(path string) *ConfigError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return format("config error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ParseError represents a file that could not be decoded.
type ParseError struct {
	baseError
	Path string
	Line int
}

// NewParseError creates a new ParseError.
func NewParseError(message string, cause error) *ParseError {
	return &ParseError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithPath adds the offending file path.
func (e *ParseError) WithPath(path string) *ParseError {
	e.Path = path
	return e
}

// WithLine adds the 1-based line number where decoding failed.
func (e *ParseError) WithLine(line int) *ParseError {
	e.Line = line
	return e
}

// Error returns the formatted error message.
func (e *ParseError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line=%d", e.Line))
	}
	return format("parse error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ParseError) Is(target error) bool {
	if _, ok := target.(*ParseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SynthesisError represents a consensus failure for a single merged group.
type SynthesisError struct {
	baseError
	Group string
}

// NewSynthesisError creates a new SynthesisError for the given group.
func NewSynthesisError(group string, cause error) *SynthesisError {
	return &SynthesisError{
		baseError: baseError{
			message:  "no consensus tree produced",
			cause:    cause,
			severity: SeverityWarning,
		},
		Group: group,
	}
}

// Error returns the formatted error message.
func (e *SynthesisError) Error() string {
	var parts []string
	if e.Group != "" {
		parts = append(parts, fmt.Sprintf("group=%s", e.Group))
	}
	return format("synthesis error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SynthesisError) Is(target error) bool {
	if _, ok := target.(*SynthesisError); ok {
		return true
	}
	if target == ErrSynthesis {
		return true
	}
	return e.baseError.Is(target)
}

// GetSeverity returns the severity of err. Errors outside this package are
// treated as SeverityError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityWarning
	}
	var sev interface{ Severity() Severity }
	if errors.As(err, &sev) {
		return sev.Severity()
	}
	return SeverityError
}

// IsFatal reports whether err must abort the current run rather than be
// reported and skipped.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetSeverity(err) >= SeverityError
}

// Wrap wraps an error with additional context.
// Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
