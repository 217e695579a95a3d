// Package pipeline drives the group and consensus stages: it loads inputs,
// runs the engines and writes every artifact.
package pipeline

import (
	"fmt"

	"github.com/dusk-indust/treeterminus/internal/status"
)

// ProgressStatus is the state of one unit of work.
type ProgressStatus int

const (
	ProgressPending ProgressStatus = iota
	ProgressWorking
	ProgressComplete
	ProgressFailed
)

// ProgressEvent reports on one sample or super-group.
type ProgressEvent struct {
	Stage   status.Stage
	Section string
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event without blocking.
// If the channel is full, the event is dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Section)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Section)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s: %s", event.Section, event.Message)
		}
		return fmt.Sprintf("  ✓ %s complete", event.Section)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Section, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Section)
	}
}

// FormatStageHeader formats a stage header for display.
// Returns: "[{name}] {stage}"
func FormatStageHeader(name string, stage status.Stage) string {
	return fmt.Sprintf("[%s] %s", name, stage)
}

type emitter func(ProgressEvent)

func (e emitter) emit(stage status.Stage, section string, st ProgressStatus, msg string) {
	if e != nil {
		e(ProgressEvent{Stage: stage, Section: section, Status: st, Message: msg})
	}
}
