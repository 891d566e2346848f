package pipeline

import "fmt"

// ProgressStatus is the state reported for a stage in a progress event.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressRunning  ProgressStatus = "running"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
	ProgressBlocked  ProgressStatus = "blocked"
)

// ProgressEvent is emitted while a run executes.
type ProgressEvent struct {
	RunID   string
	Stage   string
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffer of 64 events.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends an event without blocking. Events are dropped when the buffer
// is full.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns the event channel.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the event channel. Emit must not be called afterwards.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Stage)
	case ProgressRunning:
		return fmt.Sprintf("  ● %s...", event.Stage)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", event.Stage)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Stage, event.Message)
	case ProgressBlocked:
		return fmt.Sprintf("  - %s blocked: %s", event.Stage, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Stage)
	}
}
