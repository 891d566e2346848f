// Package store persists run reports as opaque per-stage JSON documents.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dusk-indust/seoplan/internal/pipeline"
)

// ErrNotFound is returned for an unknown run ID.
var ErrNotFound = errors.New("store: record not found")

// Stage document statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusBlocked   = "blocked"
)

// StageDoc is the stored outcome of one stage. Data holds the JSON output of
// a completed stage.
type StageDoc struct {
	Stage     string          `json:"stage"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Record is a stored run.
type Record struct {
	ID        string     `json:"id"`
	Brief     string     `json:"brief"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Stages    []StageDoc `json:"stages"`
}

// Stage returns the document for name.
func (r *Record) Stage(name string) (StageDoc, bool) {
	for _, d := range r.Stages {
		if d.Stage == name {
			return d, true
		}
	}
	return StageDoc{}, false
}

// SetStage replaces the document for doc.Stage, or appends it.
func (r *Record) SetStage(doc StageDoc) {
	for i, d := range r.Stages {
		if d.Stage == doc.Stage {
			r.Stages[i] = doc
			return
		}
	}
	r.Stages = append(r.Stages, doc)
}

// Summary is a list entry.
type Summary struct {
	ID        string    `json:"id"`
	Brief     string    `json:"brief"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Blocked   int       `json:"blocked"`
}

// Store persists records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error

	// Get returns a copy of the record, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns summaries in insertion order.
	List(ctx context.Context) ([]Summary, error)

	// PutStage upserts one stage document of an existing record and sets
	// the run state. An empty state leaves it unchanged.
	PutStage(ctx context.Context, runID string, doc StageDoc, state string) error

	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	Close() error
}

// FromReport converts a pipeline report into a record. Stage documents
// follow the report's graph order.
func FromReport(rep *pipeline.Report) (*Record, error) {
	rec := &Record{
		ID:        rep.RunID,
		Brief:     rep.Brief,
		State:     rep.State.String(),
		CreatedAt: rep.StartedAt.UTC(),
		UpdatedAt: rep.FinishedAt.UTC(),
		Stages:    make([]StageDoc, 0, len(rep.Results)),
	}

	for _, res := range rep.Results {
		doc := StageDoc{Stage: res.Stage, Status: StatusPending, UpdatedAt: rep.FinishedAt.UTC()}
		if !res.FinishedAt.IsZero() {
			doc.UpdatedAt = res.FinishedAt.UTC()
		}

		switch res.Status {
		case pipeline.Completed:
			data, err := json.Marshal(res.Output)
			if err != nil {
				return nil, fmt.Errorf("store: encode stage %q: %w", res.Stage, err)
			}
			doc.Status = StatusCompleted
			doc.Data = data
		case pipeline.Failed:
			doc.Status = StatusFailed
			if res.Err != nil {
				doc.Error = res.Err.Error()
			}
		default:
			if f, ok := rep.Failure(res.Stage); ok {
				var b *pipeline.Blocked
				if errors.As(f.Err, &b) {
					doc.Status = StatusBlocked
				}
				doc.Error = f.Err.Error()
			}
		}
		rec.Stages = append(rec.Stages, doc)
	}
	return rec, nil
}

// Summarize builds the list entry for rec.
func Summarize(rec *Record) Summary {
	s := Summary{
		ID:        rec.ID,
		Brief:     rec.Brief,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	for _, d := range rec.Stages {
		switch d.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusBlocked:
			s.Blocked++
		}
	}
	return s
}

func copyRecord(src *Record) *Record {
	dst := *src
	dst.Stages = make([]StageDoc, len(src.Stages))
	for i, d := range src.Stages {
		dst.Stages[i] = copyDoc(d)
	}
	return &dst
}

func copyDoc(d StageDoc) StageDoc {
	d.Data = slices.Clone(d.Data)
	return d
}
