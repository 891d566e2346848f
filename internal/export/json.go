package export

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/seoplan/internal/store"
)

// ReportExport is the top-level JSON export structure.
type ReportExport struct {
	ID         string        `json:"id"`
	Brief      string        `json:"brief"`
	State      string        `json:"state"`
	ExportedAt string        `json:"exportedAt"`
	Stages     []StageExport `json:"stages"`
}

// StageExport describes one stage of a report.
type StageExport struct {
	Stage  string          `json:"stage"`
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewReportExport builds the export of rec stamped with at.
func NewReportExport(rec *store.Record, at time.Time) *ReportExport {
	out := &ReportExport{
		ID:         rec.ID,
		Brief:      rec.Brief,
		State:      rec.State,
		ExportedAt: at.UTC().Format(time.RFC3339),
		Stages:     make([]StageExport, 0, len(rec.Stages)),
	}
	for _, d := range rec.Stages {
		out.Stages = append(out.Stages, StageExport{
			Stage:  d.Stage,
			Status: d.Status,
			Error:  d.Error,
			Data:   d.Data,
		})
	}
	return out
}

// JSON renders rec as indented JSON.
func JSON(rec *store.Record) ([]byte, error) {
	return json.MarshalIndent(NewReportExport(rec, time.Now()), "", "  ")
}
