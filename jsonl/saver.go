package jsonl

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
)

// Record is the JSONL form of one batch outcome.
type Record struct {
	Index     int                              `json:"index"`
	ID        string                           `json:"id,omitempty"`
	Success   bool                             `json:"success"`
	Result    *isitclear.ImprovementResultView `json:"result,omitempty"`
	Quality   *isitclear.Quality               `json:"quality,omitempty"`
	Error     string                           `json:"error,omitempty"`
	ErrorCode isitclear.Code                   `json:"errorCode,omitempty"`
}

// NewRecord converts a batch outcome to a Record, grading successful results.
func NewRecord(o analyzer.BatchOutcome) Record {
	rec := Record{Index: o.Index, ID: o.ID, Success: o.Success()}
	if o.Err != nil {
		rec.Error = isitclear.ErrorMessage(o.Err)
		rec.ErrorCode = isitclear.ErrorCode(o.Err)
		return rec
	}
	view := o.Result.View()
	quality := isitclear.AssessQuality(o.Result)
	rec.Result = &view
	rec.Quality = &quality
	return rec
}

// Saver appends Record entries to JSONL files.
type Saver struct{}

// NewSaver creates a new Saver.
func NewSaver() *Saver {
	return &Saver{}
}

// Save appends records to a JSONL file, creating parent directories if needed.
func (s *Saver) Save(path string, records ...Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.Write(f, records...)
}

// Write encodes records to w, one per line.
func (s *Saver) Write(w io.Writer, records ...Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
