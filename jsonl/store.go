package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nibzard/isitclear"
)

// Decision is a reviewed batch result.
type Decision struct {
	ID           string               `json:"id"`
	Action       isitclear.UserAction `json:"action"`
	OriginalText string               `json:"originalText"`
	ImprovedText string               `json:"improvedText"`
	DecidedAt    time.Time            `json:"decidedAt"`
}

// Store persists and retrieves Decision records as JSONL.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Load reads decisions from a JSONL file. Returns empty slice if file doesn't exist.
func (s *Store) Load(path string) ([]Decision, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var decisions []Decision
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var d Decision
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		decisions = append(decisions, d)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return decisions, nil
}

// Save writes decisions to a JSONL file, creating parent directories if needed.
func (s *Store) Save(path string, decisions []Decision) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, d := range decisions {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}

	return nil
}

// Decided returns the set of item IDs that already have a decision.
func Decided(decisions []Decision) map[string]bool {
	out := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		out[d.ID] = true
	}
	return out
}
