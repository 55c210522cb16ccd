// Package jsonl provides JSONL file handling for batch inputs, batch
// outcomes and review decisions.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nibzard/isitclear/analyzer"
)

// Loader loads batch items from JSONL files.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// maxLineSize is the maximum size for a single JSONL line (1MB).
// Texts are capped at 5000 characters, so this leaves ample headroom.
const maxLineSize = 1024 * 1024

// Load reads a JSONL file of batch items.
func (l *Loader) Load(path string) ([]analyzer.BatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Read(f)
}

// Read parses batch items from r. Each non-blank line is either an object
// {"id", "text", "fieldContext"} or a bare JSON string holding the text.
// Items without an id get their 1-based line number.
func (l *Loader) Read(r io.Reader) ([]analyzer.BatchItem, error) {
	var items []analyzer.BatchItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item analyzer.BatchItem
		if strings.HasPrefix(line, `"`) {
			if err := json.Unmarshal([]byte(line), &item.Text); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		} else if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if item.ID == "" {
			item.ID = strconv.Itoa(lineNum)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
