package fs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nibzard/isitclear"
)

// Compile-time interface verification.
var _ isitclear.InputSurface = (*FileSurface)(nil)

// maxFieldSize bounds the files FileSurface treats as fields.
const maxFieldSize = 1 << 20

// FileSurface treats text files as input fields. The reference is the file
// path. A single trailing newline belongs to the file, not the field, and
// is kept across replacements. The cursor is tracked in memory per file.
type FileSurface struct {
	mu      sync.Mutex
	cursors map[string]int
}

// NewFileSurface creates a FileSurface.
func NewFileSurface() *FileSurface {
	return &FileSurface{cursors: make(map[string]int)}
}

// DetectField reads the file at ref. Directories, oversized files and
// files that are not UTF-8 text are not input fields.
func (s *FileSurface) DetectField(ref string) (*isitclear.Field, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, isitclear.NewNotAnInputField(ref, err.Error())
	}
	if !info.Mode().IsRegular() {
		return nil, isitclear.NewNotAnInputField(ref, "not a regular file")
	}
	if info.Size() > maxFieldSize {
		return nil, isitclear.NewNotAnInputField(ref, "file too large")
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, isitclear.NewNotAnInputField(ref, err.Error())
	}
	if !utf8.Valid(data) || strings.ContainsRune(string(data), 0) {
		return nil, isitclear.NewNotAnInputField(ref, "not UTF-8 text")
	}

	text := trimFinalNewline(string(data))
	n := utf8.RuneCountInString(text)

	s.mu.Lock()
	cursor, ok := s.cursors[ref]
	if !ok || cursor > n {
		cursor = n
	}
	s.cursors[ref] = cursor
	s.mu.Unlock()

	return &isitclear.Field{
		Text:           text,
		Kind:           fieldKind(ref, text),
		Locator:        ref,
		CursorPosition: cursor,
		SelectionStart: cursor,
		SelectionEnd:   cursor,
	}, nil
}

// ReplaceText writes text to the file at ref atomically, keeping its mode
// and trailing newline. With preserveCursor the tracked cursor stays in
// place, clamped to the new text; otherwise it moves to the end.
func (s *FileSurface) ReplaceText(ref string, text string, preserveCursor bool) error {
	info, err := os.Stat(ref)
	if err != nil {
		return isitclear.NewNotAnInputField(ref, err.Error())
	}
	old, err := os.ReadFile(ref)
	if err != nil {
		return err
	}
	out := text
	if strings.HasSuffix(string(old), "\n") && !strings.HasSuffix(text, "\n") {
		out += "\n"
	}
	if err := writeFileAtomic(ref, []byte(out), info.Mode().Perm()); err != nil {
		return err
	}

	n := utf8.RuneCountInString(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	cursor, ok := s.cursors[ref]
	if !preserveCursor || !ok || cursor > n {
		cursor = n
	}
	s.cursors[ref] = cursor
	return nil
}

// SetCursor records the cursor position for ref.
func (s *FileSurface) SetCursor(ref string, pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[ref] = max(pos, 0)
}

func trimFinalNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// fieldKind maps markup files to rich-edit, single-line text to input and
// everything else to textarea.
func fieldKind(path, text string) isitclear.FieldKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".rtf", ".md", ".markdown":
		return isitclear.FieldRichEdit
	}
	if !strings.ContainsRune(text, '\n') {
		return isitclear.FieldInput
	}
	return isitclear.FieldTextarea
}
