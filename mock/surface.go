package mock

import "github.com/nibzard/isitclear"

// Compile-time interface verification.
var _ isitclear.InputSurface = (*InputSurface)(nil)

// InputSurface is a mock implementation of isitclear.InputSurface.
type InputSurface struct {
	DetectFieldFn func(ref string) (*isitclear.Field, error)
	ReplaceTextFn func(ref string, text string, preserveCursor bool) error
}

func (s *InputSurface) DetectField(ref string) (*isitclear.Field, error) {
	return s.DetectFieldFn(ref)
}

func (s *InputSurface) ReplaceText(ref string, text string, preserveCursor bool) error {
	return s.ReplaceTextFn(ref, text, preserveCursor)
}
