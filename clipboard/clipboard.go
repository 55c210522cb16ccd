// Package clipboard copies text to the system clipboard, falling back to an
// OSC 52 terminal escape when no platform clipboard is reachable.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/nibzard/isitclear"
)

// Ensure System implements the Clipboard interface.
var _ isitclear.Clipboard = (*System)(nil)

// ErrUnsupported is returned when neither the platform clipboard nor a
// terminal fallback is available.
var ErrUnsupported = errors.New("clipboard: no clipboard available")

// System implements Clipboard using the platform clipboard command
// (pbcopy, xclip, xsel, wl-copy or the Windows API).
type System struct {
	writeAll    func(string) error
	unsupported bool
	terminal    io.Writer
	tmux        bool
}

// Option configures a System clipboard.
type Option func(*System)

// WithTerminalFallback writes an OSC 52 sequence to w when the platform
// clipboard fails. Inside tmux the sequence is wrapped in a passthrough.
func WithTerminalFallback(w io.Writer) Option {
	return func(s *System) {
		s.terminal = w
		s.tmux = os.Getenv("TMUX") != ""
	}
}

// WithWriteFunc replaces the platform clipboard writer.
func WithWriteFunc(fn func(string) error) Option {
	return func(s *System) {
		s.writeAll = fn
		s.unsupported = false
	}
}

// NewSystem returns a new System clipboard.
func NewSystem(opts ...Option) *System {
	s := &System{
		writeAll:    clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Copy writes content to the system clipboard.
func (s *System) Copy(content string) error {
	var platformErr error
	if !s.unsupported {
		if platformErr = s.writeAll(content); platformErr == nil {
			return nil
		}
	}
	if s.terminal == nil {
		if platformErr != nil {
			return fmt.Errorf("clipboard: %w", platformErr)
		}
		return ErrUnsupported
	}

	seq := osc52.New(content)
	if s.tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(s.terminal); err != nil {
		return fmt.Errorf("clipboard: osc52: %w", err)
	}
	return nil
}
