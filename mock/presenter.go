package mock

import (
	"context"

	"github.com/nibzard/isitclear"
)

// Compile-time interface verification.
var (
	_ isitclear.Presenter = (*Presenter)(nil)
	_ isitclear.Clipboard = (*Clipboard)(nil)
)

// Presenter is a mock implementation of isitclear.Presenter.
type Presenter struct {
	PresentFn func(ctx context.Context, view isitclear.ImprovementResultView, showDetails bool) (isitclear.UserAction, error)
}

func (p *Presenter) Present(ctx context.Context, view isitclear.ImprovementResultView, showDetails bool) (isitclear.UserAction, error) {
	return p.PresentFn(ctx, view, showDetails)
}

// Clipboard is a mock implementation of isitclear.Clipboard.
type Clipboard struct {
	CopyFn func(content string) error
}

func (c *Clipboard) Copy(content string) error {
	return c.CopyFn(content)
}
