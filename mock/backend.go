// Package mock provides test doubles for isitclear interfaces.
package mock

import (
	"context"

	"github.com/nibzard/isitclear"
)

// Compile-time interface verification.
var (
	_ isitclear.Backend = (*Backend)(nil)
	_ isitclear.Session = (*Session)(nil)
)

// Backend is a mock implementation of isitclear.Backend.
type Backend struct {
	KindValue       isitclear.BackendKind
	AvailabilityFn  func(ctx context.Context) (isitclear.Availability, error)
	CreateSessionFn func(ctx context.Context, params isitclear.Parameters) (isitclear.Session, error)
}

func (b *Backend) Kind() isitclear.BackendKind {
	return b.KindValue
}

func (b *Backend) Availability(ctx context.Context) (isitclear.Availability, error) {
	return b.AvailabilityFn(ctx)
}

func (b *Backend) CreateSession(ctx context.Context, params isitclear.Parameters) (isitclear.Session, error) {
	return b.CreateSessionFn(ctx, params)
}

// Session is a mock implementation of isitclear.Session.
type Session struct {
	InvokeFn       func(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error)
	ReleaseFn      func() error
	CapabilitiesFn func() isitclear.Capabilities
}

func (s *Session) Invoke(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error) {
	return s.InvokeFn(ctx, input)
}

func (s *Session) Release() error {
	return s.ReleaseFn()
}

func (s *Session) Capabilities() isitclear.Capabilities {
	return s.CapabilitiesFn()
}
