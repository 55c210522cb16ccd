// Package session manages cached backend sessions keyed by backend kind and
// parameter fingerprint.
package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nibzard/isitclear"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxIdle is how long a session may stay unused before SweepIdle destroys it.
const DefaultMaxIdle = 5 * time.Minute

// DefaultCreateTimeout bounds a shared session creation in GetOrCreate.
const DefaultCreateTimeout = 30 * time.Second

// Handle is a caller's reference to a cached backend session.
type Handle struct {
	ID           string
	Kind         isitclear.BackendKind
	Fingerprint  string
	Capabilities isitclear.Capabilities
	CreatedAt    time.Time

	session isitclear.Session
}

// Invoke runs input against the underlying backend session.
func (h *Handle) Invoke(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error) {
	return h.session.Invoke(ctx, input)
}

// Info is a diagnostic snapshot of one cached session.
type Info struct {
	ID          string                `json:"id"`
	Kind        isitclear.BackendKind `json:"kind"`
	Fingerprint string                `json:"fingerprint"`
	CreatedAt   time.Time             `json:"createdAt"`
	LastUsedAt  time.Time             `json:"lastUsedAt"`
}

type entry struct {
	handle     *Handle
	lastUsedAt time.Time
}

type cacheKey struct {
	kind        isitclear.BackendKind
	fingerprint string
}

// Manager creates, caches, reuses and expires backend sessions. It is a
// cache, not a pool: a session is reused only for identical parameters.
type Manager struct {
	backends map[isitclear.BackendKind]isitclear.Backend
	logger   *zap.Logger
	now      func() time.Time

	createTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry // by session ID
	byKey   map[cacheKey]string
	group   singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for swallowed release errors.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCreateTimeout bounds session creation started by GetOrCreate. The
// creation outlives any single caller, so it runs on its own deadline.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.createTimeout = d
	}
}

// NewManager creates a Manager over the given backends, one per kind.
func NewManager(backends []isitclear.Backend, opts ...Option) *Manager {
	m := &Manager{
		backends: make(map[isitclear.BackendKind]isitclear.Backend, len(backends)),
		logger:   zap.NewNop(),
		now:      time.Now,

		createTimeout: DefaultCreateTimeout,
		entries:  make(map[string]*entry),
		byKey:    make(map[cacheKey]string),
	}
	for _, b := range backends {
		m.backends[b.Kind()] = b
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fingerprint returns the canonical identity of a parameter set: the BLAKE3
// hash of its JSON serialization.
func Fingerprint(params isitclear.Parameters) string {
	data, _ := json.Marshal(params)
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Create probes backend availability and creates a new session. It never
// consults the cache; use GetOrCreate for reuse. The new session becomes the
// cached one for its key. A session it displaces is no longer handed out by
// GetOrCreate but stays owned by the Manager: holders may keep using it, and
// SweepIdle, Destroy or Close release it.
func (m *Manager) Create(ctx context.Context, kind isitclear.BackendKind, params isitclear.Parameters) (*Handle, error) {
	backend, ok := m.backends[kind]
	if !ok {
		return nil, isitclear.NewBackendUnavailable(kind, errors.New("no backend registered"))
	}

	avail, err := backend.Availability(ctx)
	if err != nil {
		return nil, classifyCreateError(kind, err)
	}
	if !avail.Usable() {
		return nil, isitclear.NewBackendUnavailable(kind, nil)
	}

	sess, err := backend.CreateSession(ctx, params)
	if err != nil {
		return nil, classifyCreateError(kind, err)
	}

	now := m.now()
	h := &Handle{
		ID:           uuid.NewString(),
		Kind:         kind,
		Fingerprint:  Fingerprint(params),
		Capabilities: sess.Capabilities(),
		CreatedAt:    now,
		session:      sess,
	}

	m.mu.Lock()
	m.entries[h.ID] = &entry{handle: h, lastUsedAt: now}
	m.byKey[cacheKey{kind, h.Fingerprint}] = h.ID
	m.mu.Unlock()

	m.logger.Debug("session created",
		zap.String("id", h.ID),
		zap.String("backend", string(kind)),
		zap.String("fingerprint", h.Fingerprint))
	return h, nil
}

// GetOrCreate returns the cached session for (kind, params) or creates one.
// Concurrent misses for the same key share a single creation. The creation
// is detached from ctx: a caller whose ctx ends returns ctx.Err() at once,
// while the creation finishes for the remaining callers and the cache.
func (m *Manager) GetOrCreate(ctx context.Context, kind isitclear.BackendKind, params isitclear.Parameters) (*Handle, error) {
	key := cacheKey{kind, Fingerprint(params)}
	if h := m.lookup(key); h != nil {
		return h, nil
	}

	ch := m.group.DoChan(string(kind)+"/"+key.fingerprint, func() (any, error) {
		// Re-check: a creation may have finished between lookup and DoChan.
		if h := m.lookup(key); h != nil {
			return h, nil
		}
		createCtx, cancel := m.detach(ctx)
		defer cancel()
		return m.Create(createCtx, kind, params)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// detach derives a creation context that keeps ctx's values but not its
// cancellation, bounded by the create timeout when one is set.
func (m *Manager) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if m.createTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.createTimeout)
}

// lookup returns the cached handle for key and touches it.
func (m *Manager) lookup(key cacheKey) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil
	}
	e := m.entries[id]
	e.lastUsedAt = m.now()
	return e.handle
}

// Destroy removes and releases the session with the given id. It returns
// false if no such session exists. Release errors are logged, not returned.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		m.remove(id, e)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.release(e.handle)
	return true
}

// remove deletes the entry from both indexes. Caller holds m.mu.
func (m *Manager) remove(id string, e *entry) {
	delete(m.entries, id)
	key := cacheKey{e.handle.Kind, e.handle.Fingerprint}
	if m.byKey[key] == id {
		delete(m.byKey, key)
	}
}

func (m *Manager) release(h *Handle) {
	if err := h.session.Release(); err != nil {
		m.logger.Warn("session release failed",
			zap.String("id", h.ID),
			zap.String("backend", string(h.Kind)),
			zap.Error(err))
		return
	}
	m.logger.Debug("session destroyed", zap.String("id", h.ID), zap.String("backend", string(h.Kind)))
}

// SweepIdle destroys sessions unused for longer than maxIdle and returns how
// many were removed. It is not scheduled internally; the owning process
// decides when to sweep.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	now := m.now()

	m.mu.Lock()
	var expired []*Handle
	for id, e := range m.entries {
		if now.Sub(e.lastUsedAt) > maxIdle {
			m.remove(id, e)
			expired = append(expired, e.handle)
		}
	}
	m.mu.Unlock()

	for _, h := range expired {
		m.release(h)
	}
	if len(expired) > 0 {
		m.logger.Info("idle sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// AvailableBackends probes every registered backend without creating sessions.
func (m *Manager) AvailableBackends(ctx context.Context) []isitclear.BackendKind {
	var kinds []isitclear.BackendKind
	for kind, b := range m.backends {
		avail, err := b.Availability(ctx)
		if err != nil {
			m.logger.Debug("availability probe failed", zap.String("backend", string(kind)), zap.Error(err))
			continue
		}
		if avail.Usable() {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Sessions returns a snapshot of cached sessions ordered by creation time.
func (m *Manager) Sessions() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, Info{
			ID:          e.handle.ID,
			Kind:        e.handle.Kind,
			Fingerprint: e.handle.Fingerprint,
			CreatedAt:   e.handle.CreatedAt,
			LastUsedAt:  e.lastUsedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close destroys every cached session.
func (m *Manager) Close() error {
	m.mu.Lock()
	all := make([]*Handle, 0, len(m.entries))
	for id, e := range m.entries {
		m.remove(id, e)
		all = append(all, e.handle)
	}
	m.mu.Unlock()

	for _, h := range all {
		m.release(h)
	}
	return nil
}

// classifyCreateError maps a backend creation failure onto the session error taxonomy.
func classifyCreateError(kind isitclear.BackendKind, err error) error {
	switch {
	case isitclear.IsCode(err, isitclear.CodeBackendUnavailable),
		isitclear.IsCode(err, isitclear.CodeInsufficientResources):
		return err
	case errors.Is(err, isitclear.ErrUnavailable):
		return isitclear.NewBackendUnavailable(kind, err)
	case errors.Is(err, isitclear.ErrInsufficientResources):
		return isitclear.WrapError(isitclear.CodeInsufficientResources, err, string(kind)+" session creation")
	}
	return isitclear.WrapError(isitclear.CodeUnknown, err, string(kind)+" session creation")
}
