package fs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nibzard/isitclear"
	"github.com/zeebo/blake3"
)

// Compile-time interface verification.
var (
	_ isitclear.Backend = (*CachingBackend)(nil)
	_ isitclear.Session = (*cachingSession)(nil)
)

// CachingBackend wraps a Backend with a file cache of invocation outputs.
// Identical (backend, parameters, input) triples are answered from disk.
type CachingBackend struct {
	inner    isitclear.Backend
	cacheDir string
}

// NewCachingBackend creates a new caching backend.
func NewCachingBackend(inner isitclear.Backend, cacheDir string) *CachingBackend {
	return &CachingBackend{
		inner:    inner,
		cacheDir: cacheDir,
	}
}

// Kind implements isitclear.Backend.
func (b *CachingBackend) Kind() isitclear.BackendKind {
	return b.inner.Kind()
}

// Availability implements isitclear.Backend.
func (b *CachingBackend) Availability(ctx context.Context) (isitclear.Availability, error) {
	return b.inner.Availability(ctx)
}

// CreateSession implements isitclear.Backend.
func (b *CachingBackend) CreateSession(ctx context.Context, params isitclear.Parameters) (isitclear.Session, error) {
	sess, err := b.inner.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}
	return &cachingSession{
		Session:  sess,
		kind:     b.inner.Kind(),
		params:   params,
		cacheDir: b.cacheDir,
	}, nil
}

type cachingSession struct {
	isitclear.Session
	kind     isitclear.BackendKind
	params   isitclear.Parameters
	cacheDir string
}

// Invoke returns a cached output or delegates to the wrapped session.
func (s *cachingSession) Invoke(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error) {
	hash := s.hashInput(input)

	// Check cache
	if cached, err := s.loadFromCache(hash); err == nil {
		return cached, nil
	}

	// Cache miss - delegate to inner
	out, err := s.Session.Invoke(ctx, input)
	if err != nil {
		return nil, err
	}

	// Store in cache (best-effort)
	_ = s.saveToCache(hash, out)

	return out, nil
}

type cacheKey struct {
	Kind   isitclear.BackendKind  `json:"kind"`
	Params isitclear.Parameters   `json:"params"`
	Input  isitclear.BackendInput `json:"input"`
}

func (s *cachingSession) hashInput(input isitclear.BackendInput) string {
	data, _ := json.Marshal(cacheKey{Kind: s.kind, Params: s.params, Input: input})
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *cachingSession) cachePath(hash string) string {
	return filepath.Join(s.cacheDir, hash+".json")
}

type cachedOutput struct {
	Text       string                `json:"text"`
	Confidence *float64              `json:"confidence,omitempty"`
	Changes    []isitclear.RawChange `json:"changes,omitempty"`
}

func (s *cachingSession) loadFromCache(hash string) (*isitclear.BackendOutput, error) {
	data, err := os.ReadFile(s.cachePath(hash))
	if err != nil {
		return nil, err
	}

	var c cachedOutput
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	return &isitclear.BackendOutput{Text: c.Text, Confidence: c.Confidence, Changes: c.Changes}, nil
}

func (s *cachingSession) saveToCache(hash string, out *isitclear.BackendOutput) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(cachedOutput{Text: out.Text, Confidence: out.Confidence, Changes: out.Changes})
	if err != nil {
		return err
	}

	return writeFileAtomic(s.cachePath(hash), data, 0o644)
}
