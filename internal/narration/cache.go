package narration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// AudioCache stores synthesized audio by CacheKey.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key, text string, voice VoiceParams, audio []byte) error
}

// CacheKey identifies the audio for text spoken with voice.
func CacheKey(text string, voice VoiceParams) string {
	v := voice.Normalize()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%.3f\x00%.3f", text, v.Voice, v.Language, v.Rate, v.Pitch)))
	return hex.EncodeToString(sum[:])
}

// CachingSynthesizer serves repeated lines from an AudioCache. Cache errors
// are logged and never fail a synthesis.
type CachingSynthesizer struct {
	Next  Synthesizer
	Cache AudioCache
	Log   *slog.Logger
}

// NewCachingSynthesizer wraps next with cache.
func NewCachingSynthesizer(next Synthesizer, cache AudioCache, logger *slog.Logger) *CachingSynthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachingSynthesizer{Next: next, Cache: cache, Log: logger}
}

func (c *CachingSynthesizer) Synthesize(ctx context.Context, text string, voice VoiceParams) ([]byte, error) {
	key := CacheKey(text, voice)
	audio, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		c.Log.Warn("audio cache read failed", "key", key, "err", err)
	case ok:
		c.Log.Debug("audio cache hit", "key", key)
		return audio, nil
	}
	audio, err = c.Next.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Put(ctx, key, text, voice, audio); err != nil {
		c.Log.Warn("audio cache write failed", "key", key, "err", err)
	}
	return audio, nil
}

// MemoryCache is an in-process AudioCache used when no database is
// configured.
type MemoryCache struct {
	mu    sync.Mutex
	clips map[string][]byte
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{clips: map[string][]byte{}}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.clips[key]
	return a, ok, nil
}

func (m *MemoryCache) Put(_ context.Context, key, _ string, _ VoiceParams, audio []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips[key] = append([]byte(nil), audio...)
	return nil
}
