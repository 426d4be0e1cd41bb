package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Strob0t/TicketForge/internal/logger"
	"github.com/Strob0t/TicketForge/internal/port/cache"
	"github.com/Strob0t/TicketForge/internal/port/capability"
)

// cacheKey derives a stable key for one capability, model and input text.
func cacheKey(kind, model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "triage:" + kind + ":" + hex.EncodeToString(sum[:])
}

// validated is a capability record pointer that can check itself.
type validated[T any] interface {
	*T
	Validate() error
}

// cachedCall serves out from the cache under key, or calls fn and stores a
// successful, valid result. Cache failures degrade to a direct call.
func cachedCall[T any, PT validated[T]](ctx context.Context, c cache.Cache, ttl time.Duration, key string, fn func() (T, error)) (T, error) {
	log := logger.FromContext(ctx)
	if data, ok, err := c.Get(ctx, key); err != nil {
		log.Warn("capability cache get failed", "key", key, "error", err)
	} else if ok {
		var out T
		if err := json.Unmarshal(data, &out); err == nil && PT(&out).Validate() == nil {
			return out, nil
		}
		log.Warn("capability cache entry unreadable", "key", key)
	}

	out, err := fn()
	if err != nil {
		return out, err
	}
	if err := PT(&out).Validate(); err != nil {
		return out, nil
	}
	if data, err := json.Marshal(out); err == nil {
		if err := c.Set(ctx, key, data, ttl); err != nil {
			log.Warn("capability cache set failed", "key", key, "error", err)
		}
	}
	return out, nil
}

// CachedClassifier memoizes a Classifier by model and input text. Failed
// calls and invalid records are not cached.
type CachedClassifier struct {
	model string
	inner capability.Classifier
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedClassifier wraps inner with c. model is part of the cache key.
func NewCachedClassifier(model string, inner capability.Classifier, c cache.Cache, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{model: model, inner: inner, cache: c, ttl: ttl}
}

func (cc *CachedClassifier) Classify(ctx context.Context, text string) (capability.Classification, error) {
	return cachedCall[capability.Classification](ctx, cc.cache, cc.ttl, cacheKey("classifier", cc.model, text), func() (capability.Classification, error) {
		return cc.inner.Classify(ctx, text)
	})
}

// CachedDetector memoizes a LabelDetector by model and input text.
type CachedDetector struct {
	kind  string
	model string
	inner capability.LabelDetector
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedDetector wraps inner with c. kind separates the key spaces of
// different detectors sharing one cache.
func NewCachedDetector(kind, model string, inner capability.LabelDetector, c cache.Cache, ttl time.Duration) *CachedDetector {
	return &CachedDetector{kind: kind, model: model, inner: inner, cache: c, ttl: ttl}
}

func (cd *CachedDetector) Detect(ctx context.Context, text string) (capability.Label, error) {
	return cachedCall[capability.Label](ctx, cd.cache, cd.ttl, cacheKey(cd.kind, cd.model, text), func() (capability.Label, error) {
		return cd.inner.Detect(ctx, text)
	})
}
