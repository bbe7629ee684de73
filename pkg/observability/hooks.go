// Package observability provides hooks for metrics, tracing, and logging.
//
// Hooks let a caller observe index fetches, cache use and package downloads
// without the library depending on a metrics backend. They are passed
// explicitly to the components that emit events:
//
//	hooks := observability.Hooks{Download: &myCounters{}}
//	client := archive.New(cfg, archive.WithHooks(hooks))
//	dl := fetch.New(client, dir, fetch.WithHooks(hooks))
//
// Zero-valued fields fall back to no-op implementations, see [Hooks.Resolve].
// Implementations must be safe for concurrent use: downloads may run in
// parallel.
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Index Hooks
// =============================================================================

// IndexHooks receives events from package index retrieval.
type IndexHooks interface {
	// OnIndexFetch records one index download. size is the compressed size.
	OnIndexFetch(ctx context.Context, url string, size int, duration time.Duration, err error)

	// OnIndexParsed records a successfully parsed index.
	OnIndexParsed(ctx context.Context, url string, records int, cached bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)
}

// =============================================================================
// Download Hooks
// =============================================================================

// DownloadHooks receives events from package file downloads.
type DownloadHooks interface {
	// OnDownloadSkip records a file that already existed locally.
	OnDownloadSkip(ctx context.Context, name string)

	// OnDownloadComplete records a finished download attempt.
	OnDownloadComplete(ctx context.Context, name string, size int64, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopIndexHooks is a no-op implementation of IndexHooks.
type NoopIndexHooks struct{}

func (NoopIndexHooks) OnIndexFetch(context.Context, string, int, time.Duration, error) {}
func (NoopIndexHooks) OnIndexParsed(context.Context, string, int, bool)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopDownloadHooks is a no-op implementation of DownloadHooks.
type NoopDownloadHooks struct{}

func (NoopDownloadHooks) OnDownloadSkip(context.Context, string)                                {}
func (NoopDownloadHooks) OnDownloadComplete(context.Context, string, int64, time.Duration, error) {}

// =============================================================================
// Hook Set
// =============================================================================

// Hooks groups the hooks of every event category.
type Hooks struct {
	Index    IndexHooks
	Cache    CacheHooks
	Download DownloadHooks
}

// Resolve returns h with nil fields replaced by no-op implementations.
func (h Hooks) Resolve() Hooks {
	if h.Index == nil {
		h.Index = NoopIndexHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.Download == nil {
		h.Download = NoopDownloadHooks{}
	}
	return h
}
