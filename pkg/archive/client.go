package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/debfetch/pkg/cache"
	"github.com/matzehuels/debfetch/pkg/config"
	"github.com/matzehuels/debfetch/pkg/debian"
	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/httputil"
	"github.com/matzehuels/debfetch/pkg/observability"
)

// retryDelay is the initial backoff between index fetch attempts.
const retryDelay = time.Second

var (
	// ErrNotFound is returned when the mirror answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (connection errors, non-200 responses).
	ErrNetwork = errors.New("network error")
)

// Client talks to a single Debian mirror.
type Client struct {
	http      *http.Client
	mirror    string
	indexURL  string
	userAgent string
	timeout   time.Duration
	retries   int
	cache     cache.Cache
	ttl       time.Duration
	logger    *log.Logger
	hooks     observability.Hooks
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache stores fetched indexes in cc for ttl. A ttl of 0 disables caching.
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		if cc != nil {
			c.cache = cc
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks attaches observability hooks for index and cache events.
func WithHooks(h observability.Hooks) Option {
	return func(c *Client) { c.hooks = h }
}

// New creates a Client for the mirror and index described by cfg.
// Caching is off unless [WithCache] is given.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{},
		mirror:    cfg.MirrorURL(),
		indexURL:  cfg.IndexURL(),
		userAgent: cfg.UserAgent,
		timeout:   cfg.IndexTimeout.Std(),
		retries:   max(cfg.Retries, 1),
		cache:     cache.NewNullCache(),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hooks = c.hooks.Resolve()
	return c
}

// IndexURL returns the absolute URL of the package index.
func (c *Client) IndexURL() string { return c.indexURL }

// FileURL returns the absolute URL of a pool path.
func (c *Client) FileURL(path string) string { return c.mirror + path }

// FetchIndex downloads and parses the package index.
//
// With caching enabled the raw compressed index is read from the cache
// unless refresh is set, and written back after a successful parse. Errors
// carry [apperrors.ErrCodeTimeout] when the index timeout elapsed,
// [apperrors.ErrCodeIndexCorrupt] when the payload is not a valid gzip
// stream and [apperrors.ErrCodeNetwork] otherwise.
func (c *Client) FetchIndex(ctx context.Context, refresh bool) (*debian.Index, error) {
	key := cache.IndexKey(c.indexURL)
	caching := c.ttl > 0

	if caching && !refresh {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Debug("index cache read failed", "error", err)
		}
		if ok {
			if idx, err := decodeIndex(data); err == nil {
				c.hooks.Cache.OnCacheHit(ctx, key)
				c.hooks.Index.OnIndexParsed(ctx, c.indexURL, idx.Len(), true)
				c.logger.Debug("index served from cache", "url", c.indexURL, "records", idx.Len())
				return idx, nil
			}
			c.logger.Debug("discarding corrupt cached index", "url", c.indexURL)
		}
		c.hooks.Cache.OnCacheMiss(ctx, key)
	}

	data, err := c.download(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := decodeIndex(data)
	if err != nil {
		return nil, err
	}
	c.hooks.Index.OnIndexParsed(ctx, c.indexURL, idx.Len(), false)
	c.logger.Debug("index parsed", "url", c.indexURL, "bytes", len(data), "records", idx.Len())

	if caching {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Debug("index cache write failed", "error", err)
		} else {
			c.hooks.Cache.OnCacheSet(ctx, key, len(data))
		}
	}
	return idx, nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var data []byte
	start := time.Now()
	err := httputil.Retry(fetchCtx, c.retries, retryDelay, func() error {
		body, err := c.doRequest(fetchCtx, c.indexURL)
		if err != nil {
			c.logger.Debug("index request failed", "url", c.indexURL, "error", err)
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		return nil
	})
	c.hooks.Index.OnIndexFetch(ctx, c.indexURL, len(data), time.Since(start), err)
	if err == nil {
		return data, nil
	}

	if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, err, "fetch index %s: no response within %s", c.indexURL, c.timeout)
	}
	return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch index %s", c.indexURL)
}

// Open starts streaming the pool file at path. The caller closes the body.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return c.doRequest(ctx, c.FileURL(path))
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// decodeIndex decompresses and parses a Packages.gz payload.
func decodeIndex(data []byte) (*debian.Index, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexCorrupt, err, "decompress index")
	}
	defer zr.Close()

	idx, err := debian.ParseReader(zr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexCorrupt, err, "read index")
	}
	return idx, nil
}
