package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/observability"
)

// Source streams pool files. [archive.Client] implements it.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Item is one file to download.
type Item struct {
	Path   string `json:"path"`             // Pool path relative to the mirror root
	SHA256 string `json:"sha256,omitempty"` // Expected hex digest; empty skips verification
}

// Name returns the local file name of the item.
func (i Item) Name() string { return path.Base(i.Path) }

// Failure records an item that could not be downloaded.
type Failure struct {
	Name string
	Path string
	Err  error
}

// Report summarizes a [Downloader.Fetch] call. Names appear in item order.
type Report struct {
	Dir        string    // Absolute output directory
	Downloaded []string  // Files written by this run
	Skipped    []string  // Files that already existed
	Failed     []Failure // Files that could not be written
}

// OK reports whether every item is present in the output directory.
func (r *Report) OK() bool { return len(r.Failed) == 0 }

// Downloader retrieves items from a [Source] into a directory.
type Downloader struct {
	src    Source
	dir    string
	jobs   int
	logger *log.Logger
	hooks  observability.Hooks
}

// Option customizes a [Downloader].
type Option func(*Downloader)

// WithJobs sets how many files are downloaded concurrently. Values below 1
// mean sequential.
func WithJobs(n int) Option {
	return func(d *Downloader) { d.jobs = max(n, 1) }
}

// WithLogger sets the logger used for per-file progress.
func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHooks attaches observability hooks for download events.
func WithHooks(h observability.Hooks) Option {
	return func(d *Downloader) { d.hooks = h }
}

// New creates a Downloader writing into dir.
func New(src Source, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		src:    src,
		dir:    dir,
		jobs:   1,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.hooks = d.hooks.Resolve()
	return d
}

type status int

const (
	statusFailed status = iota
	statusDownloaded
	statusSkipped
)

type outcome struct {
	status status
	err    error
}

// Fetch downloads items and reports what happened to each.
//
// Items whose context is cancelled before they start are reported as failed
// with the context error.
func (d *Downloader) Fetch(ctx context.Context, items []Item) *Report {
	report := &Report{Dir: d.dir}
	if abs, err := filepath.Abs(d.dir); err == nil {
		report.Dir = abs
	}
	if len(items) == 0 {
		return report
	}

	outcomes := make([]outcome, len(items))
	if err := os.MkdirAll(report.Dir, 0o755); err != nil {
		for i := range outcomes {
			outcomes[i] = outcome{err: fmt.Errorf("create output directory: %w", err)}
		}
	} else {
		// Items sharing a local name are serialized so that only one of them
		// downloads and the rest see the file and skip.
		locks := make(map[string]*sync.Mutex, len(items))
		for _, item := range items {
			if _, ok := locks[item.Name()]; !ok {
				locks[item.Name()] = new(sync.Mutex)
			}
		}

		g := new(errgroup.Group)
		g.SetLimit(d.jobs)
		for i, item := range items {
			mu := locks[item.Name()]
			g.Go(func() error {
				mu.Lock()
				defer mu.Unlock()
				if err := ctx.Err(); err != nil {
					outcomes[i] = outcome{err: err}
					return nil
				}
				outcomes[i] = d.fetchOne(ctx, report.Dir, item)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, item := range items {
		name := item.Name()
		switch o := outcomes[i]; o.status {
		case statusDownloaded:
			report.Downloaded = append(report.Downloaded, name)
		case statusSkipped:
			report.Skipped = append(report.Skipped, name)
		default:
			d.logger.Error("download failed", "file", name, "error", o.err)
			report.Failed = append(report.Failed, Failure{Name: name, Path: item.Path, Err: o.err})
		}
	}
	return report
}

func (d *Downloader) fetchOne(ctx context.Context, dir string, item Item) outcome {
	if err := apperrors.ValidatePath(item.Path); err != nil {
		return outcome{err: err}
	}
	name := item.Name()
	dest := filepath.Join(dir, name)

	if _, err := os.Stat(dest); err == nil {
		d.logger.Info("already present, skipping", "file", name)
		d.hooks.Download.OnDownloadSkip(ctx, name)
		return outcome{status: statusSkipped}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return outcome{err: err}
	}

	d.logger.Info("downloading", "file", name)
	start := time.Now()
	n, err := d.download(ctx, dir, dest, item)
	d.hooks.Download.OnDownloadComplete(ctx, name, n, time.Since(start), err)
	if err != nil {
		return outcome{err: err}
	}
	d.logger.Debug("downloaded", "file", name, "bytes", n)
	return outcome{status: statusDownloaded}
}

func (d *Downloader) download(ctx context.Context, dir, dest string, item Item) (n int64, err error) {
	body, err := d.src.Open(ctx, item.Path)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp := filepath.Join(dir, "."+item.Name()+"."+uuid.NewString()+".part")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	h := sha256.New()
	n, err = io.Copy(io.MultiWriter(f, h), body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	if want := item.SHA256; want != "" {
		if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, want) {
			return n, apperrors.New(apperrors.ErrCodeChecksumMismatch, "%s: sha256 %s, index says %s", item.Name(), got, want)
		}
	}

	return n, os.Rename(tmp, dest)
}
