package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/debfetch/pkg/archive"
	"github.com/matzehuels/debfetch/pkg/config"
	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/observability"
)

// memSource serves files from a map and counts Open calls.
type memSource struct {
	mu    sync.Mutex
	files map[string]string
	opens []string
}

func (s *memSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, path)
	data, ok := s.files[path]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestFetch_Downloads(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{files: map[string]string{
		"pool/main/v/vim/vim_1_amd64.deb": "vim",
		"pool/main/x/xxd/xxd_1_amd64.deb": "xxd",
	}}

	report := New(src, dir).Fetch(context.Background(), []Item{
		{Path: "pool/main/v/vim/vim_1_amd64.deb", SHA256: digest("vim")},
		{Path: "pool/main/x/xxd/xxd_1_amd64.deb"},
	})

	if !report.OK() {
		t.Fatalf("unexpected failures: %+v", report.Failed)
	}
	if len(report.Downloaded) != 2 || report.Downloaded[0] != "vim_1_amd64.deb" {
		t.Errorf("unexpected downloaded list %v", report.Downloaded)
	}
	if got := readFile(t, filepath.Join(dir, "vim_1_amd64.deb")); got != "vim" {
		t.Errorf("vim content = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "xxd_1_amd64.deb")); got != "xxd" {
		t.Errorf("xxd content = %q", got)
	}
	if report.Dir != dir {
		t.Errorf("report.Dir = %q, want %q", report.Dir, dir)
	}
}

func TestFetch_SkipsExistingWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("new"))
	}))
	defer server.Close()

	dir := t.TempDir()
	existing := filepath.Join(dir, "vim_1_amd64.deb")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Mirror = server.URL + "/"
	d := New(archive.New(cfg), dir)

	report := d.Fetch(context.Background(), []Item{{Path: "pool/main/v/vim/vim_1_amd64.deb"}})

	if hits.Load() != 0 {
		t.Errorf("expected no request for existing file, got %d", hits.Load())
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "vim_1_amd64.deb" {
		t.Errorf("unexpected skipped list %v", report.Skipped)
	}
	if got := readFile(t, existing); got != "old" {
		t.Errorf("existing file was overwritten: %q", got)
	}
}

func TestFetch_FailureDoesNotStopRun(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{files: map[string]string{
		"pool/b.deb": "b",
	}}

	report := New(src, dir).Fetch(context.Background(), []Item{
		{Path: "pool/a.deb"},
		{Path: "pool/b.deb"},
	})

	if len(report.Failed) != 1 || report.Failed[0].Name != "a.deb" {
		t.Fatalf("unexpected failures %+v", report.Failed)
	}
	if !errors.Is(report.Failed[0].Err, archive.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", report.Failed[0].Err)
	}
	if len(report.Downloaded) != 1 || report.Downloaded[0] != "b.deb" {
		t.Errorf("unexpected downloaded list %v", report.Downloaded)
	}
	if len(src.opens) != 2 {
		t.Errorf("expected both files requested, got %v", src.opens)
	}
}

func TestFetch_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{files: map[string]string{"pool/a.deb": "tampered"}}

	report := New(src, dir).Fetch(context.Background(), []Item{
		{Path: "pool/a.deb", SHA256: digest("original")},
	})

	if len(report.Failed) != 1 {
		t.Fatalf("expected one failure, got %+v", report)
	}
	if !apperrors.Is(report.Failed[0].Err, apperrors.ErrCodeChecksumMismatch) {
		t.Errorf("expected CHECKSUM_MISMATCH, got %v", report.Failed[0].Err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files left behind, found %d", len(entries))
	}
}

func TestFetch_RejectsUnsafePath(t *testing.T) {
	src := &memSource{files: map[string]string{}}
	report := New(src, t.TempDir()).Fetch(context.Background(), []Item{{Path: "../etc/passwd"}})

	if len(report.Failed) != 1 || !apperrors.Is(report.Failed[0].Err, apperrors.ErrCodeInvalidPath) {
		t.Errorf("expected INVALID_PATH failure, got %+v", report.Failed)
	}
	if len(src.opens) != 0 {
		t.Errorf("unsafe path should not be requested")
	}
}

func TestFetch_Parallel(t *testing.T) {
	files := map[string]string{}
	var items []Item
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		p := "pool/" + name + ".deb"
		files[p] = name
		items = append(items, Item{Path: p, SHA256: digest(name)})
	}
	dir := t.TempDir()

	report := New(&memSource{files: files}, dir, WithJobs(3)).Fetch(context.Background(), items)

	if !report.OK() {
		t.Fatalf("unexpected failures %+v", report.Failed)
	}
	want := []string{"a.deb", "b.deb", "c.deb", "d.deb", "e.deb", "f.deb"}
	if strings.Join(report.Downloaded, ",") != strings.Join(want, ",") {
		t.Errorf("downloaded = %v, want item order %v", report.Downloaded, want)
	}
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &memSource{files: map[string]string{"pool/a.deb": "a"}}
	report := New(src, t.TempDir()).Fetch(ctx, []Item{{Path: "pool/a.deb"}})

	if len(report.Failed) != 1 || !errors.Is(report.Failed[0].Err, context.Canceled) {
		t.Errorf("expected cancelled failure, got %+v", report.Failed)
	}
}

func TestFetch_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "debs")
	src := &memSource{files: map[string]string{"pool/a.deb": "a"}}

	report := New(src, dir).Fetch(context.Background(), []Item{{Path: "pool/a.deb"}})

	if !report.OK() {
		t.Fatalf("unexpected failures %+v", report.Failed)
	}
	if got := readFile(t, filepath.Join(dir, "a.deb")); got != "a" {
		t.Errorf("content = %q", got)
	}
}

type countingHooks struct {
	mu       sync.Mutex
	skipped  []string
	bytes    int64
	failures int
}

func (h *countingHooks) OnDownloadSkip(_ context.Context, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skipped = append(h.skipped, name)
}

func (h *countingHooks) OnDownloadComplete(_ context.Context, _ string, size int64, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.failures++
		return
	}
	h.bytes += size
}

func TestFetch_Hooks(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "c.deb"), []byte("c"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := &memSource{files: map[string]string{
		"pool/a.deb": "aaaa",
		"pool/b.deb": "bb",
	}}
	h := &countingHooks{}

	New(src, dir, WithJobs(2), WithHooks(observability.Hooks{Download: h})).Fetch(context.Background(), []Item{
		{Path: "pool/a.deb"},
		{Path: "pool/b.deb"},
		{Path: "pool/c.deb"},
		{Path: "pool/missing.deb"},
	})

	if h.bytes != 6 {
		t.Errorf("bytes = %d, want 6", h.bytes)
	}
	if h.failures != 1 {
		t.Errorf("failures = %d, want 1", h.failures)
	}
	if len(h.skipped) != 1 || h.skipped[0] != "c.deb" {
		t.Errorf("skipped = %v, want [c.deb]", h.skipped)
	}
}

func TestFetch_SameNameDownloadedOnce(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			dir := t.TempDir()
			src := &memSource{files: map[string]string{
				"pool/main/t/tool/tool_1_amd64.deb":    "main",
				"pool/contrib/t/tool/tool_1_amd64.deb": "contrib",
			}}

			report := New(src, dir, WithJobs(jobs)).Fetch(context.Background(), []Item{
				{Path: "pool/main/t/tool/tool_1_amd64.deb"},
				{Path: "pool/contrib/t/tool/tool_1_amd64.deb"},
			})

			if !report.OK() {
				t.Fatalf("unexpected failures: %+v", report.Failed)
			}
			if len(report.Downloaded) != 1 || len(report.Skipped) != 1 {
				t.Errorf("downloaded %v skipped %v, want one of each", report.Downloaded, report.Skipped)
			}
			if len(src.opens) != 1 {
				t.Errorf("expected one request, got %v", src.opens)
			}
		})
	}
}
