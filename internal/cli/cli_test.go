package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/pipeline"
)

const testIndex = `Package: vim
Version: 2:9.0
Depends: vim-common (= 2:9.0), libc6 (>= 2.34) | libc6-compat
Recommends: xxd
Filename: pool/main/v/vim/vim_9.0_amd64.deb

Package: vim-common
Depends: libc6
Filename: pool/main/v/vim/vim-common_9.0_all.deb

Package: libc6
Filename: pool/main/g/glibc/libc6_2.36_amd64.deb

Package: xxd
Filename: pool/main/v/vim/xxd_9.0_amd64.deb
`

// mirror is a fake Debian mirror counting pool downloads.
type mirror struct {
	*httptest.Server
	indexHits atomic.Int32
	fileHits  atomic.Int32
}

func newMirror(t *testing.T) *mirror {
	t.Helper()
	return newMirrorWith(t, testIndex)
}

func newMirrorWith(t *testing.T, index string) *mirror {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(index))
	zw.Close()
	payload := buf.Bytes()

	m := &mirror{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/dists/bookworm/main/binary-amd64/Packages.gz":
			m.indexHits.Add(1)
			w.Write(payload)
		case strings.HasPrefix(r.URL.Path, "/pool/"):
			m.fileHits.Add(1)
			io.WriteString(w, "deb:"+filepath.Base(r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(m.Close)
	return m
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := New(io.Discard, LogInfo)
	c.In = strings.NewReader(stdin)
	root := c.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetch_NoArgs(t *testing.T) {
	m := newMirror(t)
	_, err := runCLI(t, "", "--mirror", m.URL+"/")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if m.indexHits.Load() != 0 {
		t.Errorf("index fetched %d times", m.indexHits.Load())
	}
}

func TestFetch_PromptAnswers(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  []string
	}{
		{
			name:  "declined",
			stdin: "n\nn\n",
			want:  []string{"vim_9.0_amd64.deb"},
		},
		{
			name:  "deps by prompt",
			stdin: "yes\nno\n",
			want:  []string{"libc6_2.36_amd64.deb", "vim-common_9.0_all.deb", "vim_9.0_amd64.deb"},
		},
		{
			name:  "deps by flag, recommends by prompt",
			stdin: " Y \n",
			args:  []string{"--deps"},
			want:  []string{"libc6_2.36_amd64.deb", "vim-common_9.0_all.deb", "vim_9.0_amd64.deb", "xxd_9.0_amd64.deb"},
		},
		{
			name:  "closed stdin",
			stdin: "",
			want:  []string{"vim_9.0_amd64.deb"},
		},
		{
			name: "yes flag",
			args: []string{"-y", "-j", "4"},
			want: []string{"libc6_2.36_amd64.deb", "vim-common_9.0_all.deb", "vim_9.0_amd64.deb", "xxd_9.0_amd64.deb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMirror(t)
			dir := t.TempDir()
			args := append([]string{"--mirror", m.URL + "/", "-o", dir}, tt.args...)
			args = append(args, "vim")

			if _, err := runCLI(t, tt.stdin, args...); err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if got := listDir(t, dir); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("downloaded %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetch_SkipsExisting(t *testing.T) {
	m := newMirror(t)
	dir := t.TempDir()
	existing := filepath.Join(dir, "vim_9.0_amd64.deb")
	os.WriteFile(existing, []byte("already here"), 0o644)

	if _, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", dir, "vim"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if m.fileHits.Load() != 0 {
		t.Errorf("expected no pool requests, got %d", m.fileHits.Load())
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "already here" {
		t.Errorf("existing file overwritten")
	}
}

func TestFetch_NoMatch(t *testing.T) {
	m := newMirror(t)
	_, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", t.TempDir(), "emacs")
	if !apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
		t.Errorf("expected PACKAGE_NOT_FOUND, got %v", err)
	}
}

func TestFetch_DryRun(t *testing.T) {
	m := newMirror(t)
	dir := t.TempDir()
	if _, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", dir, "--dry-run", "--deps", "vim"); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if m.fileHits.Load() != 0 || len(listDir(t, dir)) != 0 {
		t.Errorf("dry run downloaded files")
	}
}

func TestFetch_DryRunListsFiles(t *testing.T) {
	m := newMirror(t)
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", t.TempDir(), "--dry-run", "--deps", "vim", "emacs")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	for _, want := range []string{
		"Would download 3 files",
		"pool/main/v/vim/vim_9.0_amd64.deb",
		"pool/main/g/glibc/libc6_2.36_amd64.deb",
		"Not in index: emacs",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFetch_Summary(t *testing.T) {
	m := newMirror(t)
	dir := t.TempDir()
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", dir, "vim")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	// The fake mirror serves "deb:<basename>" for every pool file.
	if want := "Downloaded 1 files (21 B)"; !strings.Contains(out, want) {
		t.Errorf("output missing %q:\n%s", want, out)
	}
	if !strings.Contains(out, dir) {
		t.Errorf("output missing output directory %q:\n%s", dir, out)
	}
}

func TestFetch_PackageNamedLikeSubcommand(t *testing.T) {
	const index = `Package: graph
Filename: pool/main/g/graph/graph_1_amd64.deb
`
	tests := []struct {
		name string
		args []string
	}{
		{"fetch subcommand", []string{"fetch", "-o", "DIR", "graph"}},
		{"after double dash", []string{"-o", "DIR", "--", "graph"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMirrorWith(t, index)
			dir := t.TempDir()
			args := []string{"--mirror", m.URL + "/"}
			for _, a := range tt.args {
				args = append(args, strings.ReplaceAll(a, "DIR", dir))
			}
			if _, err := runCLI(t, "", args...); err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if got := listDir(t, dir); len(got) != 1 || got[0] != "graph_1_amd64.deb" {
				t.Errorf("downloaded %v, want [graph_1_amd64.deb]", got)
			}
		})
	}
}

func TestFetch_MalformedNameReportedMissing(t *testing.T) {
	m := newMirror(t)
	dir := t.TempDir()
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "-o", dir, "--dry-run", "vim", "Vim")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(out, "Not in index: Vim") {
		t.Errorf("output missing the malformed name:\n%s", out)
	}
}

func TestFetch_IndexUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := runCLI(t, "", "--mirror", server.URL+"/", "-o", t.TempDir(), "vim")
	if !apperrors.Is(err, apperrors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK_ERROR, got %v", err)
	}
}

func TestFetch_InvalidMirror(t *testing.T) {
	_, err := runCLI(t, "", "--mirror", "ftp://ftp.debian.org/debian/", "vim")
	if !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestFetch_CachedIndex(t *testing.T) {
	m := newMirror(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cacheHome := t.TempDir()

	for range 2 {
		c := New(io.Discard, LogInfo)
		c.In = strings.NewReader("")
		root := c.RootCommand()
		root.SetOut(io.Discard)
		t.Setenv("XDG_CACHE_HOME", cacheHome)
		root.SetArgs([]string{"--mirror", m.URL + "/", "--cache-ttl", "1h", "resolve", "vim"})
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}
	if m.indexHits.Load() != 1 {
		t.Errorf("expected one index download with caching, got %d", m.indexHits.Load())
	}
}

func TestResolveJSON(t *testing.T) {
	m := newMirror(t)
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "resolve", "--deps", "--recommends", "--json", "vim", "emacs")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	var res pipeline.Resolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(res.Items) != 4 {
		t.Errorf("expected 4 items, got %+v", res.Items)
	}
	if strings.Join(res.Dependencies, ",") != "vim-common,libc6" {
		t.Errorf("dependencies = %v", res.Dependencies)
	}
	if strings.Join(res.Missing, ",") != "emacs" {
		t.Errorf("missing = %v", res.Missing)
	}
	if m.fileHits.Load() != 0 {
		t.Errorf("resolve must not download")
	}
}

func TestResolveTable(t *testing.T) {
	m := newMirror(t)
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "resolve", "--deps", "vim")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for _, want := range []string{"Package", "vim-common", "dependency", "pool/main/g/glibc/libc6_2.36_amd64.deb", "3 files"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestShowJSON(t *testing.T) {
	m := newMirror(t)
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "show", "--json", "vim")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, `"name": "vim"`) || !strings.Contains(out, `"xxd"`) {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := runCLI(t, "", "--mirror", m.URL+"/", "show", "emacs"); !apperrors.Is(err, apperrors.ErrCodePackageNotFound) {
		t.Errorf("expected PACKAGE_NOT_FOUND, got %v", err)
	}
}

func TestGraphDOT(t *testing.T) {
	m := newMirror(t)
	out, err := runCLI(t, "", "--mirror", m.URL+"/", "graph", "vim")
	if err != nil {
		t.Fatalf("graph failed: %v", err)
	}
	if !strings.HasPrefix(out, "digraph packages {") || !strings.Contains(out, `"vim" -> "vim-common";`) {
		t.Errorf("unexpected DOT:\n%s", out)
	}

	if _, err := runCLI(t, "", "--mirror", m.URL+"/", "graph", "-f", "png", "vim"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for png, got %v", err)
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"cache", "path"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != filepath.Join(cacheHome, "debfetch") {
		t.Errorf("cache path = %q", got)
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("suite = \"trixie\"\narchitecture = \"arm64\"\njobs = 3\n"), 0o644)

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", path, "--arch", "riscv64", "cache", "path"})
	root.SetOut(io.Discard)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}

	cmd, _, err := root.Find([]string{"cache", "path"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Suite != "trixie" || cfg.Architecture != "riscv64" || cfg.Jobs != 3 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLinePrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"  YES  \n", true},
		{"Y", true},
		{"n\n", false},
		{"\n", false},
		{"yep\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := newLinePrompt(strings.NewReader(tt.input), &out, log.New(io.Discard))
		if got := p.Confirm(context.Background(), "Download?"); got != tt.want {
			t.Errorf("input %q: Confirm() = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.HasPrefix(out.String(), "Download? [y/n]: ") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestLinePromptSequence(t *testing.T) {
	p := newLinePrompt(strings.NewReader("y\nn\n"), io.Discard, log.New(io.Discard))
	ctx := context.Background()
	if !p.Confirm(ctx, pipeline.QuestionDependencies) {
		t.Error("first answer should be yes")
	}
	if p.Confirm(ctx, pipeline.QuestionRecommended) {
		t.Error("second answer should be no")
	}
	if p.Confirm(ctx, "third") {
		t.Error("exhausted input should be no")
	}
}

func TestConfirmModel(t *testing.T) {
	runes := func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

	tests := []struct {
		name string
		keys []tea.KeyMsg
		want bool
	}{
		{"y", []tea.KeyMsg{runes("y")}, true},
		{"n", []tea.KeyMsg{runes("n")}, false},
		{"enter defaults to no", []tea.KeyMsg{{Type: tea.KeyEnter}}, false},
		{"tab then enter", []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyEnter}}, true},
		{"escape", []tea.KeyMsg{{Type: tea.KeyTab}, {Type: tea.KeyEsc}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var model tea.Model = newConfirmModel("Download?")
			var cmd tea.Cmd
			for _, k := range tt.keys {
				model, cmd = model.Update(k)
			}
			m := model.(confirmModel)
			if !m.Done || cmd == nil {
				t.Fatalf("model did not finish: %+v", m)
			}
			if m.Answer != tt.want {
				t.Errorf("Answer = %v, want %v", m.Answer, tt.want)
			}
			if !strings.Contains(m.View(), "Download?") {
				t.Errorf("View() = %q", m.View())
			}
		})
	}
}
