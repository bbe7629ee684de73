package debian

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Field tags recognized by the parser. Matching is by line prefix, so
// "Pre-Depends:" is not mistaken for "Depends:".
const (
	fieldPackage      = "Package:"
	fieldFilename     = "Filename:"
	fieldDepends      = "Depends:"
	fieldRecommends   = "Recommends:"
	fieldVersion      = "Version:"
	fieldArchitecture = "Architecture:"
	fieldSize         = "Size:"
	fieldSHA256       = "SHA256:"
)

// maxLineSize bounds a single index line. Long Description or Provides
// fields exceed bufio's 64KiB default on some archives.
const maxLineSize = 4 << 20

// Record is one package entry of an index.
//
// Depends and Recommends hold package names only: alternatives are collapsed
// to the first choice and version qualifiers are stripped. A Record is never
// modified after parsing.
type Record struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Architecture string   `json:"architecture,omitempty"`
	Filename     string   `json:"filename,omitempty"`
	Size         int64    `json:"size,omitempty"`
	SHA256       string   `json:"sha256,omitempty"`
	Depends      []string `json:"depends,omitempty"`
	Recommends   []string `json:"recommends,omitempty"`
}

// Index is a point-in-time snapshot of a package index.
//
// Records keep the order in which they appear in the source text; lookups by
// name or filename go through maps built once by [Parse].
type Index struct {
	records    []*Record
	byName     map[string][]int
	byFilename map[string]*Record
}

// Parse builds an Index from decompressed index text.
func Parse(text string) *Index {
	idx, _ := ParseReader(strings.NewReader(text))
	return idx
}

// ParseReader builds an Index by reading r line by line.
//
// Only errors from r are returned; the index format itself never produces an
// error. On a read error the records parsed so far are returned alongside it.
func ParseReader(r io.Reader) (*Index, error) {
	b := newBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		b.line(sc.Text())
	}
	return b.index(), sc.Err()
}

// builder tracks the record that field lines currently apply to.
type builder struct {
	records []*Record
	current *Record
}

func newBuilder() *builder { return &builder{} }

func (b *builder) line(line string) {
	if value, ok := cutField(line, fieldPackage); ok {
		b.current = &Record{Name: value}
		b.records = append(b.records, b.current)
		return
	}
	rec := b.current
	if rec == nil {
		return
	}
	if value, ok := cutField(line, fieldFilename); ok {
		rec.Filename = value
	} else if value, ok := cutField(line, fieldDepends); ok {
		rec.Depends = ParseRelations(value)
	} else if value, ok := cutField(line, fieldRecommends); ok {
		rec.Recommends = ParseRelations(value)
	} else if value, ok := cutField(line, fieldVersion); ok {
		rec.Version = value
	} else if value, ok := cutField(line, fieldArchitecture); ok {
		rec.Architecture = value
	} else if value, ok := cutField(line, fieldSHA256); ok {
		rec.SHA256 = value
	} else if value, ok := cutField(line, fieldSize); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			rec.Size = n
		}
	}
}

func (b *builder) index() *Index {
	idx := &Index{
		records:    b.records,
		byName:     make(map[string][]int, len(b.records)),
		byFilename: make(map[string]*Record, len(b.records)),
	}
	for i, rec := range b.records {
		idx.byName[rec.Name] = append(idx.byName[rec.Name], i)
		if rec.Filename != "" {
			if _, seen := idx.byFilename[rec.Filename]; !seen {
				idx.byFilename[rec.Filename] = rec
			}
		}
	}
	return idx
}

func cutField(line, tag string) (string, bool) {
	rest, ok := strings.CutPrefix(line, tag)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// ParseRelations converts a dependency field value into package names.
//
// The value is split on ", "; for each entry only the first " | "
// alternative is kept and anything from " (" onwards is dropped. Empty
// entries are skipped.
func ParseRelations(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	entries := strings.Split(value, ", ")
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		first := strings.Split(entry, " | ")[0]
		name := strings.TrimSpace(strings.Split(first, " (")[0])
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of records in the index.
func (idx *Index) Len() int { return len(idx.records) }

// Records returns the records in source order.
// The returned slice must not be modified.
func (idx *Index) Records() []*Record { return idx.records }

// Lookup returns the first record named name.
func (idx *Index) Lookup(name string) (*Record, bool) {
	pos, ok := idx.byName[name]
	if !ok {
		return nil, false
	}
	return idx.records[pos[0]], true
}

// Has reports whether the index contains a record named name.
func (idx *Index) Has(name string) bool {
	_, ok := idx.byName[name]
	return ok
}

// ByFilename returns the record that publishes the given pool path.
func (idx *Index) ByFilename(filename string) (*Record, bool) {
	rec, ok := idx.byFilename[filename]
	return rec, ok
}
