package pipeline

import (
	"github.com/matzehuels/debfetch/pkg/debian"
	"github.com/matzehuels/debfetch/pkg/fetch"
)

// Resolution lists the files selected for a set of requested packages.
type Resolution struct {
	Packages     []string     `json:"packages"`               // Requested names, de-duplicated
	Missing      []string     `json:"missing,omitempty"`      // Requested names without a file
	Dependencies []string     `json:"dependencies,omitempty"` // Transitive Depends, if selected
	Recommended  []string     `json:"recommended,omitempty"`  // First-level Recommends, if selected
	Unavailable  []string     `json:"unavailable,omitempty"`  // Dependencies or recommendations without a file
	Items        []fetch.Item `json:"items"`                  // Files to download, de-duplicated
	Seeds        int          `json:"seeds"`                  // Items contributed by requested names
	DepItems     int          `json:"dependency_items"`       // Items contributed by dependencies
	RecItems     int          `json:"recommended_items"`      // Items contributed by recommendations
}

// Plan resolves names against idx.
//
// The requested packages come first, followed by their dependencies when
// deps is set and their recommendations when recommends is set. A pool path
// reached more than once is listed at its first position only. Plan performs
// no I/O.
func Plan(idx *debian.Index, names []string, deps, recommends bool) *Resolution {
	res := &Resolution{Packages: debian.Dedupe(names)}
	seen := make(debian.Set)

	add := func(paths []string) int {
		n := 0
		for _, p := range paths {
			if seen.Has(p) {
				continue
			}
			seen[p] = struct{}{}
			item := fetch.Item{Path: p}
			if rec, ok := idx.ByFilename(p); ok {
				item.SHA256 = rec.SHA256
			}
			res.Items = append(res.Items, item)
			n++
		}
		return n
	}

	paths, missing := idx.Locate(res.Packages)
	res.Missing = missing
	res.Seeds = add(paths)

	if deps {
		res.Dependencies = idx.Dependencies(res.Packages, nil)
		paths, missing := idx.Locate(res.Dependencies)
		res.Unavailable = append(res.Unavailable, missing...)
		res.DepItems = add(paths)
	}
	if recommends {
		res.Recommended = idx.Recommended(res.Packages)
		paths, missing := idx.Locate(res.Recommended)
		res.Unavailable = append(res.Unavailable, missing...)
		res.RecItems = add(paths)
	}
	res.Unavailable = debian.Dedupe(res.Unavailable)
	return res
}
