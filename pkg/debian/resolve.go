package debian

import "slices"

// Set is an unordered collection of package names.
// The zero value is not usable; create sets with [NewSet].
type Set map[string]struct{}

// NewSet returns a Set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil Set is empty.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns a new Set holding the members of s and names.
// Neither s nor names are modified.
func (s Set) Union(names ...string) Set {
	out := make(Set, len(s)+len(names))
	for n := range s {
		out[n] = struct{}{}
	}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// Dependencies returns the transitive mandatory dependencies of targets.
//
// Resolution proceeds in levels. At each level the Depends of every record
// named in the level's targets are collected in record order, and names in
// the level's exclusion set are dropped. An empty level ends the walk;
// otherwise the collected names become the next targets and the next
// exclusion set is the union of the current targets and the current
// exclusion set. A name that was a target is therefore never expanded twice,
// so cycles terminate.
//
// Names reached along several paths are reported once, at their first
// occurrence. The excluded set is not modified and may be nil.
func (idx *Index) Dependencies(targets []string, excluded Set) []string {
	var (
		out  []string
		seen = make(Set)
	)
	for len(targets) > 0 {
		level := idx.collect(targets, excluded, func(r *Record) []string { return r.Depends })
		if len(level) == 0 {
			break
		}
		for _, name := range level {
			if !seen.Has(name) {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
		excluded = excluded.Union(targets...)
		targets = level
	}
	return out
}

// Recommended returns the Recommends of targets without following them any
// further and without exclusion. Each name appears once.
func (idx *Index) Recommended(targets []string) []string {
	level := idx.collect(targets, nil, func(r *Record) []string { return r.Recommends })
	return Dedupe(level)
}

// collect gathers field(r) for every record named in targets, in record
// order, skipping names in excluded. Duplicates within the level are kept.
func (idx *Index) collect(targets []string, excluded Set, field func(*Record) []string) []string {
	var positions []int
	for name := range NewSet(targets...) {
		positions = append(positions, idx.byName[name]...)
	}
	slices.Sort(positions)

	var out []string
	for _, p := range positions {
		for _, dep := range field(idx.records[p]) {
			if !excluded.Has(dep) {
				out = append(out, dep)
			}
		}
	}
	return out
}

// Dedupe returns names without repeats, keeping first occurrences in order.
func Dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(Set, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen.Has(n) {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
