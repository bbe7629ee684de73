// Package debian parses Debian archive package indexes and resolves which
// package files must be retrieved for a set of requested packages.
//
// # Overview
//
// A Debian mirror publishes one index per suite, component and architecture
// (for example dists/bookworm/main/binary-amd64/Packages.gz). The
// decompressed index is a sequence of paragraph-style records made of
// "Field: value" lines. This package reads the handful of fields needed to
// resolve downloads:
//
//   - Package: starts a new record
//   - Filename: the pool path of the .deb, relative to the mirror root
//   - Depends: mandatory dependencies, followed transitively
//   - Recommends: optional companions, followed one level only
//   - Version, Architecture, Size, SHA256: informational and verification data
//
// A new Package line always starts a new current record, so blank lines
// between paragraphs are not relied upon. Field lines that appear before the
// first Package line are discarded. Malformed or missing fields never raise an
// error; the corresponding attribute is simply left empty.
//
// # Dependency lists
//
// Dependency fields are comma separated. Each entry may list alternatives
// separated by " | " and carry a parenthesized version qualifier. Only the
// first alternative is kept and version qualifiers are dropped:
//
//	Depends: libfoo (>= 1.2) | libbar, libbaz (= 2.0)
//	// -> [libfoo libbaz]
//
// Version ranges are discarded, not evaluated.
//
// # Resolution
//
// [Index.Dependencies] computes the transitive closure of Depends level by
// level. Each level excludes every name that was a target at an earlier
// level, which guarantees termination on cyclic graphs. The returned
// sequence holds each name once, in the order it was first reached.
//
// [Index.Recommended] returns the Recommends of the requested packages
// without following them further.
//
// [Index.Locate] maps names to their Filename, reporting names that have no
// record or no file.
//
// # Concurrency
//
// An [Index] is immutable after [Parse] returns and is safe for concurrent
// use by multiple goroutines.
package debian
