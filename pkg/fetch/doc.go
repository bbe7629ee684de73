// Package fetch downloads package files from a mirror into a local directory.
//
// A [Downloader] takes a list of [Item] values (pool path plus the optional
// SHA256 published by the index) and retrieves each one to
// <dir>/<base name of path>. Downloading is idempotent: a file that already
// exists under that name is skipped without any network request.
//
// Failures never abort the run. A transport error, a filesystem error or a
// checksum mismatch for one item is logged, recorded in the [Report] and the
// remaining items are still processed. Package downloads are never retried.
//
// Data is streamed to a hidden temporary file in the output directory and
// renamed into place once complete and verified, so an interrupted download
// never leaves a truncated .deb that a later run would mistake for a
// finished one.
package fetch
