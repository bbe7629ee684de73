// Package archive is the HTTP client for a Debian mirror.
//
// A [Client] knows one mirror root and one index location (suite, component
// and architecture, taken from [config.Config]). It does two things:
//
//   - [Client.FetchIndex] downloads Packages.gz, decompresses it and parses
//     it into a [debian.Index]. The download is bounded by the configured
//     index timeout and optionally served from a [cache.Cache].
//   - [Client.Open] streams a pool file such as
//     "pool/main/v/vim/vim_9.0.1378-2_amd64.deb" for the downloader.
//
// Transport failures are classified with the [ErrNotFound] and [ErrNetwork]
// sentinels. Connection errors and 5xx responses are wrapped in
// [httputil.RetryableError] so that a configured retry count applies to them.
package archive
