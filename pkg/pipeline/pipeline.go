// Package pipeline runs the debfetch flow shared by the CLI and the HTTP API.
//
// # Stages
//
//  1. Validate: reject an empty or malformed package list before any network
//     access.
//  2. Index: fetch and parse the archive index through an [IndexSource].
//  3. Seeds: locate the requested packages. If none of them has a file the
//     run fails with PACKAGE_NOT_FOUND.
//  4. Decide: ask the [Decider] whether to include the transitive Depends and
//     the first-level Recommends.
//  5. Resolve: build the de-duplicated download list with [Plan].
//  6. Download: hand the list to a [Downloader] unless DryRun is set.
//
// # Usage
//
//	runner := pipeline.NewRunner(client, downloader, pipeline.Always(true), logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Packages: []string{"vim", "curl"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Dir)
//
// [Plan] is pure and can be used on its own with an already loaded index:
//
//	res := pipeline.Plan(idx, []string{"vim"}, true, false)
//	for _, item := range res.Items {
//	    fmt.Println(item.Path)
//	}
package pipeline

import (
	"context"

	"github.com/matzehuels/debfetch/pkg/debian"
	"github.com/matzehuels/debfetch/pkg/fetch"
)

// Questions asked to the [Decider].
const (
	QuestionDependencies = "Download all required dependencies?"
	QuestionRecommended  = "Download recommended packages?"
)

// IndexSource provides the package index. [archive.Client] implements it.
type IndexSource interface {
	FetchIndex(ctx context.Context, refresh bool) (*debian.Index, error)
}

// Downloader retrieves files. [fetch.Downloader] implements it.
type Downloader interface {
	Fetch(ctx context.Context, items []fetch.Item) *fetch.Report
}

// Decider answers the yes/no questions of a run.
type Decider interface {
	Confirm(ctx context.Context, question string) bool
}

// Always is a Decider that gives the same answer to every question.
type Always bool

// Confirm implements [Decider].
func (a Always) Confirm(context.Context, string) bool { return bool(a) }

// DeciderFunc adapts a function to [Decider].
type DeciderFunc func(ctx context.Context, question string) bool

// Confirm implements [Decider].
func (f DeciderFunc) Confirm(ctx context.Context, question string) bool { return f(ctx, question) }

// Options configures a single run.
type Options struct {
	Packages []string // Requested package names, at least one
	DryRun   bool     // Resolve only, do not download
	Refresh  bool     // Bypass the index cache
}

// Result is the outcome of a successful run.
type Result struct {
	Records    int           // Records in the fetched index
	Resolution *Resolution   // What was selected for download
	Report     *fetch.Report // Nil for dry runs
}
