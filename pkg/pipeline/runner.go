package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
)

// Runner executes the pipeline against an index source and a downloader.
//
// A Runner holds no per-run state; the same Runner may execute several runs
// concurrently if its collaborators allow it.
type Runner struct {
	Source     IndexSource
	Downloader Downloader
	Decider    Decider
	Logger     *log.Logger
}

// NewRunner creates a runner.
// If decider is nil, every question is answered no.
// If logger is nil, output is discarded.
// downloader may be nil when every run is a dry run.
func NewRunner(src IndexSource, dl Downloader, decider Decider, logger *log.Logger) *Runner {
	if decider == nil {
		decider = Always(false)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Source:     src,
		Downloader: dl,
		Decider:    decider,
		Logger:     logger,
	}
}

// Validate checks that at least one package is requested.
//
// Names are not checked against Debian naming rules here: a name that
// cannot exist in the index is a lookup miss like any other and is reported
// in [Resolution.Missing].
func (o Options) Validate() error {
	if len(o.Packages) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "at least one package is required")
	}
	return nil
}

// Malformed returns the requested names that are not valid Debian package
// names, in request order.
func (o Options) Malformed() []string {
	var out []string
	for _, name := range o.Packages {
		if apperrors.ValidateDebianPackageName(name) != nil {
			out = append(out, name)
		}
	}
	return out
}

// Execute runs every stage for opts.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !opts.DryRun && r.Downloader == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "no downloader configured")
	}
	if bad := opts.Malformed(); len(bad) > 0 {
		r.Logger.Warn("not valid Debian package names", "names", strings.Join(bad, ", "))
	}

	idx, err := r.Source.FetchIndex(ctx, opts.Refresh)
	if err != nil {
		return nil, err
	}
	result := &Result{Records: idx.Len()}
	r.Logger.Debug("index loaded", "records", idx.Len())

	paths, missing := idx.Locate(opts.Packages)
	if len(missing) > 0 {
		r.Logger.Warn(fmt.Sprintf("found %d of %d packages", len(paths), len(paths)+len(missing)),
			"missing", strings.Join(missing, ", "))
	}
	if len(paths) == 0 {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "no matching packages found in the index")
	}

	deps := r.Decider.Confirm(ctx, QuestionDependencies)
	recommends := r.Decider.Confirm(ctx, QuestionRecommended)

	res := Plan(idx, opts.Packages, deps, recommends)
	result.Resolution = res
	r.Logger.Info("fetching packages", "packages", strings.Join(res.Packages, ", "))
	if res.DepItems > 0 {
		r.Logger.Info(fmt.Sprintf("found %d dependencies to download", res.DepItems))
	}
	if res.RecItems > 0 {
		r.Logger.Info(fmt.Sprintf("found %d recommended packages to download", res.RecItems))
	}
	if len(res.Unavailable) > 0 {
		r.Logger.Warn(fmt.Sprintf("%d related packages have no file in the index", len(res.Unavailable)),
			"packages", strings.Join(res.Unavailable, ", "))
	}

	if opts.DryRun {
		return result, nil
	}

	result.Report = r.Downloader.Fetch(ctx, res.Items)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
