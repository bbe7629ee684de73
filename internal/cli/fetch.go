package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/fetch"
	"github.com/matzehuels/debfetch/pkg/pipeline"
)

type fetchFlags struct {
	deps       bool
	recommends bool
	yes        bool
	output     string
	jobs       int
	dryRun     bool
}

// fetchCommand creates the download command used as the root command.
func (c *CLI) fetchCommand() *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "debfetch <package>...",
		Short: "Download Debian packages and their dependencies",
		Long: `debfetch downloads .deb files for the named packages from a Debian mirror,
optionally together with their transitive dependencies (Depends) and their
recommended packages (Recommends, one level).

Unless --deps, --recommends or --yes is given, you are asked whether to
include dependencies and recommendations. Files already present in the
output directory are not downloaded again.

A package named like a subcommand (show, resolve, graph, serve, cache,
completion, help) is fetched with "debfetch fetch <name>" or after "--".`,
		Example: `  debfetch vim
  debfetch --deps -o ./debs curl wget
  debfetch -y --arch arm64 --suite trixie htop
  debfetch -- graph`,
		Args: requirePackages,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.deps, "deps", false, "include all required dependencies without asking")
	cmd.Flags().BoolVar(&flags.recommends, "recommends", false, "include recommended packages without asking")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "answer yes to every question")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (default: current directory)")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "parallel downloads (default 1)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "resolve and list files without downloading")

	return cmd
}

// requirePackages rejects a command line without package names.
func requirePackages(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"please specify at least one package to download\nUsage: %s", cmd.UseLine())
	}
	return nil
}

func (c *CLI) runFetch(cmd *cobra.Command, args []string, flags fetchFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	if flags.output != "" {
		cfg.OutputDir = flags.output
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = flags.jobs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := pipeline.Options{Packages: args, DryRun: flags.dryRun, Refresh: c.flags.refresh}
	if err := opts.Validate(); err != nil {
		return err
	}

	dir, err := cfg.ResolveOutputDir()
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	client, cleanup, err := c.newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	stats := &transferStats{}
	downloader := fetch.New(client, dir,
		fetch.WithJobs(cfg.Jobs),
		fetch.WithLogger(logger),
		fetch.WithHooks(stats.hooks()))
	decider := c.decider(flags)
	runner := pipeline.NewRunner(indexSource{client: client, logger: logger}, downloader, decider, logger)

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout())
	if flags.dryRun {
		printDryRun(out, result.Resolution)
		return nil
	}
	printReport(out, result.Report, stats)
	return nil
}

// decider pre-answers the questions selected by flags and prompts for the rest.
func (c *CLI) decider(flags fetchFlags) pipeline.Decider {
	if flags.yes {
		return pipeline.Always(true)
	}
	preset := map[string]bool{
		pipeline.QuestionDependencies: flags.deps,
		pipeline.QuestionRecommended:  flags.recommends,
	}
	prompt := c.prompter()
	return pipeline.DeciderFunc(func(ctx context.Context, question string) bool {
		if preset[question] {
			return true
		}
		return prompt.Confirm(ctx, question)
	})
}

func printDryRun(out printer, res *pipeline.Resolution) {
	out.info("Would download %d files", len(res.Items))
	for _, item := range res.Items {
		out.file(item.Path)
	}
	if len(res.Missing) > 0 {
		out.warning("Not in index: %s", strings.Join(res.Missing, ", "))
	}
}

func printReport(out printer, r *fetch.Report, stats *transferStats) {
	out.newline()
	if len(r.Downloaded) > 0 {
		out.success("Downloaded %d files (%s)", len(r.Downloaded), humanize.Bytes(uint64(stats.bytes.Load())))
	}
	if len(r.Skipped) > 0 {
		out.info("Skipped %d files already present", len(r.Skipped))
	}
	if len(r.Failed) > 0 {
		out.warning("Failed to download %d files", len(r.Failed))
		for _, f := range r.Failed {
			out.detail("%s: %s", f.Name, apperrors.UserMessage(f.Err))
		}
	}
	out.keyValue("Saved to", r.Dir)
}
