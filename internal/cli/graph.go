package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/pipeline"
	"github.com/matzehuels/debfetch/pkg/render"
)

type graphFlags struct {
	deps       bool
	recommends bool
	format     string
	output     string
	detailed   bool
}

// graphCommand creates the command that draws the dependency graph.
func (c *CLI) graphCommand() *cobra.Command {
	var flags graphFlags

	cmd := &cobra.Command{
		Use:   "graph <package>...",
		Short: "Draw the dependency graph as DOT or SVG",
		Example: `  debfetch graph vim | dot -Tpng > vim.png
  debfetch graph --recommends -f svg -o vim.svg vim`,
		Args: requirePackages,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.format != "dot" && flags.format != "svg" {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "unsupported format %q (use dot or svg)", flags.format)
			}
			opts := pipeline.Options{Packages: args}
			if err := opts.Validate(); err != nil {
				return err
			}
			idx, err := c.loadIndex(cmd)
			if err != nil {
				return err
			}

			res := pipeline.Plan(idx, args, flags.deps, flags.recommends)
			g := render.Build(idx, res)
			data := []byte(render.ToDOT(g, render.Options{Detailed: flags.detailed}))
			if flags.format == "svg" {
				if data, err = render.RenderSVG(cmd.Context(), string(data)); err != nil {
					return err
				}
			}

			if flags.output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(flags.output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", flags.output, err)
			}
			out := newPrinter(cmd.OutOrStdout())
			out.success("Graph with %d packages", len(g.Nodes))
			out.file(flags.output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.deps, "deps", true, "include required dependencies")
	cmd.Flags().BoolVar(&flags.recommends, "recommends", false, "include recommended packages")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "show versions in node labels")
	return cmd
}
