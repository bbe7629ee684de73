package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debfetch/pkg/debian"
	"github.com/matzehuels/debfetch/pkg/pipeline"
)

type resolveFlags struct {
	deps       bool
	recommends bool
	asJSON     bool
}

// resolveCommand creates the command that lists the files a fetch would download.
func (c *CLI) resolveCommand() *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <package>...",
		Short: "List the files that would be downloaded",
		Example: `  debfetch resolve --deps vim
  debfetch resolve --deps --recommends --json curl`,
		Args: requirePackages,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Packages: args}
			if err := opts.Validate(); err != nil {
				return err
			}
			idx, err := c.loadIndex(cmd)
			if err != nil {
				return err
			}

			res := pipeline.Plan(idx, args, flags.deps, flags.recommends)
			if flags.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			writeResolution(cmd.OutOrStdout(), idx, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.deps, "deps", false, "include all required dependencies")
	cmd.Flags().BoolVar(&flags.recommends, "recommends", false, "include recommended packages")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the resolution as JSON")
	return cmd
}

// resolutionRows returns one table row per item: package, version, kind, file.
func resolutionRows(idx *debian.Index, res *pipeline.Resolution) [][]string {
	rows := make([][]string, 0, len(res.Items))
	for i, item := range res.Items {
		kind := "requested"
		switch {
		case i >= res.Seeds+res.DepItems:
			kind = "recommended"
		case i >= res.Seeds:
			kind = "dependency"
		}
		name, version := "?", ""
		if rec, ok := idx.ByFilename(item.Path); ok {
			name, version = rec.Name, rec.Version
		}
		rows = append(rows, []string{name, version, kind, item.Path})
	}
	return rows
}

func writeResolution(w io.Writer, idx *debian.Index, res *pipeline.Resolution) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Package", "Version", "Kind", "File").
		Rows(resolutionRows(idx, res)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case col == 2 || col == 3:
				return cell.Foreground(colorGray)
			default:
				return cell
			}
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d files\n", len(res.Items))
	if len(res.Missing) > 0 {
		fmt.Fprintf(w, "not in index: %s\n", strings.Join(res.Missing, ", "))
	}
	if len(res.Unavailable) > 0 {
		fmt.Fprintf(w, "no file for: %s\n", strings.Join(res.Unavailable, ", "))
	}
}
