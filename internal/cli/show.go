package cli

import (
	"encoding/json"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/debfetch/pkg/errors"
)

// showCommand creates the command that prints one index record.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <package>",
		Short: "Show the index record of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := apperrors.ValidateDebianPackageName(name); err != nil {
				return err
			}

			idx, err := c.loadIndex(cmd)
			if err != nil {
				return err
			}
			rec, ok := idx.Lookup(name)
			if !ok {
				return apperrors.New(apperrors.ErrCodePackageNotFound, "package %q not found in the index", name)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			out := newPrinter(cmd.OutOrStdout())
			out.newline()
			out.keyValue("Package", StyleTitle.Render(rec.Name))
			out.keyValue("Version", orDash(rec.Version))
			out.keyValue("Arch", orDash(rec.Architecture))
			out.keyValue("Filename", orDash(rec.Filename))
			if rec.Size > 0 {
				out.keyValue("Size", humanize.Bytes(uint64(rec.Size)))
			}
			out.keyValue("SHA256", orDash(rec.SHA256))
			out.keyValue("Depends", orDash(strings.Join(rec.Depends, ", ")))
			out.keyValue("Recommends", orDash(strings.Join(rec.Recommends, ", ")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
