package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/debfetch/internal/server"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the command that serves the index over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the package index over a read-only HTTP API",
		Long: `Load the package index once and answer queries over HTTP:

  GET /healthz
  GET /packages/{name}
  GET /resolve?pkg=vim&deps=true&recommends=true
  GET /graph?pkg=vim&deps=true&format=svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := c.loadIndex(cmd)
			if err != nil {
				return err
			}

			srv := server.New(addr, idx, loggerFromContext(ctx))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
