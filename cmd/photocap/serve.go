package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface and HTTP API",
		Long: `Starts the photocap web interface. POST /photo takes a picture, GET
/status/stream reports progress and processing-complete events over SSE.`,
		Example: `  # Start server on default port 8080
  photocap serve

  # Start server on custom port
  photocap serve --port 8980`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port <= 0 || port > 65535 {
				return fmt.Errorf("port must be 1-65535, got %d", port)
			}

			broadcaster := web.NewStatusBroadcaster()
			a, err := newApp(root, broadcaster)
			if err != nil {
				return err
			}
			defer a.Close()
			debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
			defer debug.SetOutput(os.Stdout)

			var lister web.CaptureLister
			if a.index != nil {
				lister = a.index
			}
			srv, err := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, a, lister, a.formDefaults())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")

	return cmd
}
