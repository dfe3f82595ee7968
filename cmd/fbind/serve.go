package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fbind/pkg/preview"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port      int
		host      string
		scopeLoc  string
		selector  string
		noWatch   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve <template>",
		Short: "Start an interactive preview server",
		Long: `Start an interactive preview of a template.

The page is compiled on the server; browser events and scope edits are
sent over a websocket and every change is pushed back as fresh markup.
Local templates are reloaded when the file changes.

Endpoints:
  /         the live page
  /ws       the event and render websocket
  /scope    the current scope as JSON
  /metrics  Prometheus metrics

Examples:
  fbind serve page.html --scope data.yaml
  fbind serve page.html --el "#app" --port=8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Serve.Port = port
			}
			if host != "" {
				cfg.Serve.Host = host
			}
			if noWatch {
				cfg.Serve.Watch = false
			}
			if noMetrics {
				cfg.Serve.Metrics = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv := preview.New(preview.Config{
				Template: args[0],
				Scope:    scopeLoc,
				Selector: selector,
				Watch:    cfg.Serve.Watch,
				Metrics:  cfg.Serve.Metrics,
			},
				preview.WithLoader(newLoader(cmd, cfg, logger)),
				preview.WithLogger(logger),
				preview.WithCompilerOptions(compilerOptions(cfg, logger)...),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Load(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, banner)
			fmt.Fprintln(out, "  serve")
			fmt.Fprintln(out)
			info(out, "Template: %s", args[0])
			info(out, "Local:    http://%s", cfg.ServeAddress())
			fmt.Fprintln(out)

			return serve(ctx, srv, cfg.ServeAddress())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from fbind.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from fbind.json)")
	cmd.Flags().StringVar(&scopeLoc, "scope", "", "Scope data location")
	cmd.Flags().StringVar(&selector, "el", "body", "Container to mount: #id, .class or tag")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the template on change")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Do not expose /metrics")

	return cmd
}

// serve is replaced in tests.
var serve = func(ctx context.Context, srv *preview.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}
