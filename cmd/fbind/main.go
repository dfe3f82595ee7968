package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fbind/internal/config"
	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/compiler"
	"github.com/vango-dev/fbind/pkg/source"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┐ ┬┌┐┌┌┬┐
  ├┤ ├┴┐││││ ││
  └  └─┘┴┘└┘─┴┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "fbind",
		Short: "Declarative data binding for HTML templates",
		Long: `fbind compiles HTML templates carrying binding directives
against a reactive scope.

Directives:
  {{expr}}             text interpolation
  f-text, f-html, f-md content bindings
  f-model              two-way binding for form controls
  f-show, f-if         visibility and conditional rendering
  f-attr:x, f-style:x  attribute and style bindings
  :x, @event           property bindings and event handlers`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to fbind.json (default ./fbind.json)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		renderCmd(flags),
		checkCmd(flags),
		serveCmd(flags),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup loads configuration and builds the logger shared by a command.
func (f *globalFlags) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
		if _, err := config.ParseLevel(f.logLevel); err != nil {
			return nil, nil, err
		}
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	return cfg, logger, nil
}

// newLoader builds a source loader. S3 is available once a region is known.
func newLoader(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) *source.Loader {
	opts := []source.Option{
		source.WithLogger(logger),
		source.WithStdin(cmd.InOrStdin()),
	}
	if cfg.S3.Region != "" {
		opts = append(opts, source.WithS3(source.NewS3Client(cfg.S3)))
	}
	return source.New(opts...)
}

func compilerOptions(cfg *config.Config, logger *slog.Logger) []compiler.Option {
	d := cfg.Directives
	return []compiler.Option{
		compiler.WithLogger(logger),
		compiler.WithClassifier(compiler.Classifier{
			Prefix:      d.Prefix,
			EventMarker: d.EventMarker,
			BindMarker:  d.BindMarker,
		}),
		compiler.WithStripAllAttributes(d.StripAllAttributes),
	}
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
