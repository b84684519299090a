// Package cli implements quotectl, a command line front end that runs the
// intent dispatcher directly against the configured storage.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/bootstrap"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/config"
)

// Session is the session id every CLI invocation runs under.
const Session = "cli"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Profile   string
	ConfigDir string
	Storage   string
	DB        string
	Source    string
	Format    string
	Verbose   bool
}

// NewRootCommand creates the quotectl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quotectl",
		Short: "Manage the quote store from the command line",
		Long: `quotectl shows, adds, imports, exports and syncs quotes using the same
storage and configuration as the quote-sync-service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Profile, "profile", "local", "configuration profile")
	flags.StringVar(&opts.ConfigDir, "config-dir", "configs", "directory holding base.yaml and profile files")
	flags.StringVar(&opts.Storage, "storage", "", "storage driver override (sqlite|memory)")
	flags.StringVar(&opts.DB, "db", "", "sqlite database path override")
	flags.StringVar(&opts.Source, "source", "", "quote source URL override")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level to stderr")

	cmd.AddCommand(
		newShowCommand(opts),
		newListCommand(opts),
		newAddCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newSyncCommand(opts),
		newResetCommand(opts),
		newCategoriesCommand(opts),
	)

	return cmd
}

// loadConfig reads the profile with the flag overrides on top. The CLI
// always logs text at warn (debug with -v) to stderr and never to a file.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	overrides := map[string]any{
		"log.level":        "warn",
		"log.format":       "text",
		"log.file.enabled": false,
	}
	if o.Verbose {
		overrides["log.level"] = "debug"
	}
	if o.Storage != "" {
		overrides["storage.driver"] = o.Storage
	}
	if o.DB != "" {
		overrides["storage.path"] = o.DB
	}
	if o.Source != "" {
		u, err := url.Parse(o.Source)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid source URL %q", o.Source)
		}

		overrides["services.quote_source.base_url"] = u.Scheme + "://" + u.Host
		overrides["services.quote_source.path"] = u.RequestURI()
	}

	cfg, err := config.LoadWithOverrides(o.ConfigDir, o.Profile, overrides)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// withDispatcher builds the service graph, hands its dispatcher to fn and
// closes the graph afterwards.
func (o *RootOptions) withDispatcher(cmd *cobra.Command, fn func(ctx context.Context, d *app.Dispatcher) error) (err error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := bootstrap.NewLogger(cfg, cmd.ErrOrStderr())

	graph, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, graph.Close())
	}()

	return fn(ctx, graph.Dispatcher)
}

// dispatch runs a single intent under the CLI session.
func (o *RootOptions) dispatch(cmd *cobra.Command, intent app.Intent, req app.Request) (result any, err error) {
	err = o.withDispatcher(cmd, func(ctx context.Context, d *app.Dispatcher) error {
		req.Session = Session
		result, err = d.Dispatch(ctx, intent, req)

		return err
	})

	return result, err
}
