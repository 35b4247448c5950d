package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contact-manager/internal/apiclient"
	"gitlab.com/dirk.krummacker/contact-manager/internal/config"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"go.uber.org/zap"
)

// options are the global flags and the objects built from them before a command runs.
type options struct {
	configPath string
	apiURL     string
	timeout    time.Duration
	logLevel   string

	logger *zap.Logger
	client *apiclient.Client
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "contactsctl",
		Short: "Manage contacts on the contacts REST API",
		Long: `contactsctl reads and changes the contacts of a running contacts service.

The API location is taken from --api-url, the API_URL environment variable or the
configuration file, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "base URL of the contacts REST API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "timeout of a single request")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newTagsCmd(opts),
		newBenchCmd(opts),
	)
	return rootCmd
}

// setup loads the configuration, lets the flags override it and creates the API client.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("api-url") {
		o.apiURL = cfg.API.URL
	}
	if !cmd.Flags().Changed("timeout") {
		o.timeout = cfg.API.Timeout
	}
	o.logger, err = logging.New(o.logLevel, "console")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.client = apiclient.New(o.apiURL, o.timeout, o.logger)
	return nil
}

// Usage example on the command line:
// > go run . list --tag=work
// > API_URL=http://localhost:8080 go run . bench --sizes=1000,5000
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
