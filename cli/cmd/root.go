// Package cmd provides the Cobra commands for the broadcaster CLI.
package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/broadcaster/cli/output"
	"github.com/fluxbase-eu/broadcaster/internal/config"
	"github.com/fluxbase-eu/broadcaster/internal/observability"
	"github.com/fluxbase-eu/broadcaster/internal/pubsub"
	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	brokerURL string
	brokerID  string
	codecName string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	cfg       *config.Config
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "broadcaster",
	Short: "Publish and listen on namespaced broadcaster channels",
	Long: `broadcaster talks to a pub/sub broker the same way the broadcaster
library does: every channel is prefixed with the broadcaster id, so only
processes sharing an id see each other's messages.

Brokers:
  redis://host:6379/0        Redis pub/sub
  postgres://user@host/db    PostgreSQL LISTEN/NOTIFY
  local://name               in-process (useful for testing)

Examples:
  broadcaster --id orders listen created cancelled
  broadcaster --id orders publish created '{"order_id": 42}'`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./broadcaster.yaml)")
	rootCmd.PersistentFlags().StringVar(&brokerURL, "url", "",
		"broker URL (overrides broker.url)")
	rootCmd.PersistentFlags().StringVar(&brokerID, "id", "",
		"broadcaster id shared by publishers and listeners (overrides broker.id)")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "",
		"message codec: json, yaml (overrides broker.codec)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(listenCmd)
}

// initialize sets up logging, configuration and the output formatter
func initialize(cmd *cobra.Command, args []string) error {
	// Silence errors only when --quiet is used
	cmd.SilenceErrors = quiet

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	setLogLevel(debug)

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Broker.URL = brokerURL
	}
	if flags.Changed("id") {
		cfg.Broker.ID = brokerID
	}
	if flags.Changed("codec") {
		cfg.Broker.Codec = codecName
	}
	setLogLevel(debug || cfg.Debug)

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)

	return nil
}

func setLogLevel(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newBroadcaster connects to the configured broker. metrics may be nil.
func newBroadcaster(ctx context.Context, metrics broadcaster.Metrics) (*broadcaster.Broadcaster, error) {
	opts, err := cfg.Broker.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, broadcaster.WithDialer(pubsub.Dial))
	if metrics != nil {
		opts = append(opts, broadcaster.WithMetrics(metrics))
	}
	return broadcaster.New(ctx, opts...)
}

// newTracer sets up tracing from the tracing section of the config
func newTracer(ctx context.Context) (*observability.Tracer, error) {
	return observability.NewTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
		Version:     Version,
	})
}

// shutdownTracer flushes pending spans, logging instead of failing the command
func shutdownTracer(tracer *observability.Tracer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down tracer")
	}
}
