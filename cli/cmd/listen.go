package cmd

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/broadcaster/cli/output"
	"github.com/fluxbase-eu/broadcaster/internal/observability"
	"github.com/fluxbase-eu/broadcaster/pkg/broadcaster"
)

var listenMetricsAddr string

var listenCmd = &cobra.Command{
	Use:   "listen <channel>...",
	Short: "Print messages published to one or more channels",
	Long: `Subscribe to channels of the broadcaster and print every message until
interrupted. Broker outages are survived: the listener reconnects on its
own and keeps its subscriptions.

Examples:
  broadcaster --id orders listen created cancelled
  broadcaster --id orders listen created -o json
  broadcaster --id orders listen created --metrics-address :9090`,
	Args: cobra.MinimumNArgs(1),
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenMetricsAddr, "metrics-address", "",
		"serve Prometheus metrics on this address (overrides metrics.address)")
}

// messageRecord is a received message in json and yaml output
type messageRecord struct {
	Channel    string    `json:"channel" yaml:"channel"`
	Message    any       `json:"message" yaml:"message"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := newTracer(ctx)
	if err != nil {
		return err
	}
	defer shutdownTracer(tracer)

	var metrics broadcaster.Metrics
	if addr := metricsAddress(cmd); addr != "" {
		m := observability.NewMetrics(prometheus.NewRegistry())
		app := startMetricsServer(addr, cfg.Metrics.Path, m)
		defer func() {
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				log.Warn().Err(err).Msg("Failed to shut down metrics server")
			}
		}()
		metrics = m
	}

	b, err := newBroadcaster(ctx, metrics)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	printer := &messagePrinter{formatter: formatter}
	for _, channel := range args {
		if _, err := b.SubscribeFunc(channel, printer.callback(channel)); err != nil {
			return err
		}
	}

	log.Info().
		Str("broadcaster_id", b.ID()).
		Strs("channels", args).
		Msg("Listening, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("Shutting down listener...")
	return nil
}

func metricsAddress(cmd *cobra.Command) string {
	if cmd.Flags().Changed("metrics-address") {
		return listenMetricsAddr
	}
	if cfg.Metrics.Enabled {
		return cfg.Metrics.Address
	}
	return ""
}

func startMetricsServer(addr, path string, m *observability.Metrics) *fiber.App {
	if path == "" {
		path = "/metrics"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Get(path, m.Handler())

	go func() {
		log.Info().Str("address", addr).Str("path", path).Msg("Starting metrics server")
		if err := app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	return app
}

// messagePrinter writes received messages through the formatter. It is
// safe for concurrent use.
type messagePrinter struct {
	mu        sync.Mutex
	formatter *output.Formatter
}

func (p *messagePrinter) callback(channel string) func(any) error {
	return func(message any) error {
		return p.print(channel, message, time.Now())
	}
}

func (p *messagePrinter) print(channel string, message any, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.formatter.Format != output.FormatTable {
		return p.formatter.Print(messageRecord{Channel: channel, Message: message, ReceivedAt: at})
	}

	rendered, err := json.Marshal(message)
	if err != nil {
		rendered = []byte(fmt.Sprintf("%v", message))
	}
	p.formatter.PrintKeyValue(channel, string(rendered))
	return nil
}
