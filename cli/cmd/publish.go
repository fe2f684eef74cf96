package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/fluxbase-eu/broadcaster/cli/output"
	"github.com/fluxbase-eu/broadcaster/internal/observability"
)

// shutdownTimeout bounds flushing traces and stopping the metrics server
const shutdownTimeout = 5 * time.Second

var (
	pubCount int
	pubRate  float64
)

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <message>",
	Short: "Publish a message to a channel",
	Long: `Publish a message to a channel of the broadcaster.

The message is parsed as JSON when it is valid JSON and sent as a plain
string otherwise. Every listener subscribed to the channel under the same
broadcaster id receives it.

Examples:
  broadcaster --id orders publish created '{"order_id": 42}'
  broadcaster --id orders publish ping hello --count 100 --rate 10`,
	Args: cobra.ExactArgs(2),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&pubCount, "count", 1, "Number of times to publish the message")
	publishCmd.Flags().Float64Var(&pubRate, "rate", 0, "Maximum messages per second (0 = unlimited)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	channel := args[0]
	message := parseMessage(args[1])

	if pubCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := newTracer(ctx)
	if err != nil {
		return err
	}
	defer shutdownTracer(tracer)

	b, err := newBroadcaster(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	limiter := newLimiter(pubRate)
	published := 0
	for published < pubCount {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		spanCtx, span := tracer.StartSpan(ctx, "cli.publish", attribute.String("channel", channel))
		err := b.Publish(spanCtx, channel, message)
		observability.EndSpan(span, err)
		if err != nil {
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}
		published++

		log.Debug().
			Str("channel", channel).
			Str("trace_id", observability.ExtractTraceID(spanCtx)).
			Int("n", published).
			Msg("Message published")
	}

	formatter.PrintTable(output.TableData{
		Headers: []string{"BROADCASTER", "CHANNEL", "PUBLISHED"},
		Rows:    [][]string{{b.ID(), channel, strconv.Itoa(published)}},
	})
	return ctx.Err()
}

// parseMessage decodes s as JSON, falling back to the raw string
func parseMessage(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// newLimiter returns a limiter allowing perSecond events, unlimited when
// perSecond is not positive
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
