package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const retryPause = 300 * time.Millisecond

// Completer is the slice of the generative client the gateway needs.
type Completer interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

// GatewayConfig bounds a single reasoning invocation.
type GatewayConfig struct {
	// Timeout is the wall-clock ceiling across both attempts.
	Timeout time.Duration
	// MaxOutputTokens caps the model output.
	MaxOutputTokens int32
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 1024
	}
	return c
}

// Gateway is the single path to the reasoning model. It enforces the output
// token ceiling and the wall-clock budget, retries once on transient failure,
// and fronts the model with a circuit breaker so a dead upstream degrades
// instantly instead of burning the full budget per request.
type Gateway struct {
	client  Completer
	breaker *gobreaker.CircuitBreaker[string]
	cfg     GatewayConfig
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewGateway(client Completer, cfg GatewayConfig, appMetrics *metrics.AppMetrics, logger *slog.Logger) *Gateway {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "reasoning-model",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 4
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Reasoning breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &Gateway{
		client:  client,
		breaker: breaker,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: appMetrics,
	}
}

// Complete runs the prompt through the model. Errors are always one of the
// two reasoning sentinels so callers can fall back without inspecting causes.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("ReasoningGateway").Start(ctx, "Complete", trace.WithAttributes(
		attribute.Int("prompt.chars", len(prompt)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.6),
		MaxOutputTokens:  g.cfg.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(retryPause):
			}
		}
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		text, err := g.breaker.Execute(func() (string, error) {
			return g.client.GenerateContent(ctx, prompt, config)
		})
		g.recordCall(ctx, time.Since(start), err)

		if err == nil {
			span.SetStatus(codes.Ok, "reasoning completed")
			return text, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// The retry stays unspent here; probing an open breaker again
			// within the same request cannot succeed.
			span.RecordError(err)
			span.SetStatus(codes.Error, "reasoning breaker open")
			return "", fmt.Errorf("%w: %w", types.ErrReasoningUnavailable, err)
		}
		g.logger.WarnContext(ctx, "Reasoning attempt failed",
			slog.Int("attempt", attempt+1), slog.Any("error", err))
		span.RecordError(err)
	}

	if ctx.Err() != nil {
		span.SetStatus(codes.Error, "reasoning timed out")
		return "", fmt.Errorf("%w: %w", types.ErrReasoningTimeout, ctx.Err())
	}
	span.SetStatus(codes.Error, "reasoning unavailable")
	return "", fmt.Errorf("%w: %w", types.ErrReasoningUnavailable, lastErr)
}

func (g *Gateway) recordCall(ctx context.Context, elapsed time.Duration, err error) {
	if g.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	default:
		outcome = "failure"
	}
	g.metrics.ReasoningCallsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	g.metrics.ReasoningDurationSeconds.Record(ctx, elapsed.Seconds())
}
