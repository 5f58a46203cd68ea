package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
)

var _ LedgerRepository = (*LedgerRepositoryImpl)(nil)

// LedgerRepository persists per-user daily reasoning call counts.
type LedgerRepository interface {
	// IncrementCallCount bumps the counter for (userID, day) atomically and
	// returns the new total. Day is a calendar date in "2006-01-02" form.
	IncrementCallCount(ctx context.Context, userID, day string) (int, error)
}

type LedgerRepositoryImpl struct {
	db      history.DB
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewLedgerRepository(db history.DB, logger *slog.Logger, m *metrics.AppMetrics) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{
		db:      db,
		logger:  logger,
		metrics: m,
	}
}

func (r *LedgerRepositoryImpl) IncrementCallCount(ctx context.Context, userID, day string) (int, error) {
	ctx, span := otel.Tracer("LedgerRepository").Start(ctx, "IncrementCallCount", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("call_day", day),
	))
	defer span.End()

	query := `
		INSERT INTO reasoning_call_ledger (user_id, call_day, call_count)
		VALUES ($1, $2::date, 1)
		ON CONFLICT (user_id, call_day)
		DO UPDATE SET call_count = reasoning_call_ledger.call_count + 1
		RETURNING call_count
	`

	var count int
	start := time.Now()
	err := r.db.QueryRow(ctx, query, userID, day).Scan(&count)
	r.recordQuery(ctx, "increment_call_count", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to increment reasoning call count",
			slog.String("user_id", userID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return 0, fmt.Errorf("failed to increment reasoning call count: %w", err)
	}

	span.SetAttributes(attribute.Int("call_count", count))
	span.SetStatus(codes.Ok, "Call count incremented")
	return count, nil
}

func (r *LedgerRepositoryImpl) recordQuery(ctx context.Context, name string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("query", name))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// CostGuardConfig bounds the advisory behaviour.
type CostGuardConfig struct {
	// DailyCap is the soft per-user threshold. Crossing it annotates the
	// response, never blocks it.
	DailyCap int
	// Location fixes the day boundary.
	Location *time.Location
}

func (c CostGuardConfig) withDefaults() CostGuardConfig {
	if c.DailyCap <= 0 {
		c.DailyCap = 10
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// CostGuard tracks how many reasoning calls each user has triggered today.
// It is advisory only: a failed ledger write or a crossed threshold never
// stops a request.
type CostGuard struct {
	ledger  LedgerRepository
	cfg     CostGuardConfig
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewCostGuard(ledger LedgerRepository, cfg CostGuardConfig, appMetrics *metrics.AppMetrics, logger *slog.Logger) *CostGuard {
	return &CostGuard{
		ledger:  ledger,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		logger:  logger,
		metrics: appMetrics,
	}
}

// RecordCall counts one reasoning invocation for the user and returns the
// advisory sentence once the daily cap is crossed, "" otherwise. The day is
// fixed at increment time, so a request straddling midnight books against
// the day the call was made.
func (cg *CostGuard) RecordCall(ctx context.Context, userID string) string {
	day := cg.now().In(cg.cfg.Location).Format("2006-01-02")

	count, err := cg.ledger.IncrementCallCount(ctx, userID, day)
	if err != nil {
		cg.logger.WarnContext(ctx, "Cost ledger unavailable, skipping advisory",
			slog.String("user_id", userID), slog.Any("error", err))
		return ""
	}
	if count <= cg.cfg.DailyCap {
		return ""
	}

	if cg.metrics != nil {
		cg.metrics.CostAdvisoriesTotal.Add(ctx, 1)
	}
	cg.logger.InfoContext(ctx, "Daily reasoning cap crossed",
		slog.String("user_id", userID), slog.Int("count", count))
	return fmt.Sprintf("Heads up: that's %d AI recommendations today. Earlier suggestions might be worth a second look.", count)
}
