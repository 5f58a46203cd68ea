package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// DB is the query surface the repository needs. *pgxpool.Pool satisfies it,
// and so does a pgxmock pool in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads a scope's dining history. All reads exclude deleted
// entries; writes happen elsewhere (the conversational surface owns them).
type Repository interface {
	// ListSavedEntries returns the scope's non-deleted entries, newest first.
	ListSavedEntries(ctx context.Context, scopeID string) ([]types.SavedEntry, error)

	// ListVisits returns every visit logged in the scope, newest first.
	ListVisits(ctx context.Context, scopeID string) ([]types.Visit, error)

	// ScopeStats returns entry and visit counts for the stats surface.
	ScopeStats(ctx context.Context, scopeID string) (*types.ScopeStats, error)
}

type RepositoryImpl struct {
	db      DB
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewRepository(db DB, logger *slog.Logger, m *metrics.AppMetrics) *RepositoryImpl {
	return &RepositoryImpl{
		db:      db,
		logger:  logger,
		metrics: m,
	}
}

func (r *RepositoryImpl) recordQuery(ctx context.Context, name string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("query", name))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (r *RepositoryImpl) ListSavedEntries(ctx context.Context, scopeID string) ([]types.SavedEntry, error) {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "ListSavedEntries", trace.WithAttributes(
		attribute.String("scope_id", scopeID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListSavedEntries"), slog.String("scope_id", scopeID))

	query := `
		SELECT id, scope_id, place_id, name, address, area, cuisine_label,
		       latitude, longitude, added_by, status, notes, date_added
		FROM saved_entries
		WHERE scope_id = $1 AND status <> 'deleted'
		ORDER BY date_added DESC
	`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, scopeID)
	if err != nil {
		r.recordQuery(ctx, "list_saved_entries", start, err)
		l.ErrorContext(ctx, "Failed to query saved entries", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query saved entries: %w", err)
	}
	defer rows.Close()

	var entries []types.SavedEntry
	for rows.Next() {
		var e types.SavedEntry
		err := rows.Scan(&e.ID, &e.ScopeID, &e.PlaceID, &e.Name, &e.Address, &e.Area, &e.CuisineLabel,
			&e.Latitude, &e.Longitude, &e.AddedBy, &e.Status, &e.Notes, &e.DateAdded)
		if err != nil {
			r.recordQuery(ctx, "list_saved_entries", start, err)
			l.ErrorContext(ctx, "Failed to scan saved entry row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan saved entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		r.recordQuery(ctx, "list_saved_entries", start, err)
		l.ErrorContext(ctx, "Error iterating saved entry rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating saved entry rows: %w", err)
	}
	r.recordQuery(ctx, "list_saved_entries", start, nil)

	span.SetAttributes(attribute.Int("results.count", len(entries)))
	span.SetStatus(codes.Ok, "Saved entries retrieved")
	return entries, nil
}

func (r *RepositoryImpl) ListVisits(ctx context.Context, scopeID string) ([]types.Visit, error) {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "ListVisits", trace.WithAttributes(
		attribute.String("scope_id", scopeID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListVisits"), slog.String("scope_id", scopeID))

	query := `
		SELECT id, scope_id, place_id, place_name, rater_id, rating, review, occasion, visited_at
		FROM visits
		WHERE scope_id = $1
		ORDER BY visited_at DESC
	`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, scopeID)
	if err != nil {
		r.recordQuery(ctx, "list_visits", start, err)
		l.ErrorContext(ctx, "Failed to query visits", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []types.Visit
	for rows.Next() {
		var v types.Visit
		err := rows.Scan(&v.ID, &v.ScopeID, &v.PlaceID, &v.PlaceName, &v.RaterID, &v.Rating, &v.Review, &v.Occasion, &v.VisitedAt)
		if err != nil {
			r.recordQuery(ctx, "list_visits", start, err)
			l.ErrorContext(ctx, "Failed to scan visit row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		r.recordQuery(ctx, "list_visits", start, err)
		l.ErrorContext(ctx, "Error iterating visit rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating visit rows: %w", err)
	}
	r.recordQuery(ctx, "list_visits", start, nil)

	span.SetAttributes(attribute.Int("results.count", len(visits)))
	span.SetStatus(codes.Ok, "Visits retrieved")
	return visits, nil
}

func (r *RepositoryImpl) ScopeStats(ctx context.Context, scopeID string) (*types.ScopeStats, error) {
	ctx, span := otel.Tracer("HistoryRepository").Start(ctx, "ScopeStats", trace.WithAttributes(
		attribute.String("scope_id", scopeID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ScopeStats"), slog.String("scope_id", scopeID))

	query := `
		SELECT
			(SELECT COUNT(*) FROM saved_entries WHERE scope_id = $1 AND status <> 'deleted'),
			(SELECT COUNT(*) FROM saved_entries WHERE scope_id = $1 AND status = 'visited'),
			(SELECT COUNT(*) FROM visits WHERE scope_id = $1)
	`

	stats := &types.ScopeStats{ScopeID: scopeID}
	start := time.Now()
	err := r.db.QueryRow(ctx, query, scopeID).Scan(&stats.SavedCount, &stats.VisitedCount, &stats.VisitCount)
	r.recordQuery(ctx, "scope_stats", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query scope stats", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query scope stats: %w", err)
	}

	span.SetStatus(codes.Ok, "Scope stats retrieved")
	return stats, nil
}
