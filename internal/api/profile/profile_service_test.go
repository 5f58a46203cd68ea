package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// MockHistoryRepository is a mock implementation of history.Repository.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) ListSavedEntries(ctx context.Context, scopeID string) ([]types.SavedEntry, error) {
	args := m.Called(ctx, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SavedEntry), args.Error(1)
}

func (m *MockHistoryRepository) ListVisits(ctx context.Context, scopeID string) ([]types.Visit, error) {
	args := m.Called(ctx, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Visit), args.Error(1)
}

func (m *MockHistoryRepository) ScopeStats(ctx context.Context, scopeID string) (*types.ScopeStats, error) {
	args := m.Called(ctx, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ScopeStats), args.Error(1)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

var profileNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func savedEntry(placeID, name string, area, cuisine *string, status types.EntryStatus, added time.Time) types.SavedEntry {
	return types.SavedEntry{
		ID:           uuid.New(),
		ScopeID:      "scope-1",
		PlaceID:      placeID,
		Name:         name,
		Area:         area,
		CuisineLabel: cuisine,
		AddedBy:      "987654321",
		Status:       status,
		DateAdded:    added,
	}
}

func visit(placeID, placeName, raterID string, rating *int, occasion *string, at time.Time) types.Visit {
	return types.Visit{
		ID:        uuid.New(),
		ScopeID:   "scope-1",
		PlaceID:   placeID,
		PlaceName: placeName,
		RaterID:   raterID,
		Rating:    rating,
		Occasion:  occasion,
		VisitedAt: at,
	}
}

func TestBuilder_Build(t *testing.T) {
	builder := NewBuilder(90*24*time.Hour, 3)

	t.Run("empty history yields empty profile", func(t *testing.T) {
		p := builder.Build(nil, nil, "987654321", profileNow)
		assert.False(t, p.HasHistory)
		assert.Empty(t, p.CuisineRatings)
		assert.Empty(t, p.TopAreas)
		assert.Empty(t, p.OverdueWishlist)
		assert.Empty(t, p.VisitedPlaceIDs)
	})

	t.Run("cuisine means skip unrated visits", func(t *testing.T) {
		entries := []types.SavedEntry{
			savedEntry("p1", "Tian Tian Chicken Rice", strPtr("Maxwell"), nil, types.EntryStatusVisited, profileNow.AddDate(0, -2, 0)),
		}
		visits := []types.Visit{
			visit("p1", "Tian Tian Chicken Rice", "987654321", intPtr(5), nil, profileNow.AddDate(0, 0, -10)),
			visit("p1", "Tian Tian Chicken Rice", "111", intPtr(3), nil, profileNow.AddDate(0, 0, -20)),
			visit("p1", "Tian Tian Chicken Rice", "222", nil, nil, profileNow.AddDate(0, 0, -5)),
		}

		p := builder.Build(entries, visits, "987654321", profileNow)
		require.Len(t, p.CuisineRatings, 1)
		assert.Equal(t, "chicken rice", p.CuisineRatings[0].Cuisine)
		assert.InDelta(t, 4.0, p.CuisineRatings[0].AvgRating, 0.001)
		assert.Equal(t, 2, p.CuisineRatings[0].SampleCount)
	})

	t.Run("cuisine ordering is deterministic", func(t *testing.T) {
		visits := []types.Visit{
			visit("p1", "Ryo Sushi", "u1", intPtr(5), nil, profileNow.AddDate(0, 0, -1)),
			visit("p2", "Haidilao Hotpot", "u1", intPtr(5), nil, profileNow.AddDate(0, 0, -2)),
			visit("p3", "Alt Pizza", "u1", intPtr(4), nil, profileNow.AddDate(0, 0, -3)),
		}

		p := builder.Build(nil, visits, "u1", profileNow)
		require.Len(t, p.CuisineRatings, 3)
		// 5.0 ties break by name: hotpot before sushi
		assert.Equal(t, "hotpot", p.CuisineRatings[0].Cuisine)
		assert.Equal(t, "sushi", p.CuisineRatings[1].Cuisine)
		assert.Equal(t, "italian", p.CuisineRatings[2].Cuisine)
	})

	t.Run("requester rating preferred over scope-mate rating", func(t *testing.T) {
		visits := []types.Visit{
			visit("p1", "Burnt Ends", "111", intPtr(5), nil, profileNow.AddDate(0, 0, -1)),
			visit("p1", "Burnt Ends", "987654321", intPtr(3), nil, profileNow.AddDate(0, 0, -30)),
		}

		p := builder.Build(nil, visits, "987654321", profileNow)
		summary, ok := p.VisitedPlaceIDs["p1"]
		require.True(t, ok)
		require.NotNil(t, summary.Rating)
		assert.Equal(t, 3, *summary.Rating)
		// most recent visit time still wins regardless of rater
		assert.Equal(t, profileNow.AddDate(0, 0, -1), summary.VisitedAt)
	})

	t.Run("visited place without requester rating keeps nil rating", func(t *testing.T) {
		visits := []types.Visit{
			visit("p1", "Burnt Ends", "111", intPtr(5), nil, profileNow.AddDate(0, 0, -1)),
		}

		p := builder.Build(nil, visits, "987654321", profileNow)
		summary, ok := p.VisitedPlaceIDs["p1"]
		require.True(t, ok)
		assert.Nil(t, summary.Rating)
	})

	t.Run("top areas rank by count then recency", func(t *testing.T) {
		entries := []types.SavedEntry{
			savedEntry("p1", "A", strPtr("Tiong Bahru"), nil, types.EntryStatusVisited, profileNow.AddDate(-1, 0, 0)),
			savedEntry("p2", "B", strPtr("Katong"), nil, types.EntryStatusVisited, profileNow.AddDate(-1, 0, 0)),
			savedEntry("p3", "C", strPtr("Jurong"), nil, types.EntryStatusVisited, profileNow.AddDate(-1, 0, 0)),
		}
		visits := []types.Visit{
			visit("p1", "A", "u1", nil, nil, profileNow.AddDate(0, 0, -3)),
			visit("p1", "A", "u1", nil, nil, profileNow.AddDate(0, 0, -9)),
			visit("p2", "B", "u1", nil, nil, profileNow.AddDate(0, 0, -1)),
			visit("p3", "C", "u1", nil, nil, profileNow.AddDate(0, 0, -2)),
		}

		p := builder.Build(entries, visits, "u1", profileNow)
		require.Len(t, p.TopAreas, 3)
		assert.Equal(t, "Tiong Bahru", p.TopAreas[0].Area) // 2 visits
		assert.Equal(t, 2, p.TopAreas[0].VisitCount)
		assert.Equal(t, "Katong", p.TopAreas[1].Area) // 1 visit, newer
		assert.Equal(t, "Jurong", p.TopAreas[2].Area) // 1 visit, older
	})

	t.Run("occasions ranked by frequency", func(t *testing.T) {
		casual := strPtr(types.OccasionCasual)
		special := strPtr(types.OccasionSpecial)
		visits := []types.Visit{
			visit("p1", "A", "u1", nil, casual, profileNow.AddDate(0, 0, -1)),
			visit("p2", "B", "u1", nil, casual, profileNow.AddDate(0, 0, -2)),
			visit("p3", "C", "u1", nil, special, profileNow.AddDate(0, 0, -3)),
		}

		p := builder.Build(nil, visits, "u1", profileNow)
		require.Len(t, p.Occasions, 2)
		assert.Equal(t, types.OccasionCasual, p.Occasions[0].Occasion)
		assert.Equal(t, 2, p.Occasions[0].Count)
		assert.Equal(t, types.OccasionSpecial, p.Occasions[1].Occasion)
	})

	t.Run("overdue wishlist oldest first with cap", func(t *testing.T) {
		entries := []types.SavedEntry{
			savedEntry("p1", "Oldest", strPtr("Katong"), nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -200)),
			savedEntry("p2", "Newer Overdue", nil, nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -120)),
			savedEntry("p3", "Middle", nil, nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -150)),
			savedEntry("p4", "Fourth Overdue", nil, nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -100)),
			savedEntry("p5", "Fresh", nil, nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -10)),
			savedEntry("p6", "Visited Long Ago", nil, nil, types.EntryStatusVisited, profileNow.AddDate(0, 0, -300)),
		}

		p := builder.Build(entries, nil, "u1", profileNow)
		require.Len(t, p.OverdueWishlist, 3)
		assert.Equal(t, "Oldest", p.OverdueWishlist[0].Name)
		assert.Equal(t, 200, p.OverdueWishlist[0].DaysSaved)
		assert.Equal(t, "Middle", p.OverdueWishlist[1].Name)
		assert.Equal(t, "Newer Overdue", p.OverdueWishlist[2].Name)
	})

	t.Run("entry with visit record is not overdue even when status stayed saved", func(t *testing.T) {
		entries := []types.SavedEntry{
			savedEntry("p1", "Stale Status", nil, nil, types.EntryStatusSaved, profileNow.AddDate(0, 0, -200)),
		}
		visits := []types.Visit{
			visit("p1", "Stale Status", "u1", intPtr(4), nil, profileNow.AddDate(0, 0, -5)),
		}

		p := builder.Build(entries, visits, "u1", profileNow)
		assert.Empty(t, p.OverdueWishlist)
	})

	t.Run("boundary: exactly at threshold is not overdue", func(t *testing.T) {
		entries := []types.SavedEntry{
			savedEntry("p1", "Ninety Days", nil, nil, types.EntryStatusSaved, profileNow.Add(-90*24*time.Hour)),
			savedEntry("p2", "Ninety One Days", nil, nil, types.EntryStatusSaved, profileNow.Add(-91*24*time.Hour)),
		}

		p := builder.Build(entries, nil, "u1", profileNow)
		require.Len(t, p.OverdueWishlist, 1)
		assert.Equal(t, "Ninety One Days", p.OverdueWishlist[0].Name)
	})
}

func setupProfileServiceTest() (*ServiceImpl, *MockHistoryRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockHistoryRepository)
	service := NewService(mockRepo, NewBuilder(90*24*time.Hour, 3), logger)
	service.now = func() time.Time { return profileNow }
	return service, mockRepo
}

func TestServiceImpl_BuildProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mockRepo := setupProfileServiceTest()
		entries := []types.SavedEntry{
			savedEntry("p1", "Tian Tian Chicken Rice", strPtr("Maxwell"), nil, types.EntryStatusVisited, profileNow.AddDate(0, -3, 0)),
		}
		visits := []types.Visit{
			visit("p1", "Tian Tian Chicken Rice", "987654321", intPtr(5), strPtr(types.OccasionCasual), profileNow.AddDate(0, 0, -7)),
		}
		mockRepo.On("ListSavedEntries", mock.Anything, "scope-1").Return(entries, nil).Once()
		mockRepo.On("ListVisits", mock.Anything, "scope-1").Return(visits, nil).Once()

		p, err := service.BuildProfile(ctx, "scope-1", "987654321")
		require.NoError(t, err)
		assert.True(t, p.HasHistory)
		require.Len(t, p.CuisineRatings, 1)
		assert.Equal(t, "chicken rice", p.CuisineRatings[0].Cuisine)
		mockRepo.AssertExpectations(t)
	})

	t.Run("history failure wraps ErrHistoryUnavailable", func(t *testing.T) {
		service, mockRepo := setupProfileServiceTest()
		dbErr := errors.New("connection refused")
		mockRepo.On("ListSavedEntries", mock.Anything, "scope-1").Return(nil, dbErr).Once()
		mockRepo.On("ListVisits", mock.Anything, "scope-1").Return([]types.Visit{}, nil).Maybe()

		p, err := service.BuildProfile(ctx, "scope-1", "987654321")
		require.Error(t, err)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, types.ErrHistoryUnavailable)
		assert.ErrorIs(t, err, dbErr)
	})
}
