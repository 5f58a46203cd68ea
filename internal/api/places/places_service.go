package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"

	// fieldMask limits the search response to the fields the engine reads.
	fieldMask = "places.id,places.displayName,places.formattedAddress," +
		"places.addressComponents,places.rating,places.types," +
		"places.googleMapsUri,places.location"

	maxResultCountCeiling = 20
)

// SearchRequest is one text search against the external places index.
// Center and radius bias results toward a locality without excluding the
// rest of the island.
type SearchRequest struct {
	Query        string
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
	MaxResults   int
}

type Service interface {
	// SearchText runs a free-text place search. A failed or malformed upstream
	// response surfaces as types.ErrSearchFailed so callers can degrade.
	SearchText(ctx context.Context, req SearchRequest) ([]types.Place, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewServiceImpl(apiKey string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

// searchTextPayload mirrors the places:searchText request body.
type searchTextPayload struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchTextResponse struct {
	Places []placePayload `json:"places"`
}

type placePayload struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress  string `json:"formattedAddress"`
	AddressComponents []struct {
		LongText string   `json:"longText"`
		Types    []string `json:"types"`
	} `json:"addressComponents"`
	Rating        *float64 `json:"rating"`
	GoogleMapsURI string   `json:"googleMapsUri"`
	Location      *latLng  `json:"location"`
}

func (s *ServiceImpl) SearchText(ctx context.Context, req SearchRequest) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "SearchText", trace.WithAttributes(
		attribute.String("search.query", req.Query),
		attribute.Float64("search.radius_meters", req.RadiusMeters),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SearchText"), slog.String("query", req.Query))

	payload := searchTextPayload{
		TextQuery:      scopedQuery(req.Query),
		MaxResultCount: clampResultCount(req.MaxResults),
	}
	if req.RadiusMeters > 0 {
		payload.LocationBias = &locationBias{Circle: circle{
			Center: latLng{Latitude: req.CenterLat, Longitude: req.CenterLng},
			Radius: req.RadiusMeters,
		}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal search payload")
		return nil, fmt.Errorf("%w: marshal payload: %w", types.ErrSearchFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build search request")
		return nil, fmt.Errorf("%w: build request: %w", types.ErrSearchFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", s.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		l.WarnContext(ctx, "Place search request failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, fmt.Errorf("%w: %w", types.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		l.WarnContext(ctx, "Place search returned non-OK status",
			slog.Int("status", resp.StatusCode), slog.String("body", string(snippet)))
		err := fmt.Errorf("%w: upstream status %d", types.ErrSearchFailed, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search returned non-OK status")
		return nil, err
	}

	var parsed searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode search response")
		return nil, fmt.Errorf("%w: decode response: %w", types.ErrSearchFailed, err)
	}

	results := make([]types.Place, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		if p.ID == "" || p.DisplayName.Text == "" {
			continue
		}
		results = append(results, toPlace(p))
	}

	l.DebugContext(ctx, "Place search completed", slog.Int("results", len(results)))
	span.SetAttributes(attribute.Int("search.results", len(results)))
	span.SetStatus(codes.Ok, "search completed")
	return results, nil
}

func toPlace(p placePayload) types.Place {
	place := types.Place{
		PlaceID: p.ID,
		Name:    p.DisplayName.Text,
		Address: p.FormattedAddress,
		Rating:  p.Rating,
		MapsURL: p.GoogleMapsURI,
	}
	if place.MapsURL == "" {
		place.MapsURL = DefaultMapsURL(p.ID)
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		place.Latitude = &lat
		place.Longitude = &lng
	}
	place.Area = areaFromComponents(p)
	if place.Area == "" {
		place.Area = ExtractArea(p.FormattedAddress)
	}
	return place
}

// areaFromComponents prefers the sublocality or neighborhood component over
// scanning the formatted address.
func areaFromComponents(p placePayload) string {
	for _, comp := range p.AddressComponents {
		for _, t := range comp.Types {
			if t == "sublocality_level_1" || t == "neighborhood" {
				if canonical, ok := CanonicalArea(comp.LongText); ok {
					return canonical
				}
				return comp.LongText
			}
		}
	}
	return ""
}

// DefaultMapsURL builds the canonical maps deep link for a place that carried
// no URL of its own.
func DefaultMapsURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + placeID
}

// scopedQuery pins the search to Singapore unless the query already names it.
func scopedQuery(query string) string {
	if strings.Contains(strings.ToLower(query), "singapore") {
		return query
	}
	return query + " Singapore"
}

func clampResultCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxResultCountCeiling {
		return maxResultCountCeiling
	}
	return n
}
