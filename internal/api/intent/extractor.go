package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	generativeAI "github.com/kopisiew/go-makan-suggestions/internal/api/generative_ai"
	"github.com/kopisiew/go-makan-suggestions/internal/api/places"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const (
	defaultTimeout  = 3 * time.Second
	maxOutputTokens = 256
)

const extractionPrompt = `You are a query parser for a Singapore food recommendation service.
Extract search parameters from the user's request.

Request: %q

Respond with JSON only, using null for anything not mentioned:
{"area": null, "cuisine": null, "occasion": null, "wants_new_only": false}

"area" is a Singapore neighbourhood or district if one is named.
"cuisine" is the food style asked for, for example "japanese" or "hawker".
"occasion" is one of "Casual", "Special", "Work", "Spontaneous" when implied.
"wants_new_only" is true only when the request asks for somewhere new or unvisited.`

// Completer is the slice of the generative client the extractor needs.
type Completer interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

// Extractor turns a free-text query into a structured Intent with a short
// model call. It never fails the surrounding request: on any model problem it
// falls back to a keyword scan so area scoping and "somewhere new" handling
// keep working.
type Extractor struct {
	client  Completer
	logger  *slog.Logger
	timeout time.Duration
}

func NewExtractor(client Completer, timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Extractor{client: client, logger: logger, timeout: timeout}
}

func (e *Extractor) Extract(ctx context.Context, query string) types.Intent {
	ctx, span := otel.Tracer("IntentExtractor").Start(ctx, "Extract", trace.WithAttributes(
		attribute.String("intent.query", query),
	))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return types.Intent{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  maxOutputTokens,
		ResponseMIMEType: "application/json",
	}

	raw, err := e.client.GenerateContent(ctx, fmt.Sprintf(extractionPrompt, query), config)
	if err != nil {
		e.logger.WarnContext(ctx, "Intent extraction failed, using keyword scan",
			slog.String("query", query), slog.Any("error", err))
		span.RecordError(err)
		return heuristicIntent(query)
	}

	var parsed intentPayload
	if err := json.Unmarshal([]byte(generativeAI.CleanJSONResponse(raw)), &parsed); err != nil {
		e.logger.WarnContext(ctx, "Intent extraction returned unusable JSON, using keyword scan",
			slog.String("query", query), slog.String("response", raw), slog.Any("error", err))
		span.RecordError(err)
		return heuristicIntent(query)
	}

	result := normalizeIntent(parsed)
	span.SetAttributes(
		attribute.String("intent.area", result.Area),
		attribute.String("intent.cuisine", result.Cuisine),
		attribute.Bool("intent.wants_new_only", result.WantsNewOnly),
	)
	return result
}

type intentPayload struct {
	Area         string `json:"area"`
	Cuisine      string `json:"cuisine"`
	Occasion     string `json:"occasion"`
	WantsNewOnly bool   `json:"wants_new_only"`
}

func normalizeIntent(p intentPayload) types.Intent {
	result := types.Intent{
		Cuisine:      strings.ToLower(strings.TrimSpace(p.Cuisine)),
		Occasion:     normalizeOccasion(p.Occasion),
		WantsNewOnly: p.WantsNewOnly,
	}
	if canonical, ok := places.CanonicalArea(p.Area); ok {
		result.Area = canonical
	} else {
		result.Area = strings.TrimSpace(p.Area)
	}
	return result
}

// normalizeOccasion maps a model answer onto the stored occasion vocabulary.
// Anything else drops the signal rather than inventing a new tag.
func normalizeOccasion(occasion string) string {
	switch strings.ToLower(strings.TrimSpace(occasion)) {
	case "casual":
		return types.OccasionCasual
	case "special":
		return types.OccasionSpecial
	case "work":
		return types.OccasionWork
	case "spontaneous":
		return types.OccasionSpontaneous
	default:
		return ""
	}
}

// noveltyPhrases mark a query as asking for unvisited places.
var noveltyPhrases = []string{
	"somewhere new",
	"someplace new",
	"somewhere we haven",
	"somewhere i haven",
	"new place",
	"new spot",
	"never been",
	"never tried",
}

// heuristicIntent is the no-model fallback: a district substring scan plus a
// novelty phrase check. Cuisine and occasion stay empty.
func heuristicIntent(query string) types.Intent {
	result := types.Intent{Area: places.ExtractArea(query)}
	lowered := strings.ToLower(query)
	for _, phrase := range noveltyPhrases {
		if strings.Contains(lowered, phrase) {
			result.WantsNewOnly = true
			break
		}
	}
	return result
}
