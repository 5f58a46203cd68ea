package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	appMiddleware "github.com/kopisiew/go-makan-suggestions/app/middleware"
	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
	"github.com/kopisiew/go-makan-suggestions/internal/api/recommend"
	api "github.com/kopisiew/go-makan-suggestions/internal/router"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

const (
	e2eBotToken = "123456:TEST-BOT-TOKEN-e2e"
	e2eUserID   = int64(987654321)
	e2eChatID   = int64(-1001234567890)
)

// scriptedRecommendService stands in for the full pipeline so the suite can
// exercise the HTTP surface without a database or external APIs.
type scriptedRecommendService struct {
	mu          sync.Mutex
	lastRequest types.RecommendRequest
	calls       int
}

func (s *scriptedRecommendService) GetRecommendations(_ context.Context, req types.RecommendRequest) (*types.RecommendationResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("query must not be empty: %w", types.ErrValidation)
	}
	s.mu.Lock()
	s.lastRequest = req
	s.calls++
	s.mu.Unlock()
	return &types.RecommendationResponse{
		Recommendations: []types.Recommendation{
			{
				PlaceID:     "e2e-p1",
				Name:        "Keng Eng Kee Seafood",
				Area:        "Bukit Merah",
				Reason:      "Saved 120 days ago and still untried.",
				SourceLabel: "from your wishlist",
			},
			{
				PlaceID:     "e2e-x1",
				Name:        "New Ubin Seafood",
				Reason:      "Zi char in the style this chat keeps rating highly.",
				SourceLabel: "trending nearby",
			},
		},
		Mode:       types.ModeFull,
		HasHistory: true,
	}, nil
}

func (s *scriptedRecommendService) SuggestedPrompts(_ context.Context, scopeID, requesterID string) ([]string, error) {
	return []string{
		"How about Keng Eng Kee in Bukit Merah? It's been on the list a while",
		"Good zi char around Tiong Bahru",
		"Somewhere casual and easy tonight",
	}, nil
}

func (s *scriptedRecommendService) snapshot() (types.RecommendRequest, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest, s.calls
}

type scriptedHistoryRepo struct{}

func (r *scriptedHistoryRepo) ListSavedEntries(context.Context, string) ([]types.SavedEntry, error) {
	return nil, nil
}

func (r *scriptedHistoryRepo) ListVisits(context.Context, string) ([]types.Visit, error) {
	return nil, nil
}

func (r *scriptedHistoryRepo) ScopeStats(_ context.Context, scopeID string) (*types.ScopeStats, error) {
	return &types.ScopeStats{ScopeID: scopeID, SavedCount: 7, VisitedCount: 3, VisitCount: 5}, nil
}

// E2ETestSuite drives the real router and authentication middleware over HTTP
// with scripted services behind the handlers.
type E2ETestSuite struct {
	suite.Suite
	server  *httptest.Server
	client  *http.Client
	baseURL string
	svc     *scriptedRecommendService
}

func (suite *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.svc = &scriptedRecommendService{}

	router := api.SetupRouter(&api.Config{
		RecommendHandler:       recommend.NewHandler(suite.svc, logger),
		HistoryHandler:         history.NewHandler(&scriptedHistoryRepo{}, logger),
		AuthenticateMiddleware: appMiddleware.Authenticate(e2eBotToken, logger),
	})

	suite.server = httptest.NewServer(router)
	suite.baseURL = suite.server.URL
	suite.client = &http.Client{Timeout: 10 * time.Second}
}

func (suite *E2ETestSuite) TearDownSuite() {
	if suite.server != nil {
		suite.server.Close()
	}
}

// signInitData builds a signed initData query string the way the platform
// signs WebApp sessions.
func signInitData(botToken string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields))
	for key, value := range fields {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secretKey := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func privateInitData() string {
	return signInitData(e2eBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Wei Ling"}`, e2eUserID),
	})
}

func groupInitData() string {
	return signInitData(e2eBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Wei Ling"}`, e2eUserID),
		"chat":      fmt.Sprintf(`{"id":%d,"type":"supergroup","title":"makan kakis"}`, e2eChatID),
	})
}

func (suite *E2ETestSuite) doJSON(method, path, initData string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	require.NoError(suite.T(), err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if initData != "" {
		req.Header.Set(appMiddleware.InitDataHeader, initData)
	}

	resp, err := suite.client.Do(req)
	require.NoError(suite.T(), err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	resp.Body.Close()
	return resp, payload
}

func (suite *E2ETestSuite) TestPublicEndpoints() {
	resp, body := suite.doJSON(http.MethodGet, "/ping", "", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "pong", string(body))

	resp, body = suite.doJSON(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.JSONEq(suite.T(), `{"status":"ok"}`, string(body))
}

func (suite *E2ETestSuite) TestSwaggerDocServed() {
	resp, body := suite.doJSON(http.MethodGet, "/docs/doc.json", "", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var spec map[string]any
	require.NoError(suite.T(), json.Unmarshal(body, &spec))
	paths, ok := spec["paths"].(map[string]any)
	require.True(suite.T(), ok)
	assert.Contains(suite.T(), paths, "/api/v1/recommendations")
	assert.Contains(suite.T(), paths, "/api/v1/prompts")
	assert.Contains(suite.T(), paths, "/api/v1/history/stats")
}

func (suite *E2ETestSuite) TestAuthenticationRequired() {
	payload := map[string]any{"query": "dinner", "scope_id": "987654321"}

	resp, _ := suite.doJSON(http.MethodPost, "/api/v1/recommendations", "", payload)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)

	forged := signInitData("999999:WRONG-TOKEN", map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Wei Ling"}`, e2eUserID),
	})
	resp, _ = suite.doJSON(http.MethodPost, "/api/v1/recommendations", forged, payload)
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)

	stale := signInitData(e2eBotToken, map[string]string{
		"auth_date": fmt.Sprintf("%d", time.Now().Add(-25*time.Hour).Unix()),
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Wei Ling"}`, e2eUserID),
	})
	resp, _ = suite.doJSON(http.MethodPost, "/api/v1/recommendations", stale, payload)
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func (suite *E2ETestSuite) TestRecommendationFlow() {
	resp, body := suite.doJSON(http.MethodPost, "/api/v1/recommendations", privateInitData(), map[string]any{
		"query":    "chill dinner in Tiong Bahru",
		"scope_id": "987654321",
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var decoded types.RecommendationResponse
	require.NoError(suite.T(), json.Unmarshal(body, &decoded))
	assert.Equal(suite.T(), types.ModeFull, decoded.Mode)
	assert.False(suite.T(), decoded.Degraded)
	assert.True(suite.T(), decoded.HasHistory)
	require.Len(suite.T(), decoded.Recommendations, 2)
	assert.Equal(suite.T(), "from your wishlist", decoded.Recommendations[0].SourceLabel)

	// The requester identity always comes from the session, not the body.
	last, _ := suite.svc.snapshot()
	assert.Equal(suite.T(), "987654321", last.RequesterID)
	assert.Equal(suite.T(), "987654321", last.ScopeID)
}

func (suite *E2ETestSuite) TestGroupScopeAuthorization() {
	resp, body := suite.doJSON(http.MethodPost, "/api/v1/recommendations", groupInitData(), map[string]any{
		"query":    "somewhere for six of us on friday",
		"scope_id": "-1001234567890",
		"is_group": true,
	})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var decoded types.RecommendationResponse
	require.NoError(suite.T(), json.Unmarshal(body, &decoded))
	assert.NotEmpty(suite.T(), decoded.Recommendations)

	// A scope the session was not opened in stays out of reach.
	resp, _ = suite.doJSON(http.MethodPost, "/api/v1/recommendations", groupInitData(), map[string]any{
		"query":    "dinner",
		"scope_id": "-1009999999999",
	})
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func (suite *E2ETestSuite) TestRequesterSpoofRejected() {
	resp, _ := suite.doJSON(http.MethodPost, "/api/v1/recommendations", privateInitData(), map[string]any{
		"query":        "dinner",
		"scope_id":     "987654321",
		"requester_id": "111111111",
	})
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func (suite *E2ETestSuite) TestEmptyQueryRejected() {
	resp, _ := suite.doJSON(http.MethodPost, "/api/v1/recommendations", privateInitData(), map[string]any{
		"query":    "   ",
		"scope_id": "987654321",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *E2ETestSuite) TestSuggestedPromptsFlow() {
	resp, body := suite.doJSON(http.MethodGet, "/api/v1/prompts?scope_id=987654321", privateInitData(), nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var decoded types.PromptSuggestions
	require.NoError(suite.T(), json.Unmarshal(body, &decoded))
	require.Len(suite.T(), decoded.Prompts, 3)
	assert.Equal(suite.T(), "Good zi char around Tiong Bahru", decoded.Prompts[1])

	resp, _ = suite.doJSON(http.MethodGet, "/api/v1/prompts", privateInitData(), nil)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *E2ETestSuite) TestScopeStatsFlow() {
	resp, body := suite.doJSON(http.MethodGet, "/api/v1/history/stats?scope_id=987654321", privateInitData(), nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var decoded types.ScopeStats
	require.NoError(suite.T(), json.Unmarshal(body, &decoded))
	assert.Equal(suite.T(), 7, decoded.SavedCount)
	assert.Equal(suite.T(), 3, decoded.VisitedCount)
	assert.Equal(suite.T(), 5, decoded.VisitCount)

	resp, _ = suite.doJSON(http.MethodGet, "/api/v1/history/stats?scope_id=-1001234567890", privateInitData(), nil)
	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func (suite *E2ETestSuite) TestConcurrentRecommendations() {
	const workers = 8

	initData := privateInitData()
	var wg sync.WaitGroup
	statuses := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			encoded, _ := json.Marshal(map[string]any{
				"query":    "late night supper",
				"scope_id": "987654321",
			})
			req, err := http.NewRequest(http.MethodPost, suite.baseURL+"/api/v1/recommendations", bytes.NewReader(encoded))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(appMiddleware.InitDataHeader, initData)
			resp, err := suite.client.Do(req)
			if err != nil {
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			statuses[slot] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for _, status := range statuses {
		assert.Equal(suite.T(), http.StatusOK, status)
	}
}

func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
