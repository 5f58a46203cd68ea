package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/kopisiew/go-makan-suggestions/app/db"
	"github.com/kopisiew/go-makan-suggestions/app/observability/metrics"
	"github.com/kopisiew/go-makan-suggestions/config"
	generativeAI "github.com/kopisiew/go-makan-suggestions/internal/api/generative_ai"
	"github.com/kopisiew/go-makan-suggestions/internal/api/history"
	"github.com/kopisiew/go-makan-suggestions/internal/api/intent"
	"github.com/kopisiew/go-makan-suggestions/internal/api/places"
	"github.com/kopisiew/go-makan-suggestions/internal/api/profile"
	"github.com/kopisiew/go-makan-suggestions/internal/api/recommend"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	RecommendHandler *recommend.HandlerImpl
	HistoryHandler   *history.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	metrics.InitAppMetrics()
	appMetrics := metrics.Get()

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		logger.Warn("Invalid engine timezone, falling back to UTC",
			slog.String("timezone", cfg.Engine.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Engine.Model)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize reasoning client: %w", err)
	}

	// Without a key every search fails and responses degrade to personal
	// history, so the server still comes up.
	placesKey := os.Getenv("GOOGLE_PLACES_API_KEY")
	if placesKey == "" {
		logger.Warn("GOOGLE_PLACES_API_KEY not set, external place search is disabled")
	}
	searchService := places.NewServiceImpl(placesKey, logger)

	// Initialize repositories
	historyRepo := history.NewRepository(pool, logger, appMetrics)
	ledgerRepo := recommend.NewLedgerRepository(pool, logger, appMetrics)

	// Initialize services
	builder := profile.NewBuilder(time.Duration(cfg.Engine.OverdueAfterDays)*24*time.Hour, cfg.Engine.OverdueCap)
	profileService := profile.NewService(historyRepo, builder, logger)

	extractor := intent.NewExtractor(aiClient, cfg.Engine.IntentTimeout, logger)

	generator := recommend.NewGenerator(searchService, recommend.GeneratorConfig{
		ExternalResultCap: cfg.Engine.ExternalResultCap,
		AreaRadiusMeters:  cfg.Engine.AreaRadiusMeters,
		CityRadiusMeters:  cfg.Engine.CityRadiusMeters,
	}, appMetrics, logger)

	gateway := recommend.NewGateway(aiClient, recommend.GatewayConfig{
		Timeout:         cfg.Engine.ReasoningTimeout,
		MaxOutputTokens: cfg.Engine.MaxOutputTokens,
	}, appMetrics, logger)

	responseCache := recommend.NewResponseCache(cfg.Engine.CacheTTL, appMetrics)

	costGuard := recommend.NewCostGuard(ledgerRepo, recommend.CostGuardConfig{
		DailyCap: cfg.Engine.DailyReasoningCap,
		Location: loc,
	}, appMetrics, logger)

	recommendService := recommend.NewServiceImpl(
		historyRepo,
		profileService,
		builder,
		extractor,
		generator,
		gateway,
		responseCache,
		costGuard,
		recommend.ServiceConfig{
			MaxRecommendations: cfg.Engine.MaxRecommendations,
			PromptCandidateCap: cfg.Engine.PromptCandidateCap,
			Location:           loc,
		},
		appMetrics,
		logger,
	)

	// Initialize HandlerImpls
	recommendHandler := recommend.NewHandler(recommendService, logger)
	historyHandler := history.NewHandler(historyRepo, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		RecommendHandler: recommendHandler,
		HistoryHandler:   historyHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
