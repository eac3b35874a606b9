// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"listing-service/internal/config"
	"listing-service/internal/db"
	favoritesHandler "listing-service/internal/handlers/favorites"
	listingHandler "listing-service/internal/handlers/listing"
	lookupHandler "listing-service/internal/handlers/lookup"
	savedSearchHandler "listing-service/internal/handlers/savedsearch"
	wsHandler "listing-service/internal/handlers/websocket"
	"listing-service/internal/middleware"
	"listing-service/internal/pkg/jwt"
	"listing-service/internal/pkg/session"
	"listing-service/internal/repository/marketapi"
	"listing-service/internal/repository/postgres"
	"listing-service/internal/scheduler"
	"listing-service/internal/service/favorites"
	"listing-service/internal/service/listing"
	"listing-service/internal/service/lookup"
	"listing-service/internal/service/savedsearch"
	"listing-service/internal/service/view"
	"listing-service/internal/websocket"
	wsHandlers "listing-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	http    *http.Server
	sweeper *scheduler.Sweeper
	redis   *redis.Client
	pool    *pgxpool.Pool
	cancel  context.CancelFunc
}

func NewServer(logger *zap.Logger) *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Start wires every component and serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	logger := s.logger

	// ----- Redis (optional) -----
	var (
		store     listing.Store = listing.NewMemoryStore(nil)
		blacklist session.Blacklist
	)
	if s.cfg.RedisAddr != "" {
		client, err := db.NewRedisClient(ctx, db.RedisConfig{
			Address:  s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			PoolSize: 10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.redis = client
		store = listing.NewTieredStore(store, listing.NewRedisStore(client, logger))
		blacklist = session.NewRedisBlacklist(client)
		logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))
	} else {
		blacklist = session.NewMemoryBlacklist()
		logger.Info("redis not configured, using in-memory caches")
	}

	// ----- JWT -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- PostgreSQL (optional) -----
	var savedSearches *savedsearch.Service
	if err := checkSavedSearchAuth(s.cfg.DatabaseURL, verifier); err != nil {
		return err
	}
	if s.cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.pool = pool
		repo := postgres.NewSavedSearchRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate saved searches: %w", err)
		}
		savedSearches = savedsearch.NewService(repo, logger)
		logger.Info("postgres connected")
	} else {
		logger.Info("database not configured, saved searches disabled")
	}

	// ----- Marketplace -----
	market := marketapi.New(marketapi.Config{
		BaseURL: s.cfg.MarketAPIBaseURL,
		Timeout: s.cfg.MarketAPITimeout,
		Retries: s.cfg.MarketAPIRetries,
	}, logger)

	fetcher := listing.NewFetcher(market, store, logger, listing.WithTTL(s.cfg.ListingCacheTTL))
	catalog := lookup.NewCatalog(market, s.cfg.CatalogCacheTTL, logger)

	// ----- Sessions & WebSocket hub -----
	// The registry reports rejected credentials to the invalidator, which
	// notifies the hub, which drops the registry's overlay.
	var invalidator *session.Invalidator
	registry := favorites.NewRegistry(market, logger, func(cred session.Credential, cause error) {
		invalidator.Invalidate(context.Background(), cred, cause)
	})
	hub := websocket.NewHub(registry, logger)
	invalidator = session.NewInvalidator(blacklist, hub, s.cfg.LoginURL, logger)

	hub.RegisterHandler(wsHandlers.NewViewHandler(logger))
	go hub.Run(ctx)

	// ----- Cache sweeps -----
	s.sweeper = scheduler.New(s.cfg.CacheSweepSpec, logger)
	s.sweeper.Add("listings", fetcher.Sweep)
	s.sweeper.Add("catalog", func(context.Context) int { return catalog.Sweep() })
	s.sweeper.Add("favorites", registry.Sweep)
	s.sweeper.Add("sessions", invalidator.Sweep)
	if err := s.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache sweeper: %w", err)
	}

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier, invalidator, logger)
	rateLimiter := middleware.NewRateLimiter(s.redis, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSOrigins...),
	)

	// ----- Handlers -----
	handlers := &Handlers{
		ListingHandler:     listingHandler.NewListingHandler(fetcher, registry, s.cfg.ListingPerPage, logger),
		FavoritesHandler:   favoritesHandler.NewFavoritesHandler(registry, logger),
		LookupHandler:      lookupHandler.NewLookupHandler(catalog, logger),
		SavedSearchHandler: savedSearchHandler.NewSavedSearchHandler(savedSearches, logger),
		WSHandler: wsHandler.NewWebSocketHandler(hub, authMiddleware, wsHandler.ViewDeps{
			Fetcher:     fetcher,
			Favorites:   registry,
			Models:      catalog,
			Suggestions: catalog,
			Config: view.Config{
				PerPage:      s.cfg.ListingPerPage,
				QueryDelay:   s.cfg.QueryDebounce,
				URLDelay:     s.cfg.URLDebounce,
				SuggestDelay: s.cfg.SuggestDebounce,
			},
		}, s.cfg.CORSOrigins, logger),
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
		SuggestLimit:   s.cfg.SuggestRateLimit,
		SuggestWindow:  s.cfg.SuggestRateWindow,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// errUnverifiedTokens stops a server that would key its own data by
// identities it cannot verify.
var errUnverifiedTokens = errors.New("saved searches need JWT_PUBLIC_KEY_PATH: identities from unverified tokens can be forged")

func checkSavedSearchAuth(databaseURL string, verifier *jwt.Verifier) error {
	if databaseURL != "" && !verifier.Verified() {
		return errUnverifiedTokens
	}
	return nil
}

// Shutdown stops accepting requests, then stops background work and closes
// the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
