package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TeninChristopher/SAM/internal/adapter/marketapi"
	"github.com/TeninChristopher/SAM/internal/adapter/memory"
	mongoadapter "github.com/TeninChristopher/SAM/internal/adapter/mongo"
	natsadapter "github.com/TeninChristopher/SAM/internal/adapter/nats"
	redisadapter "github.com/TeninChristopher/SAM/internal/adapter/redis"
	"github.com/TeninChristopher/SAM/internal/app/config"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	httpserver "github.com/TeninChristopher/SAM/internal/port/http"
	"github.com/TeninChristopher/SAM/internal/port/http/handler"
	"github.com/TeninChristopher/SAM/internal/port/http/middleware"
	"github.com/TeninChristopher/SAM/internal/port/http/router"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const evictionInterval = time.Minute

type App struct {
	cfg           *config.Config
	log           logger.Logger
	server        *httpserver.Server
	metricsServer *nethttp.Server
	views         *service.CartViews
	sessions      *service.CheckoutSessions
	mongoClient   *mongo.Client
	redisClient   *redis.Client
	natsConn      *nats.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logCfg := logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	}
	appLogger, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s, Signals: %s", cfg.Env, cfg.HTTPServer.Port, cfg.Signals.Driver)

	metricsManager := metrics.NewMetricsManager(cfg.Metrics.ServiceName)
	metricsServer := metrics.NewMetricsServer(cfg.Metrics.Port, metricsManager.Registry)

	marketClient, err := marketapi.NewClient(marketapi.Config{
		BaseURL:         cfg.MarketAPI.BaseURL,
		Timeout:         cfg.MarketAPI.Timeout,
		BreakerFailures: cfg.MarketAPI.BreakerFailures,
		BreakerCooldown: cfg.MarketAPI.BreakerCooldown,
	}, appLogger, metricsManager)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market API client: %w", err)
	}
	appLogger.Infof("Market API client initialized: %s", cfg.MarketAPI.BaseURL)

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		_ = redisClient.Close()
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	signals, natsConn, err := newSignalBus(cfg, redisClient, appLogger)
	if err != nil {
		_ = redisClient.Close()
		_ = mongoClient.Disconnect(ctx)
		return nil, err
	}

	journal := mongoadapter.NewJournalRepository(mongoClient, cfg.MongoDB)
	carts := marketapi.NewCartRepository(marketClient)

	ledger := service.NewInventoryLedger(marketapi.NewProductRepository(marketClient), appLogger.With("component", "ledger"))
	catalog := service.NewListingCatalog(
		marketapi.NewListingRepository(marketClient),
		ledger,
		marketapi.NewCropPriceFeed(marketClient),
		redisadapter.NewCropPriceCacheRepository(redisClient),
		appLogger.With("component", "catalog"),
		metricsManager,
		service.CatalogConfig{
			FallbackBasePrice: cfg.Catalog.FallbackBasePrice,
			PriceCacheTTL:     cfg.Catalog.PriceCacheTTL,
			MaxPrice:          cfg.Catalog.MaxPrice,
		},
	)
	views := service.NewCartViews(carts, catalog, signals, journal, appLogger.With("component", "cart"), metricsManager)
	sessions := service.NewCheckoutSessions(carts, catalog, journal, appLogger.With("component", "checkout"), metricsManager)
	appLogger.Info("Storefront services initialized")

	resolver := middleware.NewSessionResolver(marketapi.NewAccountDirectory(marketClient))
	mux := router.New(router.Handlers{
		Inventory: handler.NewInventoryHandler(ledger, appLogger),
		Market:    handler.NewMarketHandler(catalog, ledger, appLogger),
		Cart:      handler.NewCartHandler(views, appLogger),
		Checkout:  handler.NewCheckoutHandler(views, sessions, service.NewSelectionBuilder(appLogger), catalog, journal, appLogger),
	}, middleware.JWTAuth(cfg.Auth.JWTSecret, resolver, appLogger), appLogger)

	httpSrv := httpserver.NewServer(
		appLogger,
		cfg.HTTPServer.Port,
		cfg.HTTPServer.ReadTimeout,
		cfg.HTTPServer.WriteTimeout,
		cfg.HTTPServer.IdleTimeout,
		cfg.HTTPServer.TimeoutGraceful,
		mux,
	)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:           cfg,
		log:           appLogger,
		server:        httpSrv,
		metricsServer: metricsServer,
		views:         views,
		sessions:      sessions,
		mongoClient:   mongoClient,
		redisClient:   redisClient,
		natsConn:      natsConn,
	}, nil
}

// newSignalBus picks the cart signal transport. The NATS connection is
// returned so it can be drained on shutdown.
func newSignalBus(cfg *config.Config, redisClient *redis.Client, log logger.Logger) (repository.CartSignalBus, *nats.Conn, error) {
	switch strings.ToLower(cfg.Signals.Driver) {
	case "nats":
		log.Info("Connecting to NATS...")
		conn, err := natsadapter.NewConnection(cfg.NATS, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize NATS connection: %w", err)
		}
		bus, err := natsadapter.NewCartSignalBus(conn, log)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to initialize NATS cart signal bus: %w", err)
		}
		log.Info("Cart signals go through NATS")
		return bus, conn, nil
	case "redis":
		log.Info("Cart signals go through Redis pub/sub")
		return redisadapter.NewCartSignalBus(redisClient, log), nil, nil
	case "memory":
		log.Warn("Cart signals stay in process; views in other instances will not be notified")
		return memory.NewSignalBus(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown signals driver %q", cfg.Signals.Driver)
	}
}

// evictIdle closes cart views and drops checkouts nobody touched for idle.
func (a *App) evictIdle(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.views.Evict(idle)
			a.sessions.Evict(idle)
		}
	}
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go metrics.StartMetricsServer(a.metricsServer, a.log)

	evictCtx, stopEviction := context.WithCancel(context.Background())
	defer stopEviction()
	if a.cfg.Cart.IdleViewTTL > 0 {
		go a.evictIdle(evictCtx, a.cfg.Cart.IdleViewTTL)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	stopEviction()
	if err := a.views.Close(); err != nil {
		a.log.Errorf("Error closing cart views: %v", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down metrics server: %v", err)
		}
	}

	a.log.Info("Closing connections...")

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		} else {
			a.log.Info("NATS connection drained")
		}
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
}
