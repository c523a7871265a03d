package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/stitchpress/api/internal/cart"
	"github.com/stitchpress/api/internal/handlers"
	"github.com/stitchpress/api/internal/platform/config"
	pfirestore "github.com/stitchpress/api/internal/platform/firestore"
	"github.com/stitchpress/api/internal/platform/observability"
	"github.com/stitchpress/api/internal/repositories"
	firestoreRepo "github.com/stitchpress/api/internal/repositories/firestore"
	"github.com/stitchpress/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	garmentRepo, err := firestoreRepo.NewGarmentRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise garment repository", zap.Error(err))
	}
	designRepo, err := firestoreRepo.NewDesignRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise design repository", zap.Error(err))
	}
	customizationRepo, err := firestoreRepo.NewCustomizationRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise customization repository", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Garments: garmentRepo,
		Designs:  designRepo,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	designService, err := services.NewDesignService(services.DesignServiceDeps{
		Designs:  designRepo,
		Garments: garmentRepo,
	})
	if err != nil {
		logger.Fatal("failed to initialise design service", zap.Error(err))
	}
	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Garments: garmentRepo,
		Designs:  designRepo,
		Currency: cfg.Catalog.Currency,
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}
	customizationService, err := services.NewCustomizationService(services.CustomizationServiceDeps{
		Customizations: customizationRepo,
		Garments:       garmentRepo,
		Designs:        designRepo,
		Pricing:        pricingEngine,
	})
	if err != nil {
		logger.Fatal("failed to initialise customization service", zap.Error(err))
	}

	cartDispatcher := newCartDispatcher(logger.Named("cart"), cfg.Cart)

	selectionEngine, err := services.NewSelectionEngine(services.SelectionEngineDeps{
		Garments:       garmentRepo,
		Designs:        designRepo,
		Pricing:        pricingEngine,
		Customizations: customizationService,
		Cart:           cartDispatcher,
		Logger:         logger.Named("selection"),
		SessionTTL:     cfg.Selection.SessionTTL,
		SweepInterval:  cfg.Selection.SweepInterval,
	})
	if err != nil {
		logger.Fatal("failed to initialise selection engine", zap.Error(err))
	}
	defer selectionEngine.Close()

	systemService, err := newSystemService(firestoreClient)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(cfg.Firestore.ProjectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(systemService)),
		handlers.WithGarmentRoutes(handlers.NewGarmentHandlers(catalogService, designService).Routes),
		handlers.WithDesignRoutes(handlers.NewDesignHandlers(designService).Routes),
		handlers.WithCustomizationRoutes(handlers.NewCustomizationHandlers(customizationService).Routes),
		handlers.WithSessionRoutes(handlers.NewSessionHandlers(selectionEngine).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("stitchpress api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCartDispatcher returns the HTTP cart client when an endpoint is
// configured, and a log-only dispatcher otherwise so local development
// works without a storefront.
func newCartDispatcher(logger *zap.Logger, cfg config.CartConfig) services.CartDispatcher {
	if cfg.Endpoint == "" {
		logger.Warn("cart endpoint not configured; handoffs will be logged only")
		return cart.NewLoggingDispatcher(logger)
	}
	client, err := cart.NewClient(cart.ClientConfig{
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
		Quantity: cfg.Quantity,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("cart client init failed; handoffs will be logged only", zap.Error(err))
		return cart.NewLoggingDispatcher(logger)
	}
	return client
}

func newSystemService(client *firestore.Client) (services.SystemService, error) {
	if client == nil {
		return nil, errors.New("health: firestore client is required")
	}
	checks := []repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := client.Collections(ctx)
				if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	}
	repo, err := repositories.NewHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{Health: repo})
}
