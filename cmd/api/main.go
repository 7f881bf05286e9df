package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfront/internal/config"
	"shopfront/internal/database"
	"shopfront/internal/events"
	"shopfront/internal/gateway"
	"shopfront/internal/handler"
	"shopfront/internal/identity"
	"shopfront/internal/media"
	"shopfront/internal/payment"
	"shopfront/internal/promo"
	"shopfront/internal/repository"
	"shopfront/internal/router"
	"shopfront/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shopfront API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)

	// Event bus
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		publisher, err = events.NewSQSPublisher(ctx, cfg.Events, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
	} else {
		logger.Info().Msg("event publishing disabled")
	}

	// Media URL resolution
	resolver := media.NewBaseResolver(cfg.Media.PublicBase)
	if cfg.Media.Enabled {
		resolver, err = media.NewS3Resolver(ctx, cfg.Media, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize media resolver: %w", err)
		}
	}

	// Promo code validation
	var promoValidator promo.Validator
	if cfg.Promo.Enabled {
		fileLoader := promo.NewFileLoader(logger)
		loader := fileLoader
		if cfg.Promo.S3Enabled {
			s3Loader, err := promo.NewS3Loader(ctx, cfg.Promo.S3Bucket, cfg.Promo.S3Region, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to initialise promo S3 loader, using local files only")
			} else {
				loader = promo.NewFallbackLoader(s3Loader, fileLoader, cfg.Promo.S3Prefix, logger)
			}
		}

		promoValidator, err = promo.NewValidator(ctx, promo.ValidatorConfig{FilePaths: cfg.Promo.FilePaths}, loader, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize promo validator: %w", err)
		}
		defer promoValidator.Close()
	} else {
		logger.Info().Msg("promo codes disabled")
	}

	// Payment gateway and reconciler
	gw := gateway.NewStripeGateway(cfg.Gateway, logger)
	reconciler := payment.NewReconciler(orderRepo, cartRepo, gw, publisher, cfg.Gateway.HeuristicFallbacks, logger)

	// Identity provider
	authenticator := identity.NewHTTPAuthenticator(cfg.Auth, logger)

	// Services
	productService := service.NewProductService(productRepo, resolver, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, addressRepo, cartRepo, gw, publisher, promoValidator, cfg.Promo.DiscountBasisPts, logger)
	cartService := service.NewCartService(cartRepo, productRepo, resolver, logger)
	addressService := service.NewAddressService(addressRepo, logger)

	// HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)
	addressHandler := handler.NewAddressHandler(addressService, logger)
	webhookHandler := handler.NewWebhookHandler(reconciler, cfg.Gateway.WebhookSecret, logger)
	adminHandler := handler.NewAdminHandler(reconciler, logger)

	mux := router.New(
		productHandler,
		orderHandler,
		cartHandler,
		addressHandler,
		webhookHandler,
		adminHandler,
		authenticator,
		logger,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
