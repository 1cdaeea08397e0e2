package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/networth-backend/internal/adapter/api"
	grpcadapter "github.com/simaogato/networth-backend/internal/adapter/grpc"
	"github.com/simaogato/networth-backend/internal/adapter/pricesource/yahoo"
	"github.com/simaogato/networth-backend/internal/adapter/repository/memory"
	"github.com/simaogato/networth-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/networth-backend/internal/adapter/repository/record"
	"github.com/simaogato/networth-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/networth-backend/internal/config"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/logger"
	"github.com/simaogato/networth-backend/internal/usecase/display"
	"github.com/simaogato/networth-backend/internal/usecase/pricing"
	"github.com/simaogato/networth-backend/internal/usecase/section"
	"github.com/simaogato/networth-backend/internal/usecase/snapshot"
	"github.com/simaogato/networth-backend/internal/usecase/transfer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Env)
	defer log.Sync()

	// 2. Setup storage
	ctx := context.Background()
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalw("Failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	log.Infow("Storage ready", "driver", cfg.Storage.Driver)

	// 3. Initialize Repositories
	sectionRepo := record.NewSectionRepository(store, log)
	snapshotRepo := record.NewSnapshotRepository(store, log)
	priceCacheRepo := record.NewPriceCacheRepository(store, log)

	// 4. Initialize Services (Use Cases)
	sources := []domain.PriceSource{yahoo.NewClient(cfg.Prices.BaseURL, cfg.Prices.Timeout)}
	if cfg.Prices.ProxyURL != "" {
		sources = append(sources, yahoo.NewProxiedClient(cfg.Prices.BaseURL, cfg.Prices.ProxyURL, cfg.Prices.Timeout))
	}
	pricingService := pricing.NewPricingService(priceCacheRepo, sources, log)
	pricingService.LatestTTL = cfg.Prices.LatestTTL

	sectionService := section.NewSectionService(sectionRepo, pricingService, log)
	snapshotService := snapshot.NewSnapshotService(snapshotRepo, sectionService, pricingService, log)
	displayService := display.NewDisplayService(snapshotRepo, sectionService)
	transferService := transfer.NewTransferService(sectionService, snapshotRepo, log)

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)
	grpcadapter.RegisterNetWorthServiceServer(grpcServer, grpcadapter.NewServer(
		displayService, sectionService, snapshotService, pricingService, transferService,
	))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalw("Failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
	}
	go func() {
		log.Infow("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalw("Failed to serve gRPC server", "error", err)
		}
	}()

	// 6. Start HTTP Server
	handler := api.NewApiHandler(
		displayService, sectionService, snapshotService, pricingService, transferService,
		cfg.Server.APIToken, log,
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to serve HTTP server", "error", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(log, grpcServer, httpServer)
}

// openStore opens the key-value store selected by the storage driver.
// The returned closer is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (domain.KeyValueStore, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.NewKeyValueStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
		return postgres.NewKeyValueStore(db), db, nil
	default:
		return memory.NewKeyValueStore(), nil, nil
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down both servers
func waitForShutdown(log *zap.SugaredLogger, grpcServer *grpclib.Server, httpServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Infow("Shutting down gracefully", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warnw("HTTP server shutdown", "error", err)
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")
}
