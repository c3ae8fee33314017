package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/avi-itinerary/internal/config"
	"github.com/cx-tal-miterani/avi-itinerary/internal/events"
	"github.com/cx-tal-miterani/avi-itinerary/internal/geo"
	"github.com/cx-tal-miterani/avi-itinerary/internal/handlers"
	"github.com/cx-tal-miterani/avi-itinerary/internal/logger"
	"github.com/cx-tal-miterani/avi-itinerary/internal/notifier"
	"github.com/cx-tal-miterani/avi-itinerary/internal/persistence"
	"github.com/cx-tal-miterani/avi-itinerary/internal/render"
	"github.com/cx-tal-miterani/avi-itinerary/internal/router"
	"github.com/cx-tal-miterani/avi-itinerary/internal/service"
	"github.com/cx-tal-miterani/avi-itinerary/internal/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const geocoderUserAgent = "avi-itinerary/1.0"

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	local, closeStore, err := openStore(cfg)
	if err != nil {
		zlog.Fatal("Failed to open local store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	remote := persistence.NewRemoteClient(cfg.RoteiroAPIURL, cfg.SyncTimeout)
	adapter := persistence.NewAdapter(remote, local, zlog)

	bus := events.NewBus()
	transcript := notifier.NewMemoryTranscript(cfg.TranscriptLimit)

	var svc service.ItineraryService
	hub := websocket.NewHub(zlog, func() render.View { return svc.View() })
	go hub.Run()

	svc = service.NewItineraryService(adapter, bus, zlog, service.Config{
		SaveTimeout:  cfg.SyncTimeout,
		OnViewChange: hub.BroadcastView,
	})
	notifier.New(zlog, transcript, hub).Attach(bus)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), cfg.SyncTimeout)
	source := svc.Bootstrap(bootCtx)
	cancelBoot()
	zlog.Info("Itinerary loaded", zap.String("source", string(source)))

	locator := geo.NewCachedLocator(
		geo.NewNominatimClient(cfg.GeocoderURL, geocoderUserAgent, cfg.SyncTimeout),
		cfg.GeocoderCacheTTL,
		zlog,
	)

	h := handlers.NewHandler(svc, locator, transcript, zlog)
	r := router.SetupRouter(h, hub.ServeWS, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		Logger:         zlog,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("API Server starting",
			zap.String("port", cfg.Port),
			zap.String("roteiro_api", cfg.RoteiroAPIURL),
			zap.String("store", cfg.Store),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	// pending remote saves still get their chance before exit
	if err := svc.Flush(ctx); err != nil {
		zlog.Warn("Pending saves did not finish", zap.Error(err))
	}

	zlog.Info("Server stopped")
}

func openStore(cfg *config.Config) (persistence.KeyValueStore, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case config.StoreMemory:
		return persistence.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return persistence.NewRedisStore(client, cfg.RedisPrefix, 0), func() { client.Close() }, nil
	default:
		store, err := persistence.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
}
