package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"ticket-engine/config"
	"ticket-engine/internal/marketplace"
	"ticket-engine/internal/readmodel"
	"ticket-engine/services"
	"ticket-engine/utils"
)

// Start wires the engine daemon: redis-backed read model, marketplace
// client, transaction watcher and the health/metrics listener.
func Start() error {
	cfg := config.LoadConfig()

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var pn *pubnub.PubNub
	if cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		slog.Warn("pubnub subscribe key not set, relying on deadline re-fetches only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := marketplace.NewClient(&marketplace.ClientConfig{
		BaseURL:  cfg.BackendBaseURL,
		APIToken: cfg.BackendAPIToken,
		Timeout:  cfg.BackendTimeout,
	})
	snapshots := readmodel.NewStore(redisClient, cfg.SnapshotTTL)

	transactionService := services.NewTransactionService(api, snapshots, redisClient)
	watchService, err := services.NewWatchService(transactionService, snapshots, pn, cfg.TransactionChannel, cfg.WatchGrace)
	if err != nil {
		return err
	}

	watchService.Start(ctx)
	defer watchService.Shutdown()

	// transactions that were pending when the engine last ran
	go watchService.Restore(ctx)

	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	if cfg.EnableMetrics {
		e.GET("/metrics", func(c echo.Context) error {
			promhttp.Handler().ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: e,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("engine listening", "port", cfg.MetricsPort, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// returning on a listener error (instead of exiting in the goroutine)
	// lets the deferred redis close and watcher shutdown run
	if err := waitForExit(serveErr, quit); err != nil {
		return err
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// waitForExit blocks until the listener fails or a shutdown signal arrives.
// A nil return means a signal asked for a graceful stop.
func waitForExit(serveErr <-chan error, quit <-chan os.Signal) error {
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
		return nil
	}
}
