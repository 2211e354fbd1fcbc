package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/syncroom/player/internal/controller"
	"github.com/syncroom/player/internal/engine/autoplay"
	"github.com/syncroom/player/internal/engine/session"
	"github.com/syncroom/player/internal/engine/volume"
	volumeInmemory "github.com/syncroom/player/internal/repository/volume/inmemory"
	volumeRedis "github.com/syncroom/player/internal/repository/volume/redis"
	"github.com/syncroom/player/pkg/ctxlogger"
	"github.com/syncroom/player/pkg/redisclient"
)

type AppConfig struct {
	ServerURL string `json:"server_url"`
	PlayerId  string `json:"player_id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	LogLevel  string `json:"log_level"`

	TickIntervalMs   int `json:"tick_interval_ms"`
	DriftThresholdMs int `json:"drift_threshold_ms"`
	GracePeriodMs    int `json:"grace_period_ms"`

	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if cfg.PlayerId == "" {
		return fmt.Errorf("player id is required")
	}
	if cfg.TickIntervalMs < 500 {
		return fmt.Errorf("tick interval must be at least 500ms")
	}
	return nil
}

type volumeStore interface {
	GetLevel(ctx context.Context) (int, error)
	SetLevel(ctx context.Context, level int) error
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	var store volumeStore
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(&redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		store = volumeRedis.NewRepo(rc, cfg.PlayerId, 24*14*time.Hour)
	} else {
		logger.Info("no redis configured, volume will not survive restarts")
		store = volumeInmemory.NewRepo()
	}

	channel := controller.NewChannel(cfg.ServerURL, logger)

	volumeCtrl := volume.NewController(ctx, volume.DefaultConfig(), store, logger)

	// The tap-to-unmute affordance renders in the shell; the gate only
	// decides when it should be visible.
	gate := autoplay.NewGate(volumeCtrl, func(visible bool) {
		messageType := "HIDE_OVERLAY"
		if visible {
			messageType = "SHOW_OVERLAY"
		}
		if err := channel.Send(messageType, struct{}{}); err != nil {
			logger.Debug("failed to send overlay signal", "err", err)
		}
	}, logger)

	bridge := controller.NewBridge(channel, logger)
	reporter := controller.NewReporter(channel, logger)

	engineCfg := session.DefaultConfig()
	if cfg.TickIntervalMs > 0 {
		engineCfg.TickInterval = time.Duration(cfg.TickIntervalMs) * time.Millisecond
	}
	if cfg.DriftThresholdMs > 0 {
		engineCfg.DriftThreshold = time.Duration(cfg.DriftThresholdMs) * time.Millisecond
	}
	if cfg.GracePeriodMs > 0 {
		engineCfg.GracePeriod = time.Duration(cfg.GracePeriodMs) * time.Millisecond
	}

	engine := session.NewController(engineCfg, bridge, reporter, gate, volumeCtrl, logger)

	ctrl := controller.NewController(engine, volumeCtrl, gate, bridge, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.Mux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	go func() {
		if err := engine.Run(serverCtx); err != nil && err != context.Canceled {
			logger.Error("engine stopped", "err", err)
		}
	}()
	go func() {
		if err := channel.Run(serverCtx, ctrl.WSRouter()); err != nil && err != context.Canceled {
			logger.Error("channel stopped", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting control surface", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
