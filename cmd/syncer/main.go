package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inspectsync/internal/config"
	"inspectsync/internal/events"
	"inspectsync/internal/export"
	"inspectsync/internal/google"
	"inspectsync/internal/journal"
	"inspectsync/internal/kvstore"
	"inspectsync/internal/metrics"
	"inspectsync/internal/notify"
	"inspectsync/internal/snapshot"
	"inspectsync/internal/syncer"
)

// pinger is satisfied by dependencies checked by /readyz.
type pinger interface {
	PingContext(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SYNC_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []pinger
	routes := make(map[string]http.Handler)
	limiter := kvstore.NewLimiter(cfg.Upstash.RateLimitPerSecond, cfg.Upstash.RateLimitBurst)
	var exec kvstore.Executor
	if cfg.Redis.Address != "" {
		redisExec := kvstore.NewRedisExecutor(kvstore.NewRedisClient(cfg.Redis))
		redisExec.UseLimiter(limiter)
		defer redisExec.Close()
		checks = append(checks, pingFunc(redisExec.Ping))
		exec = redisExec
		logger.Info().Str("address", cfg.Redis.Address).Msg("using Redis protocol")
	} else {
		restExec := kvstore.NewRESTExecutor(cfg.Upstash.URL, cfg.Upstash.Token, cfg.HTTPTimeout())
		restExec.UseLimiter(limiter)
		exec = restExec
	}

	store := kvstore.NewStore(exec, cfg.Sync.ListKey, cfg.Sync.RecordPrefix, &logger)
	bus := events.NewEventBus(&logger)

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("open journal error")
		}
		defer j.Close()
		j.Subscribe(bus)
		checks = append(checks, j)
		routes["/changes"] = j.ChangesHandler(&logger)
	}

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.ChatIDs) > 0 {
		bot, err := notify.NewTelegramBot(cfg.Telegram.BotToken, "", cfg.Telegram.Debug)
		if err != nil {
			logger.Fatal().Err(err).Msg("create bot error")
		}
		notify.NewTelegramNotifier(bot, cfg.Telegram.ChatIDs).Subscribe(bus)
		logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	}

	var mirrors []syncer.Mirror
	if cfg.Exports.XLSXPath != "" {
		mirrors = append(mirrors, export.NewXLSXMirror(cfg.Exports.XLSXPath))
	}
	if cfg.Google.SpreadsheetID != "" {
		sheetsMirror, err := google.NewSheetsMirror(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.SheetName)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets mirror error")
		}
		if err := sheetsMirror.TestConnection(ctx); err != nil {
			logger.Warn().Err(err).Msg("google sheets not reachable yet")
		}
		mirrors = append(mirrors, sheetsMirror)
	}

	var m *metrics.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		m = metrics.New("inspectsync", nil)
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	s := syncer.New(store, syncer.Options{
		SnapshotPath: cfg.Sync.SnapshotPath,
		Backup:       snapshot.NewBackupService(cfg.Sync.SnapshotPath, cfg.Backup, &logger),
		Bus:          bus,
		Mirrors:      mirrors,
		Metrics:      m,
	}, &logger)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, s, checks, routes, &logger)

	syncer.NewPoller(s, cfg.PollInterval(), &logger).Run(ctx)
}

func startHealthServer(ctx context.Context, port int, s *syncer.Syncer, checks []pinger, routes map[string]http.Handler, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.LastSuccess().IsZero() {
			http.Error(w, "no completed sync yet", http.StatusServiceUnavailable)
			return
		}
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.PingContext(ctxPing); err != nil {
				http.Error(w, "dependency not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
