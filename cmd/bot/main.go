package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iyaskobsp-spec/helpme.bot/internal/audit"
	"github.com/iyaskobsp-spec/helpme.bot/internal/booking"
	"github.com/iyaskobsp-spec/helpme.bot/internal/bot"
	"github.com/iyaskobsp-spec/helpme.bot/internal/config"
	"github.com/iyaskobsp-spec/helpme.bot/internal/events"
	"github.com/iyaskobsp-spec/helpme.bot/internal/metrics"
	"github.com/iyaskobsp-spec/helpme.bot/internal/scheduler"
	"github.com/iyaskobsp-spec/helpme.bot/internal/sheets"
	"github.com/iyaskobsp-spec/helpme.bot/internal/store"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env feeds the ${VAR} placeholders in the YAML config.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("bad timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sheet, err := sheets.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.Credentials, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open spreadsheet error")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	// Browse paths read through the cache; the engine and scheduler keep
	// reading the sheet directly.
	cache := store.NewCache(sheet, cfg.RequestsTTL())
	cache.SetTTL(cfg.Sheets.RequestsTable, cfg.RequestsTTL())
	cache.SetTTL(cfg.Sheets.StoresTable, cfg.StoresTTL())
	if rdb != nil {
		cache.UseRedis(rdb, cfg.StoresTTL())
	}

	bus := events.NewBus()
	if cfg.Monitoring.PrometheusEnabled {
		subscribeMetrics(bus)
	}

	engine := booking.NewEngine(sheet, cfg.Sheets.RequestsTable, cfg.Sheets.AttendanceTable, bus, &logger)
	exporter := audit.NewExporter(sheet, []string{cfg.Sheets.RequestsTable, cfg.Sheets.AttendanceTable}, &logger)

	b, err := bot.New(cfg.Telegram.BotToken, cache, engine, exporter, bot.Options{
		RequestsTable: cfg.Sheets.RequestsTable,
		StoresTable:   cfg.Sheets.StoresTable,
		DaysAhead:     cfg.BookingDaysAhead(),
		TimeStep:      cfg.TimeStep(),
		RemindHour:    cfg.RemindHour(),
		Location:      loc,
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	sched := scheduler.New(sheet, b, scheduler.Config{
		Table:        cfg.Sheets.JobQueueTable,
		CatchupDelay: cfg.CatchupDelay(),
		SendRate:     rate.Limit(cfg.Reminders.SendRate),
		SendBurst:    cfg.Reminders.SendBurst,
	}, bus, &logger)
	b.AttachScheduler(sched)
	defer sched.Stop()

	if _, err := sched.LoadAndRearm(ctx); err != nil {
		logger.Error().Err(err).Msg("jobqueue recovery failed")
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, sheet, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("shift bot started")
	b.Start(ctx)
}

func subscribeMetrics(bus *events.Bus) {
	bus.Subscribe(events.TypeShiftCreated, func(events.Event) error {
		metrics.IncShiftCreated()
		return nil
	})
	bus.Subscribe(events.TypeReservation, func(e events.Event) error {
		metrics.IncReservation(e.Fields["outcome"])
		return nil
	})
	bus.Subscribe(events.TypeShiftConfirmed, func(e events.Event) error {
		metrics.IncManagerDecision(e.Fields["decision"])
		return nil
	})
	bus.Subscribe(events.TypeEventArmed, func(e events.Event) error {
		metrics.IncEventArmed(e.Fields["kind"])
		return nil
	})
	bus.Subscribe(events.TypeEventFired, func(e events.Event) error {
		metrics.IncEventFired(e.Fields["kind"])
		if e.Fields["delivered"] == "false" {
			metrics.IncSendFailure()
		}
		return nil
	})
}

func startHealthServer(ctx context.Context, port int, sheet *sheets.Client, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := sheet.Ping(ctxPing); err != nil {
			http.Error(w, "sheets not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
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

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
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
