package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"newswire/internal/digest"
	"newswire/internal/notify/broadcast"
	"newswire/internal/notify/filter"
	notifyhandler "newswire/internal/notify/handler"
	notifymetrics "newswire/internal/notify/metrics"
	"newswire/internal/notify/models"
	"newswire/internal/notify/ports"
	historystore "newswire/internal/notify/store/history"
	settingsstore "newswire/internal/notify/store/settings"
	"newswire/internal/platform/config"
	"newswire/internal/platform/events"
	"newswire/internal/platform/httpserver"
	"newswire/internal/platform/logger"
	platformredis "newswire/internal/platform/redis"
	ratelimitconfig "newswire/internal/ratelimit/config"
	ratelimithandler "newswire/internal/ratelimit/handler"
	ratelimitmetrics "newswire/internal/ratelimit/metrics"
	ratelimitmw "newswire/internal/ratelimit/middleware"
	ratelimitports "newswire/internal/ratelimit/ports"
	ratelimitservice "newswire/internal/ratelimit/service"
	windowstore "newswire/internal/ratelimit/store/window"
	httptransport "newswire/internal/transport/http"
	"newswire/internal/transport/stream"
	"newswire/internal/transport/telegram"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shared Redis backs both the rate limit windows and delivery history.
	// Without a configured URL the process runs on in-memory stores, which
	// is only suitable for local development.
	var redisClient *platformredis.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	} else {
		log.Warn("redis not configured, using in-memory stores")
	}

	var windows ratelimitports.WindowStore
	var history ports.HistoryStore
	if redisClient != nil {
		windows = windowstore.NewRedis(redisClient.Client)
		history = historystore.NewRedis(redisClient.Client)
	} else {
		windows = windowstore.NewMemory()
		history = historystore.NewMemory()
	}

	var settings ports.SettingsStore
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		settings = settingsstore.NewPostgres(db)
	} else {
		log.Warn("postgres not configured, using in-memory settings store")
		settings = settingsstore.NewMemory()
	}

	publisher, err := events.New(cfg.Kafka, log)
	if err != nil {
		log.Error("event publisher setup failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	limiter, err := ratelimitservice.New(windows, ratelimitconfig.Default(),
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
		ratelimitservice.WithEventPublisher(publisher),
	)
	if err != nil {
		log.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}

	eligibility, err := filter.New(settings, history,
		filter.WithLogger(log),
		filter.WithEventPublisher(publisher),
	)
	if err != nil {
		log.Error("filter setup failed", "error", err)
		os.Exit(1)
	}

	hub := stream.NewHub(log)
	defer hub.Close()

	var bot ports.BotSender
	tgSender, err := telegram.New(cfg.Telegram, log)
	if err != nil {
		log.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}
	if tgSender != nil {
		bot = tgSender
	} else {
		log.Warn("telegram not configured, bot channel disabled")
		bot = noopBot{}
	}

	coordinator, err := broadcast.New(eligibility, hub, bot,
		broadcast.WithLogger(log),
		broadcast.WithMetrics(notifymetrics.New()),
	)
	if err != nil {
		log.Error("broadcast coordinator setup failed", "error", err)
		os.Exit(1)
	}

	digestSvc, err := digest.New(eligibility, bot, digest.WithLogger(log))
	if err != nil {
		log.Error("digest setup failed", "error", err)
		os.Exit(1)
	}
	if err := digestSvc.Start(cfg.DigestSchedule); err != nil {
		log.Error("digest schedule failed", "error", err)
		os.Exit(1)
	}
	defer digestSvc.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Notify: notifyhandler.New(coordinator, eligibility,
			notifyhandler.WithLogger(log),
			notifyhandler.WithDigestQueue(digestSvc),
		),
		RateLimit: ratelimithandler.New(limiter, log),
		Limiter: ratelimitmw.New(limiter, log,
			ratelimitmw.WithDisabled(cfg.RateLimitDisabled),
		),
		StreamConnect: hub.HandleConnect,
		Health: func() map[string]string {
			status := map[string]string{}
			if redisClient != nil {
				healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := redisClient.Health(healthCtx); err != nil {
					status["redis"] = "unavailable"
				} else {
					status["redis"] = "ok"
				}
			}
			return status
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// noopBot stands in for the bot channel when no Telegram token is configured.
type noopBot struct{}

func (noopBot) SendToUsers(context.Context, []models.Profile, models.Item, models.DeliveryType) ([]ports.SendOutcome, error) {
	return nil, nil
}

func (noopBot) SendDigest(context.Context, models.UserSettings, []models.Item) error {
	return nil
}
