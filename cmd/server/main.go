package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gmalla/backend/internal/ai"
	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/config"
	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/events"
	"github.com/gmalla/backend/internal/geocode"
	"github.com/gmalla/backend/internal/gtask"
	httpapi "github.com/gmalla/backend/internal/http"
	"github.com/gmalla/backend/internal/http/handlers"
	"github.com/gmalla/backend/internal/metrics"
	"github.com/gmalla/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "gmalla-planner").Logger()
	metrics.RegisterDefault()

	ctx := context.Background()
	var checks []handlers.HealthCheck

	source := &erp.Client{
		BaseURL:        cfg.BCBaseURL,
		Company:        cfg.BCCompany,
		APIKey:         cfg.BCAPIKey,
		Username:       cfg.BCUsername,
		Password:       cfg.BCPassword,
		IncidencesPath: cfg.BCIncidencesPath,
		DetailPath:     cfg.BCDetailPath,
		HTTP:           &http.Client{Timeout: cfg.BCTimeout},
	}

	var cache gtask.UserCache = gtask.NewMemoryUserCache(cfg.UsersCacheTTL)
	if cfg.RedisURL != "" {
		rc, err := gtask.NewRedisUserCache(cfg.RedisURL, cfg.UsersCacheTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid redis url")
		}
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, users cache degraded")
		}
		cache = rc
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: rc.Ping})
	}
	directory := gtask.NewClient(cfg.GTaskAPIURL, &http.Client{Timeout: cfg.GTaskTimeout}, cache, logger)
	if cfg.GTaskUsername != "" {
		loginCtx, cancel := context.WithTimeout(ctx, cfg.GTaskTimeout)
		if _, err := directory.Login(loginCtx, cfg.GTaskUsername, cfg.GTaskPassword); err != nil {
			logger.Warn().Err(err).Msg("gtask auto-login failed")
		}
		cancel()
	}

	var solver ai.Solver
	if cfg.LLMBaseURL == "" {
		solver = ai.MockSolver{}
		logger.Info().Msg("using mock solver")
	} else {
		solver = &ai.OpenAICompatSolver{
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			APIKey:  cfg.LLMAPIKey,
			Timeout: cfg.LLMTimeout,
		}
	}

	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
		} else {
			defer rp.Close()
			publisher = rp
		}
	}

	store := calendar.NewStore()
	seedCtx, cancel := context.WithTimeout(ctx, cfg.BCTimeout)
	if tickets, err := source.FetchTickets(seedCtx, nil); err != nil {
		logger.Warn().Err(err).Msg("initial calendar load failed")
	} else {
		logger.Info().Int("assigned", store.Seed(tickets)).Msg("calendar loaded")
	}
	cancel()

	planner := &service.PlanningService{
		Users:     directory,
		Solver:    solver,
		Locator:   geocode.NewDetailLocator(source, cfg.BCDetailRPS, logger),
		Calendar:  store,
		Source:    source,
		Publisher: publisher,
		Config:    cfg.PlanConfig(),
		Logger:    logger,
	}

	router := httpapi.Router(cfg, httpapi.Deps{
		Tickets:  source,
		Users:    directory,
		Planner:  planner,
		Calendar: store,
		Checks:   checks,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
