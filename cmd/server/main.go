package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"entrepeques/internal/agenda"
	"entrepeques/internal/config"
	"entrepeques/internal/infra"
	"entrepeques/internal/middleware"
	"entrepeques/internal/pricing"
	"entrepeques/internal/router"
	"entrepeques/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title                       Entrepeques API
// @version                     1.0
// @description                 Valuación de artículos usados y agenda de citas de compra.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in prod
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	policy, err := pricing.LoadPolicy(cfg.PricingPolicyPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PricingPolicyPath).Msg("invalid pricing policy")
	}
	cal, err := agenda.NewCalendario(cfg.Agenda())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid appointment calendar")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Email delivery runs in the background: bookings and closed valuations
	// only enqueue, the pool sends through the SMTP circuit breaker.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	smtpCB := worker.NewMailBreaker()
	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)

	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobEmail: worker.NewEmailWorker(mailer, smtpCB),
	})
	pool.Start(ctx, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, rdb, smtpCB, worker.QueueEmail)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit, 20)
	limiter.StartPurge(ctx.Done())

	r := router.New(cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		Calculator: pricing.NewCalculator(policy),
		Calendario: cal,
		Notifier:   dispatcher,
		Limiter:    limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().
			Str("policy", policy.Version).
			Str("tz", cal.Zona.String()).
			Msgf("Entrepeques API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	log.Info().Msg("server exited")
}
