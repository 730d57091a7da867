package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"autostudio/internal/adapter/repo"
	"autostudio/internal/domain"
	"autostudio/internal/infra"
	"autostudio/internal/jobs"
	"autostudio/internal/provider"
)

// sweeper re-polls in-flight jobs whose last transition is older than the
// configured window. It covers the path where a provider webhook never
// arrives: the poll gateway runs the same transition logic, so a swept job
// ends up exactly where a webhook would have put it.
type sweeper struct {
	ctx        context.Context
	repo       domain.JobRepository
	gateway    *jobs.PollGateway
	logger     zerolog.Logger
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconciler: db connection failed")
	}
	defer pool.Close()

	providerClient := provider.NewClient(provider.Options{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Timeout: cfg.ProviderTimeout,
	})

	jobRepo := repo.NewJobRepository(pool)
	applier := jobs.NewApplier(jobRepo, logger)
	gateway := jobs.NewPollGateway(jobRepo, providerClient, applier, logger)

	s := &sweeper{
		ctx:        ctx,
		repo:       jobRepo,
		gateway:    gateway,
		logger:     logger,
		interval:   cfg.ReconcileInterval,
		staleAfter: cfg.ReconcileStaleAfter,
		batchSize:  cfg.ReconcileBatchSize,
	}

	if err := s.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("reconciler: stopped with error")
	}
	logger.Info().Msg("reconciler: stopped")
}

func (s *sweeper) Run() error {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("stale_after", s.staleAfter).
		Msg("reconciler: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *sweeper) sweep() {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	stale, err := s.repo.ListInFlightBefore(s.ctx, cutoff, s.batchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("reconciler: listing stale jobs failed")
		return
	}
	if len(stale) == 0 {
		return
	}
	s.logger.Info().Int("count", len(stale)).Msg("reconciler: sweeping stale jobs")

	for _, job := range stale {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		view, err := s.gateway.Poll(s.ctx, job.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("reconciler: poll failed")
			continue
		}
		if view.Stale {
			s.logger.Warn().Str("job_id", job.ID).Msg("reconciler: provider unreachable, job left as-is")
			continue
		}
		if view.Job.State != job.State {
			s.logger.Info().
				Str("job_id", job.ID).
				Str("from", string(job.State)).
				Str("to", string(view.Job.State)).
				Msg("reconciler: job advanced by sweep")
		}
	}
}
