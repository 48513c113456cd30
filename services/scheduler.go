package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
)

// Scheduler runs the periodic background sweep: pull challonge results for
// linked tournaments, then refresh placeholder rounds so imported scores
// propagate through the brackets without operator action.
type Scheduler struct {
	scheduler         gocron.Scheduler
	tournamentService TournamentService
	roundService      RoundService
	syncService       SyncService
	logger            *slog.Logger
	interval          time.Duration
}

func NewScheduler(
	tournamentService TournamentService,
	roundService RoundService,
	syncService SyncService,
	logger *slog.Logger,
	interval time.Duration,
) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		scheduler:         sched,
		tournamentService: tournamentService,
		roundService:      roundService,
		syncService:       syncService,
		logger:            logger,
		interval:          interval,
	}, nil
}

func (s *Scheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runSweep),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tournaments, err := s.tournamentService.ListTournaments(ctx)
	if err != nil {
		s.logger.Error("sweep: failed to list tournaments", slog.Any("error", err))
		return
	}

	for _, t := range tournaments {
		if t.Status != models.StatusActive {
			continue
		}
		if t.ChallongeSlug != nil {
			s.syncTournament(ctx, t.Slug)
		}
		s.refreshTournament(ctx, t.Slug)
	}
}

func (s *Scheduler) syncTournament(ctx context.Context, tournamentSlug string) {
	reported, err := s.syncService.SyncResults(ctx, tournamentSlug)
	if err != nil {
		if errors.Is(err, ErrChallongeDisabled) || errors.Is(err, ErrChallongeNotLinked) {
			return
		}
		s.logger.Warn("sweep: challonge sync failed",
			slog.String("tournament", tournamentSlug), slog.Any("error", err))
		return
	}
	if reported > 0 {
		s.logger.Info("sweep: challonge results imported",
			slog.String("tournament", tournamentSlug), slog.Int("reported", reported))
	}
}

// refreshTournament re-runs RefreshRound over every round that can still have
// placeholders. Each call is idempotent, so sweeping all of them is safe.
func (s *Scheduler) refreshTournament(ctx context.Context, tournamentSlug string) {
	for _, phase := range []models.Phase{models.PhaseSwiss, models.PhaseDoubleElim} {
		latest, err := s.roundService.LatestRoundNumber(ctx, tournamentSlug, phase)
		if err != nil {
			s.logger.Warn("sweep: failed to read latest round",
				slog.String("tournament", tournamentSlug), slog.String("phase", string(phase)), slog.Any("error", err))
			continue
		}
		for round := 2; round <= latest; round++ {
			if _, err := s.roundService.RefreshRound(ctx, tournamentSlug, phase, round); err != nil {
				// Waiting on earlier results is the normal state mid-round.
				if errors.Is(err, ErrPreviousRoundNotReported) || errors.Is(err, brackets.ErrNotYetDecidable) {
					continue
				}
				s.logger.Warn("sweep: refresh failed",
					slog.String("tournament", tournamentSlug), slog.String("phase", string(phase)),
					slog.Int("round", round), slog.Any("error", err))
			}
		}
	}
}
