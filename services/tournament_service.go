package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

// TournamentSummary is the one-call overview of a tournament: teams,
// per-phase standings and round progress, and how many playable matches are
// still waiting for a score.
type TournamentSummary struct {
	Tournament                *models.Tournament                 `json:"tournament"`
	Standings                 map[models.Phase][]models.Standing `json:"standings"`
	LatestRounds              map[models.Phase]int               `json:"latest_rounds"`
	LatestFullyReportedRounds map[models.Phase]int               `json:"latest_fully_reported_rounds"`
	UnreportedCount           int                                `json:"unreported_count"`
}

type TournamentService interface {
	// EnsureTournament returns the tournament named by the given display
	// name, creating it on first reference.
	EnsureTournament(ctx context.Context, name string) (*models.Tournament, error)
	GetTournament(ctx context.Context, tournamentSlug string) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, tournamentSlug string, status models.TournamentStatus) (*models.Tournament, error)
	LinkChallonge(ctx context.Context, tournamentSlug string, challongeSlug *string) (*models.Tournament, error)
	GetSummary(ctx context.Context, tournamentSlug string) (*TournamentSummary, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
	}
}

func (s *tournamentService) EnsureTournament(ctx context.Context, name string) (*models.Tournament, error) {
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	tournamentSlug := slug.Make(name)
	if tournamentSlug == "" {
		return nil, ErrTournamentNameRequired
	}

	existing, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, fmt.Errorf("failed to look up tournament %q: %w", tournamentSlug, err)
	}

	tournament := &models.Tournament{
		Slug:   tournamentSlug,
		Name:   name,
		Status: models.StatusRegistration,
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		// Two first references can race; the loser reads the winner's row.
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			return s.GetTournament(ctx, tournamentSlug)
		}
		return nil, fmt.Errorf("failed to create tournament %q: %w", tournamentSlug, err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentSlug string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	tournament.Teams = pool
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, tournamentSlug string, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.StatusRegistration, models.StatusActive, models.StatusCompleted:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}
	if tournament.Status == status {
		return tournament, nil
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournamentSlug, status); err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	tournament.Status = status
	return tournament, nil
}

func (s *tournamentService) LinkChallonge(ctx context.Context, tournamentSlug string, challongeSlug *string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	if challongeSlug != nil && *challongeSlug == "" {
		challongeSlug = nil
	}
	if err := s.tournamentRepo.UpdateChallongeSlug(ctx, nil, tournamentSlug, challongeSlug); err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	tournament.ChallongeSlug = challongeSlug
	return tournament, nil
}

func (s *tournamentService) GetSummary(ctx context.Context, tournamentSlug string) (*TournamentSummary, error) {
	var (
		tournament *models.Tournament
		pool       []models.Team
		history    []models.Match
		unreported []models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetBySlug(gctx, nil, tournamentSlug)
		if err != nil {
			return mapTournamentRepositoryError(err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		teams, err := s.teamRepo.GetTeamPool(gctx, nil, tournamentSlug)
		if err != nil {
			return fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
		}
		pool = teams
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.GetMatchHistory(gctx, nil, tournamentSlug, nil)
		if err != nil {
			return fmt.Errorf("failed to load match history for %q: %w", tournamentSlug, err)
		}
		history = matches
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListUnreported(gctx, nil, tournamentSlug)
		if err != nil {
			return fmt.Errorf("failed to list unreported matches for %q: %w", tournamentSlug, err)
		}
		unreported = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.Teams = pool
	summary := &TournamentSummary{
		Tournament:                tournament,
		Standings:                 make(map[models.Phase][]models.Standing),
		LatestRounds:              make(map[models.Phase]int),
		LatestFullyReportedRounds: make(map[models.Phase]int),
		UnreportedCount:           len(unreported),
	}

	for _, phase := range []models.Phase{models.PhaseSwiss, models.PhaseRoundRobin, models.PhaseDoubleElim} {
		var phaseHistory []models.Match
		for _, m := range history {
			if m.Phase == phase {
				phaseHistory = append(phaseHistory, m)
			}
		}
		if len(phaseHistory) == 0 {
			continue
		}

		standings := brackets.ComputeStandings(pool, phaseHistory)
		attachStandingTeams(standings, pool)
		summary.Standings[phase] = standings
		summary.LatestRounds[phase] = latestRoundOf(phaseHistory)
		summary.LatestFullyReportedRounds[phase] = latestFullyReportedRoundOf(phaseHistory)
	}

	return summary, nil
}

// latestRoundOf returns the highest round number present in the matches.
func latestRoundOf(matches []models.Match) int {
	latest := 0
	for _, m := range matches {
		if m.Round > latest {
			latest = m.Round
		}
	}
	return latest
}

// latestFullyReportedRoundOf returns the highest round whose matches are all
// reported, or 0 when no round qualifies.
func latestFullyReportedRoundOf(matches []models.Match) int {
	unreportedByRound := make(map[int]int)
	for _, m := range matches {
		if !m.Reported {
			unreportedByRound[m.Round]++
		} else if _, ok := unreportedByRound[m.Round]; !ok {
			unreportedByRound[m.Round] = 0
		}
	}
	latest := 0
	for round, unreportedCount := range unreportedByRound {
		if unreportedCount == 0 && round > latest {
			latest = round
		}
	}
	return latest
}

func mapTournamentRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentSlugConflict):
		return ErrTournamentSlugConflict
	default:
		return err
	}
}
