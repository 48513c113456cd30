package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

// RoundView is one round of one phase with its matches in position order.
type RoundView struct {
	TournamentSlug string         `json:"tournament_slug"`
	Phase          models.Phase   `json:"phase"`
	Round          int            `json:"round"`
	Matches        []models.Match `json:"matches"`
}

type RoundService interface {
	// CreateRounds appends the next count rounds of the phase, starting right
	// after the latest existing round. The first round of a phase comes back
	// with concrete pairings; later swiss and bracket rounds are committed as
	// placeholders for RefreshRound to fill. A fixed-depth bracket stops
	// early instead of failing once at least one round was created.
	CreateRounds(ctx context.Context, tournamentSlug string, phase models.Phase, count int) ([]RoundView, error)

	// CreateRound creates exactly the given round number, which must extend
	// the phase by one.
	CreateRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error)

	// RefreshRound fills the round's still-empty placeholders from results
	// reported so far. Filling nothing is a normal outcome.
	RefreshRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error)

	GetRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error)
	GetStandings(ctx context.Context, tournamentSlug string, phase *models.Phase) ([]models.Standing, error)

	RoundExists(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (bool, error)
	RoundFullyReported(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (bool, error)
	LatestRoundNumber(ctx context.Context, tournamentSlug string, phase models.Phase) (int, error)
	LatestFullyReportedRoundNumber(ctx context.Context, tournamentSlug string, phase models.Phase) (int, error)
}

type roundService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	hub            *brackets.Hub
	generators     map[models.Phase]brackets.RoundGenerator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRoundService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	hub *brackets.Hub,
) RoundService {
	return &roundService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		hub:            hub,
		generators: map[models.Phase]brackets.RoundGenerator{
			models.PhaseSwiss:      brackets.NewSwissGenerator(),
			models.PhaseRoundRobin: brackets.NewRoundRobinGenerator(),
			models.PhaseDoubleElim: brackets.NewDoubleElimGenerator(),
		},
		locks: make(map[string]*sync.Mutex),
	}
}

// phaseLock returns the mutex serializing round creation and advancement for
// one (tournament, phase). Distinct pairs never contend.
func (s *roundService) phaseLock(tournamentSlug string, phase models.Phase) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tournamentSlug + "/" + string(phase)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *roundService) CreateRounds(ctx context.Context, tournamentSlug string, phase models.Phase, count int) ([]RoundView, error) {
	if count < 1 {
		return nil, ErrInvalidRoundNumber
	}
	gen, ok := s.generators[phase]
	if !ok {
		return nil, ErrInvalidPhase
	}

	lock := s.phaseLock(tournamentSlug, phase)
	lock.Lock()
	defer lock.Unlock()

	pool, seeding, err := s.loadGeneratorInput(ctx, tournamentSlug)
	if err != nil {
		return nil, err
	}
	latest, err := s.matchRepo.LatestRoundNumber(ctx, nil, tournamentSlug, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest round of %s/%s: %w", tournamentSlug, phase, err)
	}

	views := make([]RoundView, 0, count)
	for i := 0; i < count; i++ {
		round := latest + 1 + i
		view, createErr := s.createRoundLocked(ctx, gen, pool, seeding, tournamentSlug, phase, round)
		if createErr != nil {
			// A fixed-depth bracket simply runs out of rounds.
			if errors.Is(createErr, brackets.ErrRoundOutOfRange) && len(views) > 0 {
				break
			}
			return nil, createErr
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *roundService) CreateRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error) {
	if round < 1 {
		return nil, ErrInvalidRoundNumber
	}
	gen, ok := s.generators[phase]
	if !ok {
		return nil, ErrInvalidPhase
	}

	lock := s.phaseLock(tournamentSlug, phase)
	lock.Lock()
	defer lock.Unlock()

	pool, seeding, err := s.loadGeneratorInput(ctx, tournamentSlug)
	if err != nil {
		return nil, err
	}
	return s.createRoundLocked(ctx, gen, pool, seeding, tournamentSlug, phase, round)
}

// loadGeneratorInput fetches the team pool and the seeding history: results
// from the group phases, never from the bracket being generated.
func (s *roundService) loadGeneratorInput(ctx context.Context, tournamentSlug string) ([]models.Team, []models.Match, error) {
	if _, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug); err != nil {
		return nil, nil, mapTournamentRepositoryError(err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	history, err := s.matchRepo.GetMatchHistory(ctx, nil, tournamentSlug, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match history for %q: %w", tournamentSlug, err)
	}
	var seeding []models.Match
	for _, m := range history {
		if m.Phase != models.PhaseDoubleElim {
			seeding = append(seeding, m)
		}
	}
	return pool, seeding, nil
}

func (s *roundService) createRoundLocked(
	ctx context.Context,
	gen brackets.RoundGenerator,
	pool []models.Team,
	seeding []models.Match,
	tournamentSlug string,
	phase models.Phase,
	round int,
) (*RoundView, error) {
	exists, err := s.matchRepo.RoundExists(ctx, nil, tournamentSlug, phase, round)
	if err != nil {
		return nil, fmt.Errorf("failed to check round %d of %s/%s: %w", round, tournamentSlug, phase, err)
	}
	if exists {
		return nil, ErrRoundAlreadyExists
	}

	latest, err := s.matchRepo.LatestRoundNumber(ctx, nil, tournamentSlug, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest round of %s/%s: %w", tournamentSlug, phase, err)
	}
	if round != latest+1 {
		return nil, ErrRoundOutOfSequence
	}

	pairings, err := gen.GenerateRound(ctx, brackets.GenerateRoundParams{
		Pool:    pool,
		History: seeding,
		Round:   round,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]*models.Match, 0, len(pairings))
	for i, p := range pairings {
		rows = append(rows, &models.Match{
			TournamentSlug: tournamentSlug,
			Phase:          phase,
			Round:          round,
			Position:       i + 1,
			Bracket:        p.Bracket,
			TeamAID:        p.TeamAID,
			TeamBID:        p.TeamBID,
		})
	}

	var matches []models.Match
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if txErr := s.matchRepo.CommitRound(ctx, tx, rows); txErr != nil {
			return mapMatchRepositoryError(txErr)
		}
		committed, txErr := s.matchRepo.GetRoundMatches(ctx, tx, tournamentSlug, phase, round)
		if txErr != nil {
			return fmt.Errorf("failed to read back round %d of %s/%s: %w", round, tournamentSlug, phase, txErr)
		}
		matches = committed
		return nil
	})
	if err != nil {
		return nil, err
	}

	attachMatchTeams(matches, pool)
	view := &RoundView{
		TournamentSlug: tournamentSlug,
		Phase:          phase,
		Round:          round,
		Matches:        matches,
	}
	s.hub.BroadcastToRoom(tournamentSlug, brackets.Event{Type: brackets.EventRoundCreated, Payload: view})
	return view, nil
}

func (s *roundService) RefreshRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error) {
	if round < 1 {
		return nil, ErrInvalidRoundNumber
	}
	if _, ok := s.generators[phase]; !ok {
		return nil, ErrInvalidPhase
	}

	lock := s.phaseLock(tournamentSlug, phase)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug); err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}

	var (
		matches  []models.Match
		assigned int
	)
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		filled, txErr := s.refreshInTx(ctx, tx, pool, tournamentSlug, phase, round)
		if txErr != nil {
			return txErr
		}
		assigned = filled

		current, txErr := s.matchRepo.GetRoundMatches(ctx, tx, tournamentSlug, phase, round)
		if txErr != nil {
			return fmt.Errorf("failed to read back round %d of %s/%s: %w", round, tournamentSlug, phase, txErr)
		}
		matches = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	attachMatchTeams(matches, pool)
	view := &RoundView{
		TournamentSlug: tournamentSlug,
		Phase:          phase,
		Round:          round,
		Matches:        matches,
	}
	if assigned > 0 {
		s.hub.BroadcastToRoom(tournamentSlug, brackets.Event{Type: brackets.EventRoundRefreshed, Payload: view})
	}
	return view, nil
}

// refreshInTx fills the round's placeholders inside the caller's transaction
// and reports how many matches were assigned.
func (s *roundService) refreshInTx(ctx context.Context, tx *sql.Tx, pool []models.Team, tournamentSlug string, phase models.Phase, round int) (int, error) {
	matches, err := s.matchRepo.GetRoundMatches(ctx, tx, tournamentSlug, phase, round)
	if err != nil {
		return 0, fmt.Errorf("failed to load round %d of %s/%s: %w", round, tournamentSlug, phase, err)
	}
	if len(matches) == 0 {
		return 0, ErrRoundNotFound
	}

	switch phase {
	case models.PhaseRoundRobin:
		// The whole schedule is concrete at creation.
		return 0, nil
	case models.PhaseSwiss:
		return s.refreshSwiss(ctx, tx, pool, tournamentSlug, round, matches)
	case models.PhaseDoubleElim:
		return s.refreshDoubleElim(ctx, tx, pool, tournamentSlug, round, matches)
	default:
		return 0, ErrInvalidPhase
	}
}

func (s *roundService) refreshSwiss(ctx context.Context, tx *sql.Tx, pool []models.Team, tournamentSlug string, round int, matches []models.Match) (int, error) {
	placeholders := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.IsPlaceholder() {
			placeholders = append(placeholders, m)
		}
	}
	if len(placeholders) == 0 {
		return 0, nil
	}
	if len(placeholders) != len(matches) {
		// A partially assigned round cannot be re-paired consistently.
		return 0, brackets.ErrPlaceholderCountMismatch
	}

	reported, err := s.matchRepo.RoundFullyReported(ctx, tx, tournamentSlug, models.PhaseSwiss, round-1)
	if err != nil {
		return 0, fmt.Errorf("failed to check round %d of %s/swiss: %w", round-1, tournamentSlug, err)
	}
	if !reported {
		return 0, ErrPreviousRoundNotReported
	}

	swissPhase := models.PhaseSwiss
	history, err := s.matchRepo.GetMatchHistory(ctx, tx, tournamentSlug, &swissPhase)
	if err != nil {
		return 0, fmt.Errorf("failed to load swiss history for %q: %w", tournamentSlug, err)
	}
	prior := make([]models.Match, 0, len(history))
	for _, m := range history {
		if m.Round < round {
			prior = append(prior, m)
		}
	}

	pairs := brackets.PairNextRound(pool, prior)
	if len(pairs) != len(placeholders) {
		return 0, brackets.ErrPlaceholderCountMismatch
	}
	for i, p := range pairs {
		if p.TeamAID == nil || p.TeamBID == nil {
			return 0, brackets.ErrInvalidPoolSize
		}
		if err := s.matchRepo.AssignMatchTeams(ctx, tx, placeholders[i].ID, p.TeamAID, p.TeamBID); err != nil {
			return 0, mapMatchRepositoryError(err)
		}
	}
	return len(pairs), nil
}

func (s *roundService) refreshDoubleElim(ctx context.Context, tx *sql.Tx, pool []models.Team, tournamentSlug string, round int, matches []models.Match) (int, error) {
	if round == 1 {
		// Round 1 is seeded at creation.
		return 0, nil
	}

	completed, err := s.matchRepo.GetRoundMatches(ctx, tx, tournamentSlug, models.PhaseDoubleElim, round-1)
	if err != nil {
		return 0, fmt.Errorf("failed to load round %d of %s/double_elim: %w", round-1, tournamentSlug, err)
	}

	all, err := s.matchRepo.GetMatchHistory(ctx, tx, tournamentSlug, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to load match history for %q: %w", tournamentSlug, err)
	}
	var bracketHistory, seedingHistory []models.Match
	for _, m := range all {
		if m.Phase == models.PhaseDoubleElim {
			bracketHistory = append(bracketHistory, m)
		} else {
			seedingHistory = append(seedingHistory, m)
		}
	}

	assignments, err := brackets.ResolveAdvancement(brackets.AdvanceParams{
		PoolSize:  len(pool),
		Completed: completed,
		Next:      matches,
		History:   bracketHistory,
		Seeds:     brackets.RankedTeamIDs(pool, seedingHistory),
	})
	if err != nil {
		return 0, err
	}

	for _, a := range assignments {
		teamA, teamB := a.TeamAID, a.TeamBID
		if err := s.matchRepo.AssignMatchTeams(ctx, tx, a.MatchID, &teamA, &teamB); err != nil {
			return 0, mapMatchRepositoryError(err)
		}
	}
	return len(assignments), nil
}

func (s *roundService) GetRound(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (*RoundView, error) {
	if !phase.Valid() {
		return nil, ErrInvalidPhase
	}
	matches, err := s.matchRepo.GetRoundMatches(ctx, nil, tournamentSlug, phase, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load round %d of %s/%s: %w", round, tournamentSlug, phase, err)
	}
	if len(matches) == 0 {
		return nil, ErrRoundNotFound
	}

	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	attachMatchTeams(matches, pool)

	return &RoundView{
		TournamentSlug: tournamentSlug,
		Phase:          phase,
		Round:          round,
		Matches:        matches,
	}, nil
}

func (s *roundService) GetStandings(ctx context.Context, tournamentSlug string, phase *models.Phase) ([]models.Standing, error) {
	if phase != nil && !phase.Valid() {
		return nil, ErrInvalidPhase
	}
	if _, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug); err != nil {
		return nil, mapTournamentRepositoryError(err)
	}

	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	history, err := s.matchRepo.GetMatchHistory(ctx, nil, tournamentSlug, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history for %q: %w", tournamentSlug, err)
	}

	standings := brackets.ComputeStandings(pool, history)
	attachStandingTeams(standings, pool)
	return standings, nil
}

func (s *roundService) RoundExists(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	return s.matchRepo.RoundExists(ctx, nil, tournamentSlug, phase, round)
}

func (s *roundService) RoundFullyReported(ctx context.Context, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	return s.matchRepo.RoundFullyReported(ctx, nil, tournamentSlug, phase, round)
}

func (s *roundService) LatestRoundNumber(ctx context.Context, tournamentSlug string, phase models.Phase) (int, error) {
	return s.matchRepo.LatestRoundNumber(ctx, nil, tournamentSlug, phase)
}

func (s *roundService) LatestFullyReportedRoundNumber(ctx context.Context, tournamentSlug string, phase models.Phase) (int, error) {
	return s.matchRepo.LatestFullyReportedRoundNumber(ctx, nil, tournamentSlug, phase)
}
