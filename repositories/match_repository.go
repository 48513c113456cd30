package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mayumon/utow-mayubot/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchPositionConflict  = errors.New("match position already taken in this round")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	// CommitRound inserts a generated round. Re-committing the same round is
	// a no-op per slot, so rows that already carry teams or scores survive.
	CommitRound(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetRoundMatches(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) ([]models.Match, error)
	GetMatchHistory(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase *models.Phase) ([]models.Match, error)
	ListUnreported(ctx context.Context, exec SQLExecutor, tournamentSlug string) ([]models.Match, error)
	AssignMatchTeams(ctx context.Context, exec SQLExecutor, matchID int, teamAID, teamBID *int) error
	ReportScore(ctx context.Context, exec SQLExecutor, matchID, scoreA, scoreB int) error
	UpdateChallongeMatchID(ctx context.Context, exec SQLExecutor, matchID int, challongeMatchID *int64) error
	RoundExists(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error)
	RoundFullyReported(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error)
	LatestRoundNumber(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase) (int, error)
	LatestFullyReportedRoundNumber(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) CommitRound(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (tournament_slug, phase, round, position, bracket, team_a_id, team_b_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_slug, phase, round, position) DO NOTHING`

	for _, m := range matches {
		_, err := executor.ExecContext(ctx, query,
			m.TournamentSlug, m.Phase, m.Round, m.Position, m.Bracket, m.TeamAID, m.TeamBID,
		)
		if err != nil {
			return r.handleMatchError(fmt.Errorf("failed to commit match at position %d: %w", m.Position, err))
		}
	}
	return nil
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.TournamentSlug, &m.Phase, &m.Round, &m.Position, &m.Bracket,
		&m.TeamAID, &m.TeamBID, &m.ScoreA, &m.ScoreB, &m.Reported,
		&m.ChallongeMatchID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, phase, round, position, bracket,
		       team_a_id, team_b_id, score_a, score_b, reported,
		       challonge_match_id, created_at, updated_at
		FROM matches
		WHERE id = $1`
	return r.scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetRoundMatches(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, phase, round, position, bracket,
		       team_a_id, team_b_id, score_a, score_b, reported,
		       challonge_match_id, created_at, updated_at
		FROM matches
		WHERE tournament_slug = $1 AND phase = $2 AND round = $3
		ORDER BY position ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentSlug, phase, round)
	if err != nil {
		return nil, fmt.Errorf("failed to query round %d of %q: %w", round, tournamentSlug, err)
	}
	return r.collectMatches(rows)
}

func (r *postgresMatchRepository) GetMatchHistory(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase *models.Phase) ([]models.Match, error) {
	executor := r.getExecutor(exec)

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, tournament_slug, phase, round, position, bracket,
		       team_a_id, team_b_id, score_a, score_b, reported,
		       challonge_match_id, created_at, updated_at
		FROM matches
		WHERE tournament_slug = $1`)

	args := []interface{}{tournamentSlug}
	placeholderIndex := 2

	if phase != nil {
		queryBuilder.WriteString(" AND phase = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *phase)
	}

	queryBuilder.WriteString(" ORDER BY round ASC, position ASC, id ASC")

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history of %q: %w", tournamentSlug, err)
	}
	return r.collectMatches(rows)
}

func (r *postgresMatchRepository) ListUnreported(ctx context.Context, exec SQLExecutor, tournamentSlug string) ([]models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, phase, round, position, bracket,
		       team_a_id, team_b_id, score_a, score_b, reported,
		       challonge_match_id, created_at, updated_at
		FROM matches
		WHERE tournament_slug = $1 AND reported = FALSE
		  AND team_a_id IS NOT NULL AND team_b_id IS NOT NULL
		ORDER BY round ASC, position ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query unreported matches of %q: %w", tournamentSlug, err)
	}
	return r.collectMatches(rows)
}

func (r *postgresMatchRepository) collectMatches(rows *sql.Rows) ([]models.Match, error) {
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) AssignMatchTeams(ctx context.Context, exec SQLExecutor, matchID int, teamAID, teamBID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET team_a_id = $1, team_b_id = $2, updated_at = now() WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, teamAID, teamBID, matchID)
	if err != nil {
		return r.handleMatchError(fmt.Errorf("failed to assign teams to match %d: %w", matchID, err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ReportScore(ctx context.Context, exec SQLExecutor, matchID, scoreA, scoreB int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET score_a = $1, score_b = $2, reported = TRUE, updated_at = now() WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, scoreA, scoreB, matchID)
	if err != nil {
		return r.handleMatchError(fmt.Errorf("failed to report score for match %d: %w", matchID, err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateChallongeMatchID(ctx context.Context, exec SQLExecutor, matchID int, challongeMatchID *int64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET challonge_match_id = $1, updated_at = now() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, challongeMatchID, matchID)
	if err != nil {
		return r.handleMatchError(fmt.Errorf("failed to link match %d: %w", matchID, err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) RoundExists(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE tournament_slug = $1 AND phase = $2 AND round = $3
		)`

	var exists bool
	if err := executor.QueryRowContext(ctx, query, tournamentSlug, phase, round).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check round %d of %q: %w", round, tournamentSlug, err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) RoundFullyReported(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT reported)
		FROM matches
		WHERE tournament_slug = $1 AND phase = $2 AND round = $3`

	var total, unreported int
	if err := executor.QueryRowContext(ctx, query, tournamentSlug, phase, round).Scan(&total, &unreported); err != nil {
		return false, fmt.Errorf("failed to check reporting of round %d of %q: %w", round, tournamentSlug, err)
	}
	return total > 0 && unreported == 0, nil
}

func (r *postgresMatchRepository) LatestRoundNumber(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COALESCE(MAX(round), 0)
		FROM matches
		WHERE tournament_slug = $1 AND phase = $2`

	var round int
	if err := executor.QueryRowContext(ctx, query, tournamentSlug, phase).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to find latest round of %q: %w", tournamentSlug, err)
	}
	return round, nil
}

func (r *postgresMatchRepository) LatestFullyReportedRoundNumber(ctx context.Context, exec SQLExecutor, tournamentSlug string, phase models.Phase) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COALESCE(MAX(round), 0) FROM (
			SELECT round
			FROM matches
			WHERE tournament_slug = $1 AND phase = $2
			GROUP BY round
			HAVING bool_and(reported)
		) reported_rounds`

	var round int
	if err := executor.QueryRowContext(ctx, query, tournamentSlug, phase).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to find latest reported round of %q: %w", tournamentSlug, err)
	}
	return round, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "matches_tournament_slug_phase_round_position_key" {
				return ErrMatchPositionConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "matches_team_a_id_fkey", "matches_team_b_id_fkey":
				return ErrMatchTeamInvalid
			case "matches_tournament_slug_fkey":
				return ErrMatchTournamentInvalid
			}
		}
	}
	return err
}
