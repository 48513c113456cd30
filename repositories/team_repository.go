package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mayumon/utow-mayubot/models"
)

var (
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamRoleConflict      = errors.New("role already linked to a team in this tournament")
	ErrTeamTournamentInvalid = errors.New("team tournament conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByRoleID(ctx context.Context, exec SQLExecutor, tournamentSlug string, roleID int64) (*models.Team, error)
	// GetTeamPool returns the tournament's teams in seed order, the order
	// every round generator expects its pool in.
	GetTeamPool(ctx context.Context, exec SQLExecutor, tournamentSlug string) ([]models.Team, error)
	UpdateName(ctx context.Context, exec SQLExecutor, id int, name string) error
	UpdateSeed(ctx context.Context, exec SQLExecutor, id, seed int) error
	UpdateChallongeID(ctx context.Context, exec SQLExecutor, id int, challongeID *int64) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO teams (tournament_slug, role_id, challonge_id, name, seed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		team.TournamentSlug, team.RoleID, team.ChallongeID, team.Name, team.Seed,
	).Scan(&team.ID, &team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) scanTeam(rowScanner interface{ Scan(...interface{}) error }) (*models.Team, error) {
	var t models.Team
	err := rowScanner.Scan(
		&t.ID, &t.TournamentSlug, &t.RoleID, &t.ChallongeID, &t.Name, &t.Seed, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, role_id, challonge_id, name, seed, created_at
		FROM teams
		WHERE id = $1`
	return r.scanTeam(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByRoleID(ctx context.Context, exec SQLExecutor, tournamentSlug string, roleID int64) (*models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, role_id, challonge_id, name, seed, created_at
		FROM teams
		WHERE tournament_slug = $1 AND role_id = $2`
	return r.scanTeam(executor.QueryRowContext(ctx, query, tournamentSlug, roleID))
}

func (r *postgresTeamRepository) GetTeamPool(ctx context.Context, exec SQLExecutor, tournamentSlug string) ([]models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_slug, role_id, challonge_id, name, seed, created_at
		FROM teams
		WHERE tournament_slug = $1
		ORDER BY seed ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to query team pool for %q: %w", tournamentSlug, err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		t, scanErr := r.scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teams = append(teams, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateName(ctx context.Context, exec SQLExecutor, id int, name string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET name = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, name, id)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id, seed int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET seed = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, seed, id)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateChallongeID(ctx context.Context, exec SQLExecutor, id int, challongeID *int64) error {
	executor := r.getExecutor(exec)
	query := `UPDATE teams SET challonge_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, challongeID, id)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM teams WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "teams_tournament_slug_role_id_key" {
				return ErrTeamRoleConflict
			}
		case "23503":
			if pqErr.Constraint == "teams_tournament_slug_fkey" {
				return ErrTeamTournamentInvalid
			}
		}
	}
	return err
}
