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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug already taken")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetBySlug(ctx context.Context, exec SQLExecutor, slug string) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, slug string, status models.TournamentStatus) error
	UpdateChallongeSlug(ctx context.Context, exec SQLExecutor, slug string, challongeSlug *string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (slug, name, challonge_slug, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Slug, t.Name, t.ChallongeSlug, t.Status,
	).Scan(&t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetBySlug(ctx context.Context, exec SQLExecutor, slug string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT slug, name, challonge_slug, status, created_at
		FROM tournaments
		WHERE slug = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, slug).Scan(
		&t.Slug, &t.Name, &t.ChallongeSlug, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %q: %w", slug, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor) ([]models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT slug, name, challonge_slug, status, created_at
		FROM tournaments
		ORDER BY created_at DESC, slug ASC`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(&t.Slug, &t.Name, &t.ChallongeSlug, &t.Status, &t.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, slug string, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE slug = $2`
	result, err := executor.ExecContext(ctx, query, status, slug)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateChallongeSlug(ctx context.Context, exec SQLExecutor, slug string, challongeSlug *string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET challonge_slug = $1 WHERE slug = $2`
	result, err := executor.ExecContext(ctx, query, challongeSlug, slug)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_pkey" {
			return ErrTournamentSlugConflict
		}
	}
	return err
}
