package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

type LinkTeamInput struct {
	RoleID int64  `json:"role_id"`
	Name   string `json:"name"`
	// Seed 0 means append after the current highest seed.
	Seed int `json:"seed"`
}

type UpdateTeamInput struct {
	Name *string `json:"name"`
	Seed *int    `json:"seed"`
}

type TeamService interface {
	LinkTeam(ctx context.Context, tournamentSlug string, input LinkTeamInput) (*models.Team, error)
	UnlinkTeam(ctx context.Context, tournamentSlug string, roleID int64) error
	ListTeams(ctx context.Context, tournamentSlug string) ([]models.Team, error)
	GetTeamByRole(ctx context.Context, tournamentSlug string, roleID int64) (*models.Team, error)
	UpdateTeam(ctx context.Context, tournamentSlug string, roleID int64, input UpdateTeamInput) (*models.Team, error)
}

type teamService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
}

func NewTeamService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
) TeamService {
	return &teamService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
	}
}

func (s *teamService) LinkTeam(ctx context.Context, tournamentSlug string, input LinkTeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, ErrTeamNameRequired
	}
	if input.Seed < 0 {
		return nil, ErrInvalidSeed
	}

	if _, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug); err != nil {
		return nil, mapTeamRepositoryError(err)
	}

	seed := input.Seed
	if seed == 0 {
		pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
		if err != nil {
			return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
		}
		maxSeed := 0
		for _, t := range pool {
			if t.Seed > maxSeed {
				maxSeed = t.Seed
			}
		}
		seed = maxSeed + 1
	}

	team := &models.Team{
		TournamentSlug: tournamentSlug,
		RoleID:         input.RoleID,
		Name:           input.Name,
		Seed:           seed,
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		return nil, mapTeamRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) UnlinkTeam(ctx context.Context, tournamentSlug string, roleID int64) error {
	team, err := s.teamRepo.GetByRoleID(ctx, nil, tournamentSlug, roleID)
	if err != nil {
		return mapTeamRepositoryError(err)
	}
	if err := s.teamRepo.Delete(ctx, nil, team.ID); err != nil {
		return mapTeamRepositoryError(err)
	}
	return nil
}

func (s *teamService) ListTeams(ctx context.Context, tournamentSlug string) ([]models.Team, error) {
	if _, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug); err != nil {
		return nil, mapTeamRepositoryError(err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	return pool, nil
}

func (s *teamService) GetTeamByRole(ctx context.Context, tournamentSlug string, roleID int64) (*models.Team, error) {
	team, err := s.teamRepo.GetByRoleID(ctx, nil, tournamentSlug, roleID)
	if err != nil {
		return nil, mapTeamRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, tournamentSlug string, roleID int64, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.teamRepo.GetByRoleID(ctx, nil, tournamentSlug, roleID)
	if err != nil {
		return nil, mapTeamRepositoryError(err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTeamNameRequired
		}
		if err := s.teamRepo.UpdateName(ctx, nil, team.ID, *input.Name); err != nil {
			return nil, mapTeamRepositoryError(err)
		}
		team.Name = *input.Name
	}

	if input.Seed != nil {
		if *input.Seed < 1 {
			return nil, ErrInvalidSeed
		}
		if err := s.teamRepo.UpdateSeed(ctx, nil, team.ID, *input.Seed); err != nil {
			return nil, mapTeamRepositoryError(err)
		}
		team.Seed = *input.Seed
	}

	return team, nil
}

func mapTeamRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamRoleConflict):
		return ErrRoleAlreadyLinked
	case errors.Is(err, repositories.ErrTeamTournamentInvalid):
		return ErrTournamentNotFound
	default:
		return err
	}
}
