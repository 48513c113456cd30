package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)

	// ReportResult records the map score of a match whose teams are known.
	// Re-reporting overwrites the previous score.
	ReportResult(ctx context.Context, matchID, scoreA, scoreB int) (*models.Match, error)

	// AssignTeams is the operator override for a placeholder the resolver
	// cannot or should not fill. Reported matches are immutable.
	AssignTeams(ctx context.Context, matchID int, teamAID, teamBID *int) (*models.Match, error)
}

type matchService struct {
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	hub       *brackets.Hub
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	hub *brackets.Hub,
) MatchService {
	return &matchService{
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		hub:       hub,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepositoryError(err)
	}
	s.populateTeams(ctx, match)
	return match, nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID, scoreA, scoreB int) (*models.Match, error) {
	if scoreA < 0 || scoreB < 0 {
		return nil, ErrInvalidScore
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepositoryError(err)
	}
	if match.TeamAID == nil || match.TeamBID == nil {
		return nil, ErrMatchTeamsNotAssigned
	}

	if err := s.matchRepo.ReportScore(ctx, nil, matchID, scoreA, scoreB); err != nil {
		return nil, mapMatchRepositoryError(err)
	}

	match, err = s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepositoryError(err)
	}
	s.populateTeams(ctx, match)

	s.hub.BroadcastToRoom(match.TournamentSlug, brackets.Event{
		Type:    brackets.EventMatchReported,
		Payload: match,
	})
	return match, nil
}

func (s *matchService) AssignTeams(ctx context.Context, matchID int, teamAID, teamBID *int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepositoryError(err)
	}
	if match.Reported {
		return nil, ErrMatchAlreadyReported
	}

	for _, teamID := range []*int{teamAID, teamBID} {
		if teamID == nil {
			continue
		}
		team, teamErr := s.teamRepo.GetByID(ctx, nil, *teamID)
		if teamErr != nil {
			return nil, mapTeamRepositoryError(teamErr)
		}
		if team.TournamentSlug != match.TournamentSlug {
			return nil, fmt.Errorf("%w: team %d belongs to %q", ErrTeamNotFound, *teamID, team.TournamentSlug)
		}
	}

	if err := s.matchRepo.AssignMatchTeams(ctx, nil, matchID, teamAID, teamBID); err != nil {
		return nil, mapMatchRepositoryError(err)
	}

	match, err = s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchRepositoryError(err)
	}
	s.populateTeams(ctx, match)

	s.hub.BroadcastToRoom(match.TournamentSlug, brackets.Event{
		Type:    brackets.EventRoundRefreshed,
		Payload: match,
	})
	return match, nil
}

// populateTeams best-effort fills the linked team fields; a lookup failure
// leaves the pointer nil rather than failing the call.
func (s *matchService) populateTeams(ctx context.Context, match *models.Match) {
	if match.TeamAID != nil {
		if team, err := s.teamRepo.GetByID(ctx, nil, *match.TeamAID); err == nil {
			match.TeamA = team
		}
	}
	if match.TeamBID != nil {
		if team, err := s.teamRepo.GetByID(ctx, nil, *match.TeamBID); err == nil {
			match.TeamB = team
		}
	}
}

func mapMatchRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchPositionConflict):
		return ErrRoundAlreadyExists
	case errors.Is(err, repositories.ErrMatchTeamInvalid):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrMatchTournamentInvalid):
		return ErrTournamentNotFound
	default:
		return err
	}
}
