package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/challonge"
	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

// SyncTeamsResult summarizes one participant import pass.
type SyncTeamsResult struct {
	// Linked counts local teams matched to a challonge participant by name.
	Linked int `json:"linked"`
	// Imported counts participants created as new unlinked teams.
	Imported int `json:"imported"`
}

// SyncService pulls participants and results from a linked challonge
// tournament. Both operations are idempotent sweeps.
type SyncService interface {
	SyncTeams(ctx context.Context, tournamentSlug string) (*SyncTeamsResult, error)
	SyncResults(ctx context.Context, tournamentSlug string) (int, error)
}

type syncService struct {
	db             *sql.DB
	client         challonge.Client
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	hub            *brackets.Hub
}

func NewSyncService(
	db *sql.DB,
	client challonge.Client,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	hub *brackets.Hub,
) SyncService {
	return &syncService{
		db:             db,
		client:         client,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		hub:            hub,
	}
}

func (s *syncService) challongeSlug(ctx context.Context, tournamentSlug string) (string, error) {
	if s.client == nil {
		return "", ErrChallongeDisabled
	}
	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err != nil {
		return "", mapTournamentRepositoryError(err)
	}
	if tournament.ChallongeSlug == nil || *tournament.ChallongeSlug == "" {
		return "", ErrChallongeNotLinked
	}
	return *tournament.ChallongeSlug, nil
}

func (s *syncService) SyncTeams(ctx context.Context, tournamentSlug string) (*SyncTeamsResult, error) {
	remoteSlug, err := s.challongeSlug(ctx, tournamentSlug)
	if err != nil {
		return nil, err
	}

	participants, err := s.client.GetParticipants(ctx, remoteSlug)
	if err != nil {
		return nil, fmt.Errorf("challonge participants for %q: %w", remoteSlug, err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}

	linkedByChallongeID := make(map[int64]bool, len(pool))
	maxSeed := 0
	for _, t := range pool {
		if t.ChallongeID != nil {
			linkedByChallongeID[*t.ChallongeID] = true
		}
		if t.Seed > maxSeed {
			maxSeed = t.Seed
		}
	}

	var toLink []struct {
		teamID      int
		challongeID int64
	}
	var toImport []challonge.Participant
	for _, p := range participants {
		if linkedByChallongeID[p.ID] {
			continue
		}
		matched := false
		for _, t := range pool {
			if t.ChallongeID == nil && strings.EqualFold(t.Name, p.Name) {
				toLink = append(toLink, struct {
					teamID      int
					challongeID int64
				}{teamID: t.ID, challongeID: p.ID})
				matched = true
				break
			}
		}
		if !matched {
			toImport = append(toImport, p)
		}
	}
	// Deterministic import order regardless of API response order.
	sort.Slice(toImport, func(i, j int) bool {
		if toImport[i].Seed != toImport[j].Seed {
			return toImport[i].Seed < toImport[j].Seed
		}
		return toImport[i].Name < toImport[j].Name
	})

	result := &SyncTeamsResult{}
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, link := range toLink {
			challongeID := link.challongeID
			if txErr := s.teamRepo.UpdateChallongeID(ctx, tx, link.teamID, &challongeID); txErr != nil {
				return mapTeamRepositoryError(txErr)
			}
			result.Linked++
		}
		for _, p := range toImport {
			challongeID := p.ID
			team := &models.Team{
				TournamentSlug: tournamentSlug,
				// RoleID 0 marks a team imported without a role mapping.
				RoleID:      0,
				ChallongeID: &challongeID,
				Name:        p.Name,
				Seed:        maxSeed + 1,
			}
			if txErr := s.teamRepo.Create(ctx, tx, team); txErr != nil {
				return mapTeamRepositoryError(txErr)
			}
			maxSeed++
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *syncService) SyncResults(ctx context.Context, tournamentSlug string) (int, error) {
	remoteSlug, err := s.challongeSlug(ctx, tournamentSlug)
	if err != nil {
		return 0, err
	}

	remote, err := s.client.GetMatches(ctx, remoteSlug)
	if err != nil {
		return 0, fmt.Errorf("challonge matches for %q: %w", remoteSlug, err)
	}
	locals, err := s.matchRepo.ListUnreported(ctx, nil, tournamentSlug)
	if err != nil {
		return 0, fmt.Errorf("failed to list unreported matches for %q: %w", tournamentSlug, err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return 0, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}

	teamByChallongeID := make(map[int64]int, len(pool))
	challongeIDByTeam := make(map[int]int64, len(pool))
	for _, t := range pool {
		if t.ChallongeID != nil {
			teamByChallongeID[*t.ChallongeID] = t.ID
			challongeIDByTeam[t.ID] = *t.ChallongeID
		}
	}

	remoteByID := make(map[int64]challonge.Match, len(remote))
	remoteByPair := make(map[[2]int64]challonge.Match, len(remote))
	for _, rm := range remote {
		remoteByID[rm.ID] = rm
		if rm.Player1ID != nil && rm.Player2ID != nil {
			remoteByPair[pairKey(*rm.Player1ID, *rm.Player2ID)] = rm
		}
	}

	reported := 0
	for i := range locals {
		local := &locals[i]

		rm, ok := s.matchRemote(local, challongeIDByTeam, remoteByID, remoteByPair)
		if !ok || !rm.Completed() {
			continue
		}
		scoreOne, scoreTwo, ok := rm.Scores()
		if !ok {
			continue
		}

		// Orient the challonge score to the local A/B slots.
		scoreA, scoreB := scoreOne, scoreTwo
		if rm.Player1ID != nil && teamByChallongeID[*rm.Player1ID] != *local.TeamAID {
			scoreA, scoreB = scoreTwo, scoreOne
		}

		if err := s.matchRepo.ReportScore(ctx, nil, local.ID, scoreA, scoreB); err != nil {
			return reported, mapMatchRepositoryError(err)
		}
		if local.ChallongeMatchID == nil {
			remoteID := rm.ID
			if err := s.matchRepo.UpdateChallongeMatchID(ctx, nil, local.ID, &remoteID); err != nil {
				return reported, mapMatchRepositoryError(err)
			}
			local.ChallongeMatchID = &remoteID
		}

		local.ScoreA, local.ScoreB = &scoreA, &scoreB
		local.Reported = true
		s.hub.BroadcastToRoom(tournamentSlug, brackets.Event{
			Type:    brackets.EventMatchReported,
			Payload: local,
		})
		reported++
	}
	return reported, nil
}

// matchRemote finds the challonge match for a local one, preferring the
// stored challonge match id and falling back to the unordered team pair.
func (s *syncService) matchRemote(
	local *models.Match,
	challongeIDByTeam map[int]int64,
	remoteByID map[int64]challonge.Match,
	remoteByPair map[[2]int64]challonge.Match,
) (challonge.Match, bool) {
	if local.ChallongeMatchID != nil {
		rm, ok := remoteByID[*local.ChallongeMatchID]
		return rm, ok
	}
	if local.TeamAID == nil || local.TeamBID == nil {
		return challonge.Match{}, false
	}
	idA, okA := challongeIDByTeam[*local.TeamAID]
	idB, okB := challongeIDByTeam[*local.TeamBID]
	if !okA || !okB {
		return challonge.Match{}, false
	}
	rm, ok := remoteByPair[pairKey(idA, idB)]
	return rm, ok
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}
