package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
	"github.com/mayumon/utow-mayubot/storage"
)

// Snapshot is the published view of a tournament at one instant.
type Snapshot struct {
	Tournament  *models.Tournament                 `json:"tournament"`
	Standings   map[models.Phase][]models.Standing `json:"standings"`
	Matches     []models.Match                     `json:"matches"`
	GeneratedAt time.Time                          `json:"generated_at"`
}

// SnapshotService publishes standings and rounds as a public JSON object.
type SnapshotService interface {
	PublishSnapshot(ctx context.Context, tournamentSlug string) (*storage.UploadResult, error)
}

type snapshotService struct {
	uploader       storage.FileUploader
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
}

func NewSnapshotService(
	uploader storage.FileUploader,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
) SnapshotService {
	return &snapshotService{
		uploader:       uploader,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
	}
}

func (s *snapshotService) PublishSnapshot(ctx context.Context, tournamentSlug string) (*storage.UploadResult, error) {
	if s.uploader == nil {
		return nil, ErrSnapshotsDisabled
	}

	tournament, err := s.tournamentRepo.GetBySlug(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, mapTournamentRepositoryError(err)
	}
	pool, err := s.teamRepo.GetTeamPool(ctx, nil, tournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load team pool for %q: %w", tournamentSlug, err)
	}
	history, err := s.matchRepo.GetMatchHistory(ctx, nil, tournamentSlug, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history for %q: %w", tournamentSlug, err)
	}

	tournament.Teams = pool
	attachMatchTeams(history, pool)

	snapshot := Snapshot{
		Tournament:  tournament,
		Standings:   make(map[models.Phase][]models.Standing),
		Matches:     history,
		GeneratedAt: time.Now().UTC(),
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
		snapshot.Standings[phase] = standings
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot for %q: %w", tournamentSlug, err)
	}

	key := fmt.Sprintf("snapshots/%s/%s.json", tournamentSlug, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot for %q: %w", tournamentSlug, err)
	}
	return result, nil
}
