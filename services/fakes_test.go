package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/repositories"
)

// The services only need a transaction handle; all data lives in the
// in-memory repositories below. A no-op driver keeps BeginTx/Commit working
// without a database.

func init() { sql.Register("memtx", memDriver{}) }

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) { return memConn{}, nil }

type memConn struct{}

func (memConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("memtx: prepare not supported")
}
func (memConn) Close() error              { return nil }
func (memConn) Begin() (driver.Tx, error) { return memTx{}, nil }

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("memtx", "")
	if err != nil {
		t.Fatalf("open memtx db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- in-memory repositories ---

type memTournamentRepo struct {
	tournaments map[string]models.Tournament
}

func newMemTournamentRepo() *memTournamentRepo {
	return &memTournamentRepo{tournaments: make(map[string]models.Tournament)}
}

func (r *memTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, tournament *models.Tournament) error {
	if _, ok := r.tournaments[tournament.Slug]; ok {
		return repositories.ErrTournamentSlugConflict
	}
	r.tournaments[tournament.Slug] = *tournament
	return nil
}

func (r *memTournamentRepo) GetBySlug(_ context.Context, _ repositories.SQLExecutor, slug string) (*models.Tournament, error) {
	t, ok := r.tournaments[slug]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	out := t
	return &out, nil
}

func (r *memTournamentRepo) List(_ context.Context, _ repositories.SQLExecutor) ([]models.Tournament, error) {
	out := make([]models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *memTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, slug string, status models.TournamentStatus) error {
	t, ok := r.tournaments[slug]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	r.tournaments[slug] = t
	return nil
}

func (r *memTournamentRepo) UpdateChallongeSlug(_ context.Context, _ repositories.SQLExecutor, slug string, challongeSlug *string) error {
	t, ok := r.tournaments[slug]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ChallongeSlug = challongeSlug
	r.tournaments[slug] = t
	return nil
}

type memTeamRepo struct {
	teams  map[int]models.Team
	nextID int
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{teams: make(map[int]models.Team), nextID: 1}
}

func (r *memTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	if team.RoleID != 0 {
		for _, t := range r.teams {
			if t.TournamentSlug == team.TournamentSlug && t.RoleID == team.RoleID {
				return repositories.ErrTeamRoleConflict
			}
		}
	}
	team.ID = r.nextID
	r.nextID++
	r.teams[team.ID] = *team
	return nil
}

func (r *memTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	out := t
	return &out, nil
}

func (r *memTeamRepo) GetByRoleID(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, roleID int64) (*models.Team, error) {
	for _, t := range r.teams {
		if t.TournamentSlug == tournamentSlug && t.RoleID == roleID {
			out := t
			return &out, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *memTeamRepo) GetTeamPool(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string) ([]models.Team, error) {
	var pool []models.Team
	for _, t := range r.teams {
		if t.TournamentSlug == tournamentSlug {
			pool = append(pool, t)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Seed != pool[j].Seed {
			return pool[i].Seed < pool[j].Seed
		}
		return pool[i].ID < pool[j].ID
	})
	return pool, nil
}

func (r *memTeamRepo) UpdateName(_ context.Context, _ repositories.SQLExecutor, id int, name string) error {
	t, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Name = name
	r.teams[id] = t
	return nil
}

func (r *memTeamRepo) UpdateSeed(_ context.Context, _ repositories.SQLExecutor, id, seed int) error {
	t, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Seed = seed
	r.teams[id] = t
	return nil
}

func (r *memTeamRepo) UpdateChallongeID(_ context.Context, _ repositories.SQLExecutor, id int, challongeID *int64) error {
	t, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.ChallongeID = challongeID
	r.teams[id] = t
	return nil
}

func (r *memTeamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type memMatchRepo struct {
	matches []models.Match
	nextID  int
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{nextID: 1}
}

func (r *memMatchRepo) CommitRound(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	for _, m := range matches {
		if r.findSlot(m.TournamentSlug, m.Phase, m.Round, m.Position) != nil {
			continue
		}
		m.ID = r.nextID
		r.nextID++
		r.matches = append(r.matches, *m)
	}
	return nil
}

func (r *memMatchRepo) findSlot(slug string, phase models.Phase, round, position int) *models.Match {
	for i := range r.matches {
		m := &r.matches[i]
		if m.TournamentSlug == slug && m.Phase == phase && m.Round == round && m.Position == position {
			return m
		}
	}
	return nil
}

func (r *memMatchRepo) find(id int) *models.Match {
	for i := range r.matches {
		if r.matches[i].ID == id {
			return &r.matches[i]
		}
	}
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	m := r.find(id)
	if m == nil {
		return nil, repositories.ErrMatchNotFound
	}
	out := *m
	return &out, nil
}

func (r *memMatchRepo) GetRoundMatches(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase models.Phase, round int) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.matches {
		if m.TournamentSlug == tournamentSlug && m.Phase == phase && m.Round == round {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memMatchRepo) GetMatchHistory(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase *models.Phase) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.matches {
		if m.TournamentSlug != tournamentSlug {
			continue
		}
		if phase != nil && m.Phase != *phase {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memMatchRepo) ListUnreported(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string) ([]models.Match, error) {
	var out []models.Match
	for _, m := range r.matches {
		if m.TournamentSlug == tournamentSlug && !m.Reported && m.TeamAID != nil && m.TeamBID != nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMatchRepo) AssignMatchTeams(_ context.Context, _ repositories.SQLExecutor, matchID int, teamAID, teamBID *int) error {
	m := r.find(matchID)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	m.TeamAID = teamAID
	m.TeamBID = teamBID
	return nil
}

func (r *memMatchRepo) ReportScore(_ context.Context, _ repositories.SQLExecutor, matchID, scoreA, scoreB int) error {
	m := r.find(matchID)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	a, b := scoreA, scoreB
	m.ScoreA, m.ScoreB = &a, &b
	m.Reported = true
	return nil
}

func (r *memMatchRepo) UpdateChallongeMatchID(_ context.Context, _ repositories.SQLExecutor, matchID int, challongeMatchID *int64) error {
	m := r.find(matchID)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	m.ChallongeMatchID = challongeMatchID
	return nil
}

func (r *memMatchRepo) RoundExists(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	for _, m := range r.matches {
		if m.TournamentSlug == tournamentSlug && m.Phase == phase && m.Round == round {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMatchRepo) RoundFullyReported(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase models.Phase, round int) (bool, error) {
	total, unreported := 0, 0
	for _, m := range r.matches {
		if m.TournamentSlug == tournamentSlug && m.Phase == phase && m.Round == round {
			total++
			if !m.Reported {
				unreported++
			}
		}
	}
	return total > 0 && unreported == 0, nil
}

func (r *memMatchRepo) LatestRoundNumber(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase models.Phase) (int, error) {
	latest := 0
	for _, m := range r.matches {
		if m.TournamentSlug == tournamentSlug && m.Phase == phase && m.Round > latest {
			latest = m.Round
		}
	}
	return latest, nil
}

func (r *memMatchRepo) LatestFullyReportedRoundNumber(_ context.Context, _ repositories.SQLExecutor, tournamentSlug string, phase models.Phase) (int, error) {
	unreportedByRound := make(map[int]int)
	for _, m := range r.matches {
		if m.TournamentSlug != tournamentSlug || m.Phase != phase {
			continue
		}
		if !m.Reported {
			unreportedByRound[m.Round]++
		} else if _, ok := unreportedByRound[m.Round]; !ok {
			unreportedByRound[m.Round] = 0
		}
	}
	latest := 0
	for round, count := range unreportedByRound {
		if count == 0 && round > latest {
			latest = round
		}
	}
	return latest, nil
}

// --- shared fixtures ---

const testSlug = "utow-open"

type serviceFixture struct {
	db             *sql.DB
	tournamentRepo *memTournamentRepo
	teamRepo       *memTeamRepo
	matchRepo      *memMatchRepo
}

// newFixture seeds a tournament with teamCount teams whose IDs and seeds both
// run 1..teamCount.
func newFixture(t *testing.T, teamCount int) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		db:             newTxDB(t),
		tournamentRepo: newMemTournamentRepo(),
		teamRepo:       newMemTeamRepo(),
		matchRepo:      newMemMatchRepo(),
	}
	f.tournamentRepo.tournaments[testSlug] = models.Tournament{
		Slug:   testSlug,
		Name:   "UTOW Open",
		Status: models.StatusActive,
	}
	for i := 1; i <= teamCount; i++ {
		f.teamRepo.teams[i] = models.Team{
			ID:             i,
			TournamentSlug: testSlug,
			RoleID:         int64(1000 + i),
			Name:           fmt.Sprintf("Team %d", i),
			Seed:           i,
		}
	}
	f.teamRepo.nextID = teamCount + 1
	return f
}

// report records a score on the match at the given phase/round/position.
func (f *serviceFixture) report(t *testing.T, phase models.Phase, round, position, scoreA, scoreB int) {
	t.Helper()
	m := f.matchRepo.findSlot(testSlug, phase, round, position)
	if m == nil {
		t.Fatalf("no match at %s round %d position %d", phase, round, position)
	}
	if m.TeamAID == nil || m.TeamBID == nil {
		t.Fatalf("match at %s round %d position %d has unassigned teams", phase, round, position)
	}
	a, b := scoreA, scoreB
	m.ScoreA, m.ScoreB = &a, &b
	m.Reported = true
}

func teamPair(t *testing.T, m models.Match) (int, int) {
	t.Helper()
	if m.TeamAID == nil || m.TeamBID == nil {
		t.Fatalf("match %d round %d position %d is unassigned", m.ID, m.Round, m.Position)
	}
	return *m.TeamAID, *m.TeamBID
}
