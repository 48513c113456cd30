package brackets

import (
	"reflect"
	"testing"

	"github.com/mayumon/utow-mayubot/models"
)

func intp(v int) *int { return &v }

// poolOf builds n teams with IDs and seeds 1..n.
func poolOf(n int) []models.Team {
	pool := make([]models.Team, n)
	for i := range pool {
		pool[i] = models.Team{ID: i + 1, Seed: i + 1, Name: "team"}
	}
	return pool
}

// played builds a reported swiss match.
func played(round, a, b, scoreA, scoreB int) models.Match {
	return models.Match{
		Phase:    models.PhaseSwiss,
		Round:    round,
		TeamAID:  intp(a),
		TeamBID:  intp(b),
		ScoreA:   intp(scoreA),
		ScoreB:   intp(scoreB),
		Reported: true,
	}
}

// scheduled builds an assigned but unreported swiss match.
func scheduled(round, a, b int) models.Match {
	return models.Match{
		Phase:   models.PhaseSwiss,
		Round:   round,
		TeamAID: intp(a),
		TeamBID: intp(b),
	}
}

func TestComputeStandingsRecords(t *testing.T) {
	pool := poolOf(4)
	history := []models.Match{
		played(1, 1, 2, 2, 0),
		played(1, 3, 4, 2, 1),
		played(2, 1, 3, 1, 1),
		scheduled(2, 2, 4),
	}

	standings := ComputeStandings(pool, history)

	byTeam := make(map[int]models.Standing, len(standings))
	for _, s := range standings {
		byTeam[s.TeamID] = s
	}

	cases := []struct {
		team    int
		wins    int
		draws   int
		losses  int
		mapDiff int
	}{
		{team: 1, wins: 1, draws: 1, losses: 0, mapDiff: 2},
		{team: 2, wins: 0, draws: 0, losses: 1, mapDiff: -2},
		{team: 3, wins: 1, draws: 1, losses: 0, mapDiff: 1},
		{team: 4, wins: 0, draws: 0, losses: 1, mapDiff: -1},
	}
	for _, tc := range cases {
		s, ok := byTeam[tc.team]
		if !ok {
			t.Fatalf("team %d missing from standings", tc.team)
		}
		if s.Wins != tc.wins || s.Draws != tc.draws || s.Losses != tc.losses || s.MapDiff != tc.mapDiff {
			t.Fatalf("team %d: got W%d D%d L%d diff %d, want W%d D%d L%d diff %d",
				tc.team, s.Wins, s.Draws, s.Losses, s.MapDiff, tc.wins, tc.draws, tc.losses, tc.mapDiff)
		}
	}
}

func TestComputeStandingsIgnoresUnreported(t *testing.T) {
	pool := poolOf(2)
	history := []models.Match{scheduled(1, 1, 2)}

	standings := ComputeStandings(pool, history)
	for _, s := range standings {
		if s.Wins != 0 || s.Draws != 0 || s.Losses != 0 || s.MapWins != 0 || s.MapLosses != 0 {
			t.Fatalf("unreported match changed team %d record: %+v", s.TeamID, s)
		}
	}
}

func TestComputeStandingsIgnoresTeamsOutsidePool(t *testing.T) {
	pool := poolOf(2)
	history := []models.Match{
		played(1, 1, 99, 2, 0),
		played(1, 98, 97, 2, 1),
	}

	standings := ComputeStandings(pool, history)
	if len(standings) != 2 {
		t.Fatalf("expected 2 standings rows, got %d", len(standings))
	}
	if standings[0].TeamID != 1 || standings[0].Wins != 1 {
		t.Fatalf("pool team's result against outsider not counted: %+v", standings[0])
	}
}

func TestComputeStandingsDeterministic(t *testing.T) {
	pool := poolOf(8)
	history := []models.Match{
		played(1, 1, 5, 2, 1),
		played(1, 2, 6, 0, 2),
		played(1, 3, 7, 1, 1),
		played(1, 4, 8, 2, 0),
	}

	first := ComputeStandings(pool, history)
	second := ComputeStandings(pool, history)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same history produced different standings:\n%+v\n%+v", first, second)
	}
}

func TestSortStandingsCanonicalOrder(t *testing.T) {
	cases := []struct {
		name string
		in   []models.Standing
		want []int
	}{
		{
			name: "wins first",
			in: []models.Standing{
				{TeamID: 1, Seed: 1, Wins: 0},
				{TeamID: 2, Seed: 2, Wins: 2},
				{TeamID: 3, Seed: 3, Wins: 1},
			},
			want: []int{2, 3, 1},
		},
		{
			name: "map differential breaks equal wins",
			in: []models.Standing{
				{TeamID: 1, Seed: 1, Wins: 1, MapDiff: -1},
				{TeamID: 2, Seed: 2, Wins: 1, MapDiff: 3},
			},
			want: []int{2, 1},
		},
		{
			name: "map wins break equal differential",
			in: []models.Standing{
				{TeamID: 1, Seed: 1, Wins: 1, MapDiff: 1, MapWins: 2},
				{TeamID: 2, Seed: 2, Wins: 1, MapDiff: 1, MapWins: 4},
			},
			want: []int{2, 1},
		},
		{
			name: "seed is the final tie break",
			in: []models.Standing{
				{TeamID: 9, Seed: 9},
				{TeamID: 4, Seed: 4},
				{TeamID: 7, Seed: 7},
			},
			want: []int{4, 7, 9},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			SortStandings(tc.in)
			got := make([]int, len(tc.in))
			for i, s := range tc.in {
				got[i] = s.TeamID
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("order = %v, want %v", got, tc.want)
			}
		})
	}
}
