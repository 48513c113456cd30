package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/models"
)

func newRoundServiceFixture(t *testing.T, teams int) (*serviceFixture, RoundService) {
	t.Helper()
	f := newFixture(t, teams)
	svc := NewRoundService(f.db, f.tournamentRepo, f.teamRepo, f.matchRepo, brackets.NewHub())
	return f, svc
}

func TestCreateRoundsSwiss(t *testing.T) {
	_, svc := newRoundServiceFixture(t, 8)

	views, err := svc.CreateRounds(context.Background(), testSlug, models.PhaseSwiss, 3)
	if err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("created %d rounds, want 3", len(views))
	}

	// Round 1 pairs the top half of the pool against the bottom half.
	first := views[0]
	if first.Round != 1 || len(first.Matches) != 4 {
		t.Fatalf("round 1 has %d matches, want 4", len(first.Matches))
	}
	wantPairs := [][2]int{{1, 5}, {2, 6}, {3, 7}, {4, 8}}
	for i, m := range first.Matches {
		if m.Position != i+1 {
			t.Errorf("match %d position = %d, want %d", i, m.Position, i+1)
		}
		a, b := teamPair(t, m)
		if a != wantPairs[i][0] || b != wantPairs[i][1] {
			t.Errorf("round 1 pair %d = (%d, %d), want (%d, %d)", i, a, b, wantPairs[i][0], wantPairs[i][1])
		}
	}

	// Later rounds are placeholders until the previous round is reported.
	for _, view := range views[1:] {
		if len(view.Matches) != 4 {
			t.Fatalf("round %d has %d matches, want 4", view.Round, len(view.Matches))
		}
		for _, m := range view.Matches {
			if !m.IsPlaceholder() {
				t.Errorf("round %d position %d is not a placeholder", view.Round, m.Position)
			}
		}
	}
}

func TestCreateRoundValidation(t *testing.T) {
	ctx := context.Background()
	_, svc := newRoundServiceFixture(t, 4)

	if _, err := svc.CreateRounds(ctx, testSlug, models.PhaseSwiss, 0); !errors.Is(err, ErrInvalidRoundNumber) {
		t.Errorf("count 0: err = %v, want %v", err, ErrInvalidRoundNumber)
	}
	if _, err := svc.CreateRounds(ctx, testSlug, models.Phase("bogus"), 1); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("bogus phase: err = %v, want %v", err, ErrInvalidPhase)
	}
	if _, err := svc.CreateRounds(ctx, "no-such-tournament", models.PhaseSwiss, 1); !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("missing tournament: err = %v, want %v", err, ErrTournamentNotFound)
	}

	if _, err := svc.CreateRounds(ctx, testSlug, models.PhaseSwiss, 1); err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	if _, err := svc.CreateRound(ctx, testSlug, models.PhaseSwiss, 1); !errors.Is(err, ErrRoundAlreadyExists) {
		t.Errorf("existing round: err = %v, want %v", err, ErrRoundAlreadyExists)
	}
	if _, err := svc.CreateRound(ctx, testSlug, models.PhaseSwiss, 3); !errors.Is(err, ErrRoundOutOfSequence) {
		t.Errorf("round 3 after 1: err = %v, want %v", err, ErrRoundOutOfSequence)
	}
}

func TestCreateRoundsSwissOddPool(t *testing.T) {
	_, svc := newRoundServiceFixture(t, 5)

	_, err := svc.CreateRounds(context.Background(), testSlug, models.PhaseSwiss, 1)
	if !errors.Is(err, brackets.ErrInvalidPoolSize) {
		t.Fatalf("err = %v, want %v", err, brackets.ErrInvalidPoolSize)
	}
}

func TestRefreshSwissRound(t *testing.T) {
	ctx := context.Background()
	f, svc := newRoundServiceFixture(t, 4)

	if _, err := svc.CreateRounds(ctx, testSlug, models.PhaseSwiss, 2); err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}

	// Round 1 is (1,3) and (2,4); round 2 cannot pair until both reported.
	if _, err := svc.RefreshRound(ctx, testSlug, models.PhaseSwiss, 2); !errors.Is(err, ErrPreviousRoundNotReported) {
		t.Fatalf("refresh before results: err = %v, want %v", err, ErrPreviousRoundNotReported)
	}

	f.report(t, models.PhaseSwiss, 1, 1, 2, 0) // 1 beats 3
	f.report(t, models.PhaseSwiss, 1, 2, 0, 2) // 4 beats 2

	view, err := svc.RefreshRound(ctx, testSlug, models.PhaseSwiss, 2)
	if err != nil {
		t.Fatalf("RefreshRound: %v", err)
	}

	// Winners meet winners, losers meet losers, and nobody replays round 1.
	wantPairs := [][2]int{{1, 4}, {2, 3}}
	for i, m := range view.Matches {
		a, b := teamPair(t, m)
		if a != wantPairs[i][0] || b != wantPairs[i][1] {
			t.Errorf("round 2 pair %d = (%d, %d), want (%d, %d)", i, a, b, wantPairs[i][0], wantPairs[i][1])
		}
	}

	// A second refresh with nothing new changes nothing.
	again, err := svc.RefreshRound(ctx, testSlug, models.PhaseSwiss, 2)
	if err != nil {
		t.Fatalf("second RefreshRound: %v", err)
	}
	for i, m := range again.Matches {
		a, b := teamPair(t, m)
		if a != wantPairs[i][0] || b != wantPairs[i][1] {
			t.Errorf("after second refresh pair %d = (%d, %d), want (%d, %d)", i, a, b, wantPairs[i][0], wantPairs[i][1])
		}
	}
}

func TestDoubleElimFourTeamRun(t *testing.T) {
	ctx := context.Background()
	f, svc := newRoundServiceFixture(t, 4)

	views, err := svc.CreateRounds(ctx, testSlug, models.PhaseDoubleElim, 4)
	if err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	if len(views) != 4 {
		t.Fatalf("created %d rounds, want 4", len(views))
	}

	// Round 1 seeds 1v4 and 2v3 in the winners bracket.
	r1 := views[0].Matches
	if a, b := teamPair(t, r1[0]); a != 1 || b != 4 {
		t.Fatalf("round 1 match 1 = (%d, %d), want (1, 4)", a, b)
	}
	if a, b := teamPair(t, r1[1]); a != 2 || b != 3 {
		t.Fatalf("round 1 match 2 = (%d, %d), want (2, 3)", a, b)
	}

	// One reported result is not enough to fill anything in round 2.
	f.report(t, models.PhaseDoubleElim, 1, 1, 2, 0) // 1 beats 4
	view, err := svc.RefreshRound(ctx, testSlug, models.PhaseDoubleElim, 2)
	if err != nil {
		t.Fatalf("partial refresh: %v", err)
	}
	for _, m := range view.Matches {
		if !m.IsPlaceholder() {
			t.Fatalf("round 2 position %d filled from a half-reported round", m.Position)
		}
	}

	f.report(t, models.PhaseDoubleElim, 1, 2, 2, 1) // 2 beats 3
	view, err = svc.RefreshRound(ctx, testSlug, models.PhaseDoubleElim, 2)
	if err != nil {
		t.Fatalf("RefreshRound round 2: %v", err)
	}
	if a, b := teamPair(t, view.Matches[0]); a != 1 || b != 2 {
		t.Errorf("winners final = (%d, %d), want (1, 2)", a, b)
	}
	if a, b := teamPair(t, view.Matches[1]); a != 4 || b != 3 {
		t.Errorf("losers round = (%d, %d), want (4, 3)", a, b)
	}

	f.report(t, models.PhaseDoubleElim, 2, 1, 2, 0) // 1 beats 2
	f.report(t, models.PhaseDoubleElim, 2, 2, 2, 1) // 4 beats 3
	view, err = svc.RefreshRound(ctx, testSlug, models.PhaseDoubleElim, 3)
	if err != nil {
		t.Fatalf("RefreshRound round 3: %v", err)
	}
	if a, b := teamPair(t, view.Matches[0]); a != 2 || b != 4 {
		t.Errorf("losers final = (%d, %d), want (2, 4)", a, b)
	}

	f.report(t, models.PhaseDoubleElim, 3, 1, 1, 2) // 4 beats 2
	view, err = svc.RefreshRound(ctx, testSlug, models.PhaseDoubleElim, 4)
	if err != nil {
		t.Fatalf("RefreshRound round 4: %v", err)
	}
	if a, b := teamPair(t, view.Matches[0]); a != 1 || b != 4 {
		t.Errorf("grand final = (%d, %d), want (1, 4)", a, b)
	}
}

func TestCreateRoundsDoubleElimStopsAtDepth(t *testing.T) {
	ctx := context.Background()
	_, svc := newRoundServiceFixture(t, 4)

	views, err := svc.CreateRounds(ctx, testSlug, models.PhaseDoubleElim, 10)
	if err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	if len(views) != 4 {
		t.Fatalf("created %d rounds, want 4", len(views))
	}

	if _, err := svc.CreateRound(ctx, testSlug, models.PhaseDoubleElim, 5); !errors.Is(err, brackets.ErrRoundOutOfRange) {
		t.Fatalf("round 5: err = %v, want %v", err, brackets.ErrRoundOutOfRange)
	}
}

func TestCreateRoundsRoundRobinFullCycle(t *testing.T) {
	ctx := context.Background()
	_, svc := newRoundServiceFixture(t, 5)

	views, err := svc.CreateRounds(ctx, testSlug, models.PhaseRoundRobin, 5)
	if err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	if len(views) != 5 {
		t.Fatalf("created %d rounds, want 5", len(views))
	}

	// An odd pool sits one team out per round and meets every pair once.
	seen := make(map[string]int)
	for _, view := range views {
		if len(view.Matches) != 2 {
			t.Fatalf("round %d has %d matches, want 2", view.Round, len(view.Matches))
		}
		for _, m := range view.Matches {
			a, b := teamPair(t, m)
			if a > b {
				a, b = b, a
			}
			seen[fmt.Sprintf("%d-%d", a, b)]++
		}
	}
	if len(seen) != 10 {
		t.Fatalf("saw %d distinct pairs, want 10", len(seen))
	}
	for pair, count := range seen {
		if count != 1 {
			t.Errorf("pair %s met %d times, want 1", pair, count)
		}
	}

	// Refresh is a no-op for a schedule that is concrete at creation.
	view, err := svc.RefreshRound(ctx, testSlug, models.PhaseRoundRobin, 3)
	if err != nil {
		t.Fatalf("RefreshRound: %v", err)
	}
	for _, m := range view.Matches {
		if m.IsPlaceholder() {
			t.Errorf("round robin position %d lost its teams", m.Position)
		}
	}
}

func TestGetRoundAndStandings(t *testing.T) {
	ctx := context.Background()
	f, svc := newRoundServiceFixture(t, 4)

	if _, err := svc.GetRound(ctx, testSlug, models.PhaseSwiss, 1); !errors.Is(err, ErrRoundNotFound) {
		t.Errorf("missing round: err = %v, want %v", err, ErrRoundNotFound)
	}
	if _, err := svc.GetStandings(ctx, "no-such-tournament", nil); !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("missing tournament: err = %v, want %v", err, ErrTournamentNotFound)
	}

	if _, err := svc.CreateRounds(ctx, testSlug, models.PhaseSwiss, 1); err != nil {
		t.Fatalf("CreateRounds: %v", err)
	}
	f.report(t, models.PhaseSwiss, 1, 1, 2, 1) // 1 beats 3
	f.report(t, models.PhaseSwiss, 1, 2, 2, 0) // 2 beats 4

	view, err := svc.GetRound(ctx, testSlug, models.PhaseSwiss, 1)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}
	if len(view.Matches) != 2 {
		t.Fatalf("round has %d matches, want 2", len(view.Matches))
	}
	if view.Matches[0].TeamA == nil || view.Matches[0].TeamA.Name != "Team 1" {
		t.Errorf("match team not attached: %+v", view.Matches[0].TeamA)
	}

	swiss := models.PhaseSwiss
	standings, err := svc.GetStandings(ctx, testSlug, &swiss)
	if err != nil {
		t.Fatalf("GetStandings: %v", err)
	}
	if len(standings) != 4 {
		t.Fatalf("standings has %d rows, want 4", len(standings))
	}
	// Both winners have one win; 2 took its match 2-0 and 1 only 2-1.
	if standings[0].TeamID != 2 || standings[1].TeamID != 1 {
		t.Errorf("top two = %d, %d, want 2, 1", standings[0].TeamID, standings[1].TeamID)
	}
	if standings[0].Team == nil || standings[0].Team.Name != "Team 2" {
		t.Errorf("standing team not attached: %+v", standings[0].Team)
	}
}
