package brackets

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mayumon/utow-mayubot/models"
)

func de(id, round, pos int, tag models.BracketTag) models.Match {
	return models.Match{
		ID:             id,
		TournamentSlug: "utow-open",
		Phase:          models.PhaseDoubleElim,
		Round:          round,
		Position:       pos,
		Bracket:        tagPtr(tag),
	}
}

func deSet(id, round, pos int, tag models.BracketTag, a, b int) models.Match {
	m := de(id, round, pos, tag)
	m.TeamAID = intp(a)
	m.TeamBID = intp(b)
	return m
}

func deDone(id, round, pos int, tag models.BracketTag, a, b, scoreA, scoreB int) models.Match {
	m := deSet(id, round, pos, tag, a, b)
	m.ScoreA = intp(scoreA)
	m.ScoreB = intp(scoreB)
	m.Reported = true
	return m
}

func TestResolveAdvancementFourTeamRoundOne(t *testing.T) {
	// 1 beats 4, 2 beats 3. Winners meet in the WB final, losers drop to LB.
	completed := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 2, 3, 2, 1),
	}
	next := []models.Match{
		de(11, 2, 1, models.TagWinners),
		de(12, 2, 2, models.TagLosers),
	}

	got, err := ResolveAdvancement(AdvanceParams{PoolSize: 4, Completed: completed, Next: next})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{
		{MatchID: 11, TeamAID: 1, TeamBID: 2},
		{MatchID: 12, TeamAID: 4, TeamBID: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementSixTeamQualifierExit(t *testing.T) {
	// Qualifier winners meet the byed top two in rank order: first LCQ winner
	// draws seed 1, second draws seed 2.
	completed := []models.Match{
		deDone(1, 1, 1, models.TagQualifier, 3, 6, 0, 2),
		deDone(2, 1, 2, models.TagQualifier, 4, 5, 2, 1),
	}
	next := []models.Match{
		de(21, 2, 1, models.TagWinners),
		de(22, 2, 2, models.TagWinners),
	}

	got, err := ResolveAdvancement(AdvanceParams{
		PoolSize:  6,
		Completed: completed,
		Next:      next,
		Seeds:     []int{1, 2, 3, 4, 5, 6},
	})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{
		{MatchID: 21, TeamAID: 6, TeamBID: 1},
		{MatchID: 22, TeamAID: 4, TeamBID: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementEightTeamRoundTwo(t *testing.T) {
	// Round 3 has a 4P match, which claims the WB losers; the LB placeholder
	// takes only the LB winners.
	completed := []models.Match{
		deDone(1, 2, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 2, 2, models.TagWinners, 3, 2, 1, 2),
		deDone(3, 2, 3, models.TagLosers, 8, 5, 2, 1),
		deDone(4, 2, 4, models.TagLosers, 6, 7, 0, 2),
	}
	next := []models.Match{
		de(31, 3, 1, models.TagWinners),
		de(32, 3, 2, models.TagLosers),
		de(33, 3, 3, models.TagFourth),
	}

	got, err := ResolveAdvancement(AdvanceParams{PoolSize: 8, Completed: completed, Next: next})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{
		{MatchID: 31, TeamAID: 1, TeamBID: 2},
		{MatchID: 32, TeamAID: 8, TeamBID: 7},
		{MatchID: 33, TeamAID: 4, TeamBID: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementEightTeamGrandFinalStaysEmpty(t *testing.T) {
	completed := []models.Match{
		deDone(1, 3, 1, models.TagWinners, 1, 2, 2, 1),
		deDone(2, 3, 2, models.TagLosers, 8, 7, 2, 0),
		deDone(3, 3, 3, models.TagFourth, 4, 3, 2, 1),
	}
	next := []models.Match{
		de(41, 4, 1, models.TagLosers),
		de(42, 4, 2, models.TagGrandFinal),
	}

	got, err := ResolveAdvancement(AdvanceParams{
		PoolSize:    8,
		Completed:   completed,
		Next:        next,
		RequireFull: true,
	})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{{MatchID: 41, TeamAID: 2, TeamBID: 8}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementFourTeamGrandFinalFromHistory(t *testing.T) {
	// The WB final sits two rounds back in a four-team bracket, so the grand
	// final draws it from history rather than from the completed round.
	history := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 2, 3, 2, 1),
		deDone(11, 2, 1, models.TagWinners, 1, 2, 2, 0),
		deDone(12, 2, 2, models.TagLosers, 4, 3, 0, 2),
		deDone(21, 3, 1, models.TagLosers, 2, 3, 2, 1),
	}
	completed := history[4:]
	next := []models.Match{de(31, 4, 1, models.TagGrandFinal)}

	got, err := ResolveAdvancement(AdvanceParams{
		PoolSize:  4,
		Completed: completed,
		Next:      next,
		History:   history,
	})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{{MatchID: 31, TeamAID: 1, TeamBID: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementSixTeamFinalRound(t *testing.T) {
	// Round 4 pairs the 3P match from the two bracket-final losers and the
	// grand final from the two bracket-final winners.
	history := []models.Match{
		deDone(1, 1, 1, models.TagQualifier, 3, 6, 0, 2),
		deDone(2, 1, 2, models.TagQualifier, 4, 5, 2, 1),
		deDone(11, 2, 1, models.TagWinners, 6, 1, 0, 2),
		deDone(12, 2, 2, models.TagWinners, 4, 2, 1, 2),
		deDone(21, 3, 1, models.TagWinners, 1, 2, 2, 1),
		deDone(22, 3, 2, models.TagLosers, 6, 4, 2, 0),
	}
	completed := history[4:]
	next := []models.Match{
		de(31, 4, 1, models.TagThird),
		de(32, 4, 2, models.TagGrandFinal),
	}

	got, err := ResolveAdvancement(AdvanceParams{
		PoolSize:  6,
		Completed: completed,
		Next:      next,
		History:   history,
		Seeds:     []int{1, 2, 3, 4, 5, 6},
	})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{
		{MatchID: 31, TeamAID: 2, TeamBID: 4},
		{MatchID: 32, TeamAID: 1, TeamBID: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementPartialResults(t *testing.T) {
	// Only the first half of the round is reported, so only the placeholders
	// fed entirely by it resolve.
	completed := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 8, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 4, 5, 2, 1),
		deDone(3, 1, 3, models.TagWinners, 3, 6, 1, 2),
		deSet(4, 1, 4, models.TagWinners, 2, 7),
	}
	next := []models.Match{
		de(11, 2, 1, models.TagWinners),
		de(12, 2, 2, models.TagWinners),
		de(13, 2, 3, models.TagLosers),
		de(14, 2, 4, models.TagLosers),
	}
	params := AdvanceParams{PoolSize: 8, Completed: completed, Next: next}

	got, err := ResolveAdvancement(params)
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{
		{MatchID: 11, TeamAID: 1, TeamBID: 4},
		{MatchID: 13, TeamAID: 8, TeamBID: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want %v", got, want)
	}

	params.RequireFull = true
	got, err = ResolveAdvancement(params)
	if !errors.Is(err, ErrNotYetDecidable) {
		t.Fatalf("RequireFull err = %v, want ErrNotYetDecidable", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RequireFull assignments = %v, want %v", got, want)
	}
}

func TestResolveAdvancementTieDecidesNothing(t *testing.T) {
	completed := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 2, 3, 1, 1),
	}
	next := []models.Match{
		de(11, 2, 1, models.TagWinners),
		de(12, 2, 2, models.TagLosers),
	}

	got, err := ResolveAdvancement(AdvanceParams{PoolSize: 4, Completed: completed, Next: next})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("assignments = %v, want none while the second match is tied", got)
	}
}

func TestResolveAdvancementIdempotent(t *testing.T) {
	completed := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 2, 3, 2, 1),
	}
	next := []models.Match{
		deSet(11, 2, 1, models.TagWinners, 1, 2),
		de(12, 2, 2, models.TagLosers),
	}

	got, err := ResolveAdvancement(AdvanceParams{PoolSize: 4, Completed: completed, Next: next})
	if err != nil {
		t.Fatalf("ResolveAdvancement: %v", err)
	}
	want := []Assignment{{MatchID: 12, TeamAID: 4, TeamBID: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("assignments = %v, want only the still-empty placeholder", got)
	}
}

func TestResolveAdvancementPlaceholderCountMismatch(t *testing.T) {
	completed := []models.Match{
		deDone(1, 1, 1, models.TagWinners, 1, 4, 2, 0),
		deDone(2, 1, 2, models.TagWinners, 2, 3, 2, 1),
	}
	next := []models.Match{
		de(11, 2, 1, models.TagWinners),
		de(12, 2, 2, models.TagWinners),
	}

	got, err := ResolveAdvancement(AdvanceParams{PoolSize: 4, Completed: completed, Next: next})
	if !errors.Is(err, ErrPlaceholderCountMismatch) {
		t.Fatalf("err = %v, want ErrPlaceholderCountMismatch", err)
	}
	if got != nil {
		t.Fatalf("assignments = %v, want nil on mismatch", got)
	}
}
