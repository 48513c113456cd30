package brackets

import (
	"sort"

	"github.com/mayumon/utow-mayubot/models"
)

// AdvanceParams carries one bracket transition: the completed round R, the
// next round R+1 with its placeholders, and enough context to apply the
// per-size rules.
type AdvanceParams struct {
	PoolSize int
	// Completed is round R of the bracket, Next is round R+1.
	Completed []models.Match
	Next      []models.Match
	// History is the full double-elimination phase history; the grand final
	// needs the winners-bracket final, which for size 4 sits two rounds back.
	History []models.Match
	// Seeds is the pool's team IDs in canonical rank order, used when the
	// size-6 qualifier winners meet the two byed seeds.
	Seeds []int
	// RequireFull makes unresolved placeholders an error instead of a
	// partial result.
	RequireFull bool
}

// Assignment names the teams that fill one placeholder.
type Assignment struct {
	MatchID int
	TeamAID int
	TeamBID int
}

// ResolveAdvancement fills round R+1 placeholders from round R results,
// evaluating each destination bracket tag independently:
//
//   - WB: winners of R's WB matches, paired in submission order. Size 6
//     leaving the qualifiers: LCQ winner 1 vs seed 1, LCQ winner 2 vs seed 2,
//     consuming the first two WB placeholders.
//   - LB: losers of R's WB followed by winners of R's LB, paired in that
//     order. When the destination round has a 4P match (size 8, round 3),
//     that match claims the WB losers and LB takes only the LB winners.
//   - 4P: the two losers of R's WB matches.
//   - 3P: loser of the WB final, then loser of the LB final.
//   - GF: winner of the WB final vs winner of the LB final for sizes 4 and
//     6. The size-8 grand final is not derivable from round 3 and is always
//     left unfilled.
//
// A feeder with no reported result or with tied scores is not yet decidable;
// its destination stays empty and the rest still resolves. Already-assigned
// matches are never touched, so repeated runs are idempotent. A destination
// whose placeholder count cannot host the computed pairs aborts the whole
// resolution with ErrPlaceholderCountMismatch.
func ResolveAdvancement(params AdvanceParams) ([]Assignment, error) {
	completed := sortedByPosition(params.Completed)
	next := sortedByPosition(params.Next)

	feeders := collectFeeders(completed)
	dest := groupByTag(next)

	planned := make(map[int][2]int)

	for _, tag := range []models.BracketTag{models.TagWinners, models.TagLosers, models.TagFourth, models.TagThird, models.TagGrandFinal} {
		targets, ok := dest[tag]
		if !ok {
			continue
		}

		var feed []*int
		switch tag {
		case models.TagWinners:
			if params.PoolSize == 6 && len(feeders.lcqWinners) > 0 {
				feed = qualifierExitFeed(feeders.lcqWinners, params.Seeds)
			}
			feed = append(feed, feeders.wbWinners...)
		case models.TagLosers:
			if _, has4P := dest[models.TagFourth]; !has4P {
				feed = append(feed, feeders.wbLosers...)
			}
			feed = append(feed, feeders.lbWinners...)
		case models.TagFourth:
			feed = append(feed, feeders.wbLosers...)
		case models.TagThird:
			feed = append(feed, feeders.wbLosers...)
			feed = append(feed, feeders.lbLosers...)
		case models.TagGrandFinal:
			if params.PoolSize == 8 {
				continue
			}
			feed = grandFinalFeed(params.History)
		}

		if len(targets) != len(feed)/2 {
			return nil, ErrPlaceholderCountMismatch
		}

		for i, target := range targets {
			if !target.IsPlaceholder() {
				continue
			}
			a, b := feed[2*i], feed[2*i+1]
			if a == nil || b == nil {
				continue
			}
			planned[target.ID] = [2]int{*a, *b}
		}
	}

	assignments := make([]Assignment, 0, len(planned))
	unresolved := 0
	for _, m := range next {
		if pair, ok := planned[m.ID]; ok {
			assignments = append(assignments, Assignment{MatchID: m.ID, TeamAID: pair[0], TeamBID: pair[1]})
			continue
		}
		if m.IsPlaceholder() && !(params.PoolSize == 8 && m.Bracket != nil && *m.Bracket == models.TagGrandFinal) {
			unresolved++
		}
	}

	if params.RequireFull && unresolved > 0 {
		return assignments, ErrNotYetDecidable
	}
	return assignments, nil
}

type feederSets struct {
	wbWinners  []*int
	wbLosers   []*int
	lbWinners  []*int
	lbLosers   []*int
	lcqWinners []*int
}

func collectFeeders(completed []models.Match) feederSets {
	var f feederSets
	for _, m := range completed {
		if m.Bracket == nil {
			continue
		}
		w, l := matchOutcome(m)
		switch *m.Bracket {
		case models.TagWinners:
			f.wbWinners = append(f.wbWinners, w)
			f.wbLosers = append(f.wbLosers, l)
		case models.TagLosers:
			f.lbWinners = append(f.lbWinners, w)
			f.lbLosers = append(f.lbLosers, l)
		case models.TagQualifier:
			f.lcqWinners = append(f.lcqWinners, w)
		}
	}
	return f
}

// matchOutcome returns the winner and loser of a match, or nils when the
// match is unreported or tied and therefore decides nothing.
func matchOutcome(m models.Match) (winner, loser *int) {
	if !m.Reported || m.TeamAID == nil || m.TeamBID == nil || m.ScoreA == nil || m.ScoreB == nil {
		return nil, nil
	}
	switch {
	case *m.ScoreA > *m.ScoreB:
		return m.TeamAID, m.TeamBID
	case *m.ScoreB > *m.ScoreA:
		return m.TeamBID, m.TeamAID
	default:
		return nil, nil
	}
}

// qualifierExitFeed interleaves the qualifier winners with the two top seeds:
// (LCQ winner 1, seed 1), (LCQ winner 2, seed 2).
func qualifierExitFeed(lcqWinners []*int, seeds []int) []*int {
	feed := make([]*int, 0, 2*len(lcqWinners))
	for i, w := range lcqWinners {
		feed = append(feed, w)
		if i < len(seeds) {
			seed := seeds[i]
			feed = append(feed, &seed)
		} else {
			feed = append(feed, nil)
		}
	}
	return feed
}

// grandFinalFeed finds the winners-bracket final and losers-bracket final in
// the phase history (the highest-round match of each tag) and feeds their
// winners.
func grandFinalFeed(history []models.Match) []*int {
	var wbFinal, lbFinal *models.Match
	for i := range history {
		m := &history[i]
		if m.Bracket == nil {
			continue
		}
		switch *m.Bracket {
		case models.TagWinners:
			if wbFinal == nil || m.Round > wbFinal.Round || (m.Round == wbFinal.Round && m.Position > wbFinal.Position) {
				wbFinal = m
			}
		case models.TagLosers:
			if lbFinal == nil || m.Round > lbFinal.Round || (m.Round == lbFinal.Round && m.Position > lbFinal.Position) {
				lbFinal = m
			}
		}
	}

	feed := make([]*int, 2)
	if wbFinal != nil {
		feed[0], _ = matchOutcome(*wbFinal)
	}
	if lbFinal != nil {
		feed[1], _ = matchOutcome(*lbFinal)
	}
	return feed
}

func groupByTag(matches []models.Match) map[models.BracketTag][]models.Match {
	grouped := make(map[models.BracketTag][]models.Match)
	for _, m := range matches {
		if m.Bracket == nil {
			continue
		}
		grouped[*m.Bracket] = append(grouped[*m.Bracket], m)
	}
	return grouped
}

func sortedByPosition(matches []models.Match) []models.Match {
	out := make([]models.Match, len(matches))
	copy(out, matches)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Position < out[j].Position
	})
	return out
}
