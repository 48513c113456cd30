package brackets

import (
	"sort"

	"github.com/mayumon/utow-mayubot/models"
)

// ComputeStandings derives each pool team's record from reported matches and
// returns the table in canonical rank order. Matches involving teams outside
// the pool contribute nothing. A draw is counted only when both scores are
// exactly equal.
func ComputeStandings(pool []models.Team, history []models.Match) []models.Standing {
	index := make(map[int]int, len(pool))
	standings := make([]models.Standing, len(pool))
	for i, team := range pool {
		standings[i] = models.Standing{TeamID: team.ID, Seed: team.Seed}
		index[team.ID] = i
	}

	for _, m := range history {
		if !m.Reported || m.TeamAID == nil || m.TeamBID == nil || m.ScoreA == nil || m.ScoreB == nil {
			continue
		}
		sa, sb := *m.ScoreA, *m.ScoreB
		if i, ok := index[*m.TeamAID]; ok {
			s := &standings[i]
			s.MapWins += sa
			s.MapLosses += sb
			switch {
			case sa > sb:
				s.Wins++
			case sb > sa:
				s.Losses++
			default:
				s.Draws++
			}
		}
		if i, ok := index[*m.TeamBID]; ok {
			s := &standings[i]
			s.MapWins += sb
			s.MapLosses += sa
			switch {
			case sb > sa:
				s.Wins++
			case sa > sb:
				s.Losses++
			default:
				s.Draws++
			}
		}
	}

	for i := range standings {
		standings[i].MapDiff = standings[i].MapWins - standings[i].MapLosses
	}

	SortStandings(standings)
	return standings
}

// SortStandings orders records canonically: wins desc, map differential desc,
// map wins desc, seed asc. Seeds are unique per tournament, so the order is
// total.
func SortStandings(standings []models.Standing) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.MapDiff != b.MapDiff {
			return a.MapDiff > b.MapDiff
		}
		if a.MapWins != b.MapWins {
			return a.MapWins > b.MapWins
		}
		return a.Seed < b.Seed
	})
}

// RankedTeamIDs returns the pool's team IDs in canonical rank order.
func RankedTeamIDs(pool []models.Team, history []models.Match) []int {
	standings := ComputeStandings(pool, history)
	ids := make([]int, len(standings))
	for i, s := range standings {
		ids[i] = s.TeamID
	}
	return ids
}
