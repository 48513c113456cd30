package brackets

import (
	"context"
	"sort"

	"github.com/mayumon/utow-mayubot/models"
)

type SwissGenerator struct{}

func NewSwissGenerator() RoundGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GenerateRound produces round 1 as concrete pairs (top half of the pool
// against the bottom half, in pool order) and every later round as
// pool_size/2 placeholders that a refresh fills from standings once the
// previous round is fully reported.
func (g *SwissGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	n := len(params.Pool)
	if n < 2 || n%2 != 0 {
		return nil, ErrInvalidPoolSize
	}

	if params.Round > 1 {
		return make([]Pairing, n/2), nil
	}

	pairs := make([]Pairing, 0, n/2)
	half := n / 2
	for i := 0; i < half; i++ {
		pairs = append(pairs, pairOf(params.Pool[i].ID, params.Pool[i+half].ID, nil))
	}
	return pairs, nil
}

// PreviousOpponents collects, per team, the set of opponents it has already
// been paired against in the given history. Assignment alone counts: a pair
// is recorded as soon as both slots are set, reported or not.
func PreviousOpponents(history []models.Match) map[int]map[int]bool {
	opp := make(map[int]map[int]bool)
	add := func(a, b int) {
		if opp[a] == nil {
			opp[a] = make(map[int]bool)
		}
		opp[a][b] = true
	}
	for _, m := range history {
		if m.TeamAID == nil || m.TeamBID == nil {
			continue
		}
		add(*m.TeamAID, *m.TeamBID)
		add(*m.TeamBID, *m.TeamAID)
	}
	return opp
}

// PairNextRound produces the next swiss round from current standings and
// opponent history: teams are grouped by (wins, losses), groups are processed
// best record first, and each group is paired without repeat meetings where
// possible, floating one team into the group below when needed.
//
// The result is deterministic for identical input. An odd pool is a caller
// precondition violation: one team is left unpaired rather than rejected.
func PairNextRound(pool []models.Team, history []models.Match) []Pairing {
	standings := ComputeStandings(pool, history)
	opp := PreviousOpponents(history)

	type record struct {
		wins   int
		losses int
	}

	buckets := make(map[record][]models.Standing)
	var order []record
	for _, s := range standings {
		key := record{wins: s.Wins, losses: s.Losses}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], s)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].wins != order[j].wins {
			return order[i].wins > order[j].wins
		}
		return order[i].losses < order[j].losses
	})

	// Within a group: map differential desc, then seed asc.
	members := make(map[record][]int, len(buckets))
	for key, rows := range buckets {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].MapDiff != rows[j].MapDiff {
				return rows[i].MapDiff > rows[j].MapDiff
			}
			return rows[i].Seed < rows[j].Seed
		})
		ids := make([]int, len(rows))
		for i, row := range rows {
			ids[i] = row.TeamID
		}
		members[key] = ids
	}

	var pairs []Pairing
	var carry []int

	for gi, key := range order {
		group := make([]int, 0, len(carry)+len(members[key]))
		group = append(group, carry...)
		group = append(group, members[key]...)
		carry = nil

		if len(group)%2 == 0 {
			if matched, ok := matchGroup(group, opp); ok {
				pairs = appendIDPairs(pairs, matched)
				continue
			}
		}

		var next []int
		if gi+1 < len(order) {
			next = members[order[gi+1]]
		}
		if floater, matched, ok := selectFloater(group, next, opp); ok {
			pairs = appendIDPairs(pairs, matched)
			carry = []int{floater}
			continue
		}

		matched, leftover := greedyPair(group, opp)
		pairs = appendIDPairs(pairs, matched)
		if leftover != nil {
			carry = []int{*leftover}
		}
	}

	return pairs
}

// matchGroup searches for a perfect matching of the group in which no pair
// has met before. Depth-first: the first unmatched team is paired with each
// later unmatched candidate in turn, backtracking on failure. Deterministic
// because candidates are tried in group order.
func matchGroup(group []int, opp map[int]map[int]bool) ([][2]int, bool) {
	if len(group)%2 != 0 {
		return nil, false
	}
	used := make([]bool, len(group))
	out := make([][2]int, 0, len(group)/2)

	var dfs func() bool
	dfs = func() bool {
		first := -1
		for i, u := range used {
			if !u {
				first = i
				break
			}
		}
		if first == -1 {
			return true
		}
		used[first] = true
		for j := first + 1; j < len(group); j++ {
			if used[j] || opp[group[first]][group[j]] {
				continue
			}
			used[j] = true
			out = append(out, [2]int{group[first], group[j]})
			if dfs() {
				return true
			}
			out = out[:len(out)-1]
			used[j] = false
		}
		used[first] = false
		return false
	}

	if !dfs() {
		return nil, false
	}
	return out, true
}

// selectFloater picks the team to move into the group below: candidates are
// tried from the bottom of the group upward, and the first one that both has
// at least one fresh opponent in the next group and leaves the remainder
// perfectly pairable wins. Returns the floater and the remainder's matching.
func selectFloater(group, next []int, opp map[int]map[int]bool) (int, [][2]int, bool) {
	for i := len(group) - 1; i >= 0; i-- {
		cand := group[i]
		if !hasFreshOpponent(cand, next, opp) {
			continue
		}
		rest := make([]int, 0, len(group)-1)
		rest = append(rest, group[:i]...)
		rest = append(rest, group[i+1:]...)
		if matched, ok := matchGroup(rest, opp); ok {
			return cand, matched, true
		}
	}
	return 0, nil, false
}

func hasFreshOpponent(team int, candidates []int, opp map[int]map[int]bool) bool {
	for _, c := range candidates {
		if !opp[team][c] {
			return true
		}
	}
	return false
}

// greedyPair pairs the group front to back, preferring the first partner not
// met before and falling back to the first one available, so repeats happen
// only when no fresh partner is left. An odd group returns its last unmatched
// team as the leftover to carry.
func greedyPair(group []int, opp map[int]map[int]bool) ([][2]int, *int) {
	used := make([]bool, len(group))
	out := make([][2]int, 0, len(group)/2)

	for i := 0; i < len(group); i++ {
		if used[i] {
			continue
		}
		a := group[i]
		j := -1
		for k := i + 1; k < len(group); k++ {
			if !used[k] && !opp[a][group[k]] {
				j = k
				break
			}
		}
		if j == -1 {
			for k := i + 1; k < len(group); k++ {
				if !used[k] {
					j = k
					break
				}
			}
		}
		if j == -1 {
			return out, &a
		}
		out = append(out, [2]int{a, group[j]})
		used[i], used[j] = true, true
	}
	return out, nil
}

func appendIDPairs(pairs []Pairing, idPairs [][2]int) []Pairing {
	for _, p := range idPairs {
		pairs = append(pairs, pairOf(p[0], p[1], nil))
	}
	return pairs
}
