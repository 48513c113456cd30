package brackets

import (
	"context"

	"github.com/mayumon/utow-mayubot/models"
)

// byeTeamID marks the synthetic opponent added to odd pools. Real team IDs
// start at 1.
const byeTeamID = 0

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() RoundGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateRound returns the concrete pairings of one round-robin round. The
// full schedule is a cycle: round R of pool size N plays
// schedule[(R-1) mod len(schedule)], so rounds past one full rotation repeat
// the schedule from the top.
func (g *RoundRobinGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	if len(params.Pool) < 2 {
		return nil, ErrInvalidPoolSize
	}
	if params.Round < 1 {
		return nil, ErrRoundOutOfRange
	}

	schedule := RoundRobinSchedule(params.Pool)
	return schedule[(params.Round-1)%len(schedule)], nil
}

// RoundRobinSchedule builds the complete circle-method schedule: the first
// team stays fixed while the rest rotate one position per round, which makes
// every pair of distinct teams meet exactly once. An odd pool gets a
// synthetic bye opponent; pairs involving the bye are dropped, so exactly one
// team sits out each round.
func RoundRobinSchedule(pool []models.Team) [][]Pairing {
	ids := make([]int, 0, len(pool)+1)
	for _, team := range pool {
		ids = append(ids, team.ID)
	}
	if len(ids)%2 != 0 {
		ids = append(ids, byeTeamID)
	}

	n := len(ids)
	rounds := n - 1
	schedule := make([][]Pairing, 0, rounds)

	for r := 0; r < rounds; r++ {
		pairs := make([]Pairing, 0, n/2)
		for i := 0; i < n/2; i++ {
			a, b := ids[i], ids[n-1-i]
			if a == byeTeamID || b == byeTeamID {
				continue
			}
			pairs = append(pairs, pairOf(a, b, nil))
		}
		schedule = append(schedule, pairs)

		// Rotate everything but the first element one step clockwise.
		rotated := make([]int, 0, n)
		rotated = append(rotated, ids[0], ids[n-1])
		rotated = append(rotated, ids[1:n-1]...)
		ids = rotated
	}

	return schedule
}
