package brackets

import (
	"context"

	"github.com/mayumon/utow-mayubot/models"
)

// doubleElimDepth is the fixed number of rounds of every supported bracket.
const doubleElimDepth = 4

// doubleElimShapes lists, per supported pool size, the bracket tags of each
// round in position order.
var doubleElimShapes = map[int][doubleElimDepth][]models.BracketTag{
	4: {
		{models.TagWinners, models.TagWinners},
		{models.TagWinners, models.TagLosers},
		{models.TagLosers},
		{models.TagGrandFinal},
	},
	6: {
		{models.TagQualifier, models.TagQualifier},
		{models.TagWinners, models.TagWinners},
		{models.TagWinners, models.TagLosers},
		{models.TagThird, models.TagGrandFinal},
	},
	8: {
		{models.TagWinners, models.TagWinners, models.TagWinners, models.TagWinners},
		{models.TagWinners, models.TagWinners, models.TagLosers, models.TagLosers},
		{models.TagWinners, models.TagLosers, models.TagFourth},
		{models.TagLosers, models.TagGrandFinal},
	},
}

// doubleElimSeedPairs gives round 1 pairings as 1-indexed positions into the
// ranked pool. Sizes 4 and 8 open with full winners-bracket rounds; size 6
// sends seeds 3-6 through the qualifiers while seeds 1 and 2 sit out.
var doubleElimSeedPairs = map[int][][2]int{
	4: {{1, 4}, {2, 3}},
	6: {{3, 6}, {4, 5}},
	8: {{1, 8}, {4, 5}, {3, 6}, {2, 7}},
}

type DoubleElimGenerator struct{}

func NewDoubleElimGenerator() RoundGenerator {
	return &DoubleElimGenerator{}
}

func (g *DoubleElimGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateRound builds one round of the fixed four-round bracket for pool
// sizes 4, 6 and 8. Round 1 is seeded concretely from the canonical ranking
// of the pool over params.History; rounds 2-4 come back as tagged
// placeholders that advancement fills as results arrive.
func (g *DoubleElimGenerator) GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error) {
	size := len(params.Pool)
	shape, ok := doubleElimShapes[size]
	if !ok {
		return nil, ErrInvalidPoolSize
	}
	if params.Round < 1 || params.Round > doubleElimDepth {
		return nil, ErrRoundOutOfRange
	}

	tags := shape[params.Round-1]

	if params.Round > 1 {
		pairs := make([]Pairing, len(tags))
		for i, tag := range tags {
			pairs[i] = Pairing{Bracket: tagPtr(tag)}
		}
		return pairs, nil
	}

	seeds := RankedTeamIDs(params.Pool, params.History)
	pairs := make([]Pairing, 0, len(tags))
	for i, sp := range doubleElimSeedPairs[size] {
		pairs = append(pairs, pairOf(seeds[sp[0]-1], seeds[sp[1]-1], tagPtr(tags[i])))
	}
	return pairs, nil
}
