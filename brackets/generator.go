package brackets

import (
	"context"
	"errors"

	"github.com/mayumon/utow-mayubot/models"
)

var (
	ErrInvalidPoolSize          = errors.New("pool size is not valid for the requested format")
	ErrRoundOutOfRange          = errors.New("round number is outside the fixed bracket depth")
	ErrPlaceholderCountMismatch = errors.New("computed pair count does not match placeholder count")
	ErrNotYetDecidable          = errors.New("feeder matches are not yet decidable")
)

// Pairing is one match slot of a generated round. Both team IDs unset means a
// placeholder that a later refresh fills in. Bracket is nil outside double
// elimination.
type Pairing struct {
	TeamAID *int
	TeamBID *int
	Bracket *models.BracketTag
}

type GenerateRoundParams struct {
	// Pool is the tournament's team pool. Order matters: seed order for swiss
	// and round-robin, canonical rank order for double elimination.
	Pool []models.Team
	// History holds the matches the round may depend on, already filtered to
	// the relevant phase(s) by the caller.
	History []models.Match
	// Round is 1-indexed.
	Round int
}

type RoundGenerator interface {
	GenerateRound(ctx context.Context, params GenerateRoundParams) ([]Pairing, error)

	GetName() string
}

// pairOf builds a concrete pairing from two team IDs.
func pairOf(a, b int, tag *models.BracketTag) Pairing {
	return Pairing{TeamAID: &a, TeamBID: &b, Bracket: tag}
}

func tagPtr(tag models.BracketTag) *models.BracketTag {
	return &tag
}
