package models

import "time"

// Phase is the top-level format of a stretch of rounds, matching the ENUM in the DB.
type Phase string

const (
	PhaseSwiss      Phase = "swiss"
	PhaseRoundRobin Phase = "roundrobin"
	PhaseDoubleElim Phase = "double_elim"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseSwiss, PhaseRoundRobin, PhaseDoubleElim:
		return true
	default:
		return false
	}
}

// BracketTag is the double-elimination sub-bracket a match belongs to.
type BracketTag string

const (
	TagWinners    BracketTag = "WB"
	TagLosers     BracketTag = "LB"
	TagGrandFinal BracketTag = "GF"
	TagQualifier  BracketTag = "LCQ"
	TagThird      BracketTag = "3P"
	TagFourth     BracketTag = "4P"
)

type Match struct {
	ID               int         `json:"id" db:"id"`
	TournamentSlug   string      `json:"tournament_slug" db:"tournament_slug"`
	Phase            Phase       `json:"phase" db:"phase"`
	Round            int         `json:"round" db:"round"`
	Position         int         `json:"position" db:"position"`
	Bracket          *BracketTag `json:"bracket,omitempty" db:"bracket"`
	TeamAID          *int        `json:"team_a_id,omitempty" db:"team_a_id"`
	TeamBID          *int        `json:"team_b_id,omitempty" db:"team_b_id"`
	ScoreA           *int        `json:"score_a,omitempty" db:"score_a"`
	ScoreB           *int        `json:"score_b,omitempty" db:"score_b"`
	Reported         bool        `json:"reported" db:"reported"`
	ChallongeMatchID *int64      `json:"challonge_match_id,omitempty" db:"challonge_match_id"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`

	// Optional linked teams, populated by services, not mapped directly.
	TeamA *Team `json:"team_a,omitempty" db:"-"`
	TeamB *Team `json:"team_b,omitempty" db:"-"`
}

// IsPlaceholder reports whether the match is still waiting for both feeder results.
func (m *Match) IsPlaceholder() bool {
	return m.TeamAID == nil && m.TeamBID == nil
}
