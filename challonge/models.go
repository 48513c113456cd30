package challonge

import (
	"fmt"
	"strings"
)

// Tournament is the subset of tournament attributes the bot reads.
type Tournament struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	URL               string `json:"url"`
	State             string `json:"state"`
	TournamentType    string `json:"tournament_type"`
	ParticipantsCount int    `json:"participants_count"`
}

type Participant struct {
	ID           int64   `json:"id"`
	TournamentID int64   `json:"tournament_id"`
	Name         string  `json:"name"`
	Seed         int     `json:"seed"`
	FinalRank    *int    `json:"final_rank"`
	Misc         *string `json:"misc"`
}

const MatchStateComplete = "complete"

type Match struct {
	ID           int64  `json:"id"`
	TournamentID int64  `json:"tournament_id"`
	State        string `json:"state"`
	Player1ID    *int64 `json:"player1_id"`
	Player2ID    *int64 `json:"player2_id"`
	WinnerID     *int64 `json:"winner_id"`
	LoserID      *int64 `json:"loser_id"`
	Round        int    `json:"round"`
	Identifier   string `json:"identifier"`
	ScoresCSV    string `json:"scores_csv"`
}

func (m *Match) Completed() bool {
	return m.State == MatchStateComplete
}

// Scores parses the first set of scores_csv. Multi-set strings keep only the
// first set, which is how the site reports a series total.
func (m *Match) Scores() (scoreA, scoreB int, ok bool) {
	first := m.ScoresCSV
	if i := strings.Index(first, ","); i >= 0 {
		first = first[:i]
	}
	if _, err := fmt.Sscanf(first, "%d-%d", &scoreA, &scoreB); err != nil {
		return 0, 0, false
	}
	return scoreA, scoreB, true
}

// The v1 API wraps every record in a single-key object.
type tournamentEnvelope struct {
	Tournament Tournament `json:"tournament"`
}

type participantEnvelope struct {
	Participant Participant `json:"participant"`
}

type matchEnvelope struct {
	Match Match `json:"match"`
}
