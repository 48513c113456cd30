package models

// Standing is a team's derived record within one phase. Standings are
// recomputed from reported matches on demand and never persisted.
type Standing struct {
	TeamID    int `json:"team_id"`
	Seed      int `json:"seed"`
	Wins      int `json:"wins"`
	Draws     int `json:"draws"`
	Losses    int `json:"losses"`
	MapWins   int `json:"map_wins"`
	MapLosses int `json:"map_losses"`
	MapDiff   int `json:"map_diff"`

	// Optional linked team, populated by services.
	Team *Team `json:"team,omitempty"`
}
