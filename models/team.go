package models

import "time"

type Team struct {
	ID             int       `json:"id" db:"id"`
	TournamentSlug string    `json:"tournament_slug" db:"tournament_slug"`
	RoleID         int64     `json:"role_id" db:"role_id"`
	ChallongeID    *int64    `json:"challonge_id,omitempty" db:"challonge_id"`
	Name           string    `json:"name" db:"name"`
	Seed           int       `json:"seed" db:"seed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
