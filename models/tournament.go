package models

import "time"

// TournamentStatus matches the ENUM in the DB.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
)

type Tournament struct {
	Slug          string           `json:"slug" db:"slug"`
	Name          string           `json:"name" db:"name"`
	ChallongeSlug *string          `json:"challonge_slug,omitempty" db:"challonge_slug"`
	Status        TournamentStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by services, not mapped directly.
	Teams []Team `json:"teams,omitempty" db:"-"`
}
