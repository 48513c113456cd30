package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/mayumon/utow-mayubot/models"
)

// runInTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise. A failed commit surfaces as the returned error.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, beginErr := db.BeginTx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("rolling back transaction: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusRegistration: {models.StatusActive},
		models.StatusActive:       {models.StatusCompleted},
		models.StatusCompleted:    {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// attachMatchTeams fills the optional TeamA/TeamB fields on each match from
// the tournament's pool.
func attachMatchTeams(matches []models.Match, pool []models.Team) {
	byID := make(map[int]*models.Team, len(pool))
	for i := range pool {
		byID[pool[i].ID] = &pool[i]
	}
	for i := range matches {
		if matches[i].TeamAID != nil {
			matches[i].TeamA = byID[*matches[i].TeamAID]
		}
		if matches[i].TeamBID != nil {
			matches[i].TeamB = byID[*matches[i].TeamBID]
		}
	}
}

// attachStandingTeams fills the optional Team field on each standing row.
func attachStandingTeams(standings []models.Standing, pool []models.Team) {
	byID := make(map[int]*models.Team, len(pool))
	for i := range pool {
		byID[pool[i].ID] = &pool[i]
	}
	for i := range standings {
		standings[i].Team = byID[standings[i].TeamID]
	}
}
