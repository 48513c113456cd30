package services

import "errors"

// Shared errors used across services and the HTTP mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed                  = errors.New("validation failed")
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTeamNameRequired                  = errors.New("team name is required")
	ErrInvalidPhase                      = errors.New("unknown phase")
	ErrInvalidScore                      = errors.New("scores must be non-negative")
	ErrInvalidSeed                       = errors.New("seed must be positive")
	ErrInvalidRoundNumber                = errors.New("round number must be positive")
	ErrMatchTeamsNotAssigned             = errors.New("match teams are not assigned yet")
	ErrRoundOutOfSequence                = errors.New("rounds must be created in sequence")
	ErrPreviousRoundNotReported          = errors.New("previous round is not fully reported")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Conflicts
	ErrRoundAlreadyExists     = errors.New("round already exists for this phase")
	ErrMatchAlreadyReported   = errors.New("match is already reported")
	ErrRoleAlreadyLinked      = errors.New("role is already linked to a team in this tournament")
	ErrTournamentSlugConflict = errors.New("tournament slug already exists")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid username or password")

	// Entity-specific (more context than the generic ErrNotFound)
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrRoundNotFound      = errors.New("round not found")

	// External integrations
	ErrChallongeNotLinked = errors.New("tournament has no linked challonge slug")
	ErrChallongeDisabled  = errors.New("challonge integration is not configured")
	ErrSnapshotsDisabled  = errors.New("snapshot storage is not configured")
)
