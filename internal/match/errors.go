package match

import "errors"

var (
	// ErrMatchNotFound is returned when no live session exists for a game code.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchExists is returned when creating a match under a code already in use.
	ErrMatchExists = errors.New("match already exists")

	// ErrPlayerNotInRoster is returned when a subscriber is not part of the
	// roster the waiting room handed over.
	ErrPlayerNotInRoster = errors.New("player not in match roster")

	// ErrInvalidRoster is returned when a roster does not form two teams of
	// two players with one clue giver and one guesser each.
	ErrInvalidRoster = errors.New("invalid match roster")
)
