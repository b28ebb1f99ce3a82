package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrOutOfGrid        = errors.New("cell is not in the grid")
	ErrNoRoom           = errors.New("no room for a new player")
	ErrAlreadySeated    = errors.New("player already has a seat")
	ErrNotFound         = errors.New("not found")
)
