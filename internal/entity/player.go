package entity

import "time"

// Seat is one of the two player slots of a game.
type Seat int

const (
	SeatUnassigned Seat = -1
	Seat0          Seat = 0
	Seat1          Seat = 1

	SeatCount = 2
)

func (s Seat) Valid() bool {
	return s == Seat0 || s == Seat1
}

// Mark returns the board mark of the seat.
func (s Seat) Mark() Mark {
	return Mark(s + 1)
}

func (s Seat) Other() Seat {
	return 1 - s
}

// GameRecord is what is kept about a finished game.
type GameRecord struct {
	ID         string    `json:"id"`
	Result     Result    `json:"result"`
	Players    [2]string `json:"players"`
	Moves      int       `json:"moves"`
	FinishedAt time.Time `json:"finished_at"`
}

// Winner returns the address of the winning player, or "" for a draw.
func (that *GameRecord) Winner() string {
	if seat, ok := that.Result.Winner(); ok {
		return that.Players[seat]
	}
	return ""
}

// LeaderboardEntry is the number of games a player address has won.
type LeaderboardEntry struct {
	Player string `json:"player"`
	Wins   int64  `json:"wins"`
}
