package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-udp/internal/apperror"
)

const (
	BoardSize = 3
	CellCount = BoardSize * BoardSize
)

// Mark is the content of a board cell. Non-empty marks equal the 1-based seat number.
type Mark byte

const (
	MarkEmpty Mark = iota
	MarkX
	MarkO
)

// Symbol returns the character a client draws for the mark.
func (m Mark) Symbol() byte {
	switch m {
	case MarkX:
		return 'X'
	case MarkO:
		return 'O'
	default:
		return ' '
	}
}

// Result is the outcome of a finished game as sent in a game-over message.
type Result byte

const (
	ResultDraw   Result = 0
	ResultNoRoom Result = 0xFF
)

// Winner returns the winning seat, if the result names one.
func (r Result) Winner() (Seat, bool) {
	switch Mark(r) {
	case MarkX:
		return Seat0, true
	case MarkO:
		return Seat1, true
	default:
		return SeatUnassigned, false
	}
}

func (r Result) String() string {
	switch r {
	case ResultDraw:
		return "draw"
	case ResultNoRoom:
		return "no room"
	}

	if seat, ok := r.Winner(); ok {
		return fmt.Sprintf("player %d won", seat+1)
	}

	return fmt.Sprintf("unknown result %d", byte(r))
}

// WinLines lists every winning line as (row, col) pairs: rows, then columns, then the two diagonals.
var WinLines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Board is indexed [row][col].
type Board [BoardSize][BoardSize]Mark

// Placement is one occupied cell of the board.
type Placement struct {
	Mark Mark
	Col  int
	Row  int
}

// Move is a move submitted by a seat, not yet validated against the board.
type Move struct {
	Seat Seat
	Col  int
	Row  int
}

// Game is the authoritative state of one game instance.
type Game struct {
	ID       string
	Board    Board
	Occupied int
	Turn     Seat
	Over     bool
	Result   Result
}

func NewGame(id string) *Game {
	return &Game{
		ID:   id,
		Turn: Seat0,
	}
}

// MakeTurn validates and applies a move for seat.
func (that *Game) MakeTurn(seat Seat, col, row int) error {
	if that.Over {
		return apperror.ErrGameFinished
	}

	if that.Turn != seat {
		return apperror.ErrNotYourTurn
	}

	if !InGrid(col, row) {
		return fmt.Errorf("%w: col %d row %d", apperror.ErrOutOfGrid, col, row)
	}

	if that.Board[row][col] != MarkEmpty {
		return fmt.Errorf("%w: col %d row %d", apperror.ErrCellOccupied, col, row)
	}

	that.Board[row][col] = seat.Mark()
	that.Turn = seat.Other()
	that.Occupied++

	that.UpdateGameState()

	return nil
}

// DetermineGameResult reports whether the game is over and with which result.
func (that *Game) DetermineGameResult() (Result, bool) {
	for _, line := range WinLines {
		a := that.Board[line[0][0]][line[0][1]]
		b := that.Board[line[1][0]][line[1][1]]
		c := that.Board[line[2][0]][line[2][1]]

		if a != MarkEmpty && a == b && b == c {
			return Result(a), true
		}
	}

	if that.Occupied == CellCount {
		return ResultDraw, true
	}

	return ResultDraw, false
}

func (that *Game) UpdateGameState() {
	if result, over := that.DetermineGameResult(); over {
		that.Over = true
		that.Result = result
	}
}

// Placements returns the occupied cells in row-major order.
func (that *Game) Placements() []Placement {
	placements := make([]Placement, 0, that.Occupied)

	for row := range BoardSize {
		for col := range BoardSize {
			if mark := that.Board[row][col]; mark != MarkEmpty {
				placements = append(placements, Placement{Mark: mark, Col: col, Row: row})
			}
		}
	}

	return placements
}

func InGrid(col, row int) bool {
	return col >= 0 && col < BoardSize && row >= 0 && row < BoardSize
}
