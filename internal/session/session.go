// Package session holds the single authoritative state shared by the datagram
// handlers and the game loop.
//
// Handlers only register seats and propose moves; the game loop is the only
// writer of the board and the only goroutine that blocks on the wakeup channels.
package session

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/rocketscienceinc/tictactoe-udp/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
)

type idGenerator func() string

type Session struct {
	mu sync.Mutex

	seats     [entity.SeatCount]netip.AddrPort
	connected int
	game      *entity.Game

	newID idGenerator

	// wakeups; both are 1-buffered and written without blocking
	playerJoined chan struct{}
	moves        chan entity.Move
}

func New(newID idGenerator) *Session {
	return &Session{
		newID:        newID,
		playerJoined: make(chan struct{}, 1),
		moves:        make(chan entity.Move, 1),
	}
}

// Resolve returns the seat bound to addr, or SeatUnassigned.
func (that *Session) Resolve(addr netip.AddrPort) entity.Seat {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.resolve(addr)
}

func (that *Session) resolve(addr netip.AddrPort) entity.Seat {
	for i := range that.seats {
		if that.seats[i].IsValid() && that.seats[i] == addr {
			return entity.Seat(i)
		}
	}

	return entity.SeatUnassigned
}

// Join binds addr to the next free seat.
func (that *Session) Join(addr netip.AddrPort) (entity.Seat, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if seat := that.resolve(addr); seat != entity.SeatUnassigned {
		return seat, apperror.ErrAlreadySeated
	}

	if that.connected >= entity.SeatCount {
		return entity.SeatUnassigned, apperror.ErrNoRoom
	}

	seat := entity.Seat(that.connected)
	that.seats[seat] = addr
	that.connected++

	signal(that.playerJoined)

	return seat, nil
}

// ProposeMove puts a move from seat into the mailbox if that seat is to move.
// An unconsumed older move is replaced.
func (that *Session) ProposeMove(seat entity.Seat, col, row int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.connected != entity.SeatCount || that.game == nil {
		return apperror.ErrGameIsNotStarted
	}

	if that.game.Over {
		return apperror.ErrGameFinished
	}

	if seat != that.game.Turn {
		return apperror.ErrNotYourTurn
	}

	select {
	case <-that.moves:
	default:
	}

	that.moves <- entity.Move{Seat: seat, Col: col, Row: row}

	return nil
}

// Connected returns the number of occupied seats.
func (that *Session) Connected() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.connected
}

func (that *Session) Seats() [entity.SeatCount]netip.AddrPort {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.seats
}

func (that *Session) SeatAddr(seat entity.Seat) netip.AddrPort {
	if !seat.Valid() {
		return netip.AddrPort{}
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.seats[seat]
}

// Game returns a copy of the current game state, if a game exists.
func (that *Session) Game() (entity.Game, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return entity.Game{}, false
	}

	return *that.game, true
}

// Reset starts a fresh game and empties the move mailbox. Seats are left alone.
func (that *Session) Reset() entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = entity.NewGame(that.newID())

	select {
	case <-that.moves:
	default:
	}

	return *that.game
}

// ApplyMove validates move against the board and applies it.
// The returned game reflects the state after the attempt.
func (that *Session) ApplyMove(move entity.Move) (entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return entity.Game{}, apperror.ErrGameIsNotStarted
	}

	if err := that.game.MakeTurn(move.Seat, move.Col, move.Row); err != nil {
		return *that.game, fmt.Errorf("failed to make turn: %w", err)
	}

	return *that.game, nil
}

// EndGame frees both seats and returns their former addresses with the final state.
func (that *Session) EndGame() ([entity.SeatCount]netip.AddrPort, entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	seats := that.seats
	that.seats = [entity.SeatCount]netip.AddrPort{}
	that.connected = 0

	var game entity.Game
	if that.game != nil {
		game = *that.game
	}

	return seats, game
}

// PlayerJoined fires after a seat was taken. Several joins may fire once.
func (that *Session) PlayerJoined() <-chan struct{} {
	return that.playerJoined
}

// Moves delivers accepted moves to the game loop.
func (that *Session) Moves() <-chan entity.Move {
	return that.moves
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
