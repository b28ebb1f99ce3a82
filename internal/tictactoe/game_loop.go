package tictactoe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/rocketscienceinc/tictactoe-udp/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
)

const recordTimeout = 5 * time.Second

const (
	textOutOfGrid    = "Invalid Move: position is not in the grid"
	textCellOccupied = "Invalid Move: position is already taken"
)

type gameSession interface {
	Reset() entity.Game
	Connected() int
	Seats() [entity.SeatCount]netip.AddrPort
	SeatAddr(seat entity.Seat) netip.AddrPort
	ApplyMove(move entity.Move) (entity.Game, error)
	EndGame() ([entity.SeatCount]netip.AddrPort, entity.Game)

	PlayerJoined() <-chan struct{}
	Moves() <-chan entity.Move
}

type broadcaster interface {
	TurnPrompt(addr netip.AddrPort) error
	Snapshot(addrs []netip.AddrPort, game entity.Game) error
	GameOver(addrs []netip.AddrPort, result entity.Result) error
	Text(addr netip.AddrPort, text string) error
}

type resultRecorder interface {
	Record(ctx context.Context, record *entity.GameRecord) error
}

// GameLoop drives every game from the first join to the final result.
// It is the only writer of the board.
type GameLoop struct {
	logger *slog.Logger

	session     gameSession
	broadcaster broadcaster
	recorder    resultRecorder
}

func NewGameLoop(logger *slog.Logger, session gameSession, broadcaster broadcaster, recorder resultRecorder) *GameLoop {
	return &GameLoop{
		logger:      logger.With("component", "game-loop"),
		session:     session,
		broadcaster: broadcaster,
		recorder:    recorder,
	}
}

// Run - plays games one after another until ctx is done.
func (that *GameLoop) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	for {
		game, err := that.waitForPlayers(ctx)
		if err != nil {
			return err
		}

		log.Info("game started", "gameID", game.ID)

		that.broadcastSnapshot(game)

		for !game.Over {
			move, err := that.awaitMove(ctx, game.Turn)
			if err != nil {
				return err
			}

			game = that.applyMove(move)
		}

		that.finish(ctx)
	}
}

// waitForPlayers - resets the game and blocks until both seats are taken.
func (that *GameLoop) waitForPlayers(ctx context.Context) (entity.Game, error) {
	log := that.logger.With("method", "waitForPlayers")

	game := that.session.Reset()
	log.Info("waiting for players", "gameID", game.ID)

	for that.session.Connected() < entity.SeatCount {
		select {
		case <-that.session.PlayerJoined():
		case <-ctx.Done():
			return entity.Game{}, fmt.Errorf("stopped waiting for players: %w", ctx.Err())
		}
	}

	return game, nil
}

// awaitMove - prompts the seat to move until a move of that seat arrives.
// Moves left over from the other seat are dropped.
func (that *GameLoop) awaitMove(ctx context.Context, turn entity.Seat) (entity.Move, error) {
	log := that.logger.With("method", "awaitMove")

	select {
	case move := <-that.session.Moves():
		if move.Seat == turn {
			return move, nil
		}
		log.Debug("dropping stale move", "seat", move.Seat)
	default:
	}

	for {
		if err := that.broadcaster.TurnPrompt(that.session.SeatAddr(turn)); err != nil {
			log.Error("failed to send turn prompt", "seat", turn, "error", err)
		}

		select {
		case move := <-that.session.Moves():
			if move.Seat == turn {
				return move, nil
			}
			log.Debug("dropping stale move", "seat", move.Seat)
		case <-ctx.Done():
			return entity.Move{}, fmt.Errorf("stopped waiting for a move: %w", ctx.Err())
		}
	}
}

// applyMove - applies a move, or tells the seat why it was rejected.
func (that *GameLoop) applyMove(move entity.Move) entity.Game {
	log := that.logger.With("method", "applyMove", "seat", move.Seat, "col", move.Col, "row", move.Row)

	game, err := that.session.ApplyMove(move)

	switch {
	case err == nil:
		log.Debug("move applied", "occupied", game.Occupied)
		that.broadcastSnapshot(game)
	case errors.Is(err, apperror.ErrOutOfGrid):
		log.Info("illegal move", "error", err)
		that.sendText(move.Seat, textOutOfGrid)
	case errors.Is(err, apperror.ErrCellOccupied):
		log.Info("illegal move", "error", err)
		that.sendText(move.Seat, textCellOccupied)
	default:
		log.Error("failed to apply move", "error", err)
	}

	return game
}

// finish - frees the seats, announces the result and records it.
func (that *GameLoop) finish(ctx context.Context) {
	log := that.logger.With("method", "finish")

	seats, game := that.session.EndGame()
	log = log.With("gameID", game.ID)

	if err := that.broadcaster.GameOver(seats[:], game.Result); err != nil {
		log.Error("failed to send game over", "error", err)
	}

	log.Info("game over", "result", game.Result.String())

	if that.recorder == nil {
		return
	}

	record := &entity.GameRecord{
		ID:         game.ID,
		Result:     game.Result,
		Players:    [2]string{seats[0].String(), seats[1].String()},
		Moves:      game.Occupied,
		FinishedAt: time.Now().UTC(),
	}

	recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := that.recorder.Record(recordCtx, record); err != nil {
		log.Error("failed to record game result", "error", err)
	}
}

func (that *GameLoop) broadcastSnapshot(game entity.Game) {
	seats := that.session.Seats()

	if err := that.broadcaster.Snapshot(seats[:], game); err != nil {
		that.logger.Error("failed to send snapshot", "gameID", game.ID, "error", err)
	}
}

func (that *GameLoop) sendText(seat entity.Seat, text string) {
	if err := that.broadcaster.Text(that.session.SeatAddr(seat), text); err != nil {
		that.logger.Error("failed to send text", "seat", seat, "error", err)
	}
}
