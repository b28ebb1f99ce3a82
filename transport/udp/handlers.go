package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/rocketscienceinc/tictactoe-udp/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
	"github.com/rocketscienceinc/tictactoe-udp/internal/protocol"
)

const (
	helloText       = "Hello"
	welcomeFormat   = "Welcome! You are player %d. You play with %c."
	textNotYourTurn = "Your move was ignored. It is not your turn."
	textUnexpected  = "Your message was not expected and thus will be ignored."
)

type seatRegistry interface {
	Resolve(addr netip.AddrPort) entity.Seat
	Connected() int
	Join(addr netip.AddrPort) (entity.Seat, error)
	ProposeMove(seat entity.Seat, col, row int) error
}

type replier interface {
	GameOver(addrs []netip.AddrPort, result entity.Result) error
	Text(addr netip.AddrPort, text string) error
}

// Dispatcher classifies one datagram and replies at most once.
// It never blocks on the game loop.
type Dispatcher struct {
	logger *slog.Logger

	session seatRegistry
	replier replier
}

func NewDispatcher(logger *slog.Logger, session seatRegistry, replier replier) *Dispatcher {
	return &Dispatcher{
		logger:  logger.With("component", "udp-dispatcher"),
		session: session,
		replier: replier,
	}
}

// Handle - processes a datagram received from addr.
func (that *Dispatcher) Handle(data []byte, from netip.AddrPort) {
	log := that.logger.With("method", "Handle", "from", from.String())
	log.Debug("datagram received", "bytes", hexDump(data))

	seat := that.session.Resolve(from)
	if seat == entity.SeatUnassigned {
		that.handleStranger(log, data, from)
		return
	}

	that.handleSeated(log.With("seat", seat), data, from, seat)
}

// handleStranger - a sender without a seat may only ask to play.
func (that *Dispatcher) handleStranger(log *slog.Logger, data []byte, from netip.AddrPort) {
	if that.session.Connected() >= entity.SeatCount {
		log.Info("no room for sender")
		that.replyNoRoom(log, from)
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn("malformed datagram", "error", err)
		return
	}

	text, err := msg.Text()
	if err != nil || text != helloText {
		log.Info("unknown sender did not ask to play", "message", msg.String())
		return
	}

	seat, err := that.session.Join(from)

	switch {
	case err == nil:
		log.Info("player assigned", "seat", seat)

		welcome := fmt.Sprintf(welcomeFormat, int(seat)+1, seat.Mark().Symbol())
		if err = that.replier.Text(from, welcome); err != nil {
			log.Error("failed to send welcome", "error", err)
		}
	case errors.Is(err, apperror.ErrNoRoom):
		log.Info("lost the race for the last seat")
		that.replyNoRoom(log, from)
	case errors.Is(err, apperror.ErrAlreadySeated):
		log.Debug("sender is already seated", "seat", seat)
	default:
		log.Error("failed to join", "error", err)
	}
}

// handleSeated - a seated sender may only send moves.
func (that *Dispatcher) handleSeated(log *slog.Logger, data []byte, from netip.AddrPort, seat entity.Seat) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn("malformed datagram", "error", err)
		return
	}

	col, row, err := msg.Move()
	if err != nil {
		log.Info("unexpected message", "message", msg.String())
		that.replyText(log, from, textUnexpected)
		return
	}

	err = that.session.ProposeMove(seat, int(col), int(row))

	switch {
	case err == nil:
		log.Debug("move accepted", "col", col, "row", row)
	case errors.Is(err, apperror.ErrNotYourTurn):
		log.Info("move out of turn", "col", col, "row", row)
		that.replyText(log, from, textNotYourTurn)
	case errors.Is(err, apperror.ErrGameIsNotStarted), errors.Is(err, apperror.ErrGameFinished):
		log.Info("move outside of a running game", "error", err)
		that.replyText(log, from, textUnexpected)
	default:
		log.Error("failed to propose move", "error", err)
	}
}

func (that *Dispatcher) replyNoRoom(log *slog.Logger, to netip.AddrPort) {
	if err := that.replier.GameOver([]netip.AddrPort{to}, entity.ResultNoRoom); err != nil {
		log.Error("failed to send no room", "error", err)
	}
}

func (that *Dispatcher) replyText(log *slog.Logger, to netip.AddrPort, text string) {
	if err := that.replier.Text(to, text); err != nil {
		log.Error("failed to send text", "error", err)
	}
}
