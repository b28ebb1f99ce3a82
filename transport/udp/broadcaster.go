package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
	"github.com/rocketscienceinc/tictactoe-udp/internal/protocol"
)

type datagramWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// Broadcaster encodes server messages and sends them to seat addresses.
type Broadcaster struct {
	logger *slog.Logger
	conn   datagramWriter
}

func NewBroadcaster(logger *slog.Logger, conn datagramWriter) *Broadcaster {
	return &Broadcaster{
		logger: logger.With("component", "udp-broadcaster"),
		conn:   conn,
	}
}

func (that *Broadcaster) TurnPrompt(addr netip.AddrPort) error {
	return that.send(protocol.NewTurnPrompt(), addr)
}

// Snapshot - sends the full board of game to every address.
func (that *Broadcaster) Snapshot(addrs []netip.AddrPort, game entity.Game) error {
	cells := game.Placements()

	placements := make([]protocol.Placement, 0, len(cells))
	for _, cell := range cells {
		placements = append(placements, protocol.Placement{
			Mark: byte(cell.Mark),
			Col:  byte(cell.Col),
			Row:  byte(cell.Row),
		})
	}

	return that.send(protocol.NewSnapshot(placements), addrs...)
}

func (that *Broadcaster) GameOver(addrs []netip.AddrPort, result entity.Result) error {
	return that.send(protocol.NewGameOver(byte(result)), addrs...)
}

func (that *Broadcaster) Text(addr netip.AddrPort, text string) error {
	return that.send(protocol.NewText(text), addr)
}

func (that *Broadcaster) send(msg protocol.Message, addrs ...netip.AddrPort) error {
	log := that.logger.With("method", "send", "code", msg.Code.String())

	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Code, err)
	}

	var errs []error

	for _, addr := range addrs {
		if !addr.IsValid() {
			continue
		}

		if _, err = that.conn.WriteToUDPAddrPort(data, addr); err != nil {
			errs = append(errs, fmt.Errorf("failed to send %s to %s: %w", msg.Code, addr, err))
			continue
		}

		log.Debug("datagram sent", "to", addr.String(), "bytes", hexDump(data))
	}

	return errors.Join(errs...)
}
