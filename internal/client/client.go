// Package client talks to the game server over a connected datagram socket.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-udp/internal/protocol"
)

const helloText = "Hello"

type Client struct {
	conn *net.UDPConn
}

// Dial - opens a socket bound to the server at host:port.
func Dial(host, port string) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server address: %w", err)
	}

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket: %w", err)
	}

	return &Client{conn: conn}, nil
}

func (that *Client) LocalAddr() net.Addr {
	return that.conn.LocalAddr()
}

// Hello - asks the server for a seat.
func (that *Client) Hello() error {
	return that.SendText(helloText)
}

func (that *Client) Move(col, row byte) error {
	return that.send(protocol.NewMove(col, row))
}

func (that *Client) SendText(text string) error {
	return that.send(protocol.NewText(text))
}

// SendRaw - writes data as is, without encoding.
func (that *Client) SendRaw(data []byte) error {
	if _, err := that.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send datagram: %w", err)
	}

	return nil
}

func (that *Client) send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.Code, err)
	}

	return that.SendRaw(data)
}

// Receive - waits for the next server message until ctx is done.
func (that *Client) Receive(ctx context.Context) (*protocol.Message, error) {
	deadline, _ := ctx.Deadline()
	if err := that.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = that.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, protocol.MaxDatagramSize)

	n, err := that.conn.Read(buf)
	if err != nil {
		// read deadlines only come from ctx, which may trail the socket by a moment
		if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
			<-ctx.Done()
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("stopped receiving: %w", ctx.Err())
		}

		return nil, fmt.Errorf("failed to receive datagram: %w", err)
	}

	msg, err := protocol.Decode(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("failed to decode datagram: %w", err)
	}

	return msg, nil
}

func (that *Client) Close() error {
	return that.conn.Close()
}

// RenderBoard - draws the board described by a snapshot.
func RenderBoard(placements []protocol.Placement) string {
	var cells [3][3]byte

	for _, p := range placements {
		if p.Col > 2 || p.Row > 2 {
			continue
		}

		switch p.Mark {
		case 1:
			cells[p.Row][p.Col] = 'X'
		case 2:
			cells[p.Row][p.Col] = 'O'
		}
	}

	var sb strings.Builder

	sb.WriteString("+-+-+-+\n")
	for row := range cells {
		sb.WriteByte('|')
		for col := range cells[row] {
			if cells[row][col] == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(cells[row][col])
			}
			sb.WriteByte('|')
		}
		sb.WriteString("\n+-+-+-+\n")
	}

	return sb.String()
}

// Describe - renders a server message the way the terminal client prints it.
func Describe(msg *protocol.Message) string {
	switch msg.Code {
	case protocol.CodeText:
		text, _ := msg.Text()
		return "[TXT]\n" + text + "\n"
	case protocol.CodeTurnPrompt:
		return "[MYM]\n"
	case protocol.CodeGameOver:
		result, err := msg.GameOverResult()
		if err != nil {
			return "[END]\n"
		}

		switch result {
		case protocol.ResultNoRoom:
			return "[END]\nThere is no room for new participants.\n"
		case protocol.ResultDraw:
			return "[END]\nDraw\n"
		default:
			return fmt.Sprintf("[END]\nWinner is player %d\n", result)
		}
	case protocol.CodeSnapshot:
		placements, err := msg.Snapshot()
		if err != nil {
			return "[FYI]\n"
		}

		return fmt.Sprintf("[FYI]\n%d filled positions.\n\n%s", len(placements), RenderBoard(placements))
	default:
		return fmt.Sprintf("Message code not found: %s\n", msg.Code)
	}
}

// ParseCommand - turns a terminal line into a message.
// Accepted forms are "MOV <col> <row>" and "TXT <text>".
func ParseCommand(line string) (protocol.Message, error) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.HasPrefix(line, "MOV"):
		var col, row int
		if _, err := fmt.Sscanf(line[3:], "%d%d", &col, &row); err != nil {
			return protocol.Message{}, fmt.Errorf("%w: could not parse MOV: %w", ErrBadCommand, err)
		}

		return protocol.NewMove(byte(col), byte(row)), nil
	case strings.HasPrefix(line, "TXT"):
		return protocol.NewText(strings.TrimPrefix(line[3:], " ")), nil
	default:
		return protocol.Message{}, fmt.Errorf("%w: %q", ErrBadCommand, line)
	}
}
