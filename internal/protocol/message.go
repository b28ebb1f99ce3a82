// Package protocol implements the datagram wire format shared by the server and its clients.
//
// Every datagram is one header byte holding the message code followed by a
// payload whose shape is fixed by the code.
package protocol

import (
	"encoding"
	"errors"
	"fmt"
)

// MaxDatagramSize is the largest datagram either side reads or writes.
const MaxDatagramSize = 5000

// Code is the header byte of a message.
type Code byte

const (
	CodeSnapshot   Code = 1 // FYI: the full board
	CodeTurnPrompt Code = 2 // MYM: your move
	CodeGameOver   Code = 3 // END: game result
	CodeText       Code = 4 // TXT: NUL-terminated text
	CodeMove       Code = 5 // MOV: column and row
	CodeLeave      Code = 6 // LFT: reserved
)

func (c Code) Valid() bool {
	return c >= CodeSnapshot && c <= CodeLeave
}

func (c Code) String() string {
	switch c {
	case CodeSnapshot:
		return "FYI"
	case CodeTurnPrompt:
		return "MYM"
	case CodeGameOver:
		return "END"
	case CodeText:
		return "TXT"
	case CodeMove:
		return "MOV"
	case CodeLeave:
		return "LFT"
	default:
		return fmt.Sprintf("code(%d)", byte(c))
	}
}

// Game over results on the wire. They equal entity.ResultDraw and
// entity.ResultNoRoom, so an entity.Result is sent as its byte value;
// 1 and 2 name the winning player.
const (
	ResultDraw   byte = 0
	ResultNoRoom byte = 0xFF
)

const (
	headerSize    = 1
	moveSize      = 2
	gameOverSize  = 1
	placementSize = 3
	maxPlacements = 9
	gridSize      = 3
)

var (
	ErrEmpty       = errors.New("empty datagram")
	ErrUnknownCode = errors.New("unknown message code")
	ErrTruncated   = errors.New("truncated payload")
	ErrMalformed   = errors.New("malformed payload")
	ErrWrongCode   = errors.New("wrong message code")
)

// Message is a decoded datagram.
type Message struct {
	Code    Code
	Payload []byte
}

var (
	_ encoding.BinaryMarshaler   = (*Message)(nil)
	_ encoding.BinaryUnmarshaler = (*Message)(nil)
)

// Placement is one occupied cell in a snapshot.
type Placement struct {
	Mark byte
	Col  byte
	Row  byte
}

func (that *Message) String() string {
	return fmt.Sprintf("%s[%d bytes]", that.Code, len(that.Payload))
}
