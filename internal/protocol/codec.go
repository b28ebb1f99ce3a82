package protocol

import (
	"bytes"
	"fmt"
)

// Decode parses a datagram and validates its payload against the code.
func Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := msg.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	return msg, nil
}

// Encode is MarshalBinary for callers that hold a message value.
func Encode(msg Message) ([]byte, error) {
	return msg.MarshalBinary()
}

func (that *Message) MarshalBinary() ([]byte, error) {
	if err := validate(that.Code, that.Payload); err != nil {
		return nil, err
	}

	data := make([]byte, 0, headerSize+len(that.Payload))
	data = append(data, byte(that.Code))
	data = append(data, that.Payload...)

	return data, nil
}

func (that *Message) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return ErrEmpty
	}

	code := Code(data[0])
	payload := data[headerSize:]

	if err := validate(code, payload); err != nil {
		return err
	}

	that.Code = code
	that.Payload = nil
	if len(payload) > 0 {
		that.Payload = bytes.Clone(payload)
	}

	return nil
}

func validate(code Code, payload []byte) error {
	switch code {
	case CodeTurnPrompt, CodeLeave:
		if len(payload) != 0 {
			return fmt.Errorf("%w: %s carries %d bytes", ErrMalformed, code, len(payload))
		}
	case CodeMove:
		if len(payload) < moveSize {
			return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, code, moveSize, len(payload))
		}
		if len(payload) > moveSize {
			return fmt.Errorf("%w: %s carries %d bytes", ErrMalformed, code, len(payload))
		}
	case CodeGameOver:
		if len(payload) < gameOverSize {
			return fmt.Errorf("%w: %s needs %d byte", ErrTruncated, code, gameOverSize)
		}
		if len(payload) > gameOverSize {
			return fmt.Errorf("%w: %s carries %d bytes", ErrMalformed, code, len(payload))
		}
		if result := payload[0]; result > 2 && result != ResultNoRoom {
			return fmt.Errorf("%w: result %d", ErrMalformed, result)
		}
	case CodeSnapshot:
		return validateSnapshot(payload)
	case CodeText:
		if len(payload) > MaxDatagramSize-headerSize {
			return fmt.Errorf("%w: %s of %d bytes", ErrMalformed, code, len(payload))
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCode, byte(code))
	}

	return nil
}

func validateSnapshot(payload []byte) error {
	if len(payload) < 1 {
		return fmt.Errorf("%w: snapshot without count", ErrTruncated)
	}

	count := int(payload[0])
	if count > maxPlacements {
		return fmt.Errorf("%w: snapshot of %d cells", ErrMalformed, count)
	}

	want := 1 + count*placementSize
	if len(payload) < want {
		return fmt.Errorf("%w: snapshot of %d cells needs %d bytes, got %d", ErrTruncated, count, want, len(payload))
	}
	if len(payload) > want {
		return fmt.Errorf("%w: snapshot of %d cells carries %d bytes", ErrMalformed, count, len(payload))
	}

	for i := range count {
		p := payload[1+i*placementSize:]
		mark, col, row := p[0], p[1], p[2]

		if (mark != 1 && mark != 2) || col >= gridSize || row >= gridSize {
			return fmt.Errorf("%w: snapshot cell %d is (%d, %d, %d)", ErrMalformed, i, mark, col, row)
		}
	}

	return nil
}

func NewTurnPrompt() Message {
	return Message{Code: CodeTurnPrompt}
}

func NewLeave() Message {
	return Message{Code: CodeLeave}
}

func NewMove(col, row byte) Message {
	return Message{Code: CodeMove, Payload: []byte{col, row}}
}

func NewGameOver(result byte) Message {
	return Message{Code: CodeGameOver, Payload: []byte{result}}
}

// NewText builds a text message; content that does not fit in one datagram is cut.
func NewText(text string) Message {
	content := []byte(text)
	if i := bytes.IndexByte(content, 0); i >= 0 {
		content = content[:i]
	}

	if limit := MaxDatagramSize - headerSize - 1; len(content) > limit {
		content = content[:limit]
	}

	payload := make([]byte, 0, len(content)+1)
	payload = append(payload, content...)
	payload = append(payload, 0)

	return Message{Code: CodeText, Payload: payload}
}

func NewSnapshot(placements []Placement) Message {
	payload := make([]byte, 0, 1+len(placements)*placementSize)
	payload = append(payload, byte(len(placements)))

	for _, p := range placements {
		payload = append(payload, p.Mark, p.Col, p.Row)
	}

	return Message{Code: CodeSnapshot, Payload: payload}
}

// Move returns column and row of a move message.
func (that *Message) Move() (byte, byte, error) {
	if that.Code != CodeMove {
		return 0, 0, fmt.Errorf("%w: %s is not %s", ErrWrongCode, that.Code, CodeMove)
	}

	if len(that.Payload) < moveSize {
		return 0, 0, ErrTruncated
	}

	return that.Payload[0], that.Payload[1], nil
}

// Text returns the content of a text message up to its NUL terminator.
// An unterminated text runs to the end of the payload.
func (that *Message) Text() (string, error) {
	if that.Code != CodeText {
		return "", fmt.Errorf("%w: %s is not %s", ErrWrongCode, that.Code, CodeText)
	}

	content := that.Payload
	if i := bytes.IndexByte(content, 0); i >= 0 {
		content = content[:i]
	}

	return string(content), nil
}

func (that *Message) GameOverResult() (byte, error) {
	if that.Code != CodeGameOver {
		return 0, fmt.Errorf("%w: %s is not %s", ErrWrongCode, that.Code, CodeGameOver)
	}

	if len(that.Payload) < gameOverSize {
		return 0, ErrTruncated
	}

	return that.Payload[0], nil
}

func (that *Message) Snapshot() ([]Placement, error) {
	if that.Code != CodeSnapshot {
		return nil, fmt.Errorf("%w: %s is not %s", ErrWrongCode, that.Code, CodeSnapshot)
	}

	if err := validateSnapshot(that.Payload); err != nil {
		return nil, err
	}

	count := int(that.Payload[0])
	placements := make([]Placement, 0, count)

	for i := range count {
		p := that.Payload[1+i*placementSize:]
		placements = append(placements, Placement{Mark: p[0], Col: p[1], Row: p[2]})
	}

	return placements, nil
}
