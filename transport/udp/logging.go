package udp

import (
	"encoding/hex"
	"log/slog"
)

// hexDump formats datagram bytes only when a handler actually writes the record.
type hexDump []byte

func (h hexDump) LogValue() slog.Value {
	return slog.StringValue(hex.EncodeToString(h))
}
