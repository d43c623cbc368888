// Package wire implements the framed binary protocol exchanged between
// game clients and the authoritative server. It is pure serialization and
// parsing: it never logs, never blocks, and never terminates the process.
// Callers decide what a decode failure means.
package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// MaxDatagramSize bounds both client->server and server->client datagrams.
const MaxDatagramSize = 512

// EventType identifies the payload layout carried by an Event.
type EventType uint8

const (
	NewGame          EventType = 0
	Pixel            EventType = 1
	PlayerEliminated EventType = 2
	GameOver         EventType = 3
)

func (t EventType) String() string {
	switch t {
	case NewGame:
		return "NEW_GAME"
	case Pixel:
		return "PIXEL"
	case PlayerEliminated:
		return "PLAYER_ELIMINATED"
	case GameOver:
		return "GAME_OVER"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// DecodeErrorKind classifies why a datagram or event was rejected.
type DecodeErrorKind int

const (
	Truncated DecodeErrorKind = iota
	BadCRC
	UnknownEventType
	Malformed
)

func (k DecodeErrorKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case BadCRC:
		return "bad_crc"
	case UnknownEventType:
		return "unknown_event_type"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError is returned by every decode function in this package. The
// codec never panics and never exits; it always returns one of these.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: %s: %s", e.Kind, e.Msg)
}

func decodeErr(kind DecodeErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Client -> Server datagram
// ---------------------------------------------------------------------------

// clientHeaderSize is sizeof(u64 session_id) + sizeof(i8 turn_direction) +
// sizeof(u32 next_expected_event_number).
const clientHeaderSize = 8 + 1 + 4

// ClientMessage is the decoded form of a client->server datagram.
type ClientMessage struct {
	SessionID          uint64
	TurnDirection      int8
	NextExpectedEvent  uint32
	Name               string
}

// EncodeClientToServer packs a client->server datagram. name must already
// satisfy the length and byte-range constraints; callers are expected to
// validate before encoding their own outgoing datagram.
func EncodeClientToServer(sessionID uint64, turnDirection int8, nextExpected uint32, name string) []byte {
	buf := make([]byte, clientHeaderSize+len(name))
	binary.BigEndian.PutUint64(buf[0:8], sessionID)
	buf[8] = byte(turnDirection)
	binary.BigEndian.PutUint32(buf[9:13], nextExpected)
	copy(buf[13:], name)
	return buf
}

// DecodeClientToServer validates and parses a client->server datagram.
func DecodeClientToServer(data []byte) (ClientMessage, error) {
	if len(data) < clientHeaderSize {
		return ClientMessage{}, decodeErr(Truncated, "datagram is %d bytes, need at least %d", len(data), clientHeaderSize)
	}
	nameLen := len(data) - clientHeaderSize
	if nameLen > 64 {
		return ClientMessage{}, decodeErr(Malformed, "name is %d bytes, max 64", nameLen)
	}

	sessionID := binary.BigEndian.Uint64(data[0:8])
	turn := int8(data[8])
	if turn < -1 || turn > 1 {
		return ClientMessage{}, decodeErr(Malformed, "turn_direction %d out of {-1,0,1}", turn)
	}
	nextExpected := binary.BigEndian.Uint32(data[9:13])

	name := data[13:]
	for _, b := range name {
		if b < 33 || b > 126 {
			return ClientMessage{}, decodeErr(Malformed, "name byte %d out of [33,126]", b)
		}
	}

	return ClientMessage{
		SessionID:         sessionID,
		TurnDirection:     turn,
		NextExpectedEvent: nextExpected,
		Name:              string(name),
	}, nil
}

// ---------------------------------------------------------------------------
// Events and the server -> client datagram
// ---------------------------------------------------------------------------

// eventFixedOverhead is the bytes of an encoded event outside event_data:
// u32 len + u32 event_number + u8 event_type + u32 crc32.
const eventFixedOverhead = 4 + 4 + 1 + 4

// FitsInDatagram reports whether a single event carrying payloadLen bytes
// of event_data fits, alone, in one MaxDatagramSize datagram alongside the
// leading u32 game_id.
func FitsInDatagram(payloadLen int) bool {
	return 4+eventFixedOverhead+payloadLen <= MaxDatagramSize
}

// Event is one entry of a game's event log.
type Event struct {
	Number uint32
	Type   EventType
	Data   []byte // already-encoded event-type-specific payload
}

// EncodedSize is the number of bytes this event occupies once framed.
func (e Event) EncodedSize() int {
	return eventFixedOverhead + len(e.Data)
}

// crcRegion computes the CRC-32 (IEEE / zlib polynomial) over
// [len .. end of event_data], matching the range the spec calls
// "the len-prefixed region plus len itself".
func crcRegion(lenField uint32, number uint32, typ EventType, data []byte) uint32 {
	buf := make([]byte, 4+4+1+len(data))
	binary.BigEndian.PutUint32(buf[0:4], lenField)
	binary.BigEndian.PutUint32(buf[4:8], number)
	buf[8] = byte(typ)
	copy(buf[9:], data)
	return crc32.ChecksumIEEE(buf)
}

// EncodeEvent appends the framed representation of e to buf and returns the
// extended slice.
func EncodeEvent(buf []byte, e Event) []byte {
	lenField := uint32(4 + 1 + len(e.Data)) // event_number + event_type + data
	crc := crcRegion(lenField, e.Number, e.Type, e.Data)

	out := make([]byte, 4+int(lenField)+4)
	binary.BigEndian.PutUint32(out[0:4], lenField)
	binary.BigEndian.PutUint32(out[4:8], e.Number)
	out[8] = byte(e.Type)
	copy(out[9:], e.Data)
	binary.BigEndian.PutUint32(out[4+int(lenField):], crc)

	return append(buf, out...)
}

// EncodeServerToClient packs gameID and as many of events (in order) as fit
// within MaxDatagramSize, returning the datagram bytes and the number of
// events consumed. Callers use the consumed count to advance a replay
// cursor only for events that actually made it into a sent datagram.
func EncodeServerToClient(gameID uint32, events []Event) (datagram []byte, consumed int) {
	buf := make([]byte, 4, MaxDatagramSize)
	binary.BigEndian.PutUint32(buf[0:4], gameID)

	for _, e := range events {
		if len(buf)+e.EncodedSize() > MaxDatagramSize {
			break
		}
		buf = EncodeEvent(buf, e)
		consumed++
	}
	return buf, consumed
}

// DecodedServerMessage is the result of a streaming decode of a
// server->client datagram.
type DecodedServerMessage struct {
	GameID uint32
	Events []Event
}

// DecodeServerToClient iterates events in data, tolerating and skipping
// unknown event types (using len to find the next frame) per the spec's
// decode failure policy. A Truncated or BadCRC event aborts decoding of
// the remainder of the datagram but returns every event successfully
// parsed before it.
func DecodeServerToClient(data []byte) (DecodedServerMessage, error) {
	if len(data) < 4 {
		return DecodedServerMessage{}, decodeErr(Truncated, "datagram is %d bytes, need at least 4 for game_id", len(data))
	}
	msg := DecodedServerMessage{GameID: binary.BigEndian.Uint32(data[0:4])}

	off := 4
	for off < len(data) {
		if off+4 > len(data) {
			return msg, decodeErr(Truncated, "truncated length field at offset %d", off)
		}
		lenField := binary.BigEndian.Uint32(data[off : off+4])
		frameEnd := off + 4 + int(lenField) + 4
		if lenField < 5 || frameEnd > len(data) {
			return msg, decodeErr(Truncated, "event at offset %d claims len=%d beyond datagram", off, lenField)
		}

		number := binary.BigEndian.Uint32(data[off+4 : off+8])
		typ := EventType(data[off+8])
		eventData := data[off+9 : off+4+int(lenField)]
		wantCRC := binary.BigEndian.Uint32(data[frameEnd-4 : frameEnd])

		gotCRC := crcRegion(lenField, number, typ, eventData)
		if gotCRC != wantCRC {
			return msg, decodeErr(BadCRC, "event %d at offset %d: crc mismatch", number, off)
		}

		switch typ {
		case NewGame, Pixel, PlayerEliminated, GameOver:
			msg.Events = append(msg.Events, Event{Number: number, Type: typ, Data: eventData})
		default:
			// Unknown types are tolerated and skipped, not surfaced as events.
		}

		off = frameEnd
	}

	return msg, nil
}

// ---------------------------------------------------------------------------
// Event-data payload layouts
// ---------------------------------------------------------------------------

// EncodeNewGameData builds the NEW_GAME payload: maxx, maxy, then each name
// NUL-terminated and concatenated in order.
func EncodeNewGameData(maxX, maxY uint32, names []string) []byte {
	size := 8
	for _, n := range names {
		size += len(n) + 1
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], maxX)
	binary.BigEndian.PutUint32(buf[4:8], maxY)
	off := 8
	for _, n := range names {
		off += copy(buf[off:], n)
		buf[off] = 0
		off++
	}
	return buf
}

// NewGameData is the decoded NEW_GAME payload.
type NewGameData struct {
	MaxX, MaxY uint32
	Names      []string
}

func DecodeNewGameData(data []byte) (NewGameData, error) {
	if len(data) < 8 {
		return NewGameData{}, decodeErr(Malformed, "NEW_GAME payload too short: %d bytes", len(data))
	}
	out := NewGameData{
		MaxX: binary.BigEndian.Uint32(data[0:4]),
		MaxY: binary.BigEndian.Uint32(data[4:8]),
	}
	rest := data[8:]
	start := 0
	for i, b := range rest {
		if b == 0 {
			out.Names = append(out.Names, string(rest[start:i]))
			start = i + 1
		}
	}
	if start != len(rest) {
		return NewGameData{}, decodeErr(Malformed, "NEW_GAME name list missing trailing NUL")
	}
	return out, nil
}

// EncodePixelData builds the PIXEL payload.
func EncodePixelData(playerNumber uint8, x, y uint32) []byte {
	buf := make([]byte, 9)
	buf[0] = playerNumber
	binary.BigEndian.PutUint32(buf[1:5], x)
	binary.BigEndian.PutUint32(buf[5:9], y)
	return buf
}

type PixelData struct {
	PlayerNumber uint8
	X, Y         uint32
}

func DecodePixelData(data []byte) (PixelData, error) {
	if len(data) != 9 {
		return PixelData{}, decodeErr(Malformed, "PIXEL payload is %d bytes, want 9", len(data))
	}
	return PixelData{
		PlayerNumber: data[0],
		X:            binary.BigEndian.Uint32(data[1:5]),
		Y:            binary.BigEndian.Uint32(data[5:9]),
	}, nil
}

// EncodePlayerEliminatedData builds the PLAYER_ELIMINATED payload.
func EncodePlayerEliminatedData(playerNumber uint8) []byte {
	return []byte{playerNumber}
}

func DecodePlayerEliminatedData(data []byte) (uint8, error) {
	if len(data) != 1 {
		return 0, decodeErr(Malformed, "PLAYER_ELIMINATED payload is %d bytes, want 1", len(data))
	}
	return data[0], nil
}
