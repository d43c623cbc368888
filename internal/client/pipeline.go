// Package client implements the client-side event pipeline: the receive
// loop's deduplication, NEW_GAME state install, translation of PIXEL and
// PLAYER_ELIMINATED events into UI text lines, and the input direction
// state machine. I/O (the UDP socket to the server and the TCP relay to
// the UI) is layered on top in client.go; this file is pure state
// transformation so it can be tested without sockets.
package client

import (
	"fmt"

	"tickwyrm/internal/wire"
)

// ProtocolViolation is returned when the server sends data that the
// pipeline's own invariants say cannot happen (out-of-bounds pixel, unknown
// player number). The spec defines no recovery for this: the caller must
// abort the process.
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

type seenKey struct {
	gameID uint32
	number uint32
}

// Pipeline holds everything the client needs to turn server datagrams into
// UI text lines exactly once per (game_id, event_number), across
// reconnects and duplicate deliveries.
type Pipeline struct {
	haveGame      bool
	gameID        uint32
	width, height uint32
	names         []string

	seen map[seenKey]bool

	// NextExpected is 1 + the highest event_number seen in the current
	// game; it belongs in every outgoing client->server datagram.
	NextExpected uint32
}

// NewPipeline creates an empty pipeline (no current game).
func NewPipeline() *Pipeline {
	return &Pipeline{seen: make(map[seenKey]bool)}
}

// UILine is one emitted UI-bound text line, already LF-terminated.
type UILine string

// Process decodes one server datagram and returns the UI lines it
// produces, in order. A non-nil error is always a *ProtocolViolation; the
// caller must treat it as fatal per the spec's error-handling design.
func (p *Pipeline) Process(datagram []byte) ([]UILine, error) {
	// A Truncated/BadCRC datagram still carries every event the
	// codec parsed before the bad one (DecodeServerToClient returns them
	// alongside the error); those are real, already-validated events and
	// must still reach the UI. The decode error itself is unreliable-
	// transport noise, not a protocol violation, so it is dropped once its
	// valid prefix has been processed.
	msg, _ := wire.DecodeServerToClient(datagram)

	var lines []UILine
	for _, ev := range msg.Events {
		line, err := p.processEvent(msg.GameID, ev)
		if err != nil {
			return lines, err
		}
		if line != "" {
			lines = append(lines, line)
		}
		p.advanceCursor(msg.GameID, ev.Number)
	}
	return lines, nil
}

func (p *Pipeline) advanceCursor(gameID uint32, number uint32) {
	if p.haveGame && gameID == p.gameID && number+1 > p.NextExpected {
		p.NextExpected = number + 1
	}
}

func (p *Pipeline) processEvent(gameID uint32, ev wire.Event) (UILine, error) {
	if ev.Type == wire.NewGame {
		return p.installNewGame(gameID, ev)
	}

	if gameID != p.gameID || !p.haveGame {
		// Non-current-game events (e.g. the tail of a game that already
		// ended) are ignorable once GAME_OVER has made them stale.
		return "", nil
	}

	key := seenKey{gameID: gameID, number: ev.Number}
	duplicate := p.seen[key]
	p.seen[key] = true

	switch ev.Type {
	case wire.Pixel:
		px, err := wire.DecodePixelData(ev.Data)
		if err != nil {
			return "", &ProtocolViolation{Reason: err.Error()}
		}
		if px.X >= p.width || px.Y >= p.height || int(px.PlayerNumber) >= len(p.names) {
			return "", &ProtocolViolation{Reason: "PIXEL out of bounds or unknown player"}
		}
		if duplicate {
			return "", nil
		}
		return UILine(fmt.Sprintf("PIXEL %d %d %s\n", px.X, px.Y, p.names[px.PlayerNumber])), nil

	case wire.PlayerEliminated:
		num, err := wire.DecodePlayerEliminatedData(ev.Data)
		if err != nil {
			return "", &ProtocolViolation{Reason: err.Error()}
		}
		if int(num) >= len(p.names) {
			return "", &ProtocolViolation{Reason: "PLAYER_ELIMINATED unknown player number"}
		}
		if duplicate {
			return "", nil
		}
		return UILine(fmt.Sprintf("PLAYER_ELIMINATED %s\n", p.names[num])), nil

	case wire.GameOver:
		// No UI line; this event's only effect is that subsequent
		// non-current-game events become ignorable, which already follows
		// from gameID tracking above.
		return "", nil

	default:
		return "", nil
	}
}

func (p *Pipeline) installNewGame(gameID uint32, ev wire.Event) (UILine, error) {
	data, err := wire.DecodeNewGameData(ev.Data)
	if err != nil {
		return "", &ProtocolViolation{Reason: err.Error()}
	}

	// A duplicate delivery of the same game's NEW_GAME must not re-clear
	// dedup state for events already processed.
	key := seenKey{gameID: gameID, number: ev.Number}
	if p.haveGame && gameID == p.gameID && p.seen[key] {
		return "", nil
	}
	p.seen[key] = true

	p.haveGame = true
	p.gameID = gameID
	p.width = data.MaxX
	p.height = data.MaxY
	p.names = data.Names
	p.NextExpected = ev.Number + 1

	line := fmt.Sprintf("NEW_GAME %d %d", data.MaxX, data.MaxY)
	for _, n := range data.Names {
		line += " " + n
	}
	return UILine(line + "\n"), nil
}
