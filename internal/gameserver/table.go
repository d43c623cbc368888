package gameserver

import (
	"net/netip"
	"time"

	"tickwyrm/internal/engine"
)

// evictionTimeout is the spec's fixed 2,000,000 microsecond inactivity
// bound for connections without a snake.
const evictionTimeout = 2000 * time.Millisecond

// Table is the server's connection table: one Player per (address, port,
// name) identity, the highest session-id wins arbitration. It is owned
// exclusively by the single server loop goroutine and carries no locking —
// the single-threaded cooperative model means nothing else ever touches it
// concurrently.
type Table struct {
	byKey map[connKey]*Player
}

// NewTable creates an empty connection table.
func NewTable() *Table {
	return &Table{byKey: make(map[connKey]*Player)}
}

// Apply reconciles an incoming client datagram against the table per the
// three-way session-id arbitration rule (§4.3) and returns the Player
// record the datagram now applies to, or nil if the datagram was silently
// dropped for carrying a stale session-id.
func (t *Table) Apply(addr netip.Addr, port uint16, sessionID uint64, turnDirection int8, nextExpected uint32, name string, now time.Time, gameInProgress bool) *Player {
	key := connKey{Addr: canonicalAddr(addr), Port: port, Name: name}
	existing, found := t.byKey[key]

	if found {
		switch {
		case sessionID == existing.SessionID:
			t.applyUpdate(existing, turnDirection, nextExpected, now, gameInProgress)
			return existing
		case sessionID > existing.SessionID:
			existing.Disconnected = true
			// fall through to creation of a fresh record below
		default: // sessionID < existing.SessionID
			return nil
		}
	}

	p := &Player{
		Name:      name,
		SessionID: sessionID,
		Addr:      key.Addr,
		Port:      port,
	}
	t.byKey[key] = p
	t.applyUpdate(p, turnDirection, nextExpected, now, gameInProgress)
	return p
}

func (t *Table) applyUpdate(p *Player, turnDirection int8, nextExpected uint32, now time.Time, gameInProgress bool) {
	p.LastReceiveTime = now
	p.NextExpectedEvent = nextExpected
	if !gameInProgress {
		p.Ready = p.Ready || turnDirection != 0
	}
}

// All returns every Player in the table, in no particular order — the
// broadcast step is explicitly order-independent per the spec.
func (t *Table) All() []*Player {
	out := make([]*Player, 0, len(t.byKey))
	for _, p := range t.byKey {
		out = append(out, p)
	}
	return out
}

// Candidates returns the ready, non-empty-named, non-disconnected
// connections eligible to be considered for the next game, in the form the
// engine's roster selection expects.
func (t *Table) Candidates() []engine.QualifyingPlayer {
	var out []engine.QualifyingPlayer
	for _, p := range t.byKey {
		if p.Disconnected || p.IsObserver() || !p.Ready {
			continue
		}
		out = append(out, engine.QualifyingPlayer{Name: p.Name, SessionID: p.SessionID})
	}
	return out
}

// AssignSnakes matches a started game's ordered roster back to their
// connection-table records by (name, session-id) — the same identity
// SelectRoster used — and marks each HasSnake with its assigned player
// number.
func (t *Table) AssignSnakes(roster []engine.QualifyingPlayer) {
	for i, r := range roster {
		for _, p := range t.byKey {
			if p.Name == r.Name && p.SessionID == r.SessionID {
				p.HasSnake = true
				p.PlayerNumber = uint8(i)
				break
			}
		}
	}
}

// ResetCursorsForNewGame rewinds every connection's replay cursor to 0 so
// broadcasting serves the freshly started game's log from its own event 0,
// per the design note that a newly (or already) joined client must never
// be stranded on a stale previous-game cursor.
func (t *Table) ResetCursorsForNewGame() {
	for _, p := range t.byKey {
		p.NextExpectedEvent = 0
	}
}

// ClearRoundFlags clears Ready and HasSnake on every connection, called
// once the engine reports its game just ended.
func (t *Table) ClearRoundFlags() {
	for _, p := range t.byKey {
		p.Ready = false
		p.HasSnake = false
	}
}

// Evict removes connections that have been silent for more than
// evictionTimeout with no snake, or that were marked disconnected by
// session arbitration and also hold no snake. Snake-holding players are
// never evicted, even if silent, until the game ends and HasSnake clears.
func (t *Table) Evict(now time.Time) {
	for key, p := range t.byKey {
		if p.HasSnake {
			continue
		}
		if p.Disconnected || now.Sub(p.LastReceiveTime) > evictionTimeout {
			delete(t.byKey, key)
		}
	}
}
