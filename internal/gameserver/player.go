// Package gameserver drives the authoritative UDP server loop: connection
// table with session-id arbitration, the ready handshake, per-client replay
// cursors, datagram packing, inactivity eviction, and the tick scheduler.
package gameserver

import (
	"net/netip"
	"time"
)

// connKey identifies a connection slot. Two datagrams with the same
// (address, port, name) but different session-ids contend for the same
// slot; the higher session-id wins per the spec's arbitration rule.
type connKey struct {
	Addr netip.Addr
	Port uint16
	Name string
}

// canonicalAddr folds IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) down to
// their plain IPv4 form so a client appears as one identity regardless of
// which address family it used to reach the dual-stack socket.
func canonicalAddr(a netip.Addr) netip.Addr {
	if a.Is4In6() {
		return a.Unmap()
	}
	return a
}

// Player is the server-side connection record described in the data model:
// one entry per (address, port, name) identity, reconciled across
// reconnects by session-id.
type Player struct {
	Name              string
	SessionID         uint64
	Addr              netip.Addr
	Port              uint16
	LastReceiveTime   time.Time
	Ready             bool
	HasSnake          bool
	PlayerNumber      uint8
	NextExpectedEvent uint32
	Disconnected      bool
}

func (p *Player) key() connKey {
	return connKey{Addr: p.Addr, Port: p.Port, Name: p.Name}
}

// IsObserver reports whether this connection never owns a snake: an empty
// name always means observer.
func (p *Player) IsObserver() bool {
	return p.Name == ""
}
