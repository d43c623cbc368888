package gameserver

import (
	"net/netip"
	"testing"
	"time"
)

func mustAddr(s string) netip.Addr {
	a, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestSessionPrecedenceHigherWins(t *testing.T) {
	tbl := NewTable()
	addr := mustAddr("192.0.2.1")
	now := time.Now()

	tbl.Apply(addr, 1000, 1, 0, 0, "C", now, false)
	p := tbl.Apply(addr, 1000, 2, 1, 5, "C", now, false)
	if p == nil {
		t.Fatal("higher session-id must be accepted")
	}
	if p.SessionID != 2 || !p.Ready {
		t.Fatalf("expected new session to win and set ready, got %+v", p)
	}

	all := tbl.All()
	var foundDisconnectedOld bool
	for _, rec := range all {
		if rec.SessionID == 1 && rec.Disconnected {
			foundDisconnectedOld = true
		}
	}
	if !foundDisconnectedOld {
		t.Fatal("the superseded session-id record must be marked disconnected")
	}
}

func TestSessionPrecedenceIgnoresStaleOutOfOrderArrival(t *testing.T) {
	tbl := NewTable()
	addr := mustAddr("192.0.2.1")
	now := time.Now()

	// s2 arrives first (network reordering), then s1 arrives late.
	tbl.Apply(addr, 1000, 2, 1, 9, "C", now, false)
	dropped := tbl.Apply(addr, 1000, 1, 1, 1, "C", now, false)
	if dropped != nil {
		t.Fatal("a lower session-id arriving after a higher one must be dropped")
	}

	all := tbl.All()
	if len(all) != 1 || all[0].SessionID != 2 || all[0].NextExpectedEvent != 9 {
		t.Fatalf("state must reflect only the higher session-id regardless of arrival order, got %+v", all)
	}
}

func TestEvictionBoundedness(t *testing.T) {
	tbl := NewTable()
	addr := mustAddr("192.0.2.2")
	now := time.Now()
	tbl.Apply(addr, 2000, 1, 0, 0, "Observer", now, false)

	tbl.Evict(now.Add(1900 * time.Millisecond))
	if len(tbl.All()) != 1 {
		t.Fatal("must not evict before the 2,000,000us inactivity bound")
	}

	tbl.Evict(now.Add(2100 * time.Millisecond))
	if len(tbl.All()) != 0 {
		t.Fatal("must evict once the inactivity bound is exceeded")
	}
}

func TestEvictionSparesSnakeHolders(t *testing.T) {
	tbl := NewTable()
	addr := mustAddr("192.0.2.3")
	now := time.Now()
	tbl.Apply(addr, 3000, 1, 0, 0, "Alive", now, false)
	tbl.All()[0].HasSnake = true

	tbl.Evict(now.Add(10 * time.Second))
	if len(tbl.All()) != 1 {
		t.Fatal("a player with a live snake must never be evicted mid-game")
	}
}

func TestIPv4MappedCanonicalization(t *testing.T) {
	tbl := NewTable()
	now := time.Now()

	mapped := netip.MustParseAddr("::ffff:192.0.2.9")
	plain := netip.MustParseAddr("192.0.2.9")

	tbl.Apply(mapped, 4000, 1, 0, 0, "Dual", now, false)
	p := tbl.Apply(plain, 4000, 2, 1, 0, "Dual", now, false)
	if p == nil {
		t.Fatal("expected the plain-IPv4 datagram to resolve to the same identity")
	}
	if len(tbl.All()) != 1 {
		t.Fatalf("expected one canonicalized identity, got %d entries", len(tbl.All()))
	}
}

func TestCandidatesExcludeObserversAndUnready(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	tbl.Apply(mustAddr("192.0.2.4"), 1, 1, 0, 0, "", now, false)     // observer
	tbl.Apply(mustAddr("192.0.2.5"), 1, 1, 0, 0, "NotReady", now, false) // turn_direction=0, never readies
	tbl.Apply(mustAddr("192.0.2.6"), 1, 1, 1, 0, "Ready", now, false)

	cands := tbl.Candidates()
	if len(cands) != 1 || cands[0].Name != "Ready" {
		t.Fatalf("expected only the ready non-observer candidate, got %+v", cands)
	}
}
