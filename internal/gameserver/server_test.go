package gameserver

import (
	"net/netip"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tickwyrm/internal/wire"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Config{
		Width:        800,
		Height:       800,
		Port:         0,
		RoundsPerSec: 50,
		TurningSpeed: 6,
		Seed:         77,
	}, zerolog.Nop())
}

func TestRunScheduledStepStartsGameWhenQualified(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	s.table.Apply(netip.MustParseAddr("192.0.2.1"), 1000, 1, 1, 0, "A", now, false)
	s.table.Apply(netip.MustParseAddr("192.0.2.2"), 1000, 1, 1, 0, "B", now, false)

	s.runScheduledStep(now)

	if s.engine.Idle() {
		t.Fatal("expected a game to start with two ready players")
	}
	for _, p := range s.table.All() {
		if !p.HasSnake {
			t.Fatalf("expected every qualifying player to be assigned a snake, got %+v", p)
		}
	}
}

func TestHandleDatagramAppliesArbitrationAndTurnDirection(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()

	addr := netip.MustParseAddr("192.0.2.3")
	s.table.Apply(addr, 2000, 1, 1, 0, "A", now, false)
	s.table.Apply(netip.MustParseAddr("192.0.2.4"), 2000, 1, 1, 0, "B", now, false)
	s.runScheduledStep(now)
	if s.engine.Idle() {
		t.Fatal("expected game start")
	}

	dgram := wire.EncodeClientToServer(1, 1, 0, "A")
	s.handleDatagram(dgram, netip.AddrPortFrom(addr, 2000), now.Add(time.Millisecond))

	snake := s.engine.Snakes()[0]
	if snake.TurnDirection != 1 {
		t.Fatalf("expected the snake-holding player's turn_direction to be pushed into the engine, got %d", snake.TurnDirection)
	}
}

func TestEvictionIntegratesWithScheduledStep(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	s.table.Apply(netip.MustParseAddr("192.0.2.5"), 1, 1, 0, 0, "Observer", now, false)

	s.runScheduledStep(now.Add(3 * time.Second))
	if len(s.table.All()) != 0 {
		t.Fatal("expected the inactive observer to be evicted by the scheduled step")
	}
}

func TestGameEndClearsRoundFlags(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	s.table.Apply(netip.MustParseAddr("192.0.2.6"), 1000, 1, 1, 0, "A", now, false)
	s.table.Apply(netip.MustParseAddr("192.0.2.7"), 1000, 1, 1, 0, "B", now, false)
	s.runScheduledStep(now)
	if s.engine.Idle() {
		t.Fatal("expected game start")
	}

	s.engine.SetTurnDirection(0, 1)
	s.engine.SetTurnDirection(1, 1)
	for i := 0; i < 200000 && !s.engine.Idle(); i++ {
		s.runScheduledStep(now.Add(time.Duration(i) * time.Millisecond))
	}
	if !s.engine.Idle() {
		t.Fatal("expected the game to end within the simulated budget")
	}
	for _, p := range s.table.All() {
		if p.Ready || p.HasSnake {
			t.Fatalf("expected ready/has_snake cleared after game end, got %+v", p)
		}
	}
}
