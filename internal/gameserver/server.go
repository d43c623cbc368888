package gameserver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tickwyrm/internal/engine"
	"tickwyrm/internal/wire"
)

// Config is the server's full external configuration surface (spec §6).
type Config struct {
	Width, Height uint32
	Port          int
	RoundsPerSec  int
	TurningSpeed  float64
	Seed          uint32
}

// Server is the single-threaded cooperative UDP game server: one socket,
// one timer, one connection table, one engine. Run never spawns a
// goroutine for the hot path; the only concurrency is the caller's ctx
// cancellation.
type Server struct {
	cfg    Config
	table  *Table
	engine *engine.Engine
	log    zerolog.Logger

	conn         *net.UDPConn
	tickInterval time.Duration

	// Snapshot, if set, is invoked after every tick and every processed
	// datagram with a read-only view for the dashboard package. It must
	// not block or retain the engine/table pointers past the call.
	Snapshot func(*Server)
}

// New builds an idle server. Run must be called to bind the socket and
// start serving.
func New(cfg Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:   cfg,
		table: NewTable(),
		engine: engine.New(engine.Config{
			Width:        cfg.Width,
			Height:       cfg.Height,
			TurningSpeed: cfg.TurningSpeed,
			Seed:         cfg.Seed,
		}),
		log:          log,
		tickInterval: time.Duration(1_000_000/cfg.RoundsPerSec) * time.Microsecond,
	}
}

// Engine exposes the running simulator, for the dashboard and tests.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Table exposes the connection table, for the dashboard and tests.
func (s *Server) Table() *Table { return s.table }

// Run binds the dual-stack UDP socket and drives the server loop until ctx
// is cancelled. It returns nil on clean cancellation, a non-nil error on
// any fatal bind/socket failure.
func (s *Server) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.cfg.Port})
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.log.Info().Int("port", s.cfg.Port).Int("rounds_per_sec", s.cfg.RoundsPerSec).Msg("server listening")

	nextTick := time.Now().Add(s.tickInterval)
	buf := make([]byte, wire.MaxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("shutdown signal observed, closing socket")
			return nil
		default:
		}

		now := time.Now()
		if !now.Before(nextTick) {
			// Simulation never skips ticks: if we're behind, the loop
			// simply revisits this branch every iteration until caught up,
			// each iteration advancing nextTick by exactly one interval.
			s.runScheduledStep(now)
			nextTick = nextTick.Add(s.tickInterval)
			continue
		}

		timeout := nextTick.Sub(now)
		if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}

		n, raddr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if isTransient(err) {
				s.log.Debug().Err(err).Msg("transient socket error, retrying")
				continue
			}
			return err
		}

		s.handleDatagram(buf[:n], raddr, time.Now())
		if s.Snapshot != nil {
			s.Snapshot(s)
		}
	}
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOBUFS) || errors.Is(err, syscall.EINTR)
}

// runScheduledStep performs the tick branch of the loop: start a game if
// idle and qualified, or advance the running simulation by one tick, then
// broadcast whatever the engine produced.
func (s *Server) runScheduledStep(now time.Time) {
	s.table.Evict(now)

	if s.engine.Idle() {
		if roster := engine.SelectRoster(s.table.Candidates()); roster != nil {
			if s.engine.StartGameWithRoster(roster) {
				s.table.AssignSnakes(roster)
				s.table.ResetCursorsForNewGame()
				s.broadcastAll(s.engine.GameID(), s.engine.Events())
			}
		}
		if s.Snapshot != nil {
			s.Snapshot(s)
		}
		return
	}

	// Captured before Tick(): a tick whose moves drop alive_count below 2
	// appends GAME_OVER and clears the engine's own game state in the same
	// call, so GameID()/Events() can no longer be read afterward. The full
	// log to broadcast is this snapshot plus whatever Tick() just appended,
	// which still includes that terminal GAME_OVER event.
	gameID := s.engine.GameID()
	priorEvents := s.engine.Events()

	newEvents := s.engine.Tick()
	if len(newEvents) > 0 {
		full := make([]wire.Event, 0, len(priorEvents)+len(newEvents))
		full = append(full, priorEvents...)
		full = append(full, newEvents...)
		s.broadcastAll(gameID, full)
	}
	if s.engine.Idle() {
		// The tick just appended GAME_OVER and the engine went idle.
		s.table.ClearRoundFlags()
	}
	if s.Snapshot != nil {
		s.Snapshot(s)
	}
}

// handleDatagram validates, dispatches, and — since a processed datagram
// may have changed a player's next_expected_event — re-broadcasts to that
// one player immediately rather than waiting for the next tick.
func (s *Server) handleDatagram(data []byte, from netip.AddrPort, now time.Time) {
	msg, err := wire.DecodeClientToServer(data)
	if err != nil {
		s.log.Debug().Err(err).Str("peer", from.String()).Msg("dropping malformed client datagram")
		return
	}

	player := s.table.Apply(from.Addr(), from.Port(), msg.SessionID, msg.TurnDirection, msg.NextExpectedEvent, msg.Name, now, !s.engine.Idle())
	if player == nil {
		return // stale session-id, silently dropped per arbitration rule
	}
	if player.HasSnake {
		s.engine.SetTurnDirection(player.PlayerNumber, msg.TurnDirection)
	}

	if !s.engine.Idle() {
		s.broadcastTo(player, s.engine.GameID(), s.engine.Events())
	}
}

// broadcastAll sends pending events from the given game's log to every
// connected player.
func (s *Server) broadcastAll(gameID uint32, events []wire.Event) {
	for _, p := range s.table.All() {
		s.broadcastTo(p, gameID, events)
	}
}

// broadcastTo packs and sends events[p.NextExpectedEvent:] to p in as many
// 512-byte datagrams as needed, advancing p.NextExpectedEvent only for
// events that made it into a datagram that was actually sent. events is
// the full current log of gameID, supplied by the caller rather than read
// back from the engine, since the caller may be broadcasting the tail end
// of a game the engine has already gone idle from.
func (s *Server) broadcastTo(p *Player, gameID uint32, events []wire.Event) {
	if p.NextExpectedEvent >= uint32(len(events)) {
		return
	}
	pending := events[p.NextExpectedEvent:]

	for len(pending) > 0 {
		datagram, consumed := wire.EncodeServerToClient(gameID, pending)
		if consumed == 0 {
			// A single event does not fit; nothing useful can be sent.
			s.log.Warn().Msg("event too large for one datagram, dropping")
			return
		}
		if err := s.send(datagram, p); err != nil {
			// Cursor is left unchanged; retransmission happens naturally
			// next tick.
			return
		}
		p.NextExpectedEvent += uint32(consumed)
		pending = pending[consumed:]
	}
}

func (s *Server) send(datagram []byte, p *Player) error {
	if s.conn == nil {
		return nil // no bound socket yet (e.g. under test); nothing to send
	}
	addr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(p.Addr, p.Port))
	_, err := s.conn.WriteToUDP(datagram, addr)
	if err != nil && isTransient(err) {
		s.log.Debug().Err(err).Str("peer", addr.String()).Msg("transient send failure, will retry next tick")
		return err
	}
	if err != nil {
		s.log.Debug().Err(err).Str("peer", addr.String()).Msg("send failed")
	}
	return err
}
