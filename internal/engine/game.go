// Package engine implements the deterministic tick-based simulator: PRNG,
// snake kinematics, board occupancy, and event log production. The engine
// performs no I/O and never fails; its only postconditions are the
// invariants on Game/Snake/Event state.
package engine

import (
	"math"

	"tickwyrm/internal/wire"
)

// Snake is one player's moving entity during an active game.
type Snake struct {
	PlayerNumber  uint8
	Alive         bool
	X, Y          float64
	Angle         float64 // degrees
	TurnDirection int8    // -1, 0, +1
}

// Config holds the parameters that must stay fixed for a whole process
// lifetime to keep the simulation deterministic across restarts with the
// same seed.
type Config struct {
	Width, Height uint32
	TurningSpeed  float64 // degrees applied per tick per unit of turn_direction
	Seed          uint32
}

// Engine is the server-side simulator. It holds at most one in-progress
// game at a time; between games it is idle.
type Engine struct {
	cfg  Config
	prng *PRNG
	game *gameState
}

type gameState struct {
	id         uint32
	board      map[[2]int32]struct{}
	aliveCount int
	snakes     []*Snake
	names      []string
	events     []wire.Event
	nextNumber uint32
}

// New creates an idle engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, prng: NewPRNG(cfg.Seed)}
}

// Idle reports whether no game is currently in progress.
func (e *Engine) Idle() bool {
	return e.game == nil
}

// GameID returns the current game's id. Valid only when !Idle().
func (e *Engine) GameID() uint32 {
	return e.game.id
}

// Events returns the full event log of the current game. Valid only when
// !Idle(). The returned slice must not be mutated by the caller.
func (e *Engine) Events() []wire.Event {
	return e.game.events
}

// Snakes returns the current game's snakes, indexed by player number.
func (e *Engine) Snakes() []*Snake {
	return e.game.snakes
}

// Names returns the current game's player name list, indexed by player
// number (the same order NEW_GAME advertised).
func (e *Engine) Names() []string {
	return e.game.names
}

func (e *Engine) appendEvent(typ wire.EventType, data []byte) wire.Event {
	ev := wire.Event{Number: e.game.nextNumber, Type: typ, Data: data}
	e.game.events = append(e.game.events, ev)
	e.game.nextNumber++
	return ev
}

// TryStartGame attempts to start a new game from candidates (already
// filtered by the caller to ready, non-empty-named players). It returns
// false, leaving the engine idle, if fewer than two players remain after
// SelectRoster's ordering, dedup, and datagram-fit trimming.
func (e *Engine) TryStartGame(candidates []QualifyingPlayer) bool {
	if !e.Idle() {
		return false
	}
	roster := SelectRoster(candidates)
	if roster == nil {
		return false
	}
	return e.StartGameWithRoster(roster)
}

// StartGameWithRoster starts a game from an already-selected roster (the
// output of SelectRoster). Callers that need to map the resulting player
// numbers back to their own connection records — the gameserver package,
// which must remember which (address, port, name) owns each snake — select
// the roster themselves via SelectRoster and pass it here directly, rather
// than going through TryStartGame's internal selection.
func (e *Engine) StartGameWithRoster(roster []QualifyingPlayer) bool {
	if !e.Idle() || len(roster) < 2 {
		return false
	}

	// game_id is one PRNG draw, taken before the three-draws-per-player
	// NEW_GAME seeding below (spec.md §4.2; original_source/zadanie2/
	// server.cpp draws the game id before onGameStart's per-player draws).
	gameID := e.prng.Next()

	names := make([]string, len(roster))
	snakes := make([]*Snake, len(roster))
	for i, c := range roster {
		names[i] = c.Name
		draw := e.prng.Next()
		x := float64(draw%e.cfg.Width) + 0.5
		draw = e.prng.Next()
		y := float64(draw%e.cfg.Height) + 0.5
		draw = e.prng.Next()
		angle := float64(draw % 360)
		snakes[i] = &Snake{
			PlayerNumber: uint8(i),
			Alive:        true,
			X:            x,
			Y:            y,
			Angle:        angle,
		}
	}

	e.game = &gameState{
		id:         gameID,
		board:      make(map[[2]int32]struct{}),
		aliveCount: len(roster),
		snakes:     snakes,
		names:      names,
	}
	e.appendEvent(wire.NewGame, wire.EncodeNewGameData(e.cfg.Width, e.cfg.Height, names))
	return true
}

// SetTurnDirection updates the turn direction of the snake owned by
// playerNumber in the current game, if any. It is a no-op when idle or the
// player number is out of range.
func (e *Engine) SetTurnDirection(playerNumber uint8, dir int8) {
	if e.Idle() || int(playerNumber) >= len(e.game.snakes) {
		return
	}
	e.game.snakes[playerNumber].TurnDirection = dir
}

// floorInt is math.Floor truncated to int64; unlike int(x), it rounds
// toward negative infinity for negative x, matching the spec's floor
// requirement.
func floorInt(v float64) int64 {
	return int64(math.Floor(v))
}

// Tick advances the simulation by one step and returns the events appended
// during it (possibly empty, possibly ending in GAME_OVER). It is a no-op
// returning nil when idle.
func (e *Engine) Tick() []wire.Event {
	if e.Idle() {
		return nil
	}
	g := e.game
	before := len(g.events)

	for _, s := range g.snakes {
		if !s.Alive {
			continue
		}

		s.Angle += float64(s.TurnDirection) * e.cfg.TurningSpeed

		oldX, oldY := floorInt(s.X), floorInt(s.Y)
		rad := s.Angle * math.Pi / 180
		s.X += math.Cos(rad)
		s.Y -= math.Sin(rad)
		newX, newY := floorInt(s.X), floorInt(s.Y)

		if newX == oldX && newY == oldY {
			continue
		}

		outOfBounds := newX < 0 || newY < 0 || newX >= int64(e.cfg.Width) || newY >= int64(e.cfg.Height)
		key := [2]int32{int32(newX), int32(newY)}
		_, occupied := g.board[key]

		if outOfBounds || occupied {
			s.Alive = false
			g.aliveCount--
			e.appendEvent(wire.PlayerEliminated, wire.EncodePlayerEliminatedData(s.PlayerNumber))
			continue
		}

		g.board[key] = struct{}{}
		e.appendEvent(wire.Pixel, wire.EncodePixelData(s.PlayerNumber, uint32(newX), uint32(newY)))
	}

	if g.aliveCount < 2 {
		e.appendEvent(wire.GameOver, nil)
		e.game = nil
	}

	return g.events[before:]
}
