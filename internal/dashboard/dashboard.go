// Package dashboard is a read-only spectator surface over the game
// server's public state: the same NEW_GAME/PIXEL/PLAYER_ELIMINATED facts
// every client already receives, summarized for a browser instead of fed
// through the wire codec. It never accepts player input and is never
// consulted by the authoritative server loop; it only reads a snapshot the
// server loop publishes after each tick.
package dashboard

import (
	"encoding/binary"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"tickwyrm/internal/gameserver"
	"tickwyrm/internal/wire"
)

// Snapshot is the public, read-only view of server state served over
// /stats and /ws. It never carries anything a player's own datagrams
// didn't already reveal.
type Snapshot struct {
	GameID        uint32             `json:"gameId"`
	Idle          bool               `json:"idle"`
	Width         uint32             `json:"width"`
	Height        uint32             `json:"height"`
	AlivePlayers  int                `json:"alivePlayers"`
	TotalPlayers  int                `json:"totalPlayers"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	UptimeSeconds float64            `json:"uptimeSeconds"`
	CPUPercent    float64            `json:"cpuPercent"`
	RSSBytes      uint64             `json:"rssBytes"`
}

// LeaderboardEntry names one living snake for the dashboard table.
type LeaderboardEntry struct {
	Name         string `json:"name"`
	PlayerNumber uint8  `json:"playerNumber"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dashboard wraps a running gameserver.Server with an HTTP/WebSocket
// presentation layer. It owns its own goroutines (one per websocket
// viewer, plus an HTTP server) — explicitly outside the single-threaded
// authoritative loop, since this is fan-out of already-decided state, not
// a participant in deciding it.
type Dashboard struct {
	srv       *gameserver.Server
	log       zerolog.Logger
	startedAt time.Time
	proc      *process.Process

	mu      sync.RWMutex
	viewers map[*websocket.Conn]chan []byte

	httpServer *http.Server
}

// New creates a dashboard over an existing, not-yet-running server.
func New(srv *gameserver.Server, log zerolog.Logger) *Dashboard {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Dashboard{
		srv:       srv,
		log:       log,
		startedAt: time.Now(),
		proc:      proc,
		viewers:   make(map[*websocket.Conn]chan []byte),
	}
}

// PublishTick is installed as the server's Snapshot hook; it is called
// from the single server-loop goroutine after every tick and processed
// datagram, so it must stay cheap and non-blocking.
func (d *Dashboard) PublishTick(*gameserver.Server) {
	snap := d.buildSnapshot()
	data := encodeSnapshotBinary(snap)

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ch := range d.viewers {
		select {
		case ch <- data:
		default:
			// Slow viewer: drop this frame rather than block the server loop's caller.
		}
	}
}

// encodeSnapshotBinary frames a Snapshot the way the teacher's
// serializeStateFor hand-rolls its websocket payload: a fixed BigEndian
// header followed by one fixed-size record per leaderboard entry, rather
// than round-tripping through JSON a second time. Layout:
//
//	flags(1): bit0=idle
//	gameId(uint32), width(uint32), height(uint32)
//	alivePlayers(uint16), totalPlayers(uint16)
//	uptimeSeconds(float64), cpuPercent(float64), rssBytes(uint64)
//	entryCount(uint16)
//	per entry: playerNumber(uint8), nameLen(uint8), name[nameLen]
func encodeSnapshotBinary(s Snapshot) []byte {
	size := 1 + 4 + 4 + 4 + 2 + 2 + 8 + 8 + 8 + 2
	for _, e := range s.Leaderboard {
		size += 1 + 1 + len(e.Name)
	}
	buf := make([]byte, size)
	off := 0

	var flags byte
	if s.Idle {
		flags |= 1
	}
	buf[off] = flags
	off++
	binary.BigEndian.PutUint32(buf[off:], s.GameID)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], s.Width)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], s.Height)
	off += 4
	binary.BigEndian.PutUint16(buf[off:], uint16(s.AlivePlayers))
	off += 2
	binary.BigEndian.PutUint16(buf[off:], uint16(s.TotalPlayers))
	off += 2
	binary.BigEndian.PutUint64(buf[off:], math.Float64bits(s.UptimeSeconds))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], math.Float64bits(s.CPUPercent))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], s.RSSBytes)
	off += 8
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s.Leaderboard)))
	off += 2

	for _, e := range s.Leaderboard {
		buf[off] = e.PlayerNumber
		off++
		buf[off] = byte(len(e.Name))
		off++
		off += copy(buf[off:], e.Name)
	}
	return buf
}

func (d *Dashboard) buildSnapshot() Snapshot {
	eng := d.srv.Engine()
	snap := Snapshot{
		Idle:          eng.Idle(),
		UptimeSeconds: time.Since(d.startedAt).Seconds(),
	}
	if !eng.Idle() {
		snap.GameID = eng.GameID()
		if ng, err := wire.DecodeNewGameData(eng.Events()[0].Data); err == nil {
			snap.Width, snap.Height = ng.MaxX, ng.MaxY
		}
		names := eng.Names()
		for _, s := range eng.Snakes() {
			snap.TotalPlayers++
			if s.Alive {
				snap.AlivePlayers++
				snap.Leaderboard = append(snap.Leaderboard, LeaderboardEntry{
					Name:         names[s.PlayerNumber],
					PlayerNumber: s.PlayerNumber,
				})
			}
		}
	}
	if d.proc != nil {
		if pct, err := d.proc.CPUPercent(); err == nil {
			snap.CPUPercent = pct
		}
		if mem, err := d.proc.MemoryInfo(); err == nil && mem != nil {
			snap.RSSBytes = mem.RSS
		}
	}
	return snap
}

// Router builds the gin engine serving /dashboard, /stats, and /ws.
func (d *Dashboard) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet},
	}))

	r.GET("/dashboard", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, dashboardHTML)
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.buildSnapshot())
	})

	r.GET("/ws", func(c *gin.Context) {
		d.handleWS(c.Writer, c.Request)
	})

	return r
}

func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Debug().Err(err).Msg("dashboard websocket upgrade failed")
		return
	}

	ch := make(chan []byte, 4)
	d.mu.Lock()
	d.viewers[conn] = ch
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.viewers, conn)
		d.mu.Unlock()
		conn.Close()
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go discardReads(conn)

	for {
		select {
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardReads drains and discards any client frames; the dashboard is
// read-only so nothing inbound is meaningful except pong control frames,
// which ReadMessage handles internally.
func discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ListenAndServe starts the dashboard's HTTP server (blocking).
func (d *Dashboard) ListenAndServe(addr string) error {
	d.httpServer = &http.Server{Addr: addr, Handler: d.Router()}
	d.log.Info().Str("addr", addr).Msg("dashboard listening")
	return d.httpServer.ListenAndServe()
}

// Close shuts the dashboard's HTTP server down.
func (d *Dashboard) Close() error {
	if d.httpServer == nil {
		return nil
	}
	return d.httpServer.Close()
}
