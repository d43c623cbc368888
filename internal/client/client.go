package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"tickwyrm/internal/wire"
)

// Config is the client's full external configuration surface (spec §6).
type Config struct {
	PlayerName   string
	ServerAddr   string // UDP host:port, default port 12345
	UIAddr       string // TCP host:port, default localhost:12346
	SessionID    uint64 // client-chosen, monotone; set by the caller (the CLI uses startup micros)
	SendInterval time.Duration
}

// DefaultSendInterval is the spec's target DELAY between outgoing
// datagrams.
const DefaultSendInterval = 20 * time.Millisecond

// Client owns the client-side event pipeline plus the two sockets it
// multiplexes: UDP to the game server, TCP (Nagle disabled) to the UI
// relay. The reader goroutines below only ever push immutable byte slices
// into channels; every piece of mutable client state (the Pipeline, the
// DirectionState) is read and written exclusively from the Run loop, which
// is the single owner the spec's concurrency model calls for.
type Client struct {
	cfg      Config
	pipeline *Pipeline
	dir      DirectionState
	log      zerolog.Logger

	udpConn *net.UDPConn
	uiConn  net.Conn
}

// New creates a client. Run must be called to open sockets and start the
// event loop.
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.SendInterval == 0 {
		cfg.SendInterval = DefaultSendInterval
	}
	return &Client{cfg: cfg, pipeline: NewPipeline(), log: log}
}

// Run dials both sockets and drives the client loop until ctx is
// cancelled, the UI socket disconnects (clean exit), or a ProtocolViolation
// is observed (fatal exit, per spec §7 — no recovery is defined).
func (c *Client) Run(ctx context.Context) error {
	serverAddr, err := net.ResolveUDPAddr("udp", c.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("resolve server address: %w", err)
	}
	udpConn, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}
	c.udpConn = udpConn
	defer udpConn.Close()

	uiConn, err := net.Dial("tcp", c.cfg.UIAddr)
	if err != nil {
		return fmt.Errorf("dial ui relay: %w", err)
	}
	if tc, ok := uiConn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	c.uiConn = uiConn
	defer uiConn.Close()

	c.log.Info().Str("server", c.cfg.ServerAddr).Str("ui", c.cfg.UIAddr).Str("name", c.cfg.PlayerName).Msg("client connected")

	datagrams := make(chan []byte, 16)
	tokens := make(chan string, 16)
	errs := make(chan error, 2)

	go c.readUDP(datagrams, errs)
	go c.readUITokens(tokens, errs)

	ticker := time.NewTicker(c.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				c.log.Info().Msg("ui relay disconnected")
				return nil // PeerDisconnect: exit zero
			}
			return err

		case dgram := <-datagrams:
			lines, err := c.pipeline.Process(dgram)
			if err != nil {
				return err // ProtocolViolation: fatal, no recovery defined
			}
			for _, line := range lines {
				if _, err := io.WriteString(c.uiConn, string(line)); err != nil {
					return err
				}
			}

		case tok := <-tokens:
			c.dir.HandleToken(tok)

		case <-ticker.C:
			c.sendToServer()
		}
	}
}

func (c *Client) sendToServer() {
	buf := wire.EncodeClientToServer(c.cfg.SessionID, c.dir.TurnDirection, c.pipeline.NextExpected, c.cfg.PlayerName)
	if _, err := c.udpConn.Write(buf); err != nil {
		c.log.Debug().Err(err).Msg("send to server failed, will retry next interval")
	}
}

func (c *Client) readUDP(out chan<- []byte, errs chan<- error) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		n, err := c.udpConn.Read(buf)
		if err != nil {
			errs <- err
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		out <- cp
	}
}

func (c *Client) readUITokens(out chan<- string, errs chan<- error) {
	scanner := bufio.NewScanner(c.uiConn)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		errs <- err
		return
	}
	errs <- io.EOF
}
