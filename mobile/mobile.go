// Package mobile provides gomobile-compatible bindings for embedding the
// tickwyrm game server in iOS/Android applications.
//
// All exported functions use only primitive types (int, string, error) to
// satisfy gomobile's type restrictions. The binding itself is produced by
// running `gomobile bind ./mobile`, a tool dependency this package never
// imports directly.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tickwyrm/internal/dashboard"
	"tickwyrm/internal/gameserver"
)

var (
	mu     sync.Mutex
	srv    *gameserver.Server
	dash   *dashboard.Dashboard
	cancel context.CancelFunc
	port   int
)

// Start initializes and runs the game server on the given UDP port, plus
// its dashboard on port+1. The server runs in the background; call Stop()
// to shut it down.
func Start(serverPort int) error {
	mu.Lock()
	defer mu.Unlock()

	if srv != nil {
		return fmt.Errorf("server already running")
	}

	log := zerolog.Nop()
	s := gameserver.New(gameserver.Config{
		Width:        800,
		Height:       600,
		Port:         serverPort,
		RoundsPerSec: 50,
		TurningSpeed: 6,
		Seed:         uint32(time.Now().Unix()),
	}, log)

	d := dashboard.New(s, log)
	s.Snapshot = d.PublishTick

	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	go d.ListenAndServe(fmt.Sprintf(":%d", serverPort+1))

	select {
	case err := <-errCh:
		cancelFn()
		return err
	case <-time.After(100 * time.Millisecond):
		// No immediate bind failure; assume the loop is up.
	}

	srv, dash, cancel, port = s, d, cancelFn, serverPort
	return nil
}

// Stop shuts down the running server and its dashboard.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if dash != nil {
		dash.Close()
	}
	srv, dash, cancel = nil, nil, nil
}

// IsRunning returns true if the server is currently running.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return srv != nil
}

// GetStats returns the current game stats as a JSON string.
func GetStats() string {
	mu.Lock()
	s := srv
	mu.Unlock()

	if s == nil {
		return "{}"
	}
	eng := s.Engine()
	snap := map[string]any{"idle": eng.Idle()}
	if !eng.Idle() {
		snap["gameId"] = eng.GameID()
		snap["names"] = eng.Names()
	}
	b, _ := json.Marshal(snap)
	return string(b)
}

// GetLocalIP returns the device's local network IP address.
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return "unknown"
}

// GetConnectURL returns the UDP host:port players should point their
// client at.
func GetConnectURL() string {
	mu.Lock()
	p := port
	mu.Unlock()
	return fmt.Sprintf("%s:%d", GetLocalIP(), p)
}

// GetVersion returns the server version string.
func GetVersion() string {
	return "0.1.0"
}
