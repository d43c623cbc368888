package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tickwyrm/internal/client"
	"tickwyrm/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tickwyrm-client <player_name> <server_host[:port]> [ui_host[:port]]",
	Short: "Connect to a tickwyrm game server",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runConnect,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg := config.LoadClient()

	name := args[0]
	if len(args) >= 2 {
		cfg.ServerAddr = withDefaultPort(args[1], "12345")
	}
	if len(args) >= 3 {
		cfg.UIAddr = withDefaultPort(args[2], "12346")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	c := client.New(client.Config{
		PlayerName: name,
		ServerAddr: cfg.ServerAddr,
		UIAddr:     cfg.UIAddr,
		SessionID:  uint64(time.Now().UnixMicro()),
	}, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return c.Run(ctx)
}

// withDefaultPort appends ":port" to addr if it does not already contain a
// colon, matching the spec's "host[:port]" positional argument shape.
func withDefaultPort(addr, port string) string {
	for i := 0; i < len(addr); i++ {
		if addr[i] == ':' {
			return addr
		}
	}
	return addr + ":" + port
}
