package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tickwyrm/internal/config"
	"tickwyrm/internal/dashboard"
	"tickwyrm/internal/gameserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE:  runServe,
}

var (
	serveWidth        uint32
	serveHeight       uint32
	servePort         int
	serveRoundsPerSec int
	serveTurningSpeed float64
	serveSeed         uint32
	serveDashboard    string
	serveNoDashboard  bool
)

func init() {
	serveCmd.Flags().Uint32Var(&serveWidth, "W", 0, "board width in pixels (default 800)")
	serveCmd.Flags().Uint32Var(&serveHeight, "H", 0, "board height in pixels (default 600)")
	serveCmd.Flags().IntVar(&servePort, "p", 0, "listen UDP port (default 12345)")
	serveCmd.Flags().IntVar(&serveRoundsPerSec, "s", 0, "ticks per second (default 50)")
	serveCmd.Flags().Float64Var(&serveTurningSpeed, "t", 0, "degrees turned per tick (default 6)")
	serveCmd.Flags().Uint32Var(&serveSeed, "r", 0, "PRNG seed (default wall-clock seconds)")
	serveCmd.Flags().StringVar(&serveDashboard, "dashboard-addr", "", "spectator dashboard listen address (default :8080)")
	serveCmd.Flags().BoolVar(&serveNoDashboard, "no-dashboard", false, "disable the spectator dashboard")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	// CLI flags override config-file/env values, matching the precedence
	// the server package's config layer documents.
	if cmd.Flags().Changed("W") {
		cfg.Width = serveWidth
	}
	if cmd.Flags().Changed("H") {
		cfg.Height = serveHeight
	}
	if cmd.Flags().Changed("p") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("s") {
		cfg.RoundsPerSec = serveRoundsPerSec
	}
	if cmd.Flags().Changed("t") {
		cfg.TurningSpeed = serveTurningSpeed
	}
	if cmd.Flags().Changed("r") {
		cfg.Seed = serveSeed
	}
	if cmd.Flags().Changed("dashboard-addr") {
		cfg.DashboardAddr = serveDashboard
	}

	runID := uuid.NewString()
	log := zerolog.New(os.Stderr).With().Timestamp().Str("run_id", runID).Logger()

	srv := gameserver.New(gameserver.Config{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Port:         cfg.Port,
		RoundsPerSec: cfg.RoundsPerSec,
		TurningSpeed: cfg.TurningSpeed,
		Seed:         cfg.Seed,
	}, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !serveNoDashboard {
		dash := dashboard.New(srv, log.With().Str("component", "dashboard").Logger())
		srv.Snapshot = dash.PublishTick

		go func() {
			if err := dash.ListenAndServe(cfg.DashboardAddr); err != nil {
				log.Debug().Err(err).Msg("dashboard server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			dash.Close()
		}()
	}

	return srv.Run(ctx)
}

func getServeCmd() *cobra.Command {
	return serveCmd
}
