package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tickwyrmd",
	Short: "Authoritative UDP server for tickwyrm",
	Long: `tickwyrmd runs the authoritative game server: a single-threaded,
deterministic tick simulation multiplexed over one UDP socket, plus an
optional read-only spectator dashboard.`,
}

func init() {
	rootCmd.AddCommand(getServeCmd())
	rootCmd.AddCommand(getStatusCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
