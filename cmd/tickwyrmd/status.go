package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tickwyrm/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the running server's leaderboard from its dashboard endpoint",
	RunE:  runStatus,
}

var statusDashboardAddr string

func init() {
	statusCmd.Flags().StringVar(&statusDashboardAddr, "dashboard-addr", "localhost:8080", "dashboard host:port to query")
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := http.Get("http://" + statusDashboardAddr + "/stats")
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	var snap dashboard.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	if snap.Idle {
		fmt.Println("server is idle, no game in progress")
		return nil
	}
	fmt.Printf("game #%d  board %dx%d  alive %d/%d\n", snap.GameID, snap.Width, snap.Height, snap.AlivePlayers, snap.TotalPlayers)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Name"})
	for _, e := range snap.Leaderboard {
		table.Append([]string{strconv.Itoa(int(e.PlayerNumber)), e.Name})
	}
	table.Render()
	return nil
}

func getStatusCmd() *cobra.Command {
	return statusCmd
}
