package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trustplane/trustplane/internal/controlplane"
	"github.com/trustplane/trustplane/internal/models"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Inspect backend servers and their reputation",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers with live reputation",
	RunE:  runServersList,
}

var serversShowCmd = &cobra.Command{
	Use:   "show [server-id]",
	Short: "Show a server's reputation and recent telemetry",
	Args:  cobra.ExactArgs(1),
	RunE:  runServersShow,
}

func init() {
	serversCmd.AddCommand(serversListCmd, serversShowCmd)
}

func runServersList(cmd *cobra.Command, args []string) error {
	body, err := apiGet("/servers")
	if err != nil {
		return err
	}

	var servers []controlplane.ServerStatus
	if err := json.Unmarshal(body, &servers); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCAPABILITY\tSCORE\tINTERACTIONS\tUNIT COST\tSELECTABLE")
	for _, s := range servers {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%d\t%.4f\t%v\n",
			s.ID, s.Capability, s.Score, s.InteractionCount, s.UnitCost, s.Selectable)
	}
	return w.Flush()
}

func runServersShow(cmd *cobra.Command, args []string) error {
	serverID := args[0]

	body, err := apiGet("/servers/" + serverID + "/reputation")
	if err != nil {
		return err
	}

	var rep struct {
		ServerID   string  `json:"server_id"`
		Score      float64 `json:"score"`
		Registered bool    `json:"registered"`
	}
	if err := json.Unmarshal(body, &rep); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	fmt.Printf("Server:     %s\n", rep.ServerID)
	fmt.Printf("Score:      %.4f\n", rep.Score)
	fmt.Printf("Registered: %v\n", rep.Registered)

	body, err = apiGet("/servers/" + serverID + "/telemetry")
	if err != nil {
		return err
	}

	var txs []models.TransactionRecord
	if err := json.Unmarshal(body, &txs); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if len(txs) == 0 {
		fmt.Println("\nNo telemetry recorded.")
		return nil
	}

	fmt.Printf("\nRecent transactions (%d):\n", len(txs))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATUS\tLATENCY\tSATISFACTION\tCOST UNITS")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%.3fs\t%.4f\t%.4f\n",
			tx.Timestamp.Format("15:04:05"), tx.Status, tx.LatencySeconds, tx.Satisfaction, tx.ComputeCostUnits)
	}
	return w.Flush()
}
