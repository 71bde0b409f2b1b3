package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trustplane",
	Short: "TrustPlane - reputation-based tool routing",
	Long: `TrustPlane routes tool-execution requests to interchangeable backend
servers, choosing among them with a continuously updated trust score derived
from observed outcomes (success/failure, latency, satisfaction, cost).`,
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7467", "API server address")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
