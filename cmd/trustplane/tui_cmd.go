package main

import (
	"github.com/spf13/cobra"

	"github.com/trustplane/trustplane/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive reputation dashboard",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	app := tui.NewApp(apiAddr)
	return app.Run()
}
