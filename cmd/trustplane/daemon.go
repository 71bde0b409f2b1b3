package main

import (
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/trustplane/trustplane/internal/audit"
	"github.com/trustplane/trustplane/internal/backends/sim"
	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/controlplane"
	"github.com/trustplane/trustplane/internal/reputation"
	"github.com/trustplane/trustplane/internal/routing"
	"github.com/trustplane/trustplane/internal/store"
)

var (
	listenAddr    string
	dbPath        string
	configPath    string
	catalogPath   string
	sweepInterval time.Duration
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the TrustPlane daemon",
	Long:  `Starts the TrustPlane daemon which provides the HTTP API for reputation-based routing.`,
	RunE:  runDaemon,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".trustplane")

	daemonCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7467", "Listen address for the API server")
	daemonCmd.Flags().StringVar(&dbPath, "db", filepath.Join(configDir, "trustplane.db"), "Path to SQLite database")
	daemonCmd.Flags().StringVar(&configPath, "config", filepath.Join(configDir, "config.yaml"), "Path to reputation config")
	daemonCmd.Flags().StringVar(&catalogPath, "catalog", filepath.Join(configDir, "catalog.yaml"), "Path to server catalog")
	daemonCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Minute, "Decay sweep and persistence interval")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting TrustPlane daemon...")

	// Corrupt configuration halts startup; everything after this point
	// degrades gracefully instead.
	cfg, err := reputation.LoadConfig(configPath)
	if err != nil {
		return err
	}

	cat, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	scores := reputation.NewScoreStore(cfg, cat, st)
	engine := reputation.NewEngine(cfg, cat)
	discovery := routing.NewDiscovery(cat, scores)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	policy := routing.NewPolicy(cfg.MinThreshold, cfg.ProbeRate, rng)
	fleet := sim.Fleet(cat, time.Now().UnixNano())
	decisions := audit.NewDecisionWriter(st)

	service := controlplane.NewService(cat, scores, engine, discovery, policy, fleet, st, decisions)
	server := controlplane.NewServer(service, listenAddr)

	sweeper := reputation.NewSweeper(scores, sweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	log.Printf("Catalog loaded: %d servers, threshold %.2f", cat.Count(), cfg.MinThreshold)
	return server.Start()
}
