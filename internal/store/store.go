// Package store provides SQLite-backed persistence for TrustPlane.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/trustplane/trustplane/internal/models"
)

// telemetryRetention bounds the rolling telemetry log per server.
const telemetryRetention = 50

// Store provides access to the TrustPlane SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reputation (
		server_id TEXT PRIMARY KEY,
		score REAL NOT NULL,
		last_update DATETIME NOT NULL,
		interaction_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS telemetry (
		id TEXT PRIMARY KEY,
		server_id TEXT NOT NULL,
		status TEXT NOT NULL,
		latency_sec REAL NOT NULL,
		confidence REAL,
		compute_cost_units REAL,
		satisfaction REAL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		server_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_server_id ON telemetry(server_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_server_id ON decisions(server_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Reputation Operations ---

// LoadReputation retrieves persisted reputation state for a server. A nil
// state with nil error means no state has been persisted.
func (s *Store) LoadReputation(serverID string) (*models.ReputationState, error) {
	state := &models.ReputationState{}
	err := s.db.QueryRow(
		`SELECT score, last_update, interaction_count FROM reputation WHERE server_id = ?`,
		serverID,
	).Scan(&state.Score, &state.LastUpdate, &state.InteractionCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reputation: %w", err)
	}
	return state, nil
}

// SaveReputation upserts reputation state for a server.
func (s *Store) SaveReputation(serverID string, state models.ReputationState) error {
	_, err := s.db.Exec(
		`INSERT INTO reputation (server_id, score, last_update, interaction_count) VALUES (?, ?, ?, ?)
		 ON CONFLICT(server_id) DO UPDATE SET score = excluded.score, last_update = excluded.last_update, interaction_count = excluded.interaction_count`,
		serverID, state.Score, state.LastUpdate, state.InteractionCount,
	)
	if err != nil {
		return fmt.Errorf("upsert reputation: %w", err)
	}
	return nil
}

// ListReputation returns all persisted reputation states keyed by server.
func (s *Store) ListReputation() (map[string]models.ReputationState, error) {
	rows, err := s.db.Query(`SELECT server_id, score, last_update, interaction_count FROM reputation`)
	if err != nil {
		return nil, fmt.Errorf("query reputation: %w", err)
	}
	defer rows.Close()

	states := make(map[string]models.ReputationState)
	for rows.Next() {
		var id string
		var state models.ReputationState
		if err := rows.Scan(&id, &state.Score, &state.LastUpdate, &state.InteractionCount); err != nil {
			return nil, fmt.Errorf("scan reputation: %w", err)
		}
		states[id] = state
	}
	return states, rows.Err()
}

// --- Telemetry Operations ---

// AppendTelemetry records a transaction and prunes the server's log to the
// most recent entries.
func (s *Store) AppendTelemetry(tx models.TransactionRecord) error {
	id := tx.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := tx.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO telemetry (id, server_id, status, latency_sec, confidence, compute_cost_units, satisfaction, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tx.ServerID, string(tx.Status), tx.LatencySeconds, tx.Confidence, tx.ComputeCostUnits, tx.Satisfaction, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry: %w", err)
	}

	// Rolling log: keep only the newest entries per server.
	_, err = s.db.Exec(
		`DELETE FROM telemetry WHERE server_id = ? AND id NOT IN (
			SELECT id FROM telemetry WHERE server_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`,
		tx.ServerID, tx.ServerID, telemetryRetention,
	)
	if err != nil {
		return fmt.Errorf("prune telemetry: %w", err)
	}
	return nil
}

// TelemetryForServer returns the retained transactions for a server, newest
// first.
func (s *Store) TelemetryForServer(serverID string) ([]models.TransactionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, server_id, status, latency_sec, confidence, compute_cost_units, satisfaction, created_at FROM telemetry WHERE server_id = ? ORDER BY created_at DESC, id DESC`,
		serverID,
	)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var txs []models.TransactionRecord
	for rows.Next() {
		var tx models.TransactionRecord
		var status string
		var confidence, cost, satisfaction sql.NullFloat64
		if err := rows.Scan(&tx.ID, &tx.ServerID, &status, &tx.LatencySeconds, &confidence, &cost, &satisfaction, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		tx.Status = models.OutcomeStatus(status)
		if confidence.Valid {
			tx.Confidence = confidence.Float64
		}
		if cost.Valid {
			tx.ComputeCostUnits = cost.Float64
		}
		if satisfaction.Valid {
			tx.Satisfaction = satisfaction.Float64
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// --- Decision Operations ---

// WriteDecision records a routing or feedback decision for audit.
func (s *Store) WriteDecision(action, inputsHash, outcome, serverID, details string) error {
	_, err := s.db.Exec(
		`INSERT INTO decisions (id, action, inputs_hash, outcome, server_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), action, inputsHash, outcome, serverID, details, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// DecisionsForServer returns recorded decisions touching a server, newest
// first.
func (s *Store) DecisionsForServer(serverID string, limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, server_id, details, timestamp FROM decisions WHERE server_id = ? ORDER BY timestamp DESC LIMIT ?`,
		serverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var recs []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var sid sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.InputsHash, &rec.Outcome, &sid, &rec.Details, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if sid.Valid {
			rec.ServerID = sid.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DecisionRecord is a persisted audit entry.
type DecisionRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	ServerID   string    `json:"server_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
