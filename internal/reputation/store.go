package reputation

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
)

// ErrUnknownServer indicates feedback for a server that is not registered.
// Callers log it and drop the update; it never propagates into the routing
// flow.
var ErrUnknownServer = errors.New("server not registered")

// StateStore is the persistence contract for reputation state. A nil state
// with a nil error means no persisted state exists for the server.
type StateStore interface {
	LoadReputation(serverID string) (*models.ReputationState, error)
	SaveReputation(serverID string, state models.ReputationState) error
}

// ScoreStore holds the per-server reputation table. All reads and updates
// go through a single lock covering the read-modify-write sequence: the EMA
// update is not commutative, so interleaved lockless updates would lose
// writes. Persistence is a best-effort side effect performed after the lock
// is released.
type ScoreStore struct {
	mu      sync.Mutex
	cfg     *Config
	states  map[string]*models.ReputationState
	persist StateStore // optional

	now func() time.Time
}

// NewScoreStore builds the score table for every server in the catalog,
// hydrating from the persistence store where state exists and falling back
// to the catalog's initial score (or the configured default) otherwise.
func NewScoreStore(cfg *Config, cat *catalog.Catalog, persist StateStore) *ScoreStore {
	s := &ScoreStore{
		cfg:     cfg,
		states:  make(map[string]*models.ReputationState),
		persist: persist,
		now:     time.Now,
	}

	start := s.now()
	for _, rec := range cat.List() {
		if persist != nil {
			state, err := persist.LoadReputation(rec.ID)
			if err != nil {
				log.Printf("Error loading reputation for %s: %v", rec.ID, err)
			} else if state != nil {
				s.states[rec.ID] = state
				continue
			}
		}

		score := cfg.InitialScore
		if rec.InitialScore > 0 {
			score = clamp01(rec.InitialScore)
		}
		s.states[rec.ID] = &models.ReputationState{
			Score:      score,
			LastUpdate: start,
		}
	}
	return s
}

// Get returns the current score with decay applied. When decay lowered the
// stored score, the stored value and its update time are refreshed, so the
// decay is consumed rather than recomputed on every read. Unknown servers
// yield the default initial score so discovery never silently excludes an
// unregistered entry.
func (s *ScoreStore) Get(serverID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(serverID)
}

func (s *ScoreStore) getLocked(serverID string) float64 {
	state, ok := s.states[serverID]
	if !ok {
		return s.cfg.InitialScore
	}

	now := s.now()
	halfLife := time.Duration(s.cfg.DecayHalfLifeHours * float64(time.Hour))
	decayed := Decay(state.Score, s.cfg.InitialScore, state.LastUpdate, now, halfLife)
	if decayed < state.Score {
		log.Printf("Reputation decay: %s %.4f -> %.4f", serverID, state.Score, decayed)
		state.Score = round4(decayed)
		state.LastUpdate = now
	}
	return state.Score
}

// Update applies a transaction's score update. The compute callback
// receives the current (decayed) score and returns the new one; the whole
// sequence runs under the store lock. The resulting state is persisted
// best-effort after the lock is released.
func (s *ScoreStore) Update(serverID string, compute func(current float64) float64) (float64, error) {
	s.mu.Lock()
	state, ok := s.states[serverID]
	if !ok {
		s.mu.Unlock()
		return 0, ErrUnknownServer
	}

	current := s.getLocked(serverID)
	state.Score = clamp01(round4(compute(current)))
	state.LastUpdate = s.now()
	state.InteractionCount++
	snapshot := *state
	s.mu.Unlock()

	s.save(serverID, snapshot)
	return snapshot.Score, nil
}

// State returns a copy of a server's raw reputation state.
func (s *ScoreStore) State(serverID string) (models.ReputationState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[serverID]
	if !ok {
		return models.ReputationState{}, false
	}
	return *state, true
}

// Sync applies decay to every tracked server and flushes all state to the
// persistence store. Called periodically by the sweeper so on-disk state
// follows decay through idle periods.
func (s *ScoreStore) Sync() {
	s.mu.Lock()
	snapshots := make(map[string]models.ReputationState, len(s.states))
	for id := range s.states {
		s.getLocked(id)
		snapshots[id] = *s.states[id]
	}
	s.mu.Unlock()

	for id, state := range snapshots {
		s.save(id, state)
	}
}

func (s *ScoreStore) save(serverID string, state models.ReputationState) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveReputation(serverID, state); err != nil {
		log.Printf("Error persisting reputation for %s: %v", serverID, err)
	}
}
