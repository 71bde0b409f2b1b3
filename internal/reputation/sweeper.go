package reputation

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper periodically applies decay to the whole score table and flushes
// state to the persistence store, so on-disk state tracks decay during idle
// periods instead of only on the next read.
type Sweeper struct {
	scores   *ScoreStore
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper over the given score store. A zero interval
// defaults to one minute.
func NewSweeper(scores *ScoreStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		scores:   scores,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the sweep loop.
func (sw *Sweeper) Start() {
	sw.wg.Add(1)
	go sw.loop()
	log.Println("Reputation sweeper started")
}

// Stop gracefully stops the sweep loop after a final flush.
func (sw *Sweeper) Stop() {
	sw.cancel()
	sw.wg.Wait()
	sw.scores.Sync()
	log.Println("Reputation sweeper stopped")
}

func (sw *Sweeper) loop() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.ctx.Done():
			return
		case <-ticker.C:
			sw.scores.Sync()
		}
	}
}
