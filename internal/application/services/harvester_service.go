package services

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/fatumlabs/fatum/internal/application/domain"
	"github.com/fatumlabs/fatum/internal/application/ports"
	"github.com/fatumlabs/fatum/internal/logger"
)

// Harvester runs at most one background entropy collection loop per
// process. The control slot holds the id of the batch being targeted;
// the loop re-checks the slot once per tick and exits cooperatively
// when it no longer matches.
type Harvester struct {
	beacon   ports.RandomnessBeacon
	store    ports.EntropyStore
	interval time.Duration

	// baseCtx bounds the lifetime of spawned loops; it is the process
	// context, not a request context.
	baseCtx context.Context

	mu     sync.Mutex
	active *int64
}

// NewHarvester constructs a Harvester with dependencies injected. ctx
// is the long-lived process context governing background loops.
func NewHarvester(ctx context.Context, beacon ports.RandomnessBeacon, store ports.EntropyStore, interval time.Duration) *Harvester {
	return &Harvester{
		beacon:   beacon,
		store:    store,
		interval: interval,
		baseCtx:  ctx,
	}
}

// Start claims the control slot for batchID and spawns the collection
// loop. If any harvest is already active the call is a no-op and
// returns false; the existing loop keeps running.
func (h *Harvester) Start(batchID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		logger.Info("Harvester already running for batch %d", *h.active)
		return false
	}

	id := batchID
	h.active = &id
	go h.run(batchID)
	return true
}

// Stop clears the control slot and marks the targeted batch completed.
// The in-flight loop observes the slot change on its next tick. A
// storage failure is returned to the caller but the slot is cleared
// regardless, so the loop still stops.
func (h *Harvester) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active == nil {
		return nil
	}

	batchID := *h.active
	h.active = nil

	if err := h.store.UpdateBatchStatus(ctx, batchID, domain.BatchCompleted); err != nil {
		return err
	}
	return nil
}

// Status returns a snapshot of the control slot: the active batch id,
// or nil when idle.
func (h *Harvester) Status() *int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active == nil {
		return nil
	}
	id := *h.active
	return &id
}

func (h *Harvester) run(batchID int64) {
	logger.Info("Starting entropy harvest for batch %d", batchID)

	for {
		if !h.targets(batchID) {
			logger.Info("Stopping harvester for batch %d", batchID)
			return
		}

		h.tick(batchID)

		select {
		case <-h.baseCtx.Done():
			logger.Info("Harvester for batch %d cancelled", batchID)
			return
		case <-time.After(h.interval):
		}
	}
}

// tick fetches one raw pulse and persists it. Every failure is logged
// and skipped; nothing here is fatal to the loop.
func (h *Harvester) tick(batchID int64) {
	pulse, err := h.beacon.FetchSinglePulse(h.baseCtx)
	if err != nil {
		logger.Warn("Harvest fetch failed for batch %d: %v", batchID, err)
		return
	}

	round := uint64(pulse.Round)
	hexValue := hex.EncodeToString(pulse.Bytes)
	if err := h.store.InsertEntropy(h.baseCtx, batchID, &round, hexValue); err != nil {
		logger.Warn("Failed to persist entropy for batch %d: %v", batchID, err)
		return
	}

	logger.Debug("Harvested %d bits for batch %d (round %d)", len(pulse.Bytes)*8, batchID, round)
}

func (h *Harvester) targets(batchID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active != nil && *h.active == batchID
}
