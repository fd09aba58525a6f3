package domain

import "time"

// Round identifies one beacon pulse emission. Rounds decrease as we
// walk backwards through the chain's history.
type Round uint64

// StageRandomness is the only pulse stage whose payload is consumable.
const StageRandomness = "randomness"

// Pulse is one emission from the randomness beacon. Only pulses in the
// "randomness" stage carry usable bytes; Bytes is nil otherwise.
type Pulse struct {
	Round Round
	Stage string
	Bytes []byte
}

// Usable reports whether the pulse carries decoded randomness bytes.
func (p Pulse) Usable() bool {
	return p.Stage == StageRandomness && len(p.Bytes) > 0
}

// EntropySource tags which tier of the trust model produced a seed.
type EntropySource string

const (
	SourceBeacon     EntropySource = "beacon"
	SourceOSFallback EntropySource = "os-fallback"
)

// BatchStatus is the lifecycle state of a harvest batch.
type BatchStatus string

const (
	BatchCollecting BatchStatus = "collecting"
	BatchCompleted  BatchStatus = "completed"
)

// HarvestBatch groups the entropy records collected by one harvester run.
type HarvestBatch struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Status    BatchStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// EntropyRecord is one persisted harvest of raw beacon bytes.
// PulseRound is nil when the source did not report a round.
type EntropyRecord struct {
	ID         int64     `json:"id"`
	BatchID    int64     `json:"batch_id"`
	PulseRound *uint64   `json:"pulse_round,omitempty"`
	HexValue   string    `json:"hex_value"`
	CreatedAt  time.Time `json:"created_at"`
}
