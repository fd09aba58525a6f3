package ports

import (
	"context"

	"github.com/fatumlabs/fatum/internal/application/domain"
)

// RandomnessBeacon is the hexagonal port for the public randomness
// beacon. Services depend only on this interface, not on the concrete
// HTTP client.
type RandomnessBeacon interface {
	// ResolveChain returns the identifier of the expected chain,
	// cached after the first successful lookup. Fails with
	// domain.ErrChainNotFound if no chain in the listing matches.
	ResolveChain(ctx context.Context) (string, error)

	// FetchLatestRound returns the most recent pulse on the chain.
	// The pulse's Bytes may be nil if its stage is not "randomness".
	FetchLatestRound(ctx context.Context, chainID string) (domain.Pulse, error)

	// FetchRound returns the pulse at a specific round. An unusable
	// stage or absent payload is not an error; the pulse just carries
	// no bytes.
	FetchRound(ctx context.Context, chainID string, round domain.Round) (domain.Pulse, error)

	// FetchSinglePulse walks backwards from the latest round for at
	// most a small fixed number of attempts and returns the first
	// pulse with usable bytes, or domain.ErrNoUsableEntropy.
	FetchSinglePulse(ctx context.Context) (domain.Pulse, error)

	// FetchBulkRandomness walks backwards through rounds accumulating
	// decoded payloads until at least minBytes have been collected.
	FetchBulkRandomness(ctx context.Context, minBytes int) ([]byte, error)
}
