package services

import (
	"context"
	cryptoRand "crypto/rand"

	"github.com/fatumlabs/fatum/internal/application/domain"
	"github.com/fatumlabs/fatum/internal/application/ports"
	"github.com/fatumlabs/fatum/internal/logger"
)

// fallbackSeedBytes is the size of the locally generated seed material
// when the beacon is unavailable.
const fallbackSeedBytes = 32

// EntropyAcquirer wraps the randomness beacon with the two-tier trust
// policy: prefer externally verifiable beacon entropy, degrade silently
// to OS entropy. Neither acquisition method ever fails its caller.
type EntropyAcquirer struct {
	beacon ports.RandomnessBeacon
}

// NewEntropyAcquirer constructs an EntropyAcquirer over the given beacon.
func NewEntropyAcquirer(beacon ports.RandomnessBeacon) *EntropyAcquirer {
	return &EntropyAcquirer{beacon: beacon}
}

// AcquireSeedBytes fetches a single pulse's raw bytes, falling back to
// 32 bytes of OS entropy on any beacon failure. The returned source
// tags which path produced the bytes.
func (a *EntropyAcquirer) AcquireSeedBytes(ctx context.Context) ([]byte, domain.EntropySource) {
	pulse, err := a.beacon.FetchSinglePulse(ctx)
	if err != nil {
		logger.Warn("Beacon unavailable, falling back to OS entropy: %v", err)
		return osEntropy(fallbackSeedBytes), domain.SourceOSFallback
	}
	return pulse.Bytes, domain.SourceBeacon
}

// AcquirePool fetches at least minBytes of raw beacon entropy for use
// as a simulation pool, with the same silent OS fallback. The fallback
// produces only seed-sized material; pools are a beacon-path luxury.
func (a *EntropyAcquirer) AcquirePool(ctx context.Context, minBytes int) ([]byte, domain.EntropySource) {
	if minBytes < fallbackSeedBytes {
		minBytes = fallbackSeedBytes
	}

	buffer, err := a.beacon.FetchBulkRandomness(ctx, minBytes)
	if err != nil {
		logger.Warn("Bulk entropy fetch failed, falling back to OS entropy: %v", err)
		return osEntropy(fallbackSeedBytes), domain.SourceOSFallback
	}
	return buffer, domain.SourceBeacon
}

// osEntropy returns n bytes from the OS CSPRNG. crypto/rand is
// documented never to fail on supported platforms.
func osEntropy(n int) []byte {
	b := make([]byte, n)
	if _, err := cryptoRand.Read(b); err != nil {
		panic(err)
	}
	return b
}
