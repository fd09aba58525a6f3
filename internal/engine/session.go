package engine

import "encoding/binary"

// SeedSize is the fixed seed length in bytes.
const SeedSize = 32

// SimulationSession owns a 32-byte seed derived from raw entropy plus
// the entropy itself as a forward-consumable pool. The seed keys a
// deterministic ChaCha20 stream used once the pool runs dry.
//
// Decision runs take a local copy of the pool cursor, so repeated or
// concurrent SimulateDecision calls against one session are independent
// and reproducible. Only NextF64 advances the session's own cursor.
type SimulationSession struct {
	seed   [SeedSize]byte
	pool   []byte
	cursor int
}

// NewSession XOR-folds the entropy into the 32-byte seed accumulator
// (seed[i % 32] ^= byte_i, in input order) and retains the full input
// as the pool with cursor 0.
func NewSession(entropy []byte) *SimulationSession {
	s := &SimulationSession{pool: append([]byte(nil), entropy...)}
	for i, b := range entropy {
		s.seed[i%SeedSize] ^= b
	}
	return s
}

// Seed returns the derived 32-byte seed.
func (s *SimulationSession) Seed() [SeedSize]byte {
	return s.seed
}

// Stream returns a fresh deterministic generator keyed by the seed.
func (s *SimulationSession) Stream() UniformSource {
	return newChaChaStream(s.seed)
}

// nextUniformFloat consumes 8 pool bytes little-endian when available,
// advancing the supplied cursor; otherwise it draws from the stream.
func (s *SimulationSession) nextUniformFloat(cursor *int, stream UniformSource) float64 {
	if *cursor+8 <= len(s.pool) {
		u := binary.LittleEndian.Uint64(s.pool[*cursor:])
		*cursor += 8
		return float64(u>>11) * 0x1p-53
	}
	return stream.Float64()
}

// NextF64 draws a uniform float against the session's shared cursor.
// Lower-level helper for sequential consumers such as the timeline
// simulator; decision runs never touch the shared cursor.
func (s *SimulationSession) NextF64(stream UniformSource) float64 {
	return s.nextUniformFloat(&s.cursor, stream)
}
