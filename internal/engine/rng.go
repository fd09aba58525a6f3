package engine

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// UniformSource yields uniform floats in [0, 1).
type UniformSource interface {
	Float64() float64
}

// chachaStream is a deterministic generator over a ChaCha20 keystream
// keyed by a session seed. Identical seeds yield identical sequences.
type chachaStream struct {
	cipher *chacha20.Cipher
}

func newChaChaStream(seed [SeedSize]byte) *chachaStream {
	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed; this cannot fail at runtime.
		panic(err)
	}
	return &chachaStream{cipher: cipher}
}

// Float64 reads 8 keystream bytes and converts the top 53 bits to a
// uniform double in [0, 1).
func (s *chachaStream) Float64() float64 {
	var buf [8]byte
	s.cipher.XORKeyStream(buf[:], buf[:])
	u := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(u) * 0x1p-53
}
