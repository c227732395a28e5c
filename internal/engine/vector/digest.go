package vector

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Encoder writes the canonical byte form of an element for hashing.
type Encoder[T any] func(dst []byte, x T) []byte

// FormatEncoder encodes elements with fmt's %v verb.
func FormatEncoder[T any](dst []byte, x T) []byte {
	return fmt.Appendf(dst, "%v", x)
}

// Digest returns a 64-bit xxhash fingerprint of the logical sequence.
// Two vectors holding equal elements in the same order have the same digest
// regardless of how they were derived.
func Digest[T any](v Vector[T], enc Encoder[T]) uint64 {
	h := xxhash.New()
	var buf []byte
	var lenBuf [8]byte
	for x := range v.Values() {
		buf = enc(buf[:0], x)
		n := uint64(len(buf))
		for i := range lenBuf {
			lenBuf[i] = byte(n >> (8 * i))
		}
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
