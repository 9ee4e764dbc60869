package common

import (
	"golang.org/x/crypto/blake2b"
)

const DigestSize = blake2b.Size256

// Digest256 hashes the concatenation of parts. Each part is length-prefixed
// so that ("ab","c") and ("a","bc") never collide.
func Digest256(parts ...[]byte) [DigestSize]byte {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = h.Write(Uint64ToBytes(uint64(len(p))))
		_, _ = h.Write(p)
	}

	var out [DigestSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
