package common

import (
	"encoding/binary"
	"encoding/hex"
)

func BytesCopy(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)

	return dst
}

func Uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func BytesToUint64(d []byte) uint64 {
	return binary.BigEndian.Uint64(d)
}

func Has0xPrefix(str string) bool {
	return len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X')
}

// DecodeHex accepts an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	if Has0xPrefix(s) {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// ShortHex renders at most the first 6 bytes, for log lines.
func ShortHex(b []byte) string {
	if len(b) > 6 {
		return hex.EncodeToString(b[:6]) + ".."
	}
	return hex.EncodeToString(b)
}
