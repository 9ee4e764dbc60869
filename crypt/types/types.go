package types

import "encoding/hex"

type PrivateKey []byte

type PublicKey []byte

type Signature []byte

func (p PublicKey) String() string {
	return hex.EncodeToString(p)
}

type CryptType byte

const (
	CryptType_Unknown CryptType = iota
	CryptType_BN256
)

func (c CryptType) String() string {
	switch c {
	case CryptType_BN256:
		return "bn256"
	}
	return "unknown"
}
