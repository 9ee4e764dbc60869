package types

import (
	"encoding/hex"

	"github.com/TopiaNetwork/dacore/codec"
	tpcmm "github.com/TopiaNetwork/dacore/common"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
)

// Commitment is a blake2b-256 digest binding a leaf, a state or a payload.
type Commitment [tpcmm.DigestSize]byte

// VidCommitment is the root of a payload's share tree.
type VidCommitment [tpcmm.DigestSize]byte

func (c Commitment) String() string {
	return tpcmm.ShortHex(c[:])
}

func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

func (c VidCommitment) String() string {
	return tpcmm.ShortHex(c[:])
}

func (c VidCommitment) IsZero() bool {
	return c == VidCommitment{}
}

func (c VidCommitment) Bytes() []byte {
	return c[:]
}

type Signature = tpcrtypes.Signature

// SignatureKey is the hex form of a marshalled BLS public key, usable as a map key.
type SignatureKey string

func SignatureKeyFromPublic(pub tpcrtypes.PublicKey) SignatureKey {
	return SignatureKey(hex.EncodeToString(pub))
}

func (k SignatureKey) PublicKey() (tpcrtypes.PublicKey, error) {
	return tpcmm.DecodeHex(string(k))
}

func (k SignatureKey) String() string {
	if len(k) > 12 {
		return string(k[:12]) + ".."
	}
	return string(k)
}

var rlpMarshaler = codec.CreateMarshaler(codec.CodecType_RLP)

// hashOf commits to the canonical encoding of v under a domain tag.
func hashOf(domain string, v interface{}) [tpcmm.DigestSize]byte {
	enc, err := rlpMarshaler.Marshal(v)
	if err != nil {
		panic("rlp encode " + domain + ": " + err.Error())
	}
	return tpcmm.Digest256([]byte(domain), enc)
}

// TransactionsHash is the digest the DA leader signs over.
func TransactionsHash(encodedTransactions []byte) Commitment {
	return Commitment(tpcmm.Digest256([]byte("txns"), encodedTransactions))
}
