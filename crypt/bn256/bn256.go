package bn256

import (
	"errors"
	"fmt"

	"github.com/TopiaNetwork/kyber/v3"
	"github.com/TopiaNetwork/kyber/v3/pairing/bn256"
	"github.com/TopiaNetwork/kyber/v3/sign/bls"
	"github.com/TopiaNetwork/kyber/v3/util/random"
	"lukechampine.com/frand"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	tplog "github.com/TopiaNetwork/dacore/log"
)

const KeyGenSeedMinBytes = 16

// CryptServiceBN256 implements BLS signatures on the bn256 pairing: public
// keys live in G2, signatures in G1. Signing is deterministic.
type CryptServiceBN256 struct {
	log   tplog.Logger
	suite *bn256.Suite
}

func New(log tplog.Logger) *CryptServiceBN256 {
	return &CryptServiceBN256{
		log:   log,
		suite: bn256.NewSuite(),
	}
}

func (c *CryptServiceBN256) CryptType() tpcrtypes.CryptType {
	return tpcrtypes.CryptType_BN256
}

func (c *CryptServiceBN256) marshalPair(x kyber.Scalar, pub kyber.Point) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	priBytes, err := x.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}

	return priBytes, pubBytes, nil
}

func (c *CryptServiceBN256) GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	x, pub := bls.NewKeyPair(c.suite, random.New(frand.Reader))
	return c.marshalPair(x, pub)
}

// GeneratePriPubKeyBySeed derives the same key pair for the same seed.
func (c *CryptServiceBN256) GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	if len(seed) < KeyGenSeedMinBytes {
		return nil, nil, fmt.Errorf("input seed length err: expected at least %d, actual %d", KeyGenSeedMinBytes, len(seed))
	}

	digest := tpcmm.Digest256([]byte("dacore/bn256/keygen"), seed)
	x := c.suite.G2().Scalar().SetBytes(digest[:])
	pub := c.suite.G2().Point().Mul(x, nil)

	return c.marshalPair(x, pub)
}

func (c *CryptServiceBN256) scalar(priKey tpcrtypes.PrivateKey) (kyber.Scalar, error) {
	if len(priKey) == 0 {
		return nil, errors.New("input invalid privateKey")
	}
	x := c.suite.G2().Scalar()
	if err := x.UnmarshalBinary(priKey); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *CryptServiceBN256) ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error) {
	x, err := c.scalar(priKey)
	if err != nil {
		return nil, err
	}

	return c.suite.G2().Point().Mul(x, nil).MarshalBinary()
}

func (c *CryptServiceBN256) Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if msg == nil {
		return nil, errors.New("Sign: input msg nil")
	}
	x, err := c.scalar(priKey)
	if err != nil {
		return nil, err
	}

	return bls.Sign(c.suite, x, msg)
}

// Verify reports false without error for a well-formed but wrong signature;
// an error means the key itself could not be decoded.
func (c *CryptServiceBN256) Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error) {
	pub := c.suite.G2().Point()
	if err := pub.UnmarshalBinary(pubKey); err != nil {
		return false, fmt.Errorf("invalid public key: %v", err)
	}

	if err := bls.Verify(c.suite, pub, msg, signData); err != nil {
		c.log.Debugf("bls verify failed: %v", err)
		return false, nil
	}

	return true, nil
}
