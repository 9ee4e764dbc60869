package consensus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/dacore/crypt"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/membership"
	"github.com/TopiaNetwork/dacore/types"
	"github.com/TopiaNetwork/dacore/vid"
)

func TestCalculateAndUpdateVid(t *testing.T) {
	c, _ := newTestConsensus(t)
	outer := NewOuterConsensus(tplogcmm.DebugLevel, c.log, c, false)
	cryptService := crypt.CreateCryptService(c.log, tpcrtypes.CryptType_BN256)

	var keys []types.SignatureKey
	var privKey tpcrtypes.PrivateKey
	for i := 0; i < 4; i++ {
		pri, pub, err := cryptService.GeneratePriPubKeyBySeed([]byte(fmt.Sprintf("vid-test-node-seed-%d", i)))
		require.NoError(t, err)
		keys = append(keys, types.SignatureKeyFromPublic(pub))
		if i == 0 {
			privKey = pri
		}
	}
	mem, err := membership.NewStaticMembership(c.log, keys, nil)
	require.NoError(t, err)

	disperser := vid.NewDisperser(tplogcmm.InfoLevel, c.log, 2)
	defer disperser.Stop()

	ctx := context.Background()
	disperse, err := CalculateAndUpdateVid(ctx, outer, 2, mem, privKey, 0, disperser, cryptService)
	require.NoError(t, err)
	assert.Nil(t, disperse, "no payload saved for the view")

	payload := []byte("encoded transactions of view two")
	w, err := outer.Write(ctx)
	require.NoError(t, err)
	require.NoError(t, w.UpdateSavedPayloads(2, payload))
	w.Release()

	disperse, err = CalculateAndUpdateVid(ctx, outer, 2, mem, privKey, 0, disperser, cryptService)
	require.NoError(t, err)
	require.NotNil(t, disperse)

	expected, err := vid.VidCommitment(payload, 4)
	require.NoError(t, err)
	assert.Equal(t, expected, disperse.PayloadCommitment)

	r, err := outer.Read(ctx)
	require.NoError(t, err)
	defer r.Release()

	shares := r.VidShares(2)
	require.Len(t, shares, 4)
	pub, err := keys[0].PublicKey()
	require.NoError(t, err)
	for _, key := range keys {
		msg, ok := shares[key]
		require.True(t, ok)
		assert.Equal(t, key, msg.Share.Recipient)
		assert.True(t, vid.VerifyShare(disperse.PayloadCommitment, msg.Share.Share))

		valid, err := cryptService.Verify(pub, msg.Share.SigningBytes(), msg.Signature)
		require.NoError(t, err)
		assert.True(t, valid)
	}
}
