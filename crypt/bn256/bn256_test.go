package bn256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
)

func newTestService(t *testing.T) *CryptServiceBN256 {
	log, err := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.StdErrOutput, "")
	require.NoError(t, err)
	return New(log)
}

func TestSignVerify(t *testing.T) {
	c := newTestService(t)

	pri, pub, err := c.GeneratePriPubKey()
	require.NoError(t, err)

	msg := []byte("da proposal")
	sig, err := c.Sign(pri, msg)
	require.NoError(t, err)

	ok, err := c.Verify(pub, msg, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(pub, []byte("other"), sig)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Verify([]byte{1, 2, 3}, msg, sig)
	assert.Error(t, err)
}

func TestSeededKeysAreDeterministic(t *testing.T) {
	c := newTestService(t)
	seed := []byte("node-0-seed-0123456789")

	pri1, pub1, err := c.GeneratePriPubKeyBySeed(seed)
	require.NoError(t, err)
	pri2, pub2, err := c.GeneratePriPubKeyBySeed(seed)
	require.NoError(t, err)
	assert.Equal(t, pri1, pri2)
	assert.Equal(t, pub1, pub2)

	converted, err := c.ConvertToPublic(pri1)
	require.NoError(t, err)
	assert.Equal(t, pub1, converted)

	sig1, err := c.Sign(pri1, []byte("m"))
	require.NoError(t, err)
	sig2, err := c.Sign(pri2, []byte("m"))
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)

	_, _, err = c.GeneratePriPubKeyBySeed([]byte("short"))
	assert.Error(t, err)
}
