package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	View    uint64
	Payload []byte
	Keys    [][]byte
}

func TestRlpIsCanonical(t *testing.T) {
	m := CreateMarshaler(CodecType_RLP)

	s := &sample{View: 7, Payload: []byte{1, 2, 3}, Keys: [][]byte{{9}, {8, 7}}}
	a, err := m.Marshal(s)
	require.NoError(t, err)
	b, err := m.Marshal(&sample{View: 7, Payload: []byte{1, 2, 3}, Keys: [][]byte{{9}, {8, 7}}})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var decoded sample
	require.NoError(t, m.Unmarshal(a, &decoded))
	assert.Equal(t, *s, decoded)
}

func TestStreamCodecs(t *testing.T) {
	for _, ct := range []CodecType{CodecType_JSON, CodecType_RLP} {
		t.Run(ct.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, CreateEncoder(ct, &buf).Encode(&sample{View: 3, Payload: []byte("abc")}))

			var out sample
			require.NoError(t, CreateDecoder(ct, &buf).Decode(&out))
			assert.Equal(t, uint64(3), out.View)
			assert.Equal(t, []byte("abc"), out.Payload)
		})
	}
}

func TestUnknownCodecPanics(t *testing.T) {
	assert.Panics(t, func() { CreateMarshaler(CodecType_Unknown) })
}
