package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

type CodecType byte

const (
	CodecType_Unknown CodecType = iota
	CodecType_JSON
	CodecType_RLP
)

func (t CodecType) String() string {
	switch t {
	case CodecType_JSON:
		return "json"
	case CodecType_RLP:
		return "rlp"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}

type Marshaler interface {
	Marshal(interface{}) ([]byte, error)

	Unmarshal([]byte, interface{}) error
}

type Encoder interface {
	Encode(interface{}) error
}

type Decoder interface {
	Decode(interface{}) error
}

func CreateMarshaler(codecType CodecType) Marshaler {
	switch codecType {
	case CodecType_JSON:
		return &marshalJson{}
	case CodecType_RLP:
		return &marshalRlp{}
	default:
		panic(fmt.Errorf("invalid codec type %d when CreateMarshaler", codecType).Error())
	}
}

func CreateEncoder(codecType CodecType, w io.Writer) Encoder {
	switch codecType {
	case CodecType_JSON:
		return json.NewEncoder(w)
	case CodecType_RLP:
		return &encoderRlp{w: w}
	default:
		panic(fmt.Errorf("invalid codec type %d when CreateEncoder", codecType).Error())
	}
}

func CreateDecoder(codecType CodecType, r io.Reader) Decoder {
	switch codecType {
	case CodecType_JSON:
		return json.NewDecoder(r)
	case CodecType_RLP:
		return rlp.NewStream(r, 0)
	default:
		panic(fmt.Errorf("invalid codec type %d when CreateDecoder", codecType).Error())
	}
}

type marshalJson struct{}

func (m *marshalJson) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (m *marshalJson) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// marshalRlp is used for everything hashed or persisted: the encoding is canonical.
type marshalRlp struct{}

func (m *marshalRlp) Marshal(v interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(v)
}

func (m *marshalRlp) Unmarshal(data []byte, v interface{}) error {
	return rlp.DecodeBytes(data, v)
}

type encoderRlp struct {
	w io.Writer
}

func (e *encoderRlp) Encode(v interface{}) error {
	return rlp.Encode(e.w, v)
}
