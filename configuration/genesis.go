package configuration

import (
	"os"

	"github.com/TopiaNetwork/dacore/codec"
)

// GenesisData is the baseline the consensus store starts from.
type GenesisData struct {
	View        uint64
	Epoch       uint64
	StateHeight uint64
	StateRoot   string
}

func DefGenesisData() *GenesisData {
	return &GenesisData{}
}

func (genesis *GenesisData) Save(fileFullName string) error {
	dataBytes, err := codec.CreateMarshaler(codec.CodecType_JSON).Marshal(genesis)
	if err != nil {
		return err
	}

	return os.WriteFile(fileFullName, dataBytes, 0o644)
}

func (genesis *GenesisData) Load(fileFullName string) error {
	dataBytes, err := os.ReadFile(fileFullName)
	if err != nil {
		return err
	}

	return codec.CreateMarshaler(codec.CodecType_JSON).Unmarshal(dataBytes, genesis)
}
