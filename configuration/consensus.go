package configuration

import (
	"time"

	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
)

type ConsensusConfiguration struct {
	CryptType              tpcrtypes.CryptType
	EventCapacity          int  //the number of retained events in the event hub
	ProcessedProposalCache int  //the number of (view, commitment) pairs the DA task remembers
	LockTrace              bool //log every lock acquisition and release at trace level
	OptimisticVid          bool //disperse the payload right after voting
	LockWaitTimeout        time.Duration
}

func DefConsensusConfiguration() *ConsensusConfiguration {
	return &ConsensusConfiguration{
		CryptType:              tpcrtypes.CryptType_BN256,
		EventCapacity:          4096,
		ProcessedProposalCache: 1024,
		LockTrace:              true,
		OptimisticVid:          false,
		LockWaitTimeout:        5 * time.Second,
	}
}
