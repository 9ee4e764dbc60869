package types

import (
	tpcmm "github.com/TopiaNetwork/dacore/common"
)

type PayloadMetadata struct {
	NumTransactions uint64
}

type BuilderFee struct {
	FeeAmount    uint64
	FeeAccount   SignatureKey
	FeeSignature []byte
}

// PackedBundle is a block payload handed to the DA leader.
type PackedBundle struct {
	EncodedTransactions []byte
	Metadata            PayloadMetadata
	ViewNumber          ViewNumber
	Epoch               EpochNumber
	SequencingFees      []BuilderFee
}

type DaProposal struct {
	EncodedTransactions []byte
	Metadata            PayloadMetadata
	ViewNumber          ViewNumber
	Epoch               EpochNumber
	PayloadCommitment   VidCommitment
}

// DaProposalMessage carries the leader's signature over TransactionsHash.
type DaProposalMessage struct {
	Proposal  DaProposal
	Signature Signature
}

func (p *DaProposal) TransactionsHash() Commitment {
	return TransactionsHash(p.EncodedTransactions)
}

type DaData struct {
	PayloadCommit VidCommitment
	Epoch         EpochNumber
}

// SigningBytes is the message a DA voter signs, bound to the vote's view.
func (d DaData) SigningBytes(view ViewNumber) []byte {
	h := hashOf("davote", struct {
		Data DaData
		View ViewNumber
	}{d, view})
	return h[:]
}

type DaVote struct {
	Data         DaData
	ViewNumber   ViewNumber
	SignatureKey SignatureKey
	Signature    Signature
}

// VidShare is one erasure-coded shard of a payload with its inclusion proof.
type VidShare struct {
	Index       uint64
	TotalShares uint64
	Data        []byte
	Proof       []byte
}

type VidDisperse struct {
	ViewNumber        ViewNumber
	Epoch             EpochNumber
	PayloadCommitment VidCommitment
	Shares            map[SignatureKey]VidShare
}

type VidDisperseShare struct {
	ViewNumber        ViewNumber
	Epoch             EpochNumber
	PayloadCommitment VidCommitment
	Recipient         SignatureKey
	Share             VidShare
}

// SigningBytes is the message the disperser signs for one recipient share.
func (s *VidDisperseShare) SigningBytes() []byte {
	h := tpcmm.Digest256([]byte("vidshare"), s.PayloadCommitment[:], []byte(s.Recipient), tpcmm.Uint64ToBytes(s.Share.Index))
	return h[:]
}

type VidShareMessage struct {
	Share     VidDisperseShare
	Signature Signature
}

type StakeTableEntry struct {
	Key   SignatureKey
	Stake uint64
}
