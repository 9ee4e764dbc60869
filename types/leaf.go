package types

// QuorumCertificate certifies a leaf for a view.
type QuorumCertificate struct {
	ViewNumber     ViewNumber
	Epoch          EpochNumber
	LeafCommitment Commitment
	Signature      []byte
}

// GenesisQC is the certificate every chain starts from.
func GenesisQC() *QuorumCertificate {
	return &QuorumCertificate{ViewNumber: GenesisView, Epoch: GenesisEpoch}
}

// DaCertificate certifies availability of a payload for a view.
type DaCertificate struct {
	ViewNumber        ViewNumber
	Epoch             EpochNumber
	PayloadCommitment VidCommitment
	Signature         []byte
}

type Leaf struct {
	ViewNumber        ViewNumber
	Height            uint64
	ParentCommitment  Commitment
	Justify           QuorumCertificate
	PayloadCommitment VidCommitment
}

func (l *Leaf) Commit() Commitment {
	return Commitment(hashOf("leaf", l))
}

// GenesisLeaf has no parent; its justify QC is the genesis QC.
func GenesisLeaf() *Leaf {
	return &Leaf{
		ViewNumber: GenesisView,
		Justify:    *GenesisQC(),
	}
}

// ExtendLeaf builds the child of parent at view, justified by qc.
func ExtendLeaf(parent *Leaf, view ViewNumber, qc QuorumCertificate, payloadCommit VidCommitment) *Leaf {
	return &Leaf{
		ViewNumber:        view,
		Height:            parent.Height + 1,
		ParentCommitment:  parent.Commit(),
		Justify:           qc,
		PayloadCommitment: payloadCommit,
	}
}

// LeafInfo is a decided leaf with the state reached by applying it. State
// and Delta may be nil when the decider did not validate the leaf itself.
type LeafInfo struct {
	Leaf  *Leaf
	State ValidatedState
	Delta StateDelta
}

type QuorumProposal struct {
	ViewNumber ViewNumber
	Epoch      EpochNumber
	Leaf       Leaf
	JustifyQC  QuorumCertificate
}

type QuorumProposalMessage struct {
	Proposal  QuorumProposal
	Signature Signature
}
