package types

import "fmt"

type ViewNumber uint64

type EpochNumber uint64

const (
	GenesisView  ViewNumber  = 0
	GenesisEpoch EpochNumber = 0
)

func (v ViewNumber) Uint64() uint64 {
	return uint64(v)
}

func (v ViewNumber) String() string {
	return fmt.Sprintf("view %d", uint64(v))
}

func (e EpochNumber) Uint64() uint64 {
	return uint64(e)
}

// ViewKind tags the variant held by a View record.
type ViewKind byte

const (
	ViewKind_Failed ViewKind = iota
	ViewKind_Leaf
	ViewKind_Da
)

func (k ViewKind) String() string {
	switch k {
	case ViewKind_Leaf:
		return "leaf"
	case ViewKind_Da:
		return "da"
	case ViewKind_Failed:
		return "failed"
	}
	return fmt.Sprintf("viewkind(%d)", byte(k))
}

// ValidatedState is the application state reached after applying a leaf.
type ValidatedState interface {
	Height() uint64
	Commit() Commitment
}

// StateDelta is the opaque change set produced while validating a leaf.
// A nil delta means the delta is not known.
type StateDelta []byte

// View is the per-view entry of the validated state map. Exactly one of the
// variants is populated, selected by Kind.
type View struct {
	Kind ViewKind

	leafCommitment    Commitment
	state             ValidatedState
	delta             StateDelta
	payloadCommitment VidCommitment
	epoch             EpochNumber
}

func NewLeafView(leafCommit Commitment, state ValidatedState, delta StateDelta, epoch EpochNumber) View {
	return View{
		Kind:           ViewKind_Leaf,
		leafCommitment: leafCommit,
		state:          state,
		delta:          delta,
		epoch:          epoch,
	}
}

func NewDaView(payloadCommit VidCommitment, epoch EpochNumber) View {
	return View{
		Kind:              ViewKind_Da,
		payloadCommitment: payloadCommit,
		epoch:             epoch,
	}
}

func NewFailedView() View {
	return View{Kind: ViewKind_Failed}
}

// LeafCommitment returns the leaf of a Leaf record.
func (v View) LeafCommitment() (Commitment, bool) {
	if v.Kind != ViewKind_Leaf {
		return Commitment{}, false
	}
	return v.leafCommitment, true
}

// PayloadCommitment returns the payload commitment of a Da record.
func (v View) PayloadCommitment() (VidCommitment, bool) {
	if v.Kind != ViewKind_Da {
		return VidCommitment{}, false
	}
	return v.payloadCommitment, true
}

func (v View) State() ValidatedState {
	if v.Kind != ViewKind_Leaf {
		return nil
	}
	return v.state
}

func (v View) StateAndDelta() (ValidatedState, StateDelta) {
	if v.Kind != ViewKind_Leaf {
		return nil, nil
	}
	return v.state, v.delta
}

func (v View) HasDelta() bool {
	return v.Kind == ViewKind_Leaf && v.delta != nil
}

func (v View) Epoch() EpochNumber {
	return v.epoch
}

// BlockState is the default ValidatedState: a height and a state root.
type BlockState struct {
	BlockHeight uint64
	Root        Commitment
}

func NewBlockState(height uint64, root Commitment) *BlockState {
	return &BlockState{BlockHeight: height, Root: root}
}

func (s *BlockState) Height() uint64 {
	return s.BlockHeight
}

func (s *BlockState) Commit() Commitment {
	return Commitment(hashOf("state", s))
}
