package eventhub

import (
	"github.com/TopiaNetwork/dacore/types"
)

const (
	EventName_ViewChange          = "ViewChange"
	EventName_BlockRecv           = "BlockRecv"
	EventName_DaProposalRecv      = "DaProposalRecv"
	EventName_DaProposalSend      = "DaProposalSend"
	EventName_DaProposalValidated = "DaProposalValidated"
	EventName_DaVoteSend          = "DaVoteSend"
	EventName_DaCertificateRecv   = "DaCertificateRecv"
	EventName_VidShareRecv        = "VidShareRecv"
	EventName_QuorumProposalSend  = "QuorumProposalSend"
	EventName_LeafDecided         = "LeafDecided"
	EventName_Shutdown            = "Shutdown"
)

// Event is a value broadcast through the hub. Events are shared between all
// subscribers and must not be modified after Publish.
type Event interface {
	EventName() string
}

// Publisher is the sending half of the hub as seen by tasks.
type Publisher interface {
	Publish(ev Event) error
}

type ViewChangeEvent struct {
	View  types.ViewNumber
	Epoch types.EpochNumber
}

type BlockRecvEvent struct {
	Bundle *types.PackedBundle
}

type DaProposalRecvEvent struct {
	Proposal *types.DaProposalMessage
	Sender   types.SignatureKey
}

type DaProposalSendEvent struct {
	Proposal *types.DaProposalMessage
	Sender   types.SignatureKey
}

type DaProposalValidatedEvent struct {
	Proposal *types.DaProposalMessage
	Sender   types.SignatureKey
}

type DaVoteSendEvent struct {
	Vote *types.DaVote
}

type DaCertificateRecvEvent struct {
	Cert *types.DaCertificate
}

type VidShareRecvEvent struct {
	Share  *types.VidShareMessage
	Sender types.SignatureKey
}

type QuorumProposalSendEvent struct {
	Proposal *types.QuorumProposalMessage
	Sender   types.SignatureKey
}

// LeafDecidedEvent carries the newly decided leaves, newest first, and the
// QC that decided them.
type LeafDecidedEvent struct {
	Leaves []*types.LeafInfo
	QC     *types.QuorumCertificate
}

type ShutdownEvent struct{}

func (*ViewChangeEvent) EventName() string          { return EventName_ViewChange }
func (*BlockRecvEvent) EventName() string           { return EventName_BlockRecv }
func (*DaProposalRecvEvent) EventName() string      { return EventName_DaProposalRecv }
func (*DaProposalSendEvent) EventName() string      { return EventName_DaProposalSend }
func (*DaProposalValidatedEvent) EventName() string { return EventName_DaProposalValidated }
func (*DaVoteSendEvent) EventName() string          { return EventName_DaVoteSend }
func (*DaCertificateRecvEvent) EventName() string   { return EventName_DaCertificateRecv }
func (*VidShareRecvEvent) EventName() string        { return EventName_VidShareRecv }
func (*QuorumProposalSendEvent) EventName() string  { return EventName_QuorumProposalSend }
func (*LeafDecidedEvent) EventName() string         { return EventName_LeafDecided }
func (*ShutdownEvent) EventName() string            { return EventName_Shutdown }

// ExternalFilter reports whether ev is visible to external streamers:
// proposals leaving or entering the node and decided leaves.
func ExternalFilter(ev Event) bool {
	switch ev.(type) {
	case *DaProposalSendEvent, *DaProposalRecvEvent, *QuorumProposalSendEvent, *LeafDecidedEvent:
		return true
	}
	return false
}
