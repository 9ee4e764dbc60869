package consensus

import (
	"fmt"

	"github.com/TopiaNetwork/dacore/types"
)

type ActionKind byte

const (
	ActionKind_Unknown ActionKind = iota
	ActionKind_Vote
	ActionKind_Propose
	ActionKind_DaPropose
	ActionKind_DaVote
	ActionKind_ViewSyncVote
)

func (a ActionKind) String() string {
	switch a {
	case ActionKind_Vote:
		return "vote"
	case ActionKind_Propose:
		return "propose"
	case ActionKind_DaPropose:
		return "da-propose"
	case ActionKind_DaVote:
		return "da-vote"
	case ActionKind_ViewSyncVote:
		return "view-sync-vote"
	}
	return fmt.Sprintf("action(%d)", byte(a))
}

// LastActions records the latest view in which this node took each action.
type LastActions struct {
	Proposed   types.ViewNumber
	Voted      types.ViewNumber
	DaProposed types.ViewNumber
	DaVoted    types.ViewNumber
}
