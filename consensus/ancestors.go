package consensus

import (
	"fmt"

	"github.com/TopiaNetwork/dacore/types"
)

type TerminatorKind byte

const (
	TerminatorKind_Exclusive TerminatorKind = iota
	TerminatorKind_Inclusive
)

// Terminator stops an ancestor walk at a view, before (Exclusive) or after
// (Inclusive) visiting it.
type Terminator struct {
	Kind TerminatorKind
	View types.ViewNumber
}

func Exclusive(view types.ViewNumber) Terminator {
	return Terminator{Kind: TerminatorKind_Exclusive, View: view}
}

func Inclusive(view types.ViewNumber) Terminator {
	return Terminator{Kind: TerminatorKind_Inclusive, View: view}
}

func (t Terminator) String() string {
	if t.Kind == TerminatorKind_Inclusive {
		return fmt.Sprintf("inclusive(%d)", uint64(t.View))
	}
	return fmt.Sprintf("exclusive(%d)", uint64(t.View))
}

// LeafVisitor is called for each ancestor; returning false stops the walk successfully.
type LeafVisitor func(leaf *types.Leaf, state types.ValidatedState, delta types.StateDelta) bool

// VisitLeafAncestors walks the leaf chain from the leaf of view start toward
// genesis through parent commitments. Reaching the terminator ends the walk
// with success when okWhenFinished is set; otherwise, like a chain that
// breaks before the terminator, it ends with a *MissingLeafError.
func (c *Consensus) VisitLeafAncestors(start types.ViewNumber, terminator Terminator, okWhenFinished bool, visit LeafVisitor) error {
	record, ok := c.validatedStateMap.get(start)
	if !ok {
		return &InvalidStateError{View: start, Reason: "leaf does not exist in state map"}
	}
	nextLeaf, ok := record.LeafCommitment()
	if !ok {
		return &InvalidStateError{View: start, Reason: "visited failed view leaf, expected successful leaf"}
	}

	for {
		leaf, ok := c.savedLeaves[nextLeaf]
		if !ok {
			break
		}

		view := leaf.ViewNumber
		state, delta := c.StateAndDelta(view)
		if state == nil {
			return &InvalidStateError{View: view, Reason: "state does not exist in state map"}
		}

		if terminator.Kind == TerminatorKind_Exclusive && terminator.View == view {
			if okWhenFinished {
				return nil
			}
			break
		}

		nextLeaf = leaf.ParentCommitment
		if !visit(leaf, state, delta) {
			return nil
		}

		if terminator.Kind == TerminatorKind_Inclusive && terminator.View == view {
			if okWhenFinished {
				return nil
			}
			break
		}
	}

	return &MissingLeafError{Commitment: nextLeaf}
}
