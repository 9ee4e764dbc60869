package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/TopiaNetwork/dacore/consensus"
	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	"github.com/TopiaNetwork/dacore/storage"
	"github.com/TopiaNetwork/dacore/types"
)

// decideHandler records decided leaves, advances the decided view and
// reclaims everything the new anchor makes obsolete, in memory and on disk.
// It also keeps our own quorum proposals so GC can reclaim them.
type decideHandler struct {
	log       tplog.Logger
	consensus *consensus.OuterConsensus
	storage   storage.Storage
}

func newDecideHandler(log tplog.Logger, outer *consensus.OuterConsensus, store storage.Storage) *decideHandler {
	return &decideHandler{
		log:       log,
		consensus: outer.Named("decide"),
		storage:   store,
	}
}

func (h *decideHandler) Name() string {
	return "decide"
}

func (h *decideHandler) HandleEvent(ctx context.Context, ev eventhub.Event, publisher eventhub.Publisher) error {
	switch e := ev.(type) {
	case *eventhub.LeafDecidedEvent:
		return h.handleDecide(ctx, e)
	case *eventhub.QuorumProposalSendEvent:
		return h.handleProposalSend(ctx, e)
	}

	return nil
}

func (h *decideHandler) handleProposalSend(ctx context.Context, ev *eventhub.QuorumProposalSendEvent) error {
	if ev.Proposal == nil {
		return fmt.Errorf("Nil quorum proposal")
	}
	view := ev.Proposal.Proposal.ViewNumber

	guard, err := h.consensus.Write(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	if view <= guard.LastDecidedView() {
		h.log.Debugf("Ignore quorum proposal of decided %s", view)
		return nil
	}
	guard.UpdateAction(consensus.ActionKind_Propose, view)
	if err = guard.UpdateProposedView(ev.Proposal); err != nil {
		h.log.Debugf("Skip quorum proposal of %s: %v", view, err)
	}

	return nil
}

// saveDecidedLeaf stores leaf and its Leaf record. A leaf without a state
// does not replace a Leaf record already validated for its view.
func (h *decideHandler) saveDecidedLeaf(guard *consensus.WriteGuard, info *types.LeafInfo) {
	leaf := info.Leaf
	guard.UpdateSavedLeaves(leaf)

	if info.State == nil {
		if existing, ok := guard.ValidatedState(leaf.ViewNumber); ok && existing.Kind == types.ViewKind_Leaf {
			return
		}
	}
	record := types.NewLeafView(leaf.Commit(), info.State, info.Delta, leaf.Justify.Epoch)
	if err := guard.UpdateValidatedStateMap(leaf.ViewNumber, record); err != nil {
		h.log.Warnf("Keep validated state of decided %s: %v", leaf.ViewNumber, err)
	}
}

func (h *decideHandler) handleDecide(ctx context.Context, decided *eventhub.LeafDecidedEvent) error {
	var newAnchor types.ViewNumber
	found := false
	for _, info := range decided.Leaves {
		if info == nil || info.Leaf == nil {
			continue
		}
		if !found || info.Leaf.ViewNumber > newAnchor {
			newAnchor = info.Leaf.ViewNumber
			found = true
		}
	}
	if !found {
		return nil
	}

	guard, err := h.consensus.Write(ctx)
	if err != nil {
		return err
	}
	oldAnchor := guard.LastDecidedView()
	if newAnchor <= oldAnchor {
		guard.Release()
		h.log.Debugf("Ignore decide of %s, last decided %s", newAnchor, oldAnchor)
		return nil
	}

	for _, info := range decided.Leaves {
		if info == nil || info.Leaf == nil || info.Leaf.ViewNumber < oldAnchor {
			continue
		}
		h.saveDecidedLeaf(guard, info)
	}

	if err = guard.CheckGarbageAnchor(oldAnchor); err != nil {
		guard.Release()
		return err
	}
	if err = guard.UpdateLastDecidedView(newAnchor); err != nil {
		guard.Release()
		if errors.Is(err, consensus.ErrNotNewer) {
			return nil
		}
		return err
	}
	if decided.QC != nil {
		if err = guard.UpdateHighQC(decided.QC); err != nil && !errors.Is(err, consensus.ErrNotNewer) {
			h.log.Warnf("Update high QC from decide of %s err: %v", newAnchor, err)
		}
	}
	gcErr := guard.CollectGarbage(oldAnchor, newAnchor)
	guard.Release()

	if decided.QC != nil {
		if err = h.storage.UpdateHighQC(ctx, decided.QC); err != nil {
			h.log.Errorf("Persist high QC of %s err: %v", decided.QC.ViewNumber, err)
		}
	}
	if gcErr != nil {
		return gcErr
	}

	removed, err := h.storage.PruneBelow(ctx, newAnchor)
	if err != nil {
		return err
	}
	h.log.Infof("Decided %s, pruned %d stored records", newAnchor, removed)

	return nil
}

func (h *decideHandler) Cancel() {}
