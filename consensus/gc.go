package consensus

import (
	"fmt"

	"github.com/TopiaNetwork/dacore/types"
)

// CheckGarbageAnchor reports whether oldAnchor is the earliest view of the
// state map, which CollectGarbage requires before it prunes anything.
func (c *Consensus) CheckGarbageAnchor(oldAnchor types.ViewNumber) error {
	firstView, _, ok := c.validatedStateMap.first()
	if !ok {
		err := fmt.Errorf("%w: anchor leaf not in state map", ErrInconsistent)
		c.log.Errorf("%v", err)
		return err
	}
	if firstView != oldAnchor {
		err := fmt.Errorf("%w: earliest view %d, old anchor %d", ErrGarbageAnchorMismatch, uint64(firstView), uint64(oldAnchor))
		c.log.Errorf("Something about GC has failed: %v", err)
		return err
	}

	return nil
}

// CollectGarbage prunes everything older than newAnchor once newAnchor is
// decided. oldAnchor must be the earliest view of the state map; otherwise
// nothing is pruned and ErrGarbageAnchorMismatch is returned.
func (c *Consensus) CollectGarbage(oldAnchor types.ViewNumber, newAnchor types.ViewNumber) error {
	if err := c.CheckGarbageAnchor(oldAnchor); err != nil {
		return err
	}

	for view := range c.savedDaCerts {
		if view < oldAnchor {
			delete(c.savedDaCerts, view)
		}
	}

	c.validatedStateMap.ascendRange(oldAnchor, newAnchor, func(_ types.ViewNumber, record types.View) bool {
		if commit, ok := record.LeafCommitment(); ok {
			delete(c.savedLeaves, commit)
		}
		return true
	})

	removed := c.validatedStateMap.truncateBelow(newAnchor)
	c.savedPayloads.truncateBelow(newAnchor)
	c.vidShares.truncateBelow(newAnchor)
	c.lastProposals.truncateBelow(newAnchor)
	c.lastDaProposals.truncateBelow(newAnchor)

	c.metrics.GarbageCollectedViews.Add(float64(removed))
	c.updateSizeMetrics()
	c.log.Debugf("Collected garbage from %d to %d, removed %d views", uint64(oldAnchor), uint64(newAnchor), removed)

	return nil
}
