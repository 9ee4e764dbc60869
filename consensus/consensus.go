package consensus

import (
	"fmt"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

const MOD_NAME = "consensus"

// Baseline is the state a Consensus starts from: genesis or a recovered snapshot.
type Baseline struct {
	ValidatedStateMap map[types.ViewNumber]types.View
	CurView           types.ViewNumber
	CurEpoch          types.EpochNumber
	LockedView        types.ViewNumber
	LastDecidedView   types.ViewNumber
	LastActions       LastActions
	SavedLeaves       []*types.Leaf
	SavedPayloads     map[types.ViewNumber][]byte
	HighQC            *types.QuorumCertificate
}

// GenesisBaseline starts from the genesis leaf decided in view 0.
func GenesisBaseline(state types.ValidatedState) *Baseline {
	genesis := types.GenesisLeaf()
	return &Baseline{
		ValidatedStateMap: map[types.ViewNumber]types.View{
			types.GenesisView: types.NewLeafView(genesis.Commit(), state, nil, types.GenesisEpoch),
		},
		SavedLeaves: []*types.Leaf{genesis},
		HighQC:      types.GenesisQC(),
	}
}

// Consensus is the node's in-flight consensus progress. It is not safe for
// concurrent use; share it through OuterConsensus.
type Consensus struct {
	log tplog.Logger

	validatedStateMap *viewMap[types.View]
	vidShares         *viewMap[map[types.SignatureKey]*types.VidShareMessage]
	savedDaCerts      map[types.ViewNumber]*types.DaCertificate
	savedLeaves       map[types.Commitment]*types.Leaf
	savedPayloads     *viewMap[[]byte]
	lastProposals     *viewMap[*types.QuorumProposalMessage]
	lastDaProposals   *viewMap[*types.DaProposalMessage]

	curView         types.ViewNumber
	curEpoch        types.EpochNumber
	lastActions     LastActions
	lockedView      types.ViewNumber
	lastDecidedView types.ViewNumber
	highQC          *types.QuorumCertificate

	metrics *ConsensusMetricsValue
}

func NewConsensus(level tplogcmm.LogLevel, log tplog.Logger, baseline *Baseline, metrics *ConsensusMetricsValue) *Consensus {
	if metrics == nil {
		metrics = NewConsensusMetricsValue(nil, "")
	}
	highQC := baseline.HighQC
	if highQC == nil {
		highQC = types.GenesisQC()
	}

	cons := &Consensus{
		log:               tplog.CreateModuleLogger(level, MOD_NAME, log),
		validatedStateMap: newViewMap[types.View](),
		vidShares:         newViewMap[map[types.SignatureKey]*types.VidShareMessage](),
		savedDaCerts:      make(map[types.ViewNumber]*types.DaCertificate),
		savedLeaves:       make(map[types.Commitment]*types.Leaf),
		savedPayloads:     newViewMap[[]byte](),
		lastProposals:     newViewMap[*types.QuorumProposalMessage](),
		lastDaProposals:   newViewMap[*types.DaProposalMessage](),
		curView:           baseline.CurView,
		curEpoch:          baseline.CurEpoch,
		lastActions:       baseline.LastActions,
		lockedView:        baseline.LockedView,
		lastDecidedView:   baseline.LastDecidedView,
		highQC:            highQC,
		metrics:           metrics,
	}

	for view, record := range baseline.ValidatedStateMap {
		cons.validatedStateMap.set(view, record)
	}
	for _, leaf := range baseline.SavedLeaves {
		cons.savedLeaves[leaf.Commit()] = leaf
	}
	for view, payload := range baseline.SavedPayloads {
		cons.savedPayloads.set(view, payload)
	}

	metrics.CurrentView.Set(float64(cons.curView))
	metrics.LastDecidedView.Set(float64(cons.lastDecidedView))
	metrics.LockedView.Set(float64(cons.lockedView))
	cons.updateSizeMetrics()

	return cons
}

func (c *Consensus) updateSizeMetrics() {
	c.metrics.ValidatedStates.Set(float64(c.validatedStateMap.len()))
	c.metrics.SavedLeaves.Set(float64(len(c.savedLeaves)))
}

func (c *Consensus) stale(marker string, newValue uint64, curValue uint64) error {
	c.metrics.StaleUpdates.WithLabelValues(marker).Inc()
	return notNewerError(marker, newValue, curValue)
}

func (c *Consensus) CurView() types.ViewNumber {
	return c.curView
}

func (c *Consensus) CurEpoch() types.EpochNumber {
	return c.curEpoch
}

func (c *Consensus) LastDecidedView() types.ViewNumber {
	return c.lastDecidedView
}

func (c *Consensus) LockedView() types.ViewNumber {
	return c.lockedView
}

func (c *Consensus) HighQC() *types.QuorumCertificate {
	return c.highQC
}

func (c *Consensus) LastActions() LastActions {
	return c.lastActions
}

func (c *Consensus) Metrics() *ConsensusMetricsValue {
	return c.metrics
}

func (c *Consensus) ValidatedState(view types.ViewNumber) (types.View, bool) {
	return c.validatedStateMap.get(view)
}

// ValidatedViews lists the views of the validated state map in ascending order.
func (c *Consensus) ValidatedViews() []types.ViewNumber {
	return c.validatedStateMap.views()
}

func (c *Consensus) SavedLeaf(commit types.Commitment) (*types.Leaf, bool) {
	leaf, ok := c.savedLeaves[commit]
	return leaf, ok
}

func (c *Consensus) SavedLeavesCount() int {
	return len(c.savedLeaves)
}

func (c *Consensus) SavedPayload(view types.ViewNumber) ([]byte, bool) {
	return c.savedPayloads.get(view)
}

func (c *Consensus) SavedPayloadViews() []types.ViewNumber {
	return c.savedPayloads.views()
}

// VidShares returns a copy of the shares held for view, keyed by recipient.
func (c *Consensus) VidShares(view types.ViewNumber) map[types.SignatureKey]*types.VidShareMessage {
	shares, ok := c.vidShares.get(view)
	if !ok {
		return nil
	}
	cp := make(map[types.SignatureKey]*types.VidShareMessage, len(shares))
	for key, share := range shares {
		cp[key] = share
	}
	return cp
}

func (c *Consensus) VidShareViews() []types.ViewNumber {
	return c.vidShares.views()
}

func (c *Consensus) SavedDaCert(view types.ViewNumber) (*types.DaCertificate, bool) {
	cert, ok := c.savedDaCerts[view]
	return cert, ok
}

func (c *Consensus) SavedDaCertViews() []types.ViewNumber {
	views := make([]types.ViewNumber, 0, len(c.savedDaCerts))
	for view := range c.savedDaCerts {
		views = append(views, view)
	}
	return views
}

// LastProposal is our most recent quorum proposal.
func (c *Consensus) LastProposal() (*types.QuorumProposalMessage, bool) {
	_, proposal, ok := c.lastProposals.last()
	return proposal, ok
}

func (c *Consensus) LastProposalViews() []types.ViewNumber {
	return c.lastProposals.views()
}

// LastDaProposal is our most recent DA proposal.
func (c *Consensus) LastDaProposal() (*types.DaProposalMessage, bool) {
	_, proposal, ok := c.lastDaProposals.last()
	return proposal, ok
}

func (c *Consensus) DaProposal(view types.ViewNumber) (*types.DaProposalMessage, bool) {
	return c.lastDaProposals.get(view)
}

func (c *Consensus) LastDaProposalViews() []types.ViewNumber {
	return c.lastDaProposals.views()
}

func (c *Consensus) State(view types.ViewNumber) types.ValidatedState {
	record, ok := c.validatedStateMap.get(view)
	if !ok {
		return nil
	}
	return record.State()
}

func (c *Consensus) StateAndDelta(view types.ViewNumber) (types.ValidatedState, types.StateDelta) {
	record, ok := c.validatedStateMap.get(view)
	if !ok {
		return nil, nil
	}
	return record.StateAndDelta()
}

// DecidedLeaf returns the leaf of the last decided view.
func (c *Consensus) DecidedLeaf() (*types.Leaf, error) {
	record, ok := c.validatedStateMap.get(c.lastDecidedView)
	if !ok {
		return nil, &InvalidStateError{View: c.lastDecidedView, Reason: "decided view not in state map"}
	}
	commit, ok := record.LeafCommitment()
	if !ok {
		return nil, &InvalidStateError{View: c.lastDecidedView, Reason: "decided view has no leaf"}
	}
	leaf, ok := c.savedLeaves[commit]
	if !ok {
		return nil, &MissingLeafError{Commitment: commit}
	}
	return leaf, nil
}

// DecidedState returns the state of the last decided view.
func (c *Consensus) DecidedState() (types.ValidatedState, error) {
	state := c.State(c.lastDecidedView)
	if state == nil {
		return nil, &InvalidStateError{View: c.lastDecidedView, Reason: "decided state not found"}
	}
	return state, nil
}

func (c *Consensus) UpdateView(view types.ViewNumber) error {
	if view <= c.curView {
		return c.stale("view", uint64(view), uint64(c.curView))
	}
	c.curView = view
	c.metrics.CurrentView.Set(float64(view))
	if view >= c.lastDecidedView {
		c.metrics.NumberOfViewsSinceLastDecide.Set(float64(view - c.lastDecidedView))
	}

	return nil
}

func (c *Consensus) UpdateEpoch(epoch types.EpochNumber) error {
	if epoch <= c.curEpoch {
		return c.stale("epoch", uint64(epoch), uint64(c.curEpoch))
	}
	c.curEpoch = epoch

	return nil
}

func (c *Consensus) UpdateLastDecidedView(view types.ViewNumber) error {
	if view <= c.lastDecidedView {
		return c.stale("last decided view", uint64(view), uint64(c.lastDecidedView))
	}
	c.metrics.NumberOfViewsPerDecideEvent.Observe(float64(view - c.lastDecidedView))
	c.lastDecidedView = view
	c.metrics.LastDecidedView.Set(float64(view))
	c.metrics.LastDecidedTime.SetToCurrentTime()
	if c.curView >= view {
		c.metrics.NumberOfViewsSinceLastDecide.Set(float64(c.curView - view))
	}

	return nil
}

func (c *Consensus) UpdateLockedView(view types.ViewNumber) error {
	if view <= c.lockedView {
		return c.stale("locked view", uint64(view), uint64(c.lockedView))
	}
	c.lockedView = view
	c.metrics.LockedView.Set(float64(view))

	return nil
}

func (c *Consensus) UpdateHighQC(qc *types.QuorumCertificate) error {
	if qc == nil {
		return fmt.Errorf("Nil high QC")
	}
	if qc.ViewNumber <= c.highQC.ViewNumber {
		return c.stale("high qc", uint64(qc.ViewNumber), uint64(c.highQC.ViewNumber))
	}
	c.log.Debugf("Updating high QC to %s", qc.ViewNumber)
	c.highQC = qc

	return nil
}

// UpdateProposedView appends our quorum proposal; its view must be newer
// than every proposal recorded before.
func (c *Consensus) UpdateProposedView(proposal *types.QuorumProposalMessage) error {
	lastView, _, _ := c.lastProposals.last()
	if view := proposal.Proposal.ViewNumber; view <= lastView {
		return c.stale("proposed view", uint64(view), uint64(lastView))
	}
	c.lastProposals.set(proposal.Proposal.ViewNumber, proposal)

	return nil
}

// UpdateDaProposedView appends our DA proposal; its view must be newer than
// every DA proposal recorded before.
func (c *Consensus) UpdateDaProposedView(proposal *types.DaProposalMessage) error {
	lastView, _, _ := c.lastDaProposals.last()
	if view := proposal.Proposal.ViewNumber; view <= lastView {
		return c.stale("da proposed view", uint64(view), uint64(lastView))
	}
	c.lastDaProposals.set(proposal.Proposal.ViewNumber, proposal)

	return nil
}

// UpdateAction records that we took action in view and reports whether
// view is newer than the last view of the same action.
//
// DA votes always report true: the leader of view n+1 may propose to the DA
// committee before the leader of view n, so a plain last-view check would
// suppress a legitimate vote. Double DA voting is not prevented here.
func (c *Consensus) UpdateAction(action ActionKind, view types.ViewNumber) bool {
	var last *types.ViewNumber
	switch action {
	case ActionKind_Vote:
		last = &c.lastActions.Voted
	case ActionKind_Propose:
		last = &c.lastActions.Proposed
	case ActionKind_DaPropose:
		last = &c.lastActions.DaProposed
	case ActionKind_DaVote:
		if view > c.lastActions.DaVoted {
			c.lastActions.DaVoted = view
		}
		return true
	default:
		return true
	}

	if view > *last {
		*last = view
		return true
	}
	return false
}

// ResetActions resets every last action to genesis.
func (c *Consensus) ResetActions() {
	c.lastActions = LastActions{}
}

// UpdateValidatedStateMap stores record for view. A Leaf record is never
// replaced by a non-Leaf record, and a Leaf record with a known delta is
// never replaced by one without.
func (c *Consensus) UpdateValidatedStateMap(view types.ViewNumber, record types.View) error {
	if existing, ok := c.validatedStateMap.get(view); ok && existing.Kind == types.ViewKind_Leaf {
		if record.Kind != types.ViewKind_Leaf {
			return fmt.Errorf("%w: not overriding a leaf view with a %s view at %s", ErrStateRegression, record.Kind, view)
		}
		if existing.HasDelta() && !record.HasDelta() {
			return fmt.Errorf("%w: not overriding a leaf view with known delta at %s", ErrStateRegression, view)
		}
	}

	c.validatedStateMap.set(view, record)
	c.metrics.ValidatedStates.Set(float64(c.validatedStateMap.len()))

	return nil
}

func (c *Consensus) UpdateSavedLeaves(leaf *types.Leaf) {
	c.savedLeaves[leaf.Commit()] = leaf
	c.metrics.SavedLeaves.Set(float64(len(c.savedLeaves)))
}

// UpdateSavedPayloads stores the encoded transactions of view once.
func (c *Consensus) UpdateSavedPayloads(view types.ViewNumber, payload []byte) error {
	if c.savedPayloads.has(view) {
		return fmt.Errorf("%w: %s", ErrPayloadExists, view)
	}
	c.savedPayloads.set(view, payload)

	return nil
}

func (c *Consensus) UpdateVidShares(view types.ViewNumber, share *types.VidShareMessage) {
	shares, ok := c.vidShares.get(view)
	if !ok {
		shares = make(map[types.SignatureKey]*types.VidShareMessage)
		c.vidShares.set(view, shares)
	}
	shares[share.Share.Recipient] = share
}

func (c *Consensus) UpdateSavedDaCerts(view types.ViewNumber, cert *types.DaCertificate) {
	c.savedDaCerts[view] = cert
}
