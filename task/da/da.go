package da

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/TopiaNetwork/dacore/consensus"
	"github.com/TopiaNetwork/dacore/crypt"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/membership"
	"github.com/TopiaNetwork/dacore/storage"
	"github.com/TopiaNetwork/dacore/types"
	"github.com/TopiaNetwork/dacore/vid"
)

const (
	MOD_NAME  = "da"
	TASK_NAME = "da"

	DefaultProcessedCacheSize = 1024
)

type processedKey struct {
	view   types.ViewNumber
	commit types.VidCommitment
}

// DaTaskState proposes payloads to the DA committee when this node leads a
// view, and votes on the DA proposals of other leaders once they are durably
// stored.
type DaTaskState struct {
	log           tplog.Logger
	consensus     *consensus.OuterConsensus
	membership    membership.Membership
	crypt         crypt.CryptService
	storage       storage.Storage
	disperser     *vid.Disperser
	precompute    *vid.PrecomputeData
	publicKey     types.SignatureKey
	privKey       tpcrtypes.PrivateKey
	curView       types.ViewNumber
	curEpoch      types.EpochNumber
	processed     *lru.Cache
	optimisticVid bool
	lockWait      time.Duration
}

func NewDaTaskState(level tplogcmm.LogLevel,
	log tplog.Logger,
	outer *consensus.OuterConsensus,
	mem membership.Membership,
	cryptService crypt.CryptService,
	store storage.Storage,
	disperser *vid.Disperser,
	privKey tpcrtypes.PrivateKey,
	cacheSize int,
	optimisticVid bool) (*DaTaskState, error) {
	daLog := tplog.CreateModuleLogger(level, MOD_NAME, log)

	pubKey, err := cryptService.ConvertToPublic(privKey)
	if err != nil {
		err = fmt.Errorf("Invalid DA task private key: %v", err)
		daLog.Errorf("%v", err)
		return nil, err
	}

	if cacheSize <= 0 {
		cacheSize = DefaultProcessedCacheSize
	}
	processed, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &DaTaskState{
		log:           daLog,
		consensus:     outer.Named(MOD_NAME),
		membership:    mem,
		crypt:         cryptService,
		storage:       store,
		disperser:     disperser,
		publicKey:     types.SignatureKeyFromPublic(pubKey),
		privKey:       privKey,
		processed:     processed,
		optimisticVid: optimisticVid,
	}, nil
}

// SetLockWaitTimeout bounds every wait for the shared consensus lock; zero
// waits as long as the event context allows.
func (s *DaTaskState) SetLockWaitTimeout(d time.Duration) {
	s.lockWait = d
}

func (s *DaTaskState) read(ctx context.Context) (*consensus.ReadGuard, error) {
	if s.lockWait <= 0 {
		return s.consensus.Read(ctx)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	return s.consensus.Read(lockCtx)
}

func (s *DaTaskState) write(ctx context.Context) (*consensus.WriteGuard, error) {
	if s.lockWait <= 0 {
		return s.consensus.Write(ctx)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	return s.consensus.Write(lockCtx)
}

func (s *DaTaskState) Name() string {
	return TASK_NAME
}

func (s *DaTaskState) PublicKey() types.SignatureKey {
	return s.publicKey
}

func (s *DaTaskState) CurView() types.ViewNumber {
	return s.curView
}

func (s *DaTaskState) HandleEvent(ctx context.Context, ev eventhub.Event, publisher eventhub.Publisher) error {
	switch e := ev.(type) {
	case *eventhub.ViewChangeEvent:
		return s.handleViewChange(ctx, e)
	case *eventhub.BlockRecvEvent:
		return s.handleBlockRecv(ctx, e, publisher)
	case *eventhub.DaProposalRecvEvent:
		return s.handleProposalRecv(ctx, e, publisher)
	case *eventhub.DaProposalValidatedEvent:
		return s.handleProposalValidated(ctx, e, publisher)
	case *eventhub.DaCertificateRecvEvent:
		return s.handleCertificateRecv(ctx, e)
	case *eventhub.VidShareRecvEvent:
		return s.handleVidShareRecv(ctx, e)
	case *eventhub.ShutdownEvent:
		s.log.Infof("DA task received shutdown at %s", s.curView)
	}

	return nil
}

func (s *DaTaskState) Cancel() {
	s.processed.Purge()
	s.log.Infof("DA task cancelled at %s", s.curView)
}

func (s *DaTaskState) handleViewChange(ctx context.Context, ev *eventhub.ViewChangeEvent) error {
	if ev.View <= s.curView {
		s.log.Debugf("Ignore view change to %s, current %s", ev.View, s.curView)
		return nil
	}

	s.curView = ev.View
	if ev.Epoch > s.curEpoch {
		s.curEpoch = ev.Epoch
	}

	guard, err := s.write(ctx)
	if err != nil {
		return err
	}
	if err = guard.UpdateView(ev.View); err != nil && !errors.Is(err, consensus.ErrNotNewer) {
		s.log.Warnf("Update view to %s err: %v", ev.View, err)
	}
	if err = guard.UpdateEpoch(ev.Epoch); err != nil && !errors.Is(err, consensus.ErrNotNewer) {
		s.log.Warnf("Update epoch to %d err: %v", ev.Epoch, err)
	}
	guard.Release()

	s.pruneProcessed()

	return nil
}

// pruneProcessed forgets proposals that are now too old to be accepted anyway.
func (s *DaTaskState) pruneProcessed() {
	for _, k := range s.processed.Keys() {
		if s.isStale(k.(processedKey).view) {
			s.processed.Remove(k)
		}
	}
}

func (s *DaTaskState) isStale(view types.ViewNumber) bool {
	return s.curView > 0 && view < s.curView-1
}

func (s *DaTaskState) vidPrecompute(totalNodes int) *vid.PrecomputeData {
	if s.precompute != nil && s.precompute.TotalNodes() == totalNodes {
		return s.precompute
	}

	precompute, err := vid.NewPrecomputeData(totalNodes)
	if err != nil {
		s.log.Warnf("Precompute VID data for %d nodes err: %v", totalNodes, err)
		return nil
	}
	s.precompute = precompute

	return precompute
}

func (s *DaTaskState) handleBlockRecv(ctx context.Context, ev *eventhub.BlockRecvEvent, publisher eventhub.Publisher) error {
	if ev.Bundle == nil {
		return fmt.Errorf("Nil bundle")
	}
	bundle := ev.Bundle
	view := bundle.ViewNumber

	if !s.membership.IsLeader(view, bundle.Epoch, s.publicKey) {
		s.log.Debugf("Not the leader of %s, ignore block", view)
		return nil
	}

	rGuard, err := s.read(ctx)
	if err != nil {
		return err
	}
	lastProposed := rGuard.LastActions().DaProposed
	rGuard.Release()
	if view <= lastProposed {
		s.log.Debugf("Already DA proposed in %s, last %s", view, lastProposed)
		return nil
	}

	totalNodes := s.membership.TotalNodes(bundle.Epoch)
	dispersal, err := s.disperser.Disperse(ctx, bundle.EncodedTransactions, totalNodes, s.vidPrecompute(totalNodes))
	if err != nil {
		s.log.Errorf("Compute payload commitment of %s err: %v", view, err)
		return nil
	}

	proposal := types.DaProposal{
		EncodedTransactions: bundle.EncodedTransactions,
		Metadata:            bundle.Metadata,
		ViewNumber:          view,
		Epoch:               bundle.Epoch,
		PayloadCommitment:   dispersal.Commitment,
	}
	txsHash := proposal.TransactionsHash()
	sig, err := s.crypt.Sign(s.privKey, txsHash[:])
	if err != nil {
		err = fmt.Errorf("Sign DA proposal of %s err: %v", view, err)
		s.log.Errorf("%v", err)
		return err
	}
	msg := &types.DaProposalMessage{Proposal: proposal, Signature: sig}

	guard, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	if !guard.UpdateAction(consensus.ActionKind_DaPropose, view) {
		s.log.Debugf("Already DA proposed in %s", view)
		return nil
	}
	if err = guard.UpdateSavedPayloads(view, bundle.EncodedTransactions); err != nil {
		s.log.Debugf("Save payload of %s: %v", view, err)
	}
	if err = guard.UpdateDaProposedView(msg); err != nil {
		s.log.Debugf("Skip DA proposal of %s: %v", view, err)
		return nil
	}

	s.log.Infof("Sending DA proposal of %s, commitment %s", view, dispersal.Commitment)
	return publisher.Publish(&eventhub.DaProposalSendEvent{Proposal: msg, Sender: s.publicKey})
}

func (s *DaTaskState) validateProposal(msg *types.DaProposalMessage, sender types.SignatureKey) error {
	proposal := &msg.Proposal

	leader, err := s.membership.Leader(proposal.ViewNumber, proposal.Epoch)
	if err != nil {
		return err
	}
	if sender != leader {
		return fmt.Errorf("sender %s is not the leader %s of %s", sender, leader, proposal.ViewNumber)
	}

	pubKey, err := sender.PublicKey()
	if err != nil {
		return fmt.Errorf("invalid sender key %s: %v", sender, err)
	}
	txsHash := proposal.TransactionsHash()
	ok, err := s.crypt.Verify(pubKey, txsHash[:], msg.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid signature from %s", sender)
	}

	commit, err := vid.VidCommitment(proposal.EncodedTransactions, s.membership.TotalNodes(proposal.Epoch))
	if err != nil {
		return fmt.Errorf("%w: %v", vid.ErrDisperseFailed, err)
	}
	if commit != proposal.PayloadCommitment {
		return fmt.Errorf("payload commitment mismatch: got %s, computed %s", proposal.PayloadCommitment, commit)
	}

	return nil
}

// acceptProposal reports whether msg is fresh, unseen and valid, and marks it
// processed when it is.
func (s *DaTaskState) acceptProposal(msg *types.DaProposalMessage, sender types.SignatureKey) bool {
	view := msg.Proposal.ViewNumber
	if s.isStale(view) {
		s.log.Debugf("Drop stale DA proposal of %s, current %s", view, s.curView)
		return false
	}

	key := processedKey{view: view, commit: msg.Proposal.PayloadCommitment}
	if s.processed.Contains(key) {
		s.log.Debugf("DA proposal of %s already processed", view)
		return false
	}

	if err := s.validateProposal(msg, sender); err != nil {
		s.log.Warnf("Invalid DA proposal of %s: %v", view, err)
		return false
	}
	s.processed.Add(key, struct{}{})

	return true
}

func (s *DaTaskState) handleProposalRecv(ctx context.Context, ev *eventhub.DaProposalRecvEvent, publisher eventhub.Publisher) error {
	if ev.Proposal == nil {
		return fmt.Errorf("Nil DA proposal")
	}
	if !s.acceptProposal(ev.Proposal, ev.Sender) {
		return nil
	}

	err := publisher.Publish(&eventhub.DaProposalValidatedEvent{Proposal: ev.Proposal, Sender: ev.Sender})
	if err != nil {
		return err
	}

	return s.vote(ctx, ev.Proposal, publisher)
}

func (s *DaTaskState) handleProposalValidated(ctx context.Context, ev *eventhub.DaProposalValidatedEvent, publisher eventhub.Publisher) error {
	if ev.Proposal == nil {
		return fmt.Errorf("Nil DA proposal")
	}
	if !s.acceptProposal(ev.Proposal, ev.Sender) {
		return nil
	}

	return s.vote(ctx, ev.Proposal, publisher)
}

// vote signs a DA vote for msg once it is appended to storage. A storage
// failure suppresses the vote and is not returned.
func (s *DaTaskState) vote(ctx context.Context, msg *types.DaProposalMessage, publisher eventhub.Publisher) error {
	proposal := &msg.Proposal
	view := proposal.ViewNumber

	if !s.membership.HasDaStake(s.publicKey, proposal.Epoch) {
		s.log.Debugf("Not in the DA committee of epoch %d, not voting in %s", proposal.Epoch, view)
		return nil
	}

	if err := s.storage.AppendDa(ctx, msg, proposal.PayloadCommitment); err != nil {
		s.log.Errorf("Append DA proposal of %s failed, not voting: %v", view, err)
		return nil
	}

	data := types.DaData{PayloadCommit: proposal.PayloadCommitment, Epoch: proposal.Epoch}
	sig, err := s.crypt.Sign(s.privKey, data.SigningBytes(view))
	if err != nil {
		err = fmt.Errorf("Sign DA vote of %s err: %v", view, err)
		s.log.Errorf("%v", err)
		return err
	}
	vote := &types.DaVote{
		Data:         data,
		ViewNumber:   view,
		SignatureKey: s.publicKey,
		Signature:    sig,
	}

	guard, err := s.write(ctx)
	if err != nil {
		return err
	}

	guard.UpdateAction(consensus.ActionKind_DaVote, view)
	s.log.Debugf("Sending DA vote of %s", view)
	if err = publisher.Publish(&eventhub.DaVoteSendEvent{Vote: vote}); err != nil {
		guard.Release()
		return err
	}

	// views at or below the decided anchor are already reclaimed
	if lastDecided := guard.LastDecidedView(); view <= lastDecided {
		guard.Release()
		s.log.Debugf("Voted in %s at or below decided %s, not recording it", view, lastDecided)
		return nil
	}
	if err = guard.UpdateValidatedStateMap(view, types.NewDaView(proposal.PayloadCommitment, proposal.Epoch)); err != nil {
		s.log.Debugf("Keep validated state of %s: %v", view, err)
	}
	if err = guard.UpdateSavedPayloads(view, proposal.EncodedTransactions); err != nil {
		s.log.Debugf("Save payload of %s: %v", view, err)
	}
	guard.Release()

	if s.optimisticVid {
		s.calculateVid(ctx, view, proposal.Epoch)
	}

	return nil
}

// handleCertificateRecv keeps the DA certificate of a view not yet decided.
// The certificate signature is checked by the quorum layer that forms it.
func (s *DaTaskState) handleCertificateRecv(ctx context.Context, ev *eventhub.DaCertificateRecvEvent) error {
	if ev.Cert == nil {
		return fmt.Errorf("Nil DA certificate")
	}
	view := ev.Cert.ViewNumber

	guard, err := s.write(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	if lastDecided := guard.LastDecidedView(); view <= lastDecided {
		s.log.Debugf("Ignore DA certificate of %s, decided %s", view, lastDecided)
		return nil
	}
	guard.UpdateSavedDaCerts(view, ev.Cert)
	s.log.Debugf("Saved DA certificate of %s, commitment %s", view, ev.Cert.PayloadCommitment)

	return nil
}

func (s *DaTaskState) validateVidShare(msg *types.VidShareMessage, sender types.SignatureKey) error {
	share := &msg.Share

	leader, err := s.membership.Leader(share.ViewNumber, share.Epoch)
	if err != nil {
		return err
	}
	if sender != leader {
		return fmt.Errorf("sender %s is not the leader %s of %s", sender, leader, share.ViewNumber)
	}

	pubKey, err := sender.PublicKey()
	if err != nil {
		return fmt.Errorf("invalid sender key %s: %v", sender, err)
	}
	ok, err := s.crypt.Verify(pubKey, share.SigningBytes(), msg.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid signature from %s", sender)
	}

	if !vid.VerifyShare(share.PayloadCommitment, share.Share) {
		return fmt.Errorf("share %d not committed by %s", share.Share.Index, share.PayloadCommitment)
	}

	return nil
}

// handleVidShareRecv keeps and persists the share the leader dispersed to us.
func (s *DaTaskState) handleVidShareRecv(ctx context.Context, ev *eventhub.VidShareRecvEvent) error {
	if ev.Share == nil {
		return fmt.Errorf("Nil VID share")
	}
	share := &ev.Share.Share
	view := share.ViewNumber

	if share.Recipient != s.publicKey {
		s.log.Debugf("VID share of %s is for %s, not us", view, share.Recipient)
		return nil
	}
	if s.isStale(view) {
		s.log.Debugf("Drop stale VID share of %s, current %s", view, s.curView)
		return nil
	}
	if err := s.validateVidShare(ev.Share, ev.Sender); err != nil {
		s.log.Warnf("Invalid VID share of %s: %v", view, err)
		return nil
	}

	guard, err := s.write(ctx)
	if err != nil {
		return err
	}
	if lastDecided := guard.LastDecidedView(); view <= lastDecided {
		guard.Release()
		s.log.Debugf("Ignore VID share of %s, decided %s", view, lastDecided)
		return nil
	}
	guard.UpdateVidShares(view, ev.Share)
	guard.Release()

	if err = s.storage.AppendVid(ctx, ev.Share); err != nil {
		s.log.Errorf("Append VID share of %s err: %v", view, err)
	}

	return nil
}

func (s *DaTaskState) calculateVid(ctx context.Context, view types.ViewNumber, epoch types.EpochNumber) {
	disperse, err := consensus.CalculateAndUpdateVid(ctx, s.consensus, view, s.membership, s.privKey, epoch, s.disperser, s.crypt)
	if err != nil {
		s.log.Warnf("Optimistic VID calculation of %s err: %v", view, err)
	}
	if disperse == nil {
		return
	}

	rGuard, err := s.read(ctx)
	if err != nil {
		return
	}
	shares := rGuard.VidShares(view)
	rGuard.Release()

	for _, share := range shares {
		if err = s.storage.AppendVid(ctx, share); err != nil {
			s.log.Warnf("Append VID share of %s for %s err: %v", view, share.Share.Recipient, err)
		}
	}
}
