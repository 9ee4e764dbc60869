package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/TopiaNetwork/dacore/codec"
	tpcmm "github.com/TopiaNetwork/dacore/common"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/storage/backend"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
	"github.com/TopiaNetwork/dacore/types"
)

const (
	MOD_NAME = "storage"
)

var (
	daPrefix   = []byte("da/")
	vidPrefix  = []byte("vid/")
	metaPrefix = []byte("meta/")

	highQCKey = []byte("hqc")
)

var ErrNotFound = errors.New("not found")

//go:generate mockgen -destination=mocks/storage.go -package=mocks . Storage

// Storage persists what a node has voted on or dispersed, so a restarted node
// never contradicts itself.
type Storage interface {
	// AppendDa records a DA proposal together with its payload commitment.
	AppendDa(ctx context.Context, proposal *types.DaProposalMessage, commit types.VidCommitment) error

	AppendVid(ctx context.Context, share *types.VidShareMessage) error

	// UpdateHighQC keeps the stored QC only if qc is newer.
	UpdateHighQC(ctx context.Context, qc *types.QuorumCertificate) error

	LoadDaProposal(ctx context.Context, view types.ViewNumber) (*DaProposalRecord, error)

	LoadVidShares(ctx context.Context, view types.ViewNumber) ([]*types.VidShareMessage, error)

	LoadHighQC(ctx context.Context) (*types.QuorumCertificate, error)

	// PruneBelow removes DA and VID records for views < view and reports how many were removed.
	PruneBelow(ctx context.Context, view types.ViewNumber) (int, error)

	Close() error
}

type DaProposalRecord struct {
	Proposal   types.DaProposalMessage
	Commitment types.VidCommitment
}

type kvStorage struct {
	log       tplog.Logger
	marshaler codec.Marshaler
	root      backend.Backend
	da        backend.Backend
	vid       backend.Backend
	meta      backend.Backend
	qcSync    sync.Mutex
}

// NewKVStorage stores RLP records in b; the storage owns b and closes it.
func NewKVStorage(level tplogcmm.LogLevel, log tplog.Logger, b backend.Backend) Storage {
	return &kvStorage{
		log:       tplog.CreateModuleLogger(level, MOD_NAME, log),
		marshaler: codec.CreateMarshaler(codec.CodecType_RLP),
		root:      b,
		da:        backend.NewBackendPrefixed(daPrefix, b),
		vid:       backend.NewBackendPrefixed(vidPrefix, b),
		meta:      backend.NewBackendPrefixed(metaPrefix, b),
	}
}

func viewKey(view types.ViewNumber) []byte {
	return tpcmm.Uint64ToBytes(view.Uint64())
}

func vidKey(view types.ViewNumber, recipient types.SignatureKey) []byte {
	return append(viewKey(view), []byte(recipient)...)
}

func (s *kvStorage) AppendDa(ctx context.Context, proposal *types.DaProposalMessage, commit types.VidCommitment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if proposal == nil {
		return fmt.Errorf("Nil DA proposal")
	}

	data, err := s.marshaler.Marshal(&DaProposalRecord{Proposal: *proposal, Commitment: commit})
	if err != nil {
		s.log.Errorf("Marshal DA proposal of %s err: %v", proposal.Proposal.ViewNumber, err)
		return err
	}
	if err = s.da.SetSync(viewKey(proposal.Proposal.ViewNumber), data); err != nil {
		s.log.Errorf("Append DA proposal of %s err: %v", proposal.Proposal.ViewNumber, err)
		return err
	}

	s.log.Debugf("Appended DA proposal of %s, commitment %s", proposal.Proposal.ViewNumber, commit)
	return nil
}

func (s *kvStorage) AppendVid(ctx context.Context, share *types.VidShareMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if share == nil {
		return fmt.Errorf("Nil VID share")
	}

	data, err := s.marshaler.Marshal(share)
	if err != nil {
		return err
	}
	if err = s.vid.SetSync(vidKey(share.Share.ViewNumber, share.Share.Recipient), data); err != nil {
		s.log.Errorf("Append VID share of %s for %s err: %v", share.Share.ViewNumber, share.Share.Recipient, err)
		return err
	}

	return nil
}

func (s *kvStorage) UpdateHighQC(ctx context.Context, qc *types.QuorumCertificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qc == nil {
		return fmt.Errorf("Nil high QC")
	}

	s.qcSync.Lock()
	defer s.qcSync.Unlock()

	cur, err := s.loadHighQC()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cur != nil && cur.ViewNumber >= qc.ViewNumber {
		return nil
	}

	data, err := s.marshaler.Marshal(qc)
	if err != nil {
		return err
	}

	return s.meta.SetSync(highQCKey, data)
}

func (s *kvStorage) LoadDaProposal(ctx context.Context, view types.ViewNumber) (*DaProposalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.da.Get(viewKey(view))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("DA proposal of %s: %w", view, ErrNotFound)
	}

	var record DaProposalRecord
	if err = s.marshaler.Unmarshal(data, &record); err != nil {
		s.log.Errorf("Corrupted DA proposal record of %s: %v", view, err)
		return nil, err
	}

	return &record, nil
}

func (s *kvStorage) LoadVidShares(ctx context.Context, view types.ViewNumber) ([]*types.VidShareMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := viewKey(view)
	it, err := s.vid.Iterator(start, tpstcmm.PrefixEnd(start))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var shares []*types.VidShareMessage
	for ; it.Valid(); it.Next() {
		var share types.VidShareMessage
		if err = s.marshaler.Unmarshal(it.Value(), &share); err != nil {
			return nil, err
		}
		shares = append(shares, &share)
	}

	return shares, it.Error()
}

func (s *kvStorage) loadHighQC() (*types.QuorumCertificate, error) {
	data, err := s.meta.Get(highQCKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}

	var qc types.QuorumCertificate
	if err = s.marshaler.Unmarshal(data, &qc); err != nil {
		return nil, err
	}

	return &qc, nil
}

func (s *kvStorage) LoadHighQC(ctx context.Context) (*types.QuorumCertificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.qcSync.Lock()
	defer s.qcSync.Unlock()

	return s.loadHighQC()
}

func pruneBelow(b backend.Backend, end []byte) (int, error) {
	it, err := b.Iterator(nil, end)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	batch := b.NewBatch()
	defer batch.Close()

	count := 0
	for ; it.Valid(); it.Next() {
		if err = batch.Delete(it.Key()); err != nil {
			return 0, err
		}
		count++
	}
	if err = it.Error(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	return count, batch.Write()
}

func (s *kvStorage) PruneBelow(ctx context.Context, view types.ViewNumber) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var rError error
	removed := 0
	for _, b := range []backend.Backend{s.da, s.vid} {
		n, err := pruneBelow(b, viewKey(view))
		if err != nil {
			rError = multierror.Append(rError, err)
			continue
		}
		removed += n
	}

	if rError != nil {
		s.log.Errorf("Prune storage below %s err: %v", view, rError)
		return removed, rError
	}

	s.log.Debugf("Pruned %d records below %s", removed, view)
	return removed, nil
}

func (s *kvStorage) Close() error {
	var rError error
	for _, b := range []backend.Backend{s.da, s.vid, s.meta, s.root} {
		if err := b.Close(); err != nil {
			rError = multierror.Append(rError, err)
		}
	}

	return rError
}
