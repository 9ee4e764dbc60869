package vid

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/gammazero/workerpool"
	lru "github.com/hashicorp/golang-lru"
	"github.com/klauspost/reedsolomon"
	"github.com/lazyledger/smt"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

const MOD_NAME = "vid"

// payloadPrefixLen is the length prefix written before the payload so that
// empty payloads encode to a non-empty shard set.
const payloadPrefixLen = 8

const encoderCacheSize = 64

var ErrDisperseFailed = errors.New("vid dispersal failed")

// Geometry returns the number of data and parity shards for n storage nodes.
// Any dataShards of the n shares recover the payload.
func Geometry(n int) (dataShards int, parityShards int) {
	if n <= 0 {
		return 0, 0
	}
	dataShards = (n + 2) / 3
	return dataShards, n - dataShards
}

// PrecomputeData holds an encoder prepared for a fixed shard geometry.
type PrecomputeData struct {
	totalNodes int
	enc        reedsolomon.Encoder
}

func NewPrecomputeData(totalNodes int) (*PrecomputeData, error) {
	enc, err := newEncoder(totalNodes)
	if err != nil {
		return nil, err
	}
	return &PrecomputeData{totalNodes: totalNodes, enc: enc}, nil
}

func (p *PrecomputeData) TotalNodes() int {
	return p.totalNodes
}

func newEncoder(totalNodes int) (reedsolomon.Encoder, error) {
	dataShards, parityShards := Geometry(totalNodes)
	if dataShards == 0 {
		return nil, fmt.Errorf("Invalid total nodes %d", totalNodes)
	}
	if parityShards == 0 {
		// single node: the framed payload is the only shard
		return nil, nil
	}
	return reedsolomon.New(dataShards, parityShards)
}

// Dispersal is the output of one dispersal: a commitment and one share per node.
type Dispersal struct {
	Commitment types.VidCommitment
	Shares     []types.VidShare
}

// Disperser runs dispersal on a bounded worker pool so callers holding the
// consensus lock never compete with CPU-bound encoding on their own goroutine.
type Disperser struct {
	log      tplog.Logger
	pool     *workerpool.WorkerPool
	encoders *lru.Cache //totalNodes -> reedsolomon.Encoder
}

func NewDisperser(level tplogcmm.LogLevel, log tplog.Logger, workers int) *Disperser {
	if workers <= 0 {
		workers = 1
	}
	encoders, _ := lru.New(encoderCacheSize)

	return &Disperser{
		log:      tplog.CreateModuleLogger(level, MOD_NAME, log),
		pool:     workerpool.New(workers),
		encoders: encoders,
	}
}

func (d *Disperser) encoder(totalNodes int, precompute *PrecomputeData) (reedsolomon.Encoder, error) {
	if precompute != nil && precompute.totalNodes == totalNodes {
		return precompute.enc, nil
	}
	if enc, ok := d.encoders.Get(totalNodes); ok {
		return enc.(reedsolomon.Encoder), nil
	}

	enc, err := newEncoder(totalNodes)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		d.encoders.Add(totalNodes, enc)
	}

	return enc, nil
}

type disperseResult struct {
	dispersal *Dispersal
	err       error
}

// Disperse erasure codes payload into totalNodes shares and commits to them.
// The work runs on the pool; Disperse waits for it or for ctx.
func (d *Disperser) Disperse(ctx context.Context, payload []byte, totalNodes int, precompute *PrecomputeData) (*Dispersal, error) {
	resultCh := make(chan disperseResult, 1)

	d.pool.Submit(func() {
		if ctx.Err() != nil {
			resultCh <- disperseResult{err: ctx.Err()}
			return
		}

		enc, err := d.encoder(totalNodes, precompute)
		if err != nil {
			resultCh <- disperseResult{err: err}
			return
		}

		dispersal, err := disperse(enc, payload, totalNodes)
		resultCh <- disperseResult{dispersal: dispersal, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrDisperseFailed, ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			err := fmt.Errorf("%w: payload len %d, nodes %d: %v", ErrDisperseFailed, len(payload), totalNodes, res.err)
			d.log.Errorf("%v", err)
			return nil, err
		}
		d.log.Debugf("Dispersed payload len %d into %d shares, commitment %s", len(payload), totalNodes, res.dispersal.Commitment)
		return res.dispersal, nil
	}
}

func (d *Disperser) Stop() {
	d.pool.StopWait()
}

func framePayload(payload []byte) []byte {
	framed := make([]byte, payloadPrefixLen+len(payload))
	copy(framed, tpcmm.Uint64ToBytes(uint64(len(payload))))
	copy(framed[payloadPrefixLen:], payload)
	return framed
}

func splitShards(enc reedsolomon.Encoder, payload []byte, totalNodes int) ([][]byte, error) {
	framed := framePayload(payload)
	if enc == nil {
		return [][]byte{framed}, nil
	}

	shards, err := enc.Split(framed)
	if err != nil {
		return nil, err
	}
	if err = enc.Encode(shards); err != nil {
		return nil, err
	}
	if len(shards) != totalNodes {
		return nil, fmt.Errorf("Unexpected shard count %d, expected %d", len(shards), totalNodes)
	}

	return shards, nil
}

func shareLeaf(index uint64, total uint64, data []byte) []byte {
	digest := tpcmm.Digest256(tpcmm.Uint64ToBytes(index), tpcmm.Uint64ToBytes(total), data)
	return digest[:]
}

func shareKey(index uint64) []byte {
	return tpcmm.Uint64ToBytes(index)
}

func newShareTree() *smt.SparseMerkleTree {
	return smt.NewSparseMerkleTree(smt.NewSimpleMap(), smt.NewSimpleMap(), sha256.New())
}

func buildTree(shards [][]byte) (*smt.SparseMerkleTree, types.VidCommitment, error) {
	tree := newShareTree()
	total := uint64(len(shards))
	for i, shard := range shards {
		if _, err := tree.Update(shareKey(uint64(i)), shareLeaf(uint64(i), total, shard)); err != nil {
			return nil, types.VidCommitment{}, err
		}
	}

	var commit types.VidCommitment
	copy(commit[:], tree.Root())
	return tree, commit, nil
}

func disperse(enc reedsolomon.Encoder, payload []byte, totalNodes int) (*Dispersal, error) {
	shards, err := splitShards(enc, payload, totalNodes)
	if err != nil {
		return nil, err
	}

	tree, commit, err := buildTree(shards)
	if err != nil {
		return nil, err
	}

	shares := make([]types.VidShare, len(shards))
	for i, shard := range shards {
		proof, err := tree.Prove(shareKey(uint64(i)))
		if err != nil {
			return nil, err
		}
		proofBytes, err := encodeProof(&proof)
		if err != nil {
			return nil, err
		}
		shares[i] = types.VidShare{
			Index:       uint64(i),
			TotalShares: uint64(len(shards)),
			Data:        shard,
			Proof:       proofBytes,
		}
	}

	return &Dispersal{Commitment: commit, Shares: shares}, nil
}

// VidCommitment computes only the commitment of payload for totalNodes nodes.
func VidCommitment(payload []byte, totalNodes int) (types.VidCommitment, error) {
	enc, err := newEncoder(totalNodes)
	if err != nil {
		return types.VidCommitment{}, err
	}
	shards, err := splitShards(enc, payload, totalNodes)
	if err != nil {
		return types.VidCommitment{}, err
	}

	_, commit, err := buildTree(shards)
	return commit, err
}

func encodeProof(sp *smt.SparseMerkleProof) ([]byte, error) {
	var data bytes.Buffer
	enc := gob.NewEncoder(&data)
	err := enc.Encode(sp)

	return data.Bytes(), err
}

func decodeProof(proofData []byte) (*smt.SparseMerkleProof, error) {
	dec := gob.NewDecoder(bytes.NewBuffer(proofData))
	var proof smt.SparseMerkleProof
	if err := dec.Decode(&proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

// VerifyShare checks that share is committed to by commit.
func VerifyShare(commit types.VidCommitment, share types.VidShare) bool {
	if share.Index >= share.TotalShares {
		return false
	}
	proof, err := decodeProof(share.Proof)
	if err != nil {
		return false
	}

	return smt.VerifyProof(*proof, commit[:], shareKey(share.Index), shareLeaf(share.Index, share.TotalShares, share.Data), sha256.New())
}

// Recover rebuilds the payload from at least dataShards distinct shares.
func Recover(shares []types.VidShare) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errors.New("No shares to recover from")
	}

	total := int(shares[0].TotalShares)
	dataShards, _ := Geometry(total)
	enc, err := newEncoder(total)
	if err != nil {
		return nil, err
	}

	shards := make([][]byte, total)
	for _, share := range shares {
		if int(share.TotalShares) != total || share.Index >= uint64(total) {
			return nil, fmt.Errorf("Share %d does not belong to a %d share dispersal", share.Index, total)
		}
		shards[share.Index] = tpcmm.BytesCopy(share.Data)
	}

	if enc != nil {
		if err = enc.ReconstructData(shards); err != nil {
			return nil, err
		}
	} else if shards[0] == nil {
		return nil, errors.New("Missing the only share")
	}

	var framed []byte
	for i := 0; i < dataShards; i++ {
		framed = append(framed, shards[i]...)
	}
	if len(framed) < payloadPrefixLen {
		return nil, errors.New("Recovered data too short")
	}

	size := tpcmm.BytesToUint64(framed[:payloadPrefixLen])
	if size > uint64(len(framed)-payloadPrefixLen) {
		return nil, fmt.Errorf("Recovered payload length %d exceeds data %d", size, len(framed)-payloadPrefixLen)
	}

	return framed[payloadPrefixLen : payloadPrefixLen+int(size)], nil
}
