package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/TopiaNetwork/dacore/crypt"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	"github.com/TopiaNetwork/dacore/membership"
	"github.com/TopiaNetwork/dacore/types"
	"github.com/TopiaNetwork/dacore/vid"
)

// CalculateAndUpdateVid disperses the saved payload of view and stores one
// signed share per node. It returns nil, nil when no payload is saved for
// view. The dispersal runs while an upgradable read lock keeps writers out,
// so the shares are stored against the payload that was read. Shares whose
// signing fails are skipped and reported in the returned error.
func CalculateAndUpdateVid(ctx context.Context,
	outer *OuterConsensus,
	view types.ViewNumber,
	mem membership.Membership,
	privKey tpcrtypes.PrivateKey,
	epoch types.EpochNumber,
	disperser *vid.Disperser,
	signer crypt.CryptService,
) (*types.VidDisperse, error) {
	guard, err := outer.UpgradableRead(ctx)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	payload, ok := guard.SavedPayload(view)
	if !ok {
		return nil, nil
	}

	recipients := mem.StakeTable(epoch)
	start := time.Now()
	dispersal, err := disperser.Disperse(ctx, payload, len(recipients), nil)
	if err != nil {
		return nil, err
	}
	guard.Metrics().VidDisperseDuration.Observe(time.Since(start).Seconds())

	disperse := &types.VidDisperse{
		ViewNumber:        view,
		Epoch:             epoch,
		PayloadCommitment: dispersal.Commitment,
		Shares:            make(map[types.SignatureKey]types.VidShare, len(recipients)),
	}

	var signErr error
	messages := make([]*types.VidShareMessage, 0, len(recipients))
	for i, recipient := range recipients {
		disperse.Shares[recipient.Key] = dispersal.Shares[i]

		share := types.VidDisperseShare{
			ViewNumber:        view,
			Epoch:             epoch,
			PayloadCommitment: dispersal.Commitment,
			Recipient:         recipient.Key,
			Share:             dispersal.Shares[i],
		}
		sig, err := signer.Sign(privKey, share.SigningBytes())
		if err != nil {
			signErr = multierror.Append(signErr, fmt.Errorf("sign share for %s: %w", recipient.Key, err))
			continue
		}
		messages = append(messages, &types.VidShareMessage{Share: share, Signature: sig})
	}

	writeGuard, err := guard.Upgrade(ctx)
	if err != nil {
		return nil, err
	}
	defer writeGuard.Release()

	for _, msg := range messages {
		writeGuard.UpdateVidShares(view, msg)
	}

	return disperse, signErr
}
