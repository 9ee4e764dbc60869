package consensus

import (
	"errors"
	"fmt"

	"github.com/TopiaNetwork/dacore/types"
)

var (
	ErrNotNewer              = errors.New("new value isn't newer than the current one")
	ErrStateRegression       = errors.New("state update would regress an existing leaf view")
	ErrPayloadExists         = errors.New("payload with the same view already exists")
	ErrInconsistent          = errors.New("consensus internally inconsistent")
	ErrGarbageAnchorMismatch = errors.New("older entry exists than the previous anchor view")
)

func notNewerError(marker string, newValue uint64, curValue uint64) error {
	return fmt.Errorf("%s: %w: new %d, current %d", marker, ErrNotNewer, newValue, curValue)
}

// MissingLeafError reports a leaf commitment that a walk expected in the saved leaves.
type MissingLeafError struct {
	Commitment types.Commitment
}

func (e *MissingLeafError) Error() string {
	return fmt.Sprintf("missing leaf %s", e.Commitment)
}

// InvalidStateError reports a view with no usable leaf or state.
type InvalidStateError struct {
	View   types.ViewNumber
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state at %s: %s", e.View, e.Reason)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInconsistent
}
