package search

import (
	"fmt"

	coreerrors "github.com/five82/crfsearch/internal/errors"
)

// InfeasibleError reports that no crf in range meets both targets.
// It matches KindInfeasible through errors.As / coreerrors.IsKind.
type InfeasibleError struct {
	// Attempt is the last attempt evaluated.
	Attempt Attempt

	// Reason explains which target could not be met.
	Reason string

	cause *coreerrors.CoreError
}

func newInfeasibleError(cfg Config, a Attempt) *InfeasibleError {
	reason := fmt.Sprintf("VMAF %.2f is below %.2f at the minimum crf %d", a.VMAF, cfg.MinVMAF, a.CRF)
	if a.EncodedPercent > cfg.MaxEncodedPercent {
		reason = fmt.Sprintf("VMAF %.2f is below %.2f while the predicted size is already %.0f%% (max %.0f%%) at crf %d",
			a.VMAF, cfg.MinVMAF, a.EncodedPercent, cfg.MaxEncodedPercent, a.CRF)
	}
	return &InfeasibleError{Attempt: a, Reason: reason, cause: coreerrors.NewInfeasibleError(reason)}
}

func (e *InfeasibleError) Error() string {
	return "failed to find a suitable crf: " + e.Reason
}

func (e *InfeasibleError) Unwrap() error {
	if e.cause == nil {
		return nil
	}
	return e.cause
}
