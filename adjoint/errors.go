package adjoint

import "errors"

var (
	ErrRestartMissing    = errors.New("adjoint restart file not found")
	ErrWeightFileMissing = errors.New("near-field weight file not found")
	// ErrObjectiveInvalid2D is returned for objectives that only make sense
	// with a spanwise direction.
	ErrObjectiveInvalid2D = errors.New("objective function not available in 2D")
	ErrObjectiveUnknown   = errors.New("unknown objective function")
)
