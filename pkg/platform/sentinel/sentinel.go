package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Blob stores, the revocation list and
// other infrastructure return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: object or key does not exist in the store
//   - ErrInvalidState: caller supplied an argument the store cannot act on
//   - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
