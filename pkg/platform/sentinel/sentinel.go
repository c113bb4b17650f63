package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Pipeline stages and engines return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states, not validation failures:
// - ErrNotFound: the thing looked for is not in the input (no zone, no text)
// - ErrUnavailable: a capacity slot or backend could not be obtained in time
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
