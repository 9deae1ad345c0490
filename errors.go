package graphseg

import "errors"

var (
	// ErrShape indicates a malformed grid: rows of differing length, pixels
	// with differing (or zero) channel counts, or NaN/Inf samples.
	ErrShape = errors.New("graphseg: grid must be rectangular with a constant, non-zero channel count and finite samples")
	// ErrEmptyGraph indicates a grid with zero width or height.
	ErrEmptyGraph = errors.New("graphseg: grid must have at least one row and one column")
	// ErrInvalidParameter indicates an out-of-range k, sigma, min size or mode.
	ErrInvalidParameter = errors.New("graphseg: invalid parameter")
	// ErrAllocation indicates storage growth that cannot be satisfied.
	ErrAllocation = errors.New("graphseg: sample storage cannot be allocated")
)
