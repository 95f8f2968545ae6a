package services

import "errors"

// Dashboard service errors
var (
	// ErrDataNotLoaded is returned while no tables are available.
	ErrDataNotLoaded = errors.New("datasets not loaded")

	// ErrUnknownRole is returned for a report role other than ceo, cfo or projections.
	ErrUnknownRole = errors.New("unknown report role")

	// ErrInvalidInput wraps rejected query or body values.
	ErrInvalidInput = errors.New("invalid input")
)
