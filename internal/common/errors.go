package common

import "errors"

var (
	// Storage-level errors.
	ErrStorage        = errors.New("token storage failure")
	ErrUnsupportedDSN = errors.New("unsupported storage dsn")

	// Sealed storage errors.
	ErrSealedValue = errors.New("sealed value cannot be opened")
)
