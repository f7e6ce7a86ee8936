package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotLoaded         = errors.New("store not loaded")
	ErrUnsupportedSchema = errors.New("unsupported schema version")
	ErrBackendClosed     = errors.New("backend closed")
)
