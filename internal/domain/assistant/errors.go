package assistant

import "errors"

// Sentinel errors for assistant calls.
var (
	ErrEmptyInput   = errors.New("empty input")
	ErrInvalidInput = errors.New("invalid input")
	ErrCancelled    = errors.New("assistant call cancelled")
)
