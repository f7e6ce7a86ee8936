package service

import "errors"

// Sentinel kinds returned by the service. Domain packages contribute their
// own (economy.ErrInsufficientFunds, assistant.ErrEmptyInput, ...).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrBigThreeFull = errors.New("big three is full")
	ErrNoSession    = errors.New("no active routine session")
	ErrBusy         = errors.New("voice queue is full")
	ErrNotStarted   = errors.New("service not started")
	ErrClosed       = errors.New("service closed")
)
