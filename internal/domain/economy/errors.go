package economy

import "errors"

// Sentinel errors for the economy.
var (
	ErrInsufficientFunds = errors.New("insufficient gold")
	ErrInvalidCost       = errors.New("invalid cost")
	ErrInvalidPolicy     = errors.New("invalid undo policy")
)
