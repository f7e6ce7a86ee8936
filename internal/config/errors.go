package config

import (
	"errors"
)

// Sentinel error kinds for this package. Timezone and schedule failures also
// match ErrInvalidConfig.
var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrLoadConfig      = errors.New("load config failed")
	ErrUnknownTimezone = errors.New("unknown timezone")
	ErrBadSchedule     = errors.New("bad sweep schedule")
)
