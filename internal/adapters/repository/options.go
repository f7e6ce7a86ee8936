package repository

import "github.com/okian/anchor/pkg/logger"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxHealth sets the player's maximum health used for defaults.
func WithMaxHealth(maxHealth int) Option {
	return func(s *Store) {
		if maxHealth > 0 {
			s.maxHealth = maxHealth
		}
	}
}
