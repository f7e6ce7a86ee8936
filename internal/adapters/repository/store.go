package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/anchor/internal/domain/economy"
	"github.com/okian/anchor/pkg/logger"
	"github.com/okian/anchor/pkg/metrics"
)

// Store owns the application state. Reads are served from memory; every
// mutation goes through Update, which persists the changed keys in a single
// backend call.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     logger.Logger

	maxHealth int
	state     State
	// persisted holds the last encoding known to be in the backend, per key.
	persisted map[string][]byte
	loaded    bool
	// schemaPending is set while the schema version still has to be written.
	schemaPending bool
}

// NewStore creates a Store over backend. Call Load before use.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		log:       logger.Nop(),
		maxHealth: 100,
		persisted: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = DefaultState(s.maxHealth)
	return s
}

// Load reads every key once. Missing, unreadable or corrupt entries fall
// back to their defaults.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSchema(ctx); err != nil {
		return err
	}

	defaults := DefaultState(s.maxHealth)
	state := defaults.Clone()
	for _, key := range stateKeys {
		raw, found, err := s.backend.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn(ctx, "read failed, using default", logger.String("key", key), logger.Error(err))
			metrics.RecordStoreReadFallback(key, "read_error")
			continue
		case !found:
			s.log.Debug(ctx, "key not found, using default", logger.String("key", key))
			metrics.RecordStoreReadFallback(key, "missing")
			continue
		}

		candidate := defaults.Clone()
		if err := candidate.decodeKey(key, raw); err != nil {
			s.log.Warn(ctx, "corrupt entry, using default", logger.String("key", key), logger.Error(err))
			metrics.RecordStoreReadFallback(key, "corrupt")
			continue
		}
		copyKey(&state, candidate, key)
		s.persisted[key] = append([]byte(nil), raw...)
	}

	// The configured maximum wins over the stored one; Normalize clamps health.
	state.Player.MaxHealth = s.maxHealth
	state.Player = economy.Normalize(state.Player)
	state.Goals = normalizeGoals(state.Goals)
	state.Tasks = nonNil(state.Tasks)
	state.Habits = nonNil(state.Habits)
	state.QuickCaptures = nonNil(state.QuickCaptures)
	state.BrainDump = nonNil(state.BrainDump)
	state.BigThree = nonNil(state.BigThree)

	s.state = state
	s.loaded = true
	s.log.Info(ctx, "state loaded",
		logger.Int("tasks", len(state.Tasks)),
		logger.Int("habits", len(state.Habits)),
		logger.Int("level", state.Player.Level))
	return nil
}

// checkSchema refuses data written by a newer schema. A missing, unreadable
// or corrupt version is treated as the current one and rewritten.
func (s *Store) checkSchema(ctx context.Context) error {
	raw, found, err := s.backend.Get(ctx, KeySchemaVersion)
	switch {
	case err != nil:
		s.log.Warn(ctx, "read schema version failed, assuming current",
			logger.Int("version", SchemaVersion), logger.Error(err))
		metrics.RecordStoreReadFallback(KeySchemaVersion, "read_error")
		s.schemaPending = true
		return nil
	case !found:
		s.schemaPending = true
		s.writeSchema(ctx)
		return nil
	}

	v, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		s.log.Warn(ctx, "corrupt schema version, assuming current",
			logger.String("raw", string(raw)), logger.Int("version", SchemaVersion))
		metrics.RecordStoreReadFallback(KeySchemaVersion, "corrupt")
		s.schemaPending = true
		s.writeSchema(ctx)
		return nil
	}
	if v > SchemaVersion {
		return fmt.Errorf("%w: %d > %d", ErrUnsupportedSchema, v, SchemaVersion)
	}
	return nil
}

// writeSchema stores the current schema version. On failure the version stays
// pending and goes out with the next flush.
func (s *Store) writeSchema(ctx context.Context) {
	if err := s.backend.PutMany(ctx, map[string][]byte{KeySchemaVersion: schemaVersionBytes()}); err != nil {
		s.log.Warn(ctx, "write schema version", logger.Error(err))
		metrics.RecordStoreWriteError()
		return
	}
	s.schemaPending = false
}

func schemaVersionBytes() []byte {
	return []byte(strconv.Itoa(SchemaVersion))
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state. If fn fails nothing changes.
// Otherwise the new state is published and every changed key is written in
// one backend call. A failed write is logged and counted; the in-memory state
// stays applied and the keys are retried on the next Update.
func (s *Store) Update(ctx context.Context, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return State{}, ErrNotLoaded
	}

	draft := s.state.Clone()
	if err := fn(&draft); err != nil {
		return State{}, err
	}
	draft.Player = economy.Normalize(draft.Player)
	s.state = draft

	s.flush(ctx)
	return draft.Clone(), nil
}

// flush writes the keys whose encoding differs from what is persisted.
func (s *Store) flush(ctx context.Context) {
	encoded, err := s.state.encode()
	if err != nil {
		s.log.Error(ctx, "encode state", logger.Error(err))
		metrics.RecordStoreWriteError()
		return
	}
	changed := make(map[string][]byte)
	for k, v := range encoded {
		if !bytes.Equal(s.persisted[k], v) {
			changed[k] = v
		}
	}
	if s.schemaPending {
		changed[KeySchemaVersion] = schemaVersionBytes()
	}
	if len(changed) == 0 {
		return
	}

	start := time.Now()
	if err := s.backend.PutMany(ctx, changed); err != nil {
		keys := make([]string, 0, len(changed))
		for k := range changed {
			keys = append(keys, k)
		}
		s.log.Error(ctx, "persist state", logger.Any("keys", keys), logger.Error(err))
		metrics.RecordStoreWriteError()
		return
	}
	metrics.RecordStoreWrite(float64(time.Since(start).Milliseconds()))
	for k, v := range changed {
		s.persisted[k] = v
	}
	s.schemaPending = false
}

// Close releases the backend.
func (s *Store) Close() error {
	if err := s.backend.Close(); err != nil && !errors.Is(err, ErrBackendClosed) {
		return err
	}
	return nil
}

func copyKey(dst *State, src State, key string) {
	switch key {
	case KeyPlayer:
		dst.Player = src.Player
	case KeyTasks:
		dst.Tasks = src.Tasks
	case KeyHabits:
		dst.Habits = src.Habits
	case KeyGoals:
		dst.Goals = src.Goals
	case KeyQuickCaptures:
		dst.QuickCaptures = src.QuickCaptures
	case KeyBrainDump:
		dst.BrainDump = src.BrainDump
	case KeyDailyFocus:
		dst.DailyFocus = src.DailyFocus
	case KeyBigThree:
		dst.BigThree = src.BigThree
	}
}
