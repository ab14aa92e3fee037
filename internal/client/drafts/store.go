// Package drafts keeps the single in-progress FormState in durable local
// storage so it survives restarts. The slot is write-through and best-effort:
// no method returns an error, failures are logged.
package drafts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/repositories/kv"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
)

// SlotKey is the fixed key of the draft slot.
const SlotKey = "draft/current"

// DefaultTTL is how long a saved draft stays fresh.
const DefaultTTL = 24 * time.Hour

type Store struct {
	repo kv.Repository
	ttl  time.Duration
	now  func() time.Time
	log  logging.Logger
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(repo kv.Repository, log logging.Logger, opts ...Option) *Store {
	s := &Store{repo: repo, ttl: DefaultTTL, now: time.Now, log: log.With("module", "drafts")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save overwrites the slot with a snapshot of state.
func (s *Store) Save(ctx context.Context, state *models.FormState) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.log.Warn(ctx, "draft not saved", "error", err)
		return
	}
	b, err := json.Marshal(models.DraftRecord{SavedAt: s.now().UTC(), State: raw})
	if err != nil {
		s.log.Warn(ctx, "draft not saved", "error", err)
		return
	}
	if err := s.repo.Set(ctx, SlotKey, b); err != nil {
		s.log.Warn(ctx, "draft not saved", "error", err)
	}
}

// Load returns the stored draft merged onto a fresh FormState, and whether a
// fresh draft was found. Stale or unreadable drafts are deleted and reported
// as absent.
func (s *Store) Load(ctx context.Context) (*models.FormState, bool) {
	b, err := s.repo.Get(ctx, SlotKey)
	if err != nil {
		s.log.Warn(ctx, "draft not loaded", "error", err)
		return models.NewFormState(), false
	}
	if b == nil {
		return models.NewFormState(), false
	}

	var rec models.DraftRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn(ctx, "discarding unreadable draft", "error", err)
		s.drop(ctx)
		return models.NewFormState(), false
	}

	if age := s.now().Sub(rec.SavedAt); age > s.ttl {
		s.log.Info(ctx, "discarding stale draft", "saved_at", rec.SavedAt, "age", age.Round(time.Second))
		s.drop(ctx)
		return models.NewFormState(), false
	}

	state := models.NewFormState()
	if len(rec.State) > 0 {
		if err := json.Unmarshal(rec.State, state); err != nil {
			s.log.Warn(ctx, "discarding unreadable draft", "error", err)
			s.drop(ctx)
			return models.NewFormState(), false
		}
	}
	state.Normalize()
	return state, true
}

// Clear deletes the slot and resets state (if non-nil) to defaults.
func (s *Store) Clear(ctx context.Context, state *models.FormState) {
	s.drop(ctx)
	if state != nil {
		state.Reset()
	}
}

func (s *Store) drop(ctx context.Context) {
	if err := s.repo.Delete(ctx, SlotKey); err != nil {
		s.log.Warn(ctx, "draft not cleared", "error", err)
	}
}
