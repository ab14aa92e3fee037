package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/localdb"
	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/repositories/kv"
	"github.com/dmitrijs2005/fieldreport/internal/client/repositories/kv/kvtest"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setupStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	db, err := localdb.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := &clock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	return NewStore(kv.NewSQLiteStore(db), logging.Nop(), WithClock(c.now)), c
}

func filledState() *models.FormState {
	s := models.NewFormState()
	s.Category = "streetlight"
	s.Subcategory = "streetlight"
	s.SetCoords(4.1755, 73.5093, 12)
	s.SetField("light_working", "no")
	s.SetTableRow("catch", "tuna", "12", "kg")
	s.AddTag("urgent")
	s.Notes = "pole leaning"
	s.AddAttachment("a.jpg", []byte{0xff, 0xd8, 0xff, 0xe0})
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	want := filledState()
	store.Save(ctx, want)

	got, ok := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_LoadEmpty(t *testing.T) {
	store, _ := setupStore(t)

	got, ok := store.Load(context.Background())
	assert.False(t, ok)
	assert.Equal(t, models.NewFormState(), got)
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	first := filledState()
	store.Save(ctx, first)

	second := models.NewFormState()
	second.Category = "pothole"
	store.Save(ctx, second)

	got, ok := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestStore_Staleness(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		fresh   bool
	}{
		{name: "T+23h present", elapsed: 23 * time.Hour, fresh: true},
		{name: "exactly TTL present", elapsed: 24 * time.Hour, fresh: true},
		{name: "T+25h absent", elapsed: 25 * time.Hour, fresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, c := setupStore(t)

			store.Save(ctx, filledState())
			c.t = c.t.Add(tt.elapsed)

			got, ok := store.Load(ctx)
			assert.Equal(t, tt.fresh, ok)
			if !tt.fresh {
				assert.Equal(t, models.NewFormState(), got)

				raw, err := store.repo.Get(ctx, SlotKey)
				require.NoError(t, err)
				assert.Nil(t, raw, "stale draft must be deleted on load")
			}
		})
	}
}

func TestStore_CustomTTL(t *testing.T) {
	ctx := context.Background()
	mem := kvtest.NewMemory()
	c := &clock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewStore(mem, logging.Nop(), WithClock(c.now), WithTTL(time.Hour))

	store.Save(ctx, filledState())
	c.t = c.t.Add(61 * time.Minute)

	_, ok := store.Load(ctx)
	assert.False(t, ok)
}

func TestStore_OldDraftGetsDefaults(t *testing.T) {
	ctx := context.Background()
	mem := kvtest.NewMemory()
	c := &clock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewStore(mem, logging.Nop(), WithClock(c.now))

	// A draft written before tables and tags existed.
	mem.Put(SlotKey, []byte(`{"saved_at":"2026-03-01T07:00:00Z","state":{"category":"pothole","fields":null}}`))

	got, ok := store.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, "pothole", got.Category)
	assert.NotNil(t, got.Fields)
	assert.NotNil(t, got.Tables)
	assert.NotNil(t, got.Tags)

	got.AddTag("urgent")
	assert.Equal(t, []string{"urgent"}, got.TagList())
}

func TestStore_CorruptDraftIsDiscarded(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":  `{{{`,
		"bad state": `{"saved_at":"2026-03-01T07:00:00Z","state":{"tags":"urgent"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mem := kvtest.NewMemory()
			c := &clock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
			store := NewStore(mem, logging.Nop(), WithClock(c.now))
			mem.Put(SlotKey, []byte(raw))

			got, ok := store.Load(ctx)
			assert.False(t, ok)
			assert.Equal(t, models.NewFormState(), got)
			_, present := mem.Raw(SlotKey)
			assert.False(t, present)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	state := filledState()
	store.Save(ctx, state)
	store.Clear(ctx, state)

	assert.Equal(t, models.NewFormState(), state, "in-memory state must be reset")
	_, ok := store.Load(ctx)
	assert.False(t, ok)

	require.NotPanics(t, func() { store.Clear(ctx, nil) })
}

func TestStore_StorageFailuresAreLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	mem := kvtest.NewMemory()
	quota := errors.New("quota exceeded")
	mem.FailSet = func(string) error { return quota }
	mem.FailGet = func(string) error { return quota }
	mem.FailDelete = func(string) error { return quota }

	store := NewStore(mem, logging.NewZapLogger(zap.New(core)))

	state := filledState()
	require.NotPanics(t, func() { store.Save(ctx, state) })

	got, ok := store.Load(ctx)
	assert.False(t, ok)
	assert.Equal(t, models.NewFormState(), got)

	store.Clear(ctx, state)
	assert.Equal(t, models.NewFormState(), state)

	assert.Equal(t, 1, logs.FilterMessage("draft not saved").Len())
	assert.Equal(t, 1, logs.FilterMessage("draft not loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("draft not cleared").Len())
	assert.Equal(t, "drafts", logs.All()[0].ContextMap()["module"])
}
