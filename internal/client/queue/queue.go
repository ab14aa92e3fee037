package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/repositories/kv"
	"github.com/dmitrijs2005/fieldreport/internal/common"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
)

const (
	IndexKey   = "pending/index"
	ItemPrefix = "pending/item/"
)

func itemKey(id string) string { return ItemPrefix + id }

type Queue struct {
	repo kv.Repository
	tx   kv.Transactor

	maxPending  int
	warnPending int
	stuckAfter  int

	now func() time.Time
	log logging.Logger
}

type Option func(*Queue)

// WithLimits sets the hard cap and the warning threshold (0 disables either).
func WithLimits(maxPending, warnPending int) Option {
	return func(q *Queue) {
		q.maxPending = maxPending
		q.warnPending = warnPending
	}
}

// DefaultStuckAfter is the number of failed sweep deliveries after which an
// entry is reported as stuck.
const DefaultStuckAfter = 5

// WithStuckAfter sets how many failed deliveries make an entry stuck
// (0 disables the report).
func WithStuckAfter(n int) Option {
	return func(q *Queue) { q.stuckAfter = n }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New builds a Queue over repo. If repo is also a kv.Transactor, multi-key
// updates run in a transaction.
func New(repo kv.Repository, log logging.Logger, opts ...Option) *Queue {
	q := &Queue{repo: repo, stuckAfter: DefaultStuckAfter, now: time.Now, log: log.With("module", "queue")}
	if tx, ok := repo.(kv.Transactor); ok {
		q.tx = tx
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// update runs fn in a transaction when possible, otherwise directly.
func (q *Queue) update(ctx context.Context, fn func(ctx context.Context, r kv.Repository) error) error {
	if q.tx != nil {
		return q.tx.InTx(ctx, fn)
	}
	return fn(ctx, q.repo)
}

func readIndex(ctx context.Context, r kv.Repository) ([]string, error) {
	b, err := r.Get(ctx, IndexKey)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("pending index: %w: %v", common.ErrCorrupt, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func writeIndex(ctx context.Context, r kv.Repository, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.Set(ctx, IndexKey, b)
}

// Enqueue persists rec and appends its id to the index. Enqueuing an id that
// is already pending replaces its payload and keeps its position.
func (q *Queue) Enqueue(ctx context.Context, rec models.SubmissionRecord) error {
	if rec.ID == "" {
		return errors.New("enqueue: record has no id")
	}

	digest, err := Digest(rec)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", rec.ID, err)
	}
	payload, err := json.Marshal(models.PendingEntry{Record: rec, StoredAt: q.now().UTC(), Digest: digest})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", rec.ID, err)
	}

	var pending int
	err = q.update(ctx, func(ctx context.Context, r kv.Repository) error {
		ids, err := readIndex(ctx, r)
		if err != nil {
			return err
		}

		queued := slices.Contains(ids, rec.ID)
		if !queued && q.maxPending > 0 && len(ids) >= q.maxPending {
			return fmt.Errorf("%w: %d entries", common.ErrQueueFull, len(ids))
		}

		if err := r.Set(ctx, itemKey(rec.ID), payload); err != nil {
			return err
		}
		if queued {
			pending = len(ids)
			return nil
		}

		ids = append(ids, rec.ID)
		pending = len(ids)
		return writeIndex(ctx, r, ids)
	})
	if err != nil {
		q.log.Error(ctx, "enqueue failed", "id", rec.ID, "error", err)
		return fmt.Errorf("enqueue %s: %w", rec.ID, err)
	}

	q.log.Info(ctx, "submission queued", "id", rec.ID, "pending", pending)
	if q.warnPending > 0 && pending >= q.warnPending {
		stuck, err := q.Stuck(ctx)
		if err != nil {
			q.log.Error(ctx, "cannot list stuck entries", "error", err)
		}
		q.log.Warn(ctx, "pending queue is growing",
			"pending", pending, "warn_at", q.warnPending, "max", q.maxPending, "stuck", stuck)
	}
	return nil
}

// MarkFailed records a failed delivery of id: Attempts is incremented and
// LastError replaced. A missing or unreadable payload is left alone and
// reported as an error.
func (q *Queue) MarkFailed(ctx context.Context, id, cause string) error {
	var attempts int
	err := q.update(ctx, func(ctx context.Context, r kv.Repository) error {
		raw, err := r.Get(ctx, itemKey(id))
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("pending %s: %w", id, common.ErrNotFound)
		}
		e, err := decodeEntry(id, raw)
		if err != nil {
			return err
		}
		e.Attempts++
		e.LastError = cause
		attempts = e.Attempts

		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return r.Set(ctx, itemKey(id), b)
	})
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", id, err)
	}
	if q.stuckAfter > 0 && attempts == q.stuckAfter {
		q.log.Warn(ctx, "pending entry keeps failing", "id", id, "attempts", attempts, "last_error", cause)
	}
	return nil
}

// Stuck returns, in queue order, the pending ids whose failed delivery count
// reached the stuck threshold. Unreadable entries are not included.
func (q *Queue) Stuck(ctx context.Context) ([]string, error) {
	r := q.repo
	out := []string{}
	if q.stuckAfter <= 0 {
		return out, nil
	}
	ids, err := readIndex(ctx, r)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		raw, err := r.Get(ctx, itemKey(id))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			continue
		}
		if e, err := decodeEntry(id, raw); err == nil && e.Attempts >= q.stuckAfter {
			out = append(out, id)
		}
	}
	return out, nil
}

// ListPending returns the pending ids in enqueue order.
func (q *Queue) ListPending(ctx context.Context) ([]string, error) {
	return readIndex(ctx, q.repo)
}

// Count returns the number of pending ids.
func (q *Queue) Count(ctx context.Context) (int, error) {
	ids, err := readIndex(ctx, q.repo)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Load returns the verified entry for id.
func (q *Queue) Load(ctx context.Context, id string) (models.PendingEntry, error) {
	raw, err := q.repo.Get(ctx, itemKey(id))
	if err != nil {
		return models.PendingEntry{}, err
	}
	if raw == nil {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w", id, common.ErrNotFound)
	}
	return decodeEntry(id, raw)
}

func decodeEntry(id string, raw []byte) (models.PendingEntry, error) {
	if err := validateShape(raw); err != nil {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w: %v", id, common.ErrCorrupt, err)
	}

	var e models.PendingEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w: %v", id, common.ErrCorrupt, err)
	}
	if e.Record.ID != id {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w: holds record %q", id, common.ErrCorrupt, e.Record.ID)
	}

	digest, err := Digest(e.Record)
	if err != nil {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w: %v", id, common.ErrCorrupt, err)
	}
	if digest != e.Digest {
		return models.PendingEntry{}, fmt.Errorf("pending %s: %w: digest mismatch", id, common.ErrCorrupt)
	}
	return e, nil
}

// Remove drops id from the index and deletes its payload. Call it only after
// a confirmed delivery.
func (q *Queue) Remove(ctx context.Context, id string) error {
	err := q.update(ctx, func(ctx context.Context, r kv.Repository) error {
		ids, err := readIndex(ctx, r)
		if err != nil {
			return err
		}
		if kept := without(ids, id); len(kept) != len(ids) {
			if err := writeIndex(ctx, r, kept); err != nil {
				return err
			}
		}
		return r.Delete(ctx, itemKey(id))
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// RepairReport lists what Repair changed. Stuck names entries that keep
// failing delivery; Repair never removes them.
type RepairReport struct {
	DroppedIDs      []string
	DeletedPayloads []string
	RebuiltIndex    bool
	Stuck           []string
}

func (r RepairReport) Changed() bool {
	return r.RebuiltIndex || len(r.DroppedIDs) > 0 || len(r.DeletedPayloads) > 0
}

// Repair reconciles index and payloads: ids without a payload and duplicate
// ids are dropped, payloads no id references are deleted. An unreadable
// index is rebuilt from the stored payloads, oldest first.
func (q *Queue) Repair(ctx context.Context) (RepairReport, error) {
	var rep RepairReport
	err := q.update(ctx, func(ctx context.Context, r kv.Repository) error {
		rep = RepairReport{}

		keys, err := r.Keys(ctx, ItemPrefix)
		if err != nil {
			return err
		}
		payloads := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			payloads[k[len(ItemPrefix):]] = struct{}{}
		}

		ids, err := readIndex(ctx, r)
		if errors.Is(err, common.ErrCorrupt) {
			rep.RebuiltIndex = true
			ids, err = q.rebuildIndex(ctx, r, keys)
			if err != nil {
				return err
			}
			return writeIndex(ctx, r, ids)
		}
		if err != nil {
			return err
		}

		kept := make([]string, 0, len(ids))
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			_, dup := seen[id]
			_, ok := payloads[id]
			if dup || !ok {
				rep.DroppedIDs = append(rep.DroppedIDs, id)
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, id)
		}

		for _, k := range keys {
			id := k[len(ItemPrefix):]
			if _, ok := seen[id]; ok {
				continue
			}
			if err := r.Delete(ctx, k); err != nil {
				return err
			}
			rep.DeletedPayloads = append(rep.DeletedPayloads, id)
		}

		if len(rep.DroppedIDs) > 0 {
			return writeIndex(ctx, r, kept)
		}
		return nil
	})
	if err != nil {
		return RepairReport{}, fmt.Errorf("repair: %w", err)
	}

	stuck, err := q.Stuck(ctx)
	if err != nil {
		return RepairReport{}, fmt.Errorf("repair: %w", err)
	}
	if len(stuck) > 0 {
		rep.Stuck = stuck
		q.log.Warn(ctx, "pending entries keep failing", "stuck", stuck)
	}
	if rep.Changed() {
		q.log.Warn(ctx, "pending queue repaired",
			"dropped_ids", rep.DroppedIDs, "deleted_payloads", rep.DeletedPayloads, "rebuilt_index", rep.RebuiltIndex)
	}
	return rep, nil
}

// rebuildIndex orders stored payloads by StoredAt; unreadable payloads keep
// their slot at the end so the sweeper reports them.
func (q *Queue) rebuildIndex(ctx context.Context, r kv.Repository, keys []string) ([]string, error) {
	type item struct {
		id       string
		storedAt time.Time
		ok       bool
	}
	items := make([]item, 0, len(keys))
	for _, k := range keys {
		id := k[len(ItemPrefix):]
		raw, err := r.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		it := item{id: id}
		if e, err := decodeEntry(id, raw); err == nil {
			it.storedAt, it.ok = e.StoredAt, true
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].storedAt.Before(items[j].storedAt)
	})

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
