// Package sweeper replays the fallback queue against the transport.
//
// A sweep snapshots the pending ids, then visits them one at a time:
// load, submit once, remove on confirmed success. A failure of one entry
// never stops the others. Entries whose payload is missing or corrupt are
// skipped and left for queue.Repair.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/lifecycle"
	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/transport"
	"github.com/dmitrijs2005/fieldreport/internal/common"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Queue is the part of queue.Queue the sweeper needs.
type Queue interface {
	ListPending(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (models.PendingEntry, error)
	Remove(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, cause string) error
}

// Report summarizes one sweep.
type Report struct {
	Attempted int
	Delivered int
	Failed    int
	Skipped   int
	Remaining []string
}

type Sweeper struct {
	queue     Queue
	transport transport.Submitter
	log       logging.Logger
	group     singleflight.Group
}

func New(q Queue, t transport.Submitter, log logging.Logger) *Sweeper {
	return &Sweeper{queue: q, transport: t, log: log.With("module", "sweeper")}
}

// SweepOnce runs one pass. It never returns an error; problems are logged
// and reflected in the report.
func (s *Sweeper) SweepOnce(ctx context.Context) Report {
	ids, err := s.queue.ListPending(ctx)
	if err != nil {
		s.log.Error(ctx, "sweep: cannot list pending", "error", err)
		return Report{Remaining: []string{}}
	}

	rep := Report{Remaining: make([]string, 0, len(ids))}
	for i, id := range ids {
		if ctx.Err() != nil {
			s.log.Info(ctx, "sweep interrupted", "visited", i, "pending", len(ids))
			rep.Remaining = append(rep.Remaining, ids[i:]...)
			break
		}
		if s.visit(ctx, id, &rep) {
			continue
		}
		rep.Remaining = append(rep.Remaining, id)
	}

	if len(ids) > 0 {
		s.log.Info(ctx, "sweep finished",
			"attempted", rep.Attempted, "delivered", rep.Delivered,
			"failed", rep.Failed, "skipped", rep.Skipped, "remaining", len(rep.Remaining))
	}
	return rep
}

// visit handles one id and reports whether it left the queue.
func (s *Sweeper) visit(ctx context.Context, id string, rep *Report) bool {
	entry, err := s.queue.Load(ctx, id)
	if err != nil {
		rep.Skipped++
		switch {
		case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrCorrupt):
			s.log.Warn(ctx, "sweep: skipping unusable entry", "id", id, "error", err)
		default:
			s.log.Error(ctx, "sweep: cannot load entry", "id", id, "error", err)
		}
		return false
	}

	tr := lifecycle.Resume(id, s.log)
	s.fire(ctx, tr, lifecycle.EventSend)
	rep.Attempted++

	out, err := s.transport.Submit(ctx, entry.Record)
	if err != nil || !out.OK {
		rep.Failed++
		s.fire(ctx, tr, lifecycle.EventQueue)
		cause := out.Message
		if err != nil {
			cause = err.Error()
		}
		s.log.Info(ctx, "sweep: delivery failed, kept", "id", id, "attempts", entry.Attempts+1, "error", cause)
		if mErr := s.queue.MarkFailed(ctx, id, cause); mErr != nil {
			s.log.Error(ctx, "sweep: cannot record failed attempt", "id", id, "error", mErr)
		}
		return false
	}

	rep.Delivered++
	s.fire(ctx, tr, lifecycle.EventDeliver)
	if err := s.queue.Remove(ctx, id); err != nil {
		// Delivered but still listed; the next sweep sends it again.
		s.log.Error(ctx, "sweep: delivered but not removed", "id", id, "error", err)
		return false
	}
	return true
}

func (s *Sweeper) fire(ctx context.Context, tr *lifecycle.Tracker, event string) {
	if err := tr.Fire(ctx, event); err != nil {
		s.log.Error(ctx, "sweep: lifecycle transition rejected", "id", tr.ID(), "event", event, "state", tr.State(), "error", err)
	}
}

// Sweep runs SweepOnce, sharing one in-flight pass among concurrent callers
// so sweeps never overlap.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	v, _, _ := s.group.Do("sweep", func() (any, error) {
		return s.SweepOnce(ctx), nil
	})
	return v.(Report)
}

// Run sweeps once at start, then every interval (0 disables the ticker) and
// on every trigger, until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, trigger <-chan struct{}) {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.Sweep(ctx)
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			s.Sweep(ctx)
		}
	}
}
