package cli

import (
	"context"
	"fmt"
	"strings"
)

// Submit sends the current entry once. A failed delivery is reported as
// queued; only a double fault surfaces as an error and keeps the draft.
func (a *App) Submit(ctx context.Context) error {
	res, err := a.service.Submit(ctx, a.state)
	if err != nil {
		return fmt.Errorf("submission not saved, draft kept: %w", err)
	}

	printlnFn(fmt.Sprintf("Submission %s: %s", res.ID, res.Status))
	if res.Outcome.Message != "" {
		printlnFn("Server:", res.Outcome.Message)
	}
	if res.Cause != nil {
		printlnFn("Reason:", res.Cause)
	}
	return nil
}

func (a *App) New(ctx context.Context) error {
	a.service.NewEntry(ctx, a.state)
	printlnFn("Started a new entry")
	return nil
}

func (a *App) Pending(ctx context.Context) error {
	ids, err := a.service.Pending(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printlnFn("No pending submissions")
		return nil
	}
	printlnFn(fmt.Sprintf("%d pending:\n  %s", len(ids), strings.Join(ids, "\n  ")))
	return nil
}

func (a *App) Sweep(ctx context.Context) error {
	rep := a.service.Sweep(ctx)
	printlnFn(fmt.Sprintf("Sweep: attempted %d, delivered %d, failed %d, skipped %d, %d remaining",
		rep.Attempted, rep.Delivered, rep.Failed, rep.Skipped, len(rep.Remaining)))
	return nil
}

// Repair reconciles the queue index with the stored payloads.
func (a *App) Repair(ctx context.Context) error {
	rep, err := a.queue.Repair(ctx)
	if err != nil {
		return err
	}
	if !rep.Changed() {
		printlnFn("Queue is consistent")
	} else {
		printlnFn(fmt.Sprintf("Repaired queue: dropped ids %v, deleted payloads %v, index rebuilt: %t",
			rep.DroppedIDs, rep.DeletedPayloads, rep.RebuiltIndex))
	}
	if len(rep.Stuck) > 0 {
		printlnFn(fmt.Sprintf("Failing repeatedly (kept, retried on every sweep): %s", strings.Join(rep.Stuck, ", ")))
	}
	return nil
}
