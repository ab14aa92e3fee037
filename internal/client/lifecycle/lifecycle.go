// Package lifecycle tracks one submission through
// draft -> encoding -> submitting -> delivered | queued | failed,
// and queued -> submitting again on every retry.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/looplab/fsm"
)

const (
	StateDraft      = "draft"
	StateEncoding   = "encoding"
	StateSubmitting = "submitting"
	StateDelivered  = "delivered"
	StateQueued     = "queued"
	StateFailed     = "failed"
)

const (
	EventEncode  = "encode"
	EventSend    = "send"
	EventDeliver = "deliver"
	EventQueue   = "queue"
	EventFail    = "fail"
)

var events = fsm.Events{
	{Name: EventEncode, Src: []string{StateDraft}, Dst: StateEncoding},
	{Name: EventSend, Src: []string{StateEncoding, StateQueued}, Dst: StateSubmitting},
	{Name: EventDeliver, Src: []string{StateSubmitting}, Dst: StateDelivered},
	{Name: EventQueue, Src: []string{StateSubmitting}, Dst: StateQueued},
	{Name: EventFail, Src: []string{StateSubmitting}, Dst: StateFailed},
}

// Tracker is the state machine of a single submission. Not safe for
// concurrent use.
type Tracker struct {
	id  string
	m   *fsm.FSM
	log logging.Logger
}

// New starts a tracker for a fresh entry in the draft state.
func New(log logging.Logger) *Tracker {
	return newTracker("", StateDraft, log)
}

// Resume starts a tracker for an entry already in the fallback queue.
func Resume(id string, log logging.Logger) *Tracker {
	return newTracker(id, StateQueued, log)
}

func newTracker(id, initial string, log logging.Logger) *Tracker {
	t := &Tracker{id: id, log: log.With("module", "lifecycle")}
	t.m = fsm.NewFSM(initial, events, fsm.Callbacks{
		"enter_state": func(ctx context.Context, e *fsm.Event) {
			t.log.Debug(ctx, "submission state changed", "id", t.id, "event", e.Event, "from", e.Src, "to", e.Dst)
		},
		"enter_" + StateDelivered: func(ctx context.Context, e *fsm.Event) {
			t.log.Info(ctx, "submission delivered", "id", t.id)
		},
		"enter_" + StateFailed: func(ctx context.Context, e *fsm.Event) {
			t.log.Error(ctx, "submission neither delivered nor saved", "id", t.id)
		},
	})
	return t
}

// SetID attaches the record id once the encoder has assigned it.
func (t *Tracker) SetID(id string) { t.id = id }

func (t *Tracker) ID() string { return t.id }

func (t *Tracker) State() string { return t.m.Current() }

// Terminal reports whether no further event is possible.
func (t *Tracker) Terminal() bool {
	s := t.m.Current()
	return s == StateDelivered || s == StateFailed
}

// Fire applies event. An event that is not allowed in the current state is
// an error and leaves the state unchanged.
func (t *Tracker) Fire(ctx context.Context, event string) error {
	if err := t.m.Event(ctx, event); err != nil {
		return fmt.Errorf("submission %s: %w", t.id, err)
	}
	return nil
}
