// Package services wires the draft store, encoder, transport, fallback queue
// and sweeper into the submission flow the CLI drives.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldreport/internal/client/lifecycle"
	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/sweeper"
	"github.com/dmitrijs2005/fieldreport/internal/client/transport"
	"github.com/dmitrijs2005/fieldreport/internal/common"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
)

type DraftStore interface {
	Save(ctx context.Context, state *models.FormState)
	Load(ctx context.Context) (*models.FormState, bool)
	Clear(ctx context.Context, state *models.FormState)
}

type Encoder interface {
	Encode(state *models.FormState) (models.SubmissionRecord, error)
}

type Queue interface {
	Enqueue(ctx context.Context, rec models.SubmissionRecord) error
	ListPending(ctx context.Context) ([]string, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) sweeper.Report
}

// Status is the user-visible result of a submit that did not hard-fail.
type Status int

const (
	// StatusDelivered: the endpoint confirmed the record.
	StatusDelivered Status = iota + 1
	// StatusQueued: delivery failed, the record is saved locally and will be retried.
	StatusQueued
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusQueued:
		return "saved locally, will retry"
	default:
		return "unknown"
	}
}

type Result struct {
	Status  Status
	ID      string
	Outcome models.Outcome
	// Cause is why delivery failed when Status is StatusQueued.
	Cause error
	// State is the lifecycle state the submission ended in.
	State string
}

type SubmissionService interface {
	Resume(ctx context.Context) (*models.FormState, bool)
	SaveDraft(ctx context.Context, state *models.FormState)
	Submit(ctx context.Context, state *models.FormState) (Result, error)
	NewEntry(ctx context.Context, state *models.FormState)
	Pending(ctx context.Context) ([]string, error)
	Sweep(ctx context.Context) sweeper.Report
}

type submissionService struct {
	drafts    DraftStore
	encoder   Encoder
	transport transport.Submitter
	queue     Queue
	sweeper   Sweeper
	log       logging.Logger
}

func NewSubmissionService(d DraftStore, e Encoder, t transport.Submitter, q Queue, s Sweeper, log logging.Logger) SubmissionService {
	return &submissionService{drafts: d, encoder: e, transport: t, queue: q, sweeper: s, log: log.With("module", "submission")}
}

func (s *submissionService) Resume(ctx context.Context) (*models.FormState, bool) {
	return s.drafts.Load(ctx)
}

func (s *submissionService) SaveDraft(ctx context.Context, state *models.FormState) {
	s.drafts.Save(ctx, state)
}

// Submit encodes state and delivers it once. If delivery fails the record
// goes to the fallback queue and the result is StatusQueued. Only when
// queuing fails too does Submit return an error (wrapping
// common.ErrNotSaved); the draft is then kept.
func (s *submissionService) Submit(ctx context.Context, state *models.FormState) (Result, error) {
	tr := lifecycle.New(s.log)
	if err := tr.Fire(ctx, lifecycle.EventEncode); err != nil {
		return Result{}, err
	}

	rec, err := s.encoder.Encode(state)
	if err != nil {
		return Result{}, fmt.Errorf("encode submission: %w", err)
	}
	tr.SetID(rec.ID)

	if err := tr.Fire(ctx, lifecycle.EventSend); err != nil {
		return Result{}, err
	}

	out, sendErr := s.transport.Submit(ctx, rec)
	if sendErr == nil && out.OK {
		s.fire(ctx, tr, lifecycle.EventDeliver)
		s.drafts.Clear(ctx, state)
		return Result{Status: StatusDelivered, ID: rec.ID, Outcome: out, State: tr.State()}, nil
	}

	cause := sendErr
	if cause == nil {
		cause = fmt.Errorf("endpoint rejected submission: %s", out.Message)
	}
	s.log.Warn(ctx, "delivery failed, queueing", "id", rec.ID, "error", cause)

	if qErr := s.queue.Enqueue(ctx, rec); qErr != nil {
		s.fire(ctx, tr, lifecycle.EventFail)
		return Result{}, fmt.Errorf("%w: %w", common.ErrNotSaved, errors.Join(cause, qErr))
	}

	s.fire(ctx, tr, lifecycle.EventQueue)
	s.drafts.Clear(ctx, state)
	return Result{Status: StatusQueued, ID: rec.ID, Outcome: out, Cause: cause, State: tr.State()}, nil
}

func (s *submissionService) fire(ctx context.Context, tr *lifecycle.Tracker, event string) {
	if err := tr.Fire(ctx, event); err != nil {
		s.log.Error(ctx, "lifecycle transition rejected", "id", tr.ID(), "event", event, "state", tr.State(), "error", err)
	}
}

// NewEntry discards the current draft.
func (s *submissionService) NewEntry(ctx context.Context, state *models.FormState) {
	s.drafts.Clear(ctx, state)
}

func (s *submissionService) Pending(ctx context.Context) ([]string, error) {
	return s.queue.ListPending(ctx)
}

func (s *submissionService) Sweep(ctx context.Context) sweeper.Report {
	return s.sweeper.Sweep(ctx)
}
