package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/config"
	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/queue"
	"github.com/dmitrijs2005/fieldreport/internal/client/services"
	"github.com/dmitrijs2005/fieldreport/internal/client/sweeper"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
)

type fakeService struct {
	mu sync.Mutex

	resume *models.FormState
	saves  int
	last   models.FormState

	submitted  []models.FormState
	submitRes  services.Result
	submitErr  error
	newEntries int

	pending    []string
	pendingErr error
	report     sweeper.Report
	sweeps     int
}

func (f *fakeService) Resume(context.Context) (*models.FormState, bool) {
	return f.resume, f.resume != nil
}

func (f *fakeService) SaveDraft(_ context.Context, s *models.FormState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.last = *s
}

func (f *fakeService) Submit(_ context.Context, s *models.FormState) (services.Result, error) {
	f.submitted = append(f.submitted, *s)
	if f.submitErr != nil {
		return services.Result{}, f.submitErr
	}
	s.Reset()
	return f.submitRes, nil
}

func (f *fakeService) NewEntry(_ context.Context, s *models.FormState) {
	f.newEntries++
	s.Reset()
}

func (f *fakeService) Pending(context.Context) ([]string, error) {
	return f.pending, f.pendingErr
}

func (f *fakeService) Sweep(context.Context) sweeper.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return f.report
}

type fakeEndpoint struct {
	mu  sync.Mutex
	url string
}

func (e *fakeEndpoint) Endpoint() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

func (e *fakeEndpoint) SetEndpoint(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.url = url
}

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProber) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProber) Probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// fakeSweeper blocks until ctx is done, counting triggers.
type fakeSweeper struct {
	mu       sync.Mutex
	started  bool
	triggers int
}

func (s *fakeSweeper) Run(ctx context.Context, _ time.Duration, trigger <-chan struct{}) {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			s.mu.Lock()
			s.triggers++
			s.mu.Unlock()
		}
	}
}

type fakeRepairer struct {
	report queue.RepairReport
	err    error
}

func (r *fakeRepairer) Repair(context.Context) (queue.RepairReport, error) {
	return r.report, r.err
}

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OnlineCheckInterval = 0
	cfg.SweepInterval = 0
	return cfg
}

func newTestApp(svc *fakeService) *App {
	return newApp(testConfig(), Components{
		Service:  svc,
		Endpoint: &fakeEndpoint{url: "http://old/submit"},
		Prober:   &fakeProber{},
		Sweeper:  &fakeSweeper{},
		Queue:    &fakeRepairer{},
	}, logging.Nop())
}

// captureOutput replaces printlnFn and printFn and returns everything written.
func captureOutput(t *testing.T) func() string {
	t.Helper()
	var (
		mu  sync.Mutex
		buf strings.Builder
	)
	origPrintln, origPrint := printlnFn, printFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		buf.WriteString(fmt.Sprintln(a...))
		return 0, nil
	}
	printFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		buf.WriteString(fmt.Sprint(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn, printFn = origPrintln, origPrint })
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return buf.String()
	}
}
