package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/config"
	"github.com/dmitrijs2005/fieldreport/internal/client/drafts"
	"github.com/dmitrijs2005/fieldreport/internal/client/encoder"
	"github.com/dmitrijs2005/fieldreport/internal/client/localdb"
	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/client/queue"
	"github.com/dmitrijs2005/fieldreport/internal/client/repositories/kv"
	"github.com/dmitrijs2005/fieldreport/internal/client/services"
	"github.com/dmitrijs2005/fieldreport/internal/client/sweeper"
	"github.com/dmitrijs2005/fieldreport/internal/client/transport"
	"github.com/dmitrijs2005/fieldreport/internal/filex"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const probeTimeout = 3 * time.Second

// Endpoint is the part of the transport the app reconfigures on reload.
type Endpoint interface {
	Endpoint() string
	SetEndpoint(url string)
}

// SweepRunner runs the background sweep loop.
type SweepRunner interface {
	Run(ctx context.Context, interval time.Duration, trigger <-chan struct{})
}

// Repairer checks the fallback queue for inconsistencies.
type Repairer interface {
	Repair(ctx context.Context) (queue.RepairReport, error)
}

// Components are the collaborators NewApp wires from the config.
type Components struct {
	Service  services.SubmissionService
	Endpoint Endpoint
	Prober   transport.Prober
	Sweeper  SweepRunner
	Queue    Repairer
	Closers  []func() error
}

type App struct {
	config     *config.Config
	configPath string
	service    services.SubmissionService
	endpoint   Endpoint
	prober     transport.Prober
	sweeper    SweepRunner
	queue      Repairer
	closers    []func() error
	log        logging.Logger

	state   *models.FormState
	trigger chan struct{}

	mu   sync.RWMutex
	Mode Mode
}

// NewApp opens the local database and builds the submission pipeline
// described by c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if _, err := filex.EnsureParentDir(c.DatabaseDSN); err != nil {
		return nil, err
	}

	db, err := localdb.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	closers := []func() error{db.Close}

	schema := encoder.DefaultSchema()
	if c.SchemaFile != "" {
		if schema, err = encoder.LoadSchemaFile(c.SchemaFile); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	store := kv.NewSQLiteStore(db)
	hc := transport.NewHTTPClient(c.EndpointURL, log,
		transport.WithTimeout(c.RequestTimeout),
		transport.WithBodyMode(c.BodyMode),
	)
	q := queue.New(store, log, queue.WithLimits(c.MaxPending, c.WarnPending))
	sw := sweeper.New(q, hc, log)
	svc := services.NewSubmissionService(
		drafts.NewStore(store, log, drafts.WithTTL(c.DraftTTL)),
		encoder.NewEncoder(schema),
		hc, q, sw, log,
	)

	var prober transport.Prober = transport.NewHTTPProbe(hc)
	if c.HealthCheckAddr != "" {
		gp, err := transport.NewGRPCHealthProbe(c.HealthCheckAddr, "")
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		prober = gp
		closers = append(closers, gp.Close)
	}

	a := newApp(c, Components{
		Service:  svc,
		Endpoint: hc,
		Prober:   prober,
		Sweeper:  sw,
		Queue:    q,
		Closers:  closers,
	}, log)
	a.configPath = config.Path()
	return a, nil
}

func newApp(c *config.Config, comp Components, log logging.Logger) *App {
	return &App{
		config:   c,
		service:  comp.Service,
		endpoint: comp.Endpoint,
		prober:   comp.Prober,
		sweeper:  comp.Sweeper,
		queue:    comp.Queue,
		closers:  comp.Closers,
		log:      log.With("module", "cli"),
		state:    models.NewFormState(),
		trigger:  make(chan struct{}, 1),
	}
}

// setMode switches the connectivity mode and returns the previous one.
func (a *App) setMode(mode Mode) Mode {
	a.mu.Lock()
	prev := a.Mode
	a.Mode = mode
	a.mu.Unlock()

	if prev != mode {
		a.log.Info(context.Background(), fmt.Sprintf("Switched to %s mode", mode))
	}
	return prev
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

// triggerSweep asks the background sweeper for an extra pass. A request
// already waiting absorbs this one.
func (a *App) triggerSweep() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

// Resume restores the draft left by a previous session, if it is still fresh.
func (a *App) Resume(ctx context.Context) bool {
	state, ok := a.service.Resume(ctx)
	if ok {
		a.state = state
	}
	return ok
}

// Run resumes the draft, starts the background workers and blocks in the
// REPL until the user exits or in is exhausted.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	if a.Resume(ctx) {
		printlnFn("Resumed unsent draft (type 'show' to review, 'new' to discard)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.StartOnlineStatusWatcher(gctx, a.config.OnlineCheckInterval)
		return nil
	})
	g.Go(func() error {
		a.sweeper.Run(gctx, a.config.SweepInterval, a.trigger)
		return nil
	})
	if a.configPath != "" {
		g.Go(func() error {
			if err := config.Watch(gctx, a.configPath, a.log, a.reload); err != nil {
				a.log.Warn(gctx, "config watcher stopped", "error", err)
			}
			return nil
		})
	}

	a.Root(gctx, in)
	cancel()
	return g.Wait()
}

// reload applies a changed config file. Only the endpoint is live-reloadable.
func (a *App) reload(fc *config.FileConfig) {
	if fc.EndpointURL == "" || fc.EndpointURL == a.endpoint.Endpoint() {
		return
	}
	a.endpoint.SetEndpoint(fc.EndpointURL)
	a.log.Info(context.Background(), "endpoint updated", "endpoint", fc.EndpointURL)
	a.triggerSweep()
}

// Close releases the database and probe connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartOnlineStatusWatcher probes the endpoint every interval and keeps
// Mode current. Coming back online triggers a sweep.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := a.prober.Probe(pctx)
	cancel()

	if err != nil {
		a.log.Debug(ctx, "probe failed", "error", err)
		a.setMode(ModeOffline)
		return
	}
	if prev := a.setMode(ModeOnline); prev == ModeOffline {
		a.triggerSweep()
	}
}
