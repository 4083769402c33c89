// Package daemon ties the stores, workflow manager, and HTTP API together
// and enforces single-instance execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vocalis/internal/config"
	"vocalis/internal/identity"
	"vocalis/internal/keystore"
	"vocalis/internal/logging"
	"vocalis/internal/notifications"
	"vocalis/internal/queue"
	"vocalis/internal/stage"
	"vocalis/internal/workflow"
)

// Daemon coordinates the background processing services.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	users    *identity.Store
	keys     *keystore.Store
	exchange *keystore.Exchange
	registry *identity.Registrar
	dir      *identity.Directory
	workflow *workflow.Manager
	notifier notifications.Service

	api *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Deps bundles the services the daemon wires together.
type Deps struct {
	Store     *queue.Store
	Users     *identity.Store
	Keys      *keystore.Store
	Exchange  *keystore.Exchange
	Registrar *identity.Registrar
	Directory *identity.Directory
	Workflow  *workflow.Manager
	Notifier  notifications.Service
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	QueueDBPath  string              `json:"queue_db_path"`
	LockFilePath string              `json:"lock_file_path"`
	Queue        queue.HealthSummary `json:"queue"`
	Stages       []stage.Health      `json:"stages"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Workflow == nil {
		return nil, errors.New("daemon requires config, queue store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.LogDir, "vocalisd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:    deps.Store,
		users:    deps.Users,
		keys:     deps.Keys,
		exchange: deps.Exchange,
		registry: deps.Registrar,
		dir:      deps.Directory,
		workflow: deps.Workflow,
		notifier: deps.Notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the workflow manager and API
// server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vocalis daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if _, err := d.store.ResetStuckProcessing(runCtx); err != nil {
		d.logger.Warn("could not reset stuck jobs", logging.Error(err))
	}

	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.workflow.Stop()
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("vocalis daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vocalis daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	if d.users != nil {
		errs = append(errs, d.users.Close())
	}
	if d.keys != nil {
		errs = append(errs, d.keys.Close())
	}
	return errors.Join(errs...)
}

// APIAddr returns the bound API listen address, or empty when the API server
// is not running.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health query failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        summary,
		Stages:       d.workflow.HealthChecks(ctx),
	}
}

// ListQueue returns queue jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}
