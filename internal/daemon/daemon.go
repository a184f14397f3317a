package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"musicbot/internal/botapi"
	"musicbot/internal/commands"
	"musicbot/internal/config"
	"musicbot/internal/deps"
	"musicbot/internal/logging"
	"musicbot/internal/privilege"
	"musicbot/internal/transcode"
)

// LockFileName is created inside the log directory while a daemon runs.
const LockFileName = "musicbot.lock"

// Dispatcher handles inbound messages and reports per-command counters.
type Dispatcher interface {
	botapi.Dispatcher
	Stats() []commands.CommandStats
}

// PoolReporter exposes transcoder slot usage.
type PoolReporter interface {
	Stats() transcode.PoolStats
}

// UserLister enumerates provisioned workspaces.
type UserLister interface {
	Users() ([]int64, error)
}

// Options carries the collaborators the daemon wires together.
type Options struct {
	Dispatcher    Dispatcher
	Conversations botapi.ConversationFactory
	Pool          PoolReporter
	Privileges    privilege.Store
	Workspaces    UserLister
	// Dependencies reports external binaries for status; nil skips the check.
	Dependencies func(ctx context.Context) []deps.Status
}

// Daemon coordinates the bot services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	handler *botapi.Handler

	running   atomic.Bool
	startedAt atomic.Int64
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                    `json:"running"`
	PID          int                     `json:"pid"`
	StartedAt    time.Time               `json:"started_at,omitzero"`
	LockFilePath string                  `json:"lock_file"`
	DataDir      string                  `json:"data_dir"`
	Workspaces   int                     `json:"workspaces"`
	Admins       int                     `json:"admins"`
	Transcoder   transcode.PoolStats     `json:"transcoder"`
	Commands     []commands.CommandStats `json:"commands"`
	Dependencies []deps.Status           `json:"dependencies,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || logger == nil || opts.Dispatcher == nil || opts.Conversations == nil {
		return nil, errors.New("daemon requires config, logger, dispatcher, and conversation factory")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		opts:     opts,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins accepting bridge updates.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another musicbot daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.handler = botapi.NewHandler(d.ctx, botapi.Options{
		Token:         d.cfg.Bot.APIToken,
		Dispatcher:    d.opts.Dispatcher,
		Conversations: d.opts.Conversations,
		Status:        func(ctx context.Context) any { return d.Status(ctx) },
		Logger:        d.logger,
	})
	d.api = newAPIServer(d.cfg.Bot.APIBind, d.handler, d.logger)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		d.api = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("musicbot daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.Address()),
	)
	return nil
}

// Stop closes the listener, waits for in-flight updates, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.handler.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("musicbot daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Address reports the bound listener address, or "" when stopped.
func (d *Daemon) Address() string {
	if d.api == nil {
		return ""
	}
	return d.api.address()
}

// LockPath returns the flock file guarding single-instance execution.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		DataDir:      d.cfg.Paths.DataDir,
		Commands:     d.opts.Dispatcher.Stats(),
	}
	if started := d.startedAt.Load(); started > 0 && status.Running {
		status.StartedAt = time.Unix(0, started).UTC()
	}
	if d.opts.Pool != nil {
		status.Transcoder = d.opts.Pool.Stats()
	}
	if d.opts.Privileges != nil {
		status.Admins = len(d.opts.Privileges.List())
	}
	if d.opts.Workspaces != nil {
		users, err := d.opts.Workspaces.Users()
		if err != nil {
			d.logger.Warn("workspace listing failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "workspace_list_failed"),
				logging.String(logging.FieldImpact, "status reports zero workspaces"),
			)
		}
		status.Workspaces = len(users)
	}
	if d.opts.Dependencies != nil {
		status.Dependencies = d.opts.Dependencies(ctx)
	}
	return status
}
