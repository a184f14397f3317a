package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"musicbot/internal/bridge"
	"musicbot/internal/commands"
	"musicbot/internal/config"
	"musicbot/internal/daemon"
	"musicbot/internal/deps"
	"musicbot/internal/logging"
	"musicbot/internal/logs"
	"musicbot/internal/preflight"
	"musicbot/internal/scratch"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the musicbot daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("musicbot-%s.log", time.Now().UTC().Format("20060102T150405.000Z")))
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{logPath},
		Development:      opts.Development,
		RunID:            runID,
		Secrets:          []string{cfg.Bot.Token, cfg.Bot.APIToken},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update musicbot.log link: %v\n", err)
	}
	if removed := logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath); removed > 0 {
		logger.Info("pruned old logs", logging.Int("removed", removed))
	}

	if cfg.TokenIsPlaceholder() {
		logging.WarnWithContext(logger, "bot token is still the sample placeholder", "placeholder_token",
			logging.String(logging.FieldErrorHint, "set bot.token or MUSICBOT_TOKEN"),
			logging.String(logging.FieldImpact, "bridge calls will be rejected"),
		)
	}
	if err := checkReadiness(signalCtx, cfg, logger); err != nil {
		return err
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "musicbot.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	svc := Assemble(cfg, logger)
	sweepScratch(signalCtx, svc, logger)
	client := bridge.NewClient(cfg.Bot.BridgeURL, cfg.Bot.Token, cfg.BridgeTimeout(), logger)
	dispatcher := commands.NewDispatcher(commands.Options{
		Workspaces: svc.Workspaces,
		Configs:    svc.Configs,
		Assets:     svc.Assets,
		Audio:      svc.Pipeline,
		Privileges: svc.Privileges,
		Messages:   svc.Messages,
		Logger:     logger,
	})

	d, err := daemon.New(cfg, logger, daemon.Options{
		Dispatcher: dispatcher,
		Conversations: func(chatID, messageID int64) commands.Conversation {
			return bridge.NewChat(client, chatID, messageID)
		},
		Pool:       svc.Pool,
		Privileges: svc.Privileges,
		Workspaces: svc.Workspaces,
		Dependencies: func(ctx context.Context) []deps.Status {
			return preflight.CheckSystemDeps(ctx, cfg)
		},
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bot.api_bind and that no other daemon holds the lock"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("musicbot daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// checkReadiness logs every preflight result. A missing transcoder is fatal;
// other failures are warnings because the daemon can still answer commands.
func checkReadiness(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, cfg)
	var fatal error
	for _, result := range results {
		if result.Passed {
			logger.Info("preflight check passed",
				logging.String(logging.FieldEventType, "preflight_passed"),
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		if result.Name == "Transcoder" {
			logging.ErrorWithContext(logger, "transcoder unavailable", "transcoder_missing",
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "install ffmpeg or set transcoder.ffmpeg_binary"),
			)
			fatal = errors.New("transcoder unavailable: " + result.Detail)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "see musicbot status for details"),
		)
	}
	return fatal
}

// sweepScratch reclaims submission directories orphaned by a previous process.
func sweepScratch(ctx context.Context, svc *Services, logger *slog.Logger) {
	users, err := svc.Workspaces.Users()
	if err != nil {
		logging.WarnWithContext(logger, "scratch sweep skipped", "scratch_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions"),
		)
		return
	}
	removed := 0
	for _, userID := range users {
		result := scratch.Sweep(ctx, svc.Workspaces.ScratchDir(userID), scratch.DefaultRetainedMaxAge, logger)
		removed += len(result.Removed)
	}
	if removed > 0 {
		logger.Info("scratch sweep complete",
			logging.String(logging.FieldEventType, "scratch_cleanup_summary"),
			logging.Int("removed", removed),
			logging.Int("workspaces", len(users)),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logs.CurrentFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
