package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"musicbot/internal/assets"
	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/messages"
	"musicbot/internal/pipeline"
	"musicbot/internal/privilege"
	"musicbot/internal/services"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

// Command names.
const (
	CommandStart  = "start"
	CommandHelp   = "help"
	CommandConfig = "config"
	CommandUpload = "upload"
	CommandAdmin  = "admin"
	CommandAudio  = "audio"
)

// Workspaces prepares and locates user workspaces.
type Workspaces interface {
	Ensure(ctx context.Context, userID int64) (bool, error)
	Locate(userID int64, kind workspace.Kind) string
}

// Configs reads and replaces user config documents.
type Configs interface {
	ReadRaw(ctx context.Context, userID int64) ([]byte, error)
	Replace(ctx context.Context, userID int64, candidate []byte) (userconfig.Document, error)
}

// Assets commits uploaded files into slots.
type Assets interface {
	Store(ctx context.Context, userID int64, kind string, src media.Source, fetcher media.Fetcher) (assets.Slot, error)
}

// AudioProcessor runs audio submissions.
type AudioProcessor interface {
	Process(ctx context.Context, sub pipeline.Submission) pipeline.Outcome
}

// Options wires a Dispatcher.
type Options struct {
	Workspaces Workspaces
	Configs    Configs
	Assets     Assets
	Audio      AudioProcessor
	Privileges privilege.Store
	Messages   *messages.Catalog
	Logger     *slog.Logger
}

// Dispatcher routes messages to handlers.
type Dispatcher struct {
	workspaces Workspaces
	configs    Configs
	assets     Assets
	audio      AudioProcessor
	privileges privilege.Store
	messages   *messages.Catalog
	logger     *slog.Logger

	mu      sync.Mutex
	handled map[string]int64
	failed  map[string]int64
}

// NewDispatcher builds a dispatcher from opts.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		workspaces: opts.Workspaces,
		configs:    opts.Configs,
		assets:     opts.Assets,
		audio:      opts.Audio,
		privileges: opts.Privileges,
		messages:   opts.Messages,
		logger:     logging.NewComponentLogger(opts.Logger, "commands"),
		handled:    make(map[string]int64),
		failed:     make(map[string]int64),
	}
	if d.messages == nil {
		d.messages = messages.New("en")
	}
	if d.privileges == nil {
		d.privileges = privilege.NewMemory()
	}
	return d
}

// replyError carries the localized reply for a failed handler.
type replyError struct {
	key  messages.Key
	args []any
	err  error
}

func (e *replyError) Error() string {
	if e.err == nil {
		return string(e.key)
	}
	return fmt.Sprintf("%s: %v", e.key, e.err)
}

func (e *replyError) Unwrap() error { return e.err }

func failWith(key messages.Key, err error, args ...any) error {
	return &replyError{key: key, args: args, err: err}
}

type handlerFunc func(ctx context.Context, msg Message, conv Conversation, args []string) error

// Handle routes msg. It never returns an error: failures are logged and
// answered in the chat.
func (d *Dispatcher) Handle(ctx context.Context, msg Message, conv Conversation) {
	name, args, handler := d.route(msg)
	if handler == nil {
		d.logger.Debug("message ignored", logging.Int64(logging.FieldUserID, msg.UserID))
		return
	}
	ctx = services.WithCommand(services.WithUserID(ctx, msg.UserID), name)
	logger := logging.WithContext(ctx, d.logger)

	defer func() {
		if r := recover(); r != nil {
			d.count(name, true)
			logging.ErrorWithContext(logger, "handler panicked", "handler_panic",
				logging.String(logging.FieldErrorHint, "report this message; the process kept running"),
				logging.Any("panic", r),
			)
			_ = conv.Reply(context.WithoutCancel(ctx), d.messages.Text(messages.AudioFailed))
		}
	}()

	err := handler(ctx, msg, conv, args)
	d.count(name, err != nil)
	if err == nil {
		return
	}
	d.reportFailure(ctx, logger, conv, err)
}

func (d *Dispatcher) route(msg Message) (string, []string, handlerFunc) {
	if cmd, ok := parseCommand(msg.directive()); ok {
		switch cmd.name {
		case CommandStart:
			return cmd.name, cmd.args, d.handleStart
		case CommandHelp:
			return cmd.name, cmd.args, d.handleHelp
		case CommandConfig:
			return cmd.name, cmd.args, d.handleConfig
		case CommandUpload:
			return cmd.name, cmd.args, d.handleUpload
		case CommandAdmin:
			if !msg.Private {
				return "", nil, nil
			}
			return cmd.name, cmd.args, d.handleAdmin
		}
	}
	if msg.Audio != nil {
		return CommandAudio, nil, d.handleAudio
	}
	return "", nil, nil
}

func (d *Dispatcher) reportFailure(ctx context.Context, logger *slog.Logger, conv Conversation, err error) {
	key := messages.AudioFailed
	var args []any
	var reply *replyError
	if errors.As(err, &reply) {
		key, args = reply.key, reply.args
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorKind, services.ErrorKind(err)),
		logging.Error(err),
	}
	if services.Recoverable(err) {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "the user was told how to retry"))
		logging.WarnWithContext(logger, "command rejected", "command_failed", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "check workspace permissions and bridge connectivity"))
		logging.ErrorWithContext(logger, "command failed", "command_failed", attrs...)
	}
	if replyErr := conv.Reply(context.WithoutCancel(ctx), d.messages.Text(key, args...)); replyErr != nil {
		logger.Warn("failure reply not sent",
			logging.String(logging.FieldEventType, "reply_failed"),
			logging.String(logging.FieldErrorHint, "check bridge connectivity"),
			logging.Error(replyErr),
		)
	}
}

func (d *Dispatcher) count(name string, failed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled[name]++
	if failed {
		d.failed[name]++
	}
}

// CommandStats counts handled messages per command.
type CommandStats struct {
	Command string `json:"command"`
	Handled int64  `json:"handled"`
	Failed  int64  `json:"failed"`
}

// Stats returns per-command counters sorted by command name.
func (d *Dispatcher) Stats() []CommandStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]CommandStats, 0, len(d.handled))
	for name, handled := range d.handled {
		out = append(out, CommandStats{Command: name, Handled: handled, Failed: d.failed[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}
