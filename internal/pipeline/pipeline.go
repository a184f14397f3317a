package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"musicbot/internal/assets"
	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/media/ffprobe"
	"musicbot/internal/messages"
	"musicbot/internal/services"
	"musicbot/internal/transcode"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

const originalPrefix = "original_"

// Workspaces locates per-user scratch space.
type Workspaces interface {
	ScratchDir(userID int64) string
}

// ConfigReader loads the user's config document.
type ConfigReader interface {
	Read(ctx context.Context, userID int64) (userconfig.Document, error)
}

// AssetBundler lists the user's committed asset slots.
type AssetBundler interface {
	Bundle(userID int64) (map[workspace.Kind]assets.Slot, error)
}

// Prober inspects a finished artifact.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Options configures a Pipeline.
type Options struct {
	Workspaces Workspaces
	Configs    ConfigReader
	Assets     AssetBundler
	Transcoder transcode.Transcoder
	Messages   *messages.Catalog
	Logger     *slog.Logger

	Codec              string
	Bitrate            string
	MaxDiagnosticChars int
	// Prober, when set, verifies converted output has an audio stream.
	Prober Prober
}

// Pipeline processes audio submissions.
type Pipeline struct {
	workspaces    Workspaces
	configs       ConfigReader
	assets        AssetBundler
	transcoder    transcode.Transcoder
	messages      *messages.Catalog
	logger        *slog.Logger
	codec         string
	bitrate       string
	maxDiagnostic int
	prober        Prober
	transforms    []Transform
	steps         map[State]stepFunc
}

type stepFunc func(ctx context.Context, run *submission) stepResult

// New builds a pipeline from opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		workspaces:    opts.Workspaces,
		configs:       opts.Configs,
		assets:        opts.Assets,
		transcoder:    opts.Transcoder,
		messages:      opts.Messages,
		logger:        logging.NewComponentLogger(opts.Logger, "pipeline"),
		codec:         strings.TrimSpace(opts.Codec),
		bitrate:       strings.TrimSpace(opts.Bitrate),
		maxDiagnostic: opts.MaxDiagnosticChars,
		prober:        opts.Prober,
	}
	if p.codec == "" {
		p.codec = transcode.DefaultCodec
	}
	if p.bitrate == "" {
		p.bitrate = transcode.DefaultBitrate
	}
	if p.messages == nil {
		p.messages = messages.New("en")
	}
	p.steps = map[State]stepFunc{
		StateReceived:     p.receive,
		StateDownloading:  p.download,
		StateClassifying:  p.classify,
		StatePassThrough:  p.passThrough,
		StateConverting:   p.convert,
		StateTransforming: p.runTransforms,
		StateDelivering:   p.deliver,
	}
	return p
}

// Register appends transforms to the chain. Transforms run in registration
// order after normalization.
func (p *Pipeline) Register(transforms ...Transform) {
	p.transforms = append(p.transforms, transforms...)
}

// submission is the mutable state of one Process call.
type submission struct {
	sub       Submission
	key       string
	dir       string
	original  string
	artifact  string
	converted bool
	handoff   *Handoff
	logger    *slog.Logger

	cfg    *userconfig.Document
	cfgErr error
}

func (s *submission) config(ctx context.Context, reader ConfigReader) (userconfig.Document, error) {
	if s.cfg == nil && s.cfgErr == nil {
		if reader == nil {
			s.cfgErr = errors.New("no config reader configured")
		} else {
			doc, err := reader.Read(ctx, s.sub.UserID)
			s.cfg, s.cfgErr = &doc, err
		}
	}
	if s.cfgErr != nil {
		return userconfig.Document{}, s.cfgErr
	}
	return *s.cfg, nil
}

// Process drives sub to Done or Failed. The submission's scratch directory
// never outlives the call.
func (p *Pipeline) Process(ctx context.Context, sub Submission) Outcome {
	run := &submission{sub: sub, key: sub.Source.Key()}
	if run.key == "" {
		run.key = uuid.NewString()
	}
	ctx = services.WithSubmission(services.WithUserID(ctx, sub.UserID), run.key)
	run.logger = logging.WithContext(ctx, p.logger)

	started := time.Now()
	state := StateReceived
	var failure *Failure
	defer p.cleanup(ctx, run)

	for !state.Terminal() {
		step, ok := p.steps[state]
		if !ok {
			failure = &Failure{Kind: FailureInternal, Err: fmt.Errorf("no step for state %s", state)}
		} else {
			result := step(services.WithStage(ctx, string(state)), run)
			failure = result.err
			if failure == nil {
				run.logger.Debug("submission advanced",
					logging.String("from", string(state)),
					logging.String("to", string(result.next)),
				)
				state = result.next
				continue
			}
		}
		failure.State = state
		state = StateFailed
	}

	out := Outcome{State: state, Key: run.key, Converted: run.converted, Failure: failure}
	if failure != nil {
		p.reportFailure(ctx, run, failure)
		return out
	}
	out.Delivered = displayName(sub.Source)
	out.Handoff = run.handoff
	run.logger.Info("audio delivered",
		logging.String(logging.FieldEventType, "submission_done"),
		logging.String("delivered", out.Delivered),
		logging.Bool("converted", run.converted),
		logging.Bool("retained", run.handoff != nil),
		logging.Duration("duration", time.Since(started)),
	)
	return out
}

func (p *Pipeline) receive(_ context.Context, run *submission) stepResult {
	if !run.sub.Source.IsAudio {
		return fail(FailureNotAudio, services.Wrap(services.ErrValidation, "pipeline", "receive", "item carries no audio", nil))
	}
	if run.sub.Fetcher == nil || run.sub.Requester == nil {
		return fail(FailureInternal, errors.New("submission needs a fetcher and a requester"))
	}
	return advance(StateDownloading)
}

func (p *Pipeline) download(ctx context.Context, run *submission) stepResult {
	p.status(ctx, run, messages.StatusDownloading)
	dir, err := p.scratchDir(run)
	if err != nil {
		return fail(FailureInternal, err)
	}
	run.dir = dir
	run.original = filepath.Join(dir, originalPrefix+run.sub.Source.DeclaredName())
	size, err := media.Download(ctx, run.sub.Fetcher, run.sub.Source, run.original)
	if err != nil {
		return fail(FailureDownload, err)
	}
	run.logger.Debug("audio downloaded", logging.String("path", run.original), logging.Int64("bytes", size))
	return advance(StateClassifying)
}

// scratchDir creates scratch/<key>. A key already in use by another
// submission gets a random suffix.
func (p *Pipeline) scratchDir(run *submission) (string, error) {
	root := p.workspaces.ScratchDir(run.sub.UserID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create scratch root: %w", err)
	}
	// The retained area shares the scratch root, so its name is never a key.
	if run.key == RetainedDirName {
		run.key = run.key + "-" + uuid.NewString()[:8]
	}
	dir := filepath.Join(root, run.key)
	err := os.Mkdir(dir, 0o755)
	if errors.Is(err, os.ErrExist) {
		run.key = run.key + "-" + uuid.NewString()[:8]
		dir = filepath.Join(root, run.key)
		err = os.Mkdir(dir, 0o755)
	}
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) classify(ctx context.Context, run *submission) stepResult {
	p.status(ctx, run, messages.StatusClassifying)
	if run.sub.Source.IsCanonical() {
		return advance(StatePassThrough)
	}
	return advance(StateConverting)
}

func (p *Pipeline) passThrough(_ context.Context, run *submission) stepResult {
	run.artifact = run.original
	return advance(p.afterNormalize())
}

func (p *Pipeline) convert(ctx context.Context, run *submission) stepResult {
	p.status(ctx, run, messages.StatusConverting)
	output := strings.TrimSuffix(run.original, filepath.Ext(run.original)) + media.CanonicalExtension
	err := p.transcoder.Transcode(ctx, transcode.Request{
		Input:     run.original,
		Output:    output,
		Codec:     p.codec,
		Bitrate:   p.bitrate,
		Overwrite: true,
	})
	if err != nil {
		var toolErr *transcode.ToolError
		if errors.As(err, &toolErr) {
			return stepResult{err: &Failure{
				Kind:       FailureTranscode,
				Diagnostic: truncateDiagnostic(toolErr.Diagnostic, p.maxDiagnostic),
				Err:        err,
			}}
		}
		return fail(FailureInternal, err)
	}
	if p.prober != nil {
		result, err := p.prober(ctx, output)
		if err != nil {
			return stepResult{err: &Failure{Kind: FailureTranscode, Diagnostic: "output could not be inspected", Err: err}}
		}
		if result.AudioStreamCount() == 0 {
			return stepResult{err: &Failure{
				Kind:       FailureTranscode,
				Diagnostic: "output has no audio stream",
				Err:        services.Wrap(services.ErrExternalTool, "pipeline", "verify", "converted output has no audio stream", nil),
			}}
		}
	}
	run.artifact = output
	run.converted = true
	return advance(p.afterNormalize())
}

func (p *Pipeline) afterNormalize() State {
	if len(p.transforms) > 0 {
		return StateTransforming
	}
	return StateDelivering
}

func (p *Pipeline) deliver(ctx context.Context, run *submission) stepResult {
	p.status(ctx, run, messages.StatusSending)
	name := displayName(run.sub.Source)
	caption := p.messages.Text(messages.AudioPassThrough, name)
	if run.converted {
		caption = p.messages.Text(messages.AudioConverted, name)
	}
	if err := run.sub.Requester.DeliverAudio(ctx, run.artifact, name, caption); err != nil {
		return fail(FailureDelivery, err)
	}
	if run.sub.Retain {
		handoff, err := p.retain(ctx, run)
		if err != nil {
			logging.WarnWithContext(run.logger, "artifact not retained", "retain_failed",
				logging.String(logging.FieldErrorHint, "the file was delivered; check the user's config and scratch permissions"),
				logging.Error(err),
			)
		} else {
			run.handoff = handoff
		}
	}
	return advance(StateDone)
}

func (p *Pipeline) status(ctx context.Context, run *submission, key messages.Key) {
	if run.sub.Requester == nil {
		return
	}
	if err := run.sub.Requester.Status(ctx, p.messages.Text(key)); err != nil {
		run.logger.Debug("status update failed", logging.Error(err))
	}
}

func (p *Pipeline) reportFailure(ctx context.Context, run *submission, failure *Failure) {
	attrs := []logging.Attr{
		logging.String(logging.FieldStage, string(failure.State)),
		logging.String("failure_kind", string(failure.Kind)),
		logging.String(logging.FieldErrorKind, services.ErrorKind(failure.Err)),
		logging.Error(failure.Err),
	}
	if failure.Diagnostic != "" {
		attrs = append(attrs, logging.String("diagnostic", failure.Diagnostic))
	}
	if services.Recoverable(failure.Err) {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "the requester was asked to send a valid audio file"))
		logging.WarnWithContext(run.logger, "submission rejected", "submission_failed", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hintFor(failure.Kind)))
		logging.ErrorWithContext(run.logger, "submission failed", "submission_failed", attrs...)
	}
	if run.sub.Requester == nil {
		return
	}
	notifyCtx := context.WithoutCancel(ctx)
	if err := run.sub.Requester.Notify(notifyCtx, p.failureText(failure)); err != nil {
		run.logger.Warn("failure reply not sent",
			logging.String(logging.FieldEventType, "reply_failed"),
			logging.String(logging.FieldErrorHint, "check bridge connectivity"),
			logging.Error(err),
		)
	}
}

func (p *Pipeline) failureText(failure *Failure) string {
	switch failure.Kind {
	case FailureNotAudio:
		return p.messages.Text(messages.AudioInvalid)
	case FailureDownload:
		return p.messages.Text(messages.AudioDownloadFail)
	case FailureTranscode:
		return p.messages.Text(messages.AudioConvertFailed, failure.Diagnostic)
	case FailureTransform:
		return p.messages.Text(messages.AudioTransformFail)
	default:
		return p.messages.Text(messages.AudioFailed)
	}
}

func hintFor(kind FailureKind) string {
	switch kind {
	case FailureDownload:
		return "check bridge connectivity and file size limits"
	case FailureTranscode:
		return "inspect the ffmpeg diagnostic; the input may be corrupt"
	case FailureTransform:
		return "inspect the transform error and the user's config"
	case FailureDelivery:
		return "check bridge connectivity"
	default:
		return "check scratch directory permissions"
	}
}

// cleanup removes the submission's scratch directory and status note. It
// runs on every exit path of Process.
func (p *Pipeline) cleanup(ctx context.Context, run *submission) {
	ctx = context.WithoutCancel(ctx)
	if run.dir != "" {
		if err := os.RemoveAll(run.dir); err != nil {
			logging.WarnWithContext(run.logger, "scratch cleanup failed", "scratch_cleanup_failed",
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String("path", run.dir),
				logging.Error(err),
			)
		}
	}
	if run.sub.Requester != nil {
		if err := run.sub.Requester.ClearStatus(ctx); err != nil {
			run.logger.Debug("status clear failed", logging.Error(err))
		}
	}
}

// displayName is the declared name with the canonical extension.
func displayName(src media.Source) string {
	name := src.DeclaredName()
	return strings.TrimSuffix(name, filepath.Ext(name)) + media.CanonicalExtension
}

// truncateDiagnostic keeps the last limit runes, where tools print the cause.
func truncateDiagnostic(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return "…" + string(runes[len(runes)-limit:])
}
