package pipeline_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/media/ffprobe"
	"musicbot/internal/messages"
	"musicbot/internal/pipeline"
	"musicbot/internal/transcode"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

const userID int64 = 4242

type delivery struct {
	name    string
	caption string
	content string
}

type fakeRequester struct {
	mu          sync.Mutex
	statuses    []string
	cleared     int
	deliveries  []delivery
	notices     []string
	deliveryErr error
}

func (f *fakeRequester) Status(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, text)
	return nil
}

func (f *fakeRequester) ClearStatus(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeRequester) DeliverAudio(_ context.Context, path, name, caption string) error {
	if f.deliveryErr != nil {
		return f.deliveryErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{name: name, caption: caption, content: string(data)})
	return nil
}

func (f *fakeRequester) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
	return nil
}

type fakeTranscoder struct {
	mu       sync.Mutex
	requests []transcode.Request
	fail     error
	partial  bool
}

func (f *fakeTranscoder) Transcode(_ context.Context, req transcode.Request) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fail != nil {
		if f.partial {
			_ = os.WriteFile(req.Output, []byte("partial"), 0o644)
		}
		return f.fail
	}
	in, err := os.ReadFile(req.Input)
	if err != nil {
		return err
	}
	return os.WriteFile(req.Output, append([]byte("mp3:"), in...), 0o644)
}

func fetcherFor(body string) media.Fetcher {
	return media.FetcherFunc(func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
}

type harness struct {
	store      *workspace.Store
	configs    *userconfig.Manager
	transcoder *fakeTranscoder
	pipeline   *pipeline.Pipeline
}

func newHarness(t *testing.T, mutate func(*pipeline.Options)) *harness {
	t.Helper()
	store := workspace.NewStore(t.TempDir(), logging.NewNop())
	templatePath := filepath.Join(t.TempDir(), "template.json")
	if err := os.WriteFile(templatePath, []byte(`{"tags":{"artist":"x"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	configs := userconfig.NewManager(store, templatePath, logging.NewNop())
	store.SetInitializer(configs)
	if _, err := store.Ensure(context.Background(), userID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	tc := &fakeTranscoder{}
	opts := pipeline.Options{
		Workspaces:         store,
		Configs:            configs,
		Transcoder:         tc,
		Messages:           messages.New("en"),
		Logger:             logging.NewNop(),
		MaxDiagnosticChars: 3500,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &harness{store: store, configs: configs, transcoder: tc, pipeline: pipeline.New(opts)}
}

func (h *harness) submit(t *testing.T, src media.Source, req *fakeRequester, body string) pipeline.Outcome {
	t.Helper()
	return h.pipeline.Process(context.Background(), pipeline.Submission{
		UserID:    userID,
		Source:    src,
		Fetcher:   fetcherFor(body),
		Requester: req,
	})
}

// assertScratchClean fails when anything other than the retained area is
// left in the user's scratch directory.
func assertScratchClean(t *testing.T, store *workspace.Store) {
	t.Helper()
	entries, err := os.ReadDir(store.ScratchDir(userID))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read scratch: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() == pipeline.RetainedDirName {
			continue
		}
		t.Fatalf("scratch entry left behind: %s", entry.Name())
	}
}

func TestProcessConvertsNonCanonicalAudio(t *testing.T) {
	h := newHarness(t, nil)
	req := &fakeRequester{}
	src := media.Source{ID: "file-1", UniqueID: "uniq-1", FileName: "track.wav", MimeType: "audio/x-wav", IsAudio: true}

	out := h.submit(t, src, req, "RIFF")

	if out.State != pipeline.StateDone || out.Failure != nil {
		t.Fatalf("expected done, got %s (%v)", out.State, out.Failure)
	}
	if !out.Converted || out.Delivered != "track.mp3" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(h.transcoder.requests) != 1 {
		t.Fatalf("expected one transcoder call, got %d", len(h.transcoder.requests))
	}
	got := h.transcoder.requests[0]
	if got.Codec != "libmp3lame" || got.Bitrate != "192k" || !got.Overwrite {
		t.Fatalf("unexpected transcode request %+v", got)
	}
	if filepath.Base(got.Input) != "original_track.wav" || filepath.Base(got.Output) != "original_track.mp3" {
		t.Fatalf("unexpected paths in %+v", got)
	}
	if len(req.deliveries) != 1 || req.deliveries[0].name != "track.mp3" || req.deliveries[0].content != "mp3:RIFF" {
		t.Fatalf("unexpected deliveries %+v", req.deliveries)
	}
	if !strings.Contains(req.deliveries[0].caption, "Converted to MP3") {
		t.Fatalf("unexpected caption %q", req.deliveries[0].caption)
	}
	if len(req.statuses) < 3 || req.cleared != 1 {
		t.Fatalf("expected status updates and a clear, got %v cleared=%d", req.statuses, req.cleared)
	}
	assertScratchClean(t, h.store)
}

func TestProcessClassification(t *testing.T) {
	tests := []struct {
		name      string
		src       media.Source
		converted bool
	}{
		{"mp3 extension", media.Source{FileName: "song.mp3", MimeType: "audio/ogg"}, false},
		{"upper case extension", media.Source{FileName: "SONG.MP3"}, false},
		{"mpeg mime", media.Source{FileName: "clip.bin", MimeType: "audio/mpeg"}, false},
		{"synthesized mpeg name", media.Source{MimeType: "audio/mpeg"}, false},
		{"flac", media.Source{FileName: "song.flac", MimeType: "audio/flac"}, true},
		{"no name no mime", media.Source{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			src := tt.src
			src.ID, src.UniqueID, src.IsAudio = "id", "uniq", true
			out := h.submit(t, src, &fakeRequester{}, "data")
			if out.State != pipeline.StateDone {
				t.Fatalf("expected done, got %s (%v)", out.State, out.Failure)
			}
			if out.Converted != tt.converted {
				t.Fatalf("converted=%v, want %v", out.Converted, tt.converted)
			}
			if calls := len(h.transcoder.requests); (calls == 1) != tt.converted {
				t.Fatalf("transcoder calls=%d, converted=%v", calls, tt.converted)
			}
			assertScratchClean(t, h.store)
		})
	}
}

func TestProcessPassThroughDeliversOriginalBytes(t *testing.T) {
	h := newHarness(t, nil)
	req := &fakeRequester{}
	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "song.mp3", IsAudio: true}, req, "ID3data")
	if out.State != pipeline.StateDone || out.Converted {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if req.deliveries[0].content != "ID3data" || req.deliveries[0].name != "song.mp3" {
		t.Fatalf("unexpected delivery %+v", req.deliveries[0])
	}
	if !strings.Contains(req.deliveries[0].caption, "MP3 received") {
		t.Fatalf("unexpected caption %q", req.deliveries[0].caption)
	}
}

func TestProcessSurfacesTranscoderDiagnostic(t *testing.T) {
	h := newHarness(t, nil)
	h.transcoder.fail = &transcode.ToolError{ExitCode: 1, Diagnostic: "corrupt.wav: Invalid data found when processing input"}
	h.transcoder.partial = true
	req := &fakeRequester{}

	out := h.submit(t, media.Source{ID: "f", UniqueID: "corrupt", FileName: "corrupt.wav", IsAudio: true}, req, "junk")

	if out.State != pipeline.StateFailed || out.Failure == nil || out.Failure.Kind != pipeline.FailureTranscode {
		t.Fatalf("expected transcode failure, got %+v", out)
	}
	if out.Failure.State != pipeline.StateConverting {
		t.Fatalf("expected failure in converting, got %s", out.Failure.State)
	}
	if len(req.deliveries) != 0 {
		t.Fatalf("nothing should be delivered")
	}
	if len(req.notices) != 1 || !strings.Contains(req.notices[0], "corrupt.wav: Invalid data found when processing input") {
		t.Fatalf("diagnostic not surfaced verbatim: %v", req.notices)
	}
	var toolErr *transcode.ToolError
	if !errors.As(out.Failure, &toolErr) {
		t.Fatalf("failure should unwrap to ToolError")
	}
	assertScratchClean(t, h.store)
}

func TestProcessTruncatesLongDiagnostics(t *testing.T) {
	h := newHarness(t, func(o *pipeline.Options) { o.MaxDiagnosticChars = 10 })
	h.transcoder.fail = &transcode.ToolError{ExitCode: 1, Diagnostic: "noise noise noise: the real cause"}
	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "a.wav", IsAudio: true}, &fakeRequester{}, "x")
	if out.Failure == nil || out.Failure.Diagnostic != "…real cause" {
		t.Fatalf("unexpected diagnostic %q", out.Failure.Diagnostic)
	}
}

func TestProcessRejectsNonAudioWithoutScratch(t *testing.T) {
	h := newHarness(t, nil)
	req := &fakeRequester{}
	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "doc.pdf"}, req, "x")
	if out.Failure == nil || out.Failure.Kind != pipeline.FailureNotAudio {
		t.Fatalf("expected not-audio failure, got %+v", out)
	}
	if len(req.notices) != 1 || req.notices[0] != messages.New("en").Text(messages.AudioInvalid) {
		t.Fatalf("unexpected notices %v", req.notices)
	}
	entries, _ := os.ReadDir(h.store.ScratchDir(userID))
	if len(entries) != 0 {
		t.Fatalf("no scratch should be created, found %d entries", len(entries))
	}
}

func TestProcessCleansUpOnDownloadAndDeliveryFailures(t *testing.T) {
	t.Run("download", func(t *testing.T) {
		h := newHarness(t, nil)
		req := &fakeRequester{}
		out := h.pipeline.Process(context.Background(), pipeline.Submission{
			UserID: userID,
			Source: media.Source{ID: "f", UniqueID: "u", FileName: "a.wav", IsAudio: true},
			Fetcher: media.FetcherFunc(func(context.Context, string) (io.ReadCloser, error) {
				return nil, errors.New("bridge unavailable")
			}),
			Requester: req,
		})
		if out.Failure == nil || out.Failure.Kind != pipeline.FailureDownload {
			t.Fatalf("expected download failure, got %+v", out)
		}
		assertScratchClean(t, h.store)
	})
	t.Run("delivery", func(t *testing.T) {
		h := newHarness(t, nil)
		req := &fakeRequester{deliveryErr: errors.New("upload rejected")}
		out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "a.wav", IsAudio: true}, req, "x")
		if out.Failure == nil || out.Failure.Kind != pipeline.FailureDelivery {
			t.Fatalf("expected delivery failure, got %+v", out)
		}
		if len(req.notices) != 1 || req.cleared != 1 {
			t.Fatalf("expected a failure reply and a cleared status, got %v cleared=%d", req.notices, req.cleared)
		}
		assertScratchClean(t, h.store)
	})
}

func TestProcessVerifiesConvertedOutput(t *testing.T) {
	h := newHarness(t, func(o *pipeline.Options) {
		o.Prober = func(context.Context, string) (ffprobe.Result, error) {
			return ffprobe.Result{}, nil
		}
	})
	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "a.wav", IsAudio: true}, &fakeRequester{}, "x")
	if out.Failure == nil || out.Failure.Kind != pipeline.FailureTranscode {
		t.Fatalf("expected verification failure, got %+v", out)
	}
	assertScratchClean(t, h.store)
}

func TestProcessRetainHandsOffArtifact(t *testing.T) {
	h := newHarness(t, nil)
	out := h.pipeline.Process(context.Background(), pipeline.Submission{
		UserID:    userID,
		Source:    media.Source{ID: "f", UniqueID: "keep-me", FileName: "a.ogg", IsAudio: true},
		Fetcher:   fetcherFor("ogg"),
		Requester: &fakeRequester{},
		Retain:    true,
	})
	if out.State != pipeline.StateDone || out.Handoff == nil {
		t.Fatalf("expected a handoff, got %+v", out)
	}
	want := filepath.Join(h.store.ScratchDir(userID), pipeline.RetainedDirName, "keep-me.mp3")
	if out.Handoff.Path != want {
		t.Fatalf("handoff path %q, want %q", out.Handoff.Path, want)
	}
	if data, err := os.ReadFile(want); err != nil || string(data) != "mp3:ogg" {
		t.Fatalf("retained artifact unreadable: %q %v", data, err)
	}
	if out.Handoff.Config.UserID != userID {
		t.Fatalf("handoff config user id %d", out.Handoff.Config.UserID)
	}
	assertScratchClean(t, h.store)

	if err := out.Handoff.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := out.Handoff.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Fatalf("retained artifact should be gone after Release")
	}
}

func TestProcessRunsTransformsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	var seen []string
	step := func(label string) pipeline.Transform {
		return pipeline.TransformFunc{Label: label, Fn: func(_ context.Context, in pipeline.TransformInput) (string, error) {
			seen = append(seen, label)
			if in.Config.UserID != userID {
				return "", errors.New("config not passed")
			}
			data, err := os.ReadFile(in.Artifact)
			if err != nil {
				return "", err
			}
			out := filepath.Join(in.WorkDir, label+".mp3")
			return out, os.WriteFile(out, append(data, []byte("+"+label)...), 0o644)
		}}
	}
	h.pipeline.Register(step("tags"), step("cover"))
	req := &fakeRequester{}

	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "a.mp3", IsAudio: true}, req, "raw")

	if out.State != pipeline.StateDone {
		t.Fatalf("expected done, got %+v", out.Failure)
	}
	if strings.Join(seen, ",") != "tags,cover" {
		t.Fatalf("unexpected order %v", seen)
	}
	if req.deliveries[0].content != "raw+tags+cover" {
		t.Fatalf("unexpected delivered content %q", req.deliveries[0].content)
	}
	assertScratchClean(t, h.store)
}

func TestProcessRejectsTransformOutputOutsideScratch(t *testing.T) {
	h := newHarness(t, nil)
	outside := filepath.Join(t.TempDir(), "escape.mp3")
	h.pipeline.Register(pipeline.TransformFunc{Label: "bad", Fn: func(context.Context, pipeline.TransformInput) (string, error) {
		return outside, os.WriteFile(outside, []byte("x"), 0o644)
	}})
	out := h.submit(t, media.Source{ID: "f", UniqueID: "u", FileName: "a.mp3", IsAudio: true}, &fakeRequester{}, "raw")
	if out.Failure == nil || out.Failure.Kind != pipeline.FailureTransform {
		t.Fatalf("expected transform failure, got %+v", out)
	}
	assertScratchClean(t, h.store)
}

func TestProcessAvoidsScratchKeyCollisions(t *testing.T) {
	h := newHarness(t, nil)
	busy := filepath.Join(h.store.ScratchDir(userID), "same")
	if err := os.MkdirAll(busy, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(busy, "original_other.wav"), []byte("other"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := h.submit(t, media.Source{ID: "f", UniqueID: "same", FileName: "a.wav", IsAudio: true}, &fakeRequester{}, "x")

	if out.State != pipeline.StateDone {
		t.Fatalf("expected done, got %+v", out.Failure)
	}
	if out.Key == "same" || !strings.HasPrefix(out.Key, "same-") {
		t.Fatalf("expected a suffixed key, got %q", out.Key)
	}
	if data, err := os.ReadFile(filepath.Join(busy, "original_other.wav")); err != nil || string(data) != "other" {
		t.Fatalf("other submission's scratch was disturbed")
	}
}

func TestProcessRetainWithReservedKeyKeepsArtifact(t *testing.T) {
	h := newHarness(t, nil)
	out := h.pipeline.Process(context.Background(), pipeline.Submission{
		UserID:    userID,
		Source:    media.Source{ID: "f", UniqueID: pipeline.RetainedDirName, FileName: "a.mp3", IsAudio: true},
		Fetcher:   fetcherFor("already mp3"),
		Requester: &fakeRequester{},
		Retain:    true,
	})
	if out.State != pipeline.StateDone || out.Handoff == nil {
		t.Fatalf("expected a handoff, got %+v", out)
	}
	if out.Key == pipeline.RetainedDirName || !strings.HasPrefix(out.Key, pipeline.RetainedDirName+"-") {
		t.Fatalf("expected the reserved name to be suffixed, got %q", out.Key)
	}
	if data, err := os.ReadFile(out.Handoff.Path); err != nil || string(data) != "already mp3" {
		t.Fatalf("retained artifact missing at %s: %q %v", out.Handoff.Path, data, err)
	}
	assertScratchClean(t, h.store)
	if err := out.Handoff.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestProcessFallsBackToGeneratedKey(t *testing.T) {
	h := newHarness(t, nil)
	out := h.submit(t, media.Source{FileName: "a.wav", IsAudio: true}, &fakeRequester{}, "x")
	if out.Failure == nil || out.Failure.Kind != pipeline.FailureDownload {
		t.Fatalf("expected download failure without a file id, got %+v", out)
	}
	if _, err := uuid.Parse(out.Key); err != nil {
		t.Fatalf("expected a uuid key, got %q", out.Key)
	}
	assertScratchClean(t, h.store)
}

func TestProcessConcurrentSubmissionsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	var wg sync.WaitGroup
	outcomes := make([]pipeline.Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := media.Source{ID: "f", UniqueID: uuid.NewString(), FileName: "same.wav", IsAudio: true}
			outcomes[i] = h.submit(t, src, &fakeRequester{}, "x")
		}(i)
	}
	wg.Wait()
	for i, out := range outcomes {
		if out.State != pipeline.StateDone {
			t.Fatalf("submission %d: %+v", i, out.Failure)
		}
	}
	assertScratchClean(t, h.store)
}
