package daemonrun

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"musicbot/internal/bridge"
	"musicbot/internal/commands"
	"musicbot/internal/daemon"
	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/testsupport"
)

func TestCheckReadinessFatalWithoutTranscoder(t *testing.T) {
	bridgeSrv := testsupport.NewFakeBridge(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBridgeURL(bridgeSrv.URL))
	cfg.Transcoder.FFmpegBinary = filepath.Join(t.TempDir(), "missing-ffmpeg")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	err := checkReadiness(context.Background(), cfg, logging.NewNop())
	if err == nil || !strings.Contains(err.Error(), "transcoder unavailable") {
		t.Fatalf("expected transcoder error, got %v", err)
	}
}

func TestCheckReadinessToleratesUnreachableBridge(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(testsupport.FFmpegSucceeds))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	if err := checkReadiness(context.Background(), cfg, logging.NewNop()); err != nil {
		t.Fatalf("bridge failure should not be fatal: %v", err)
	}
}

func TestAssembledPipelineDeliversThroughBridge(t *testing.T) {
	bridgeSrv := testsupport.NewFakeBridge(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedFFmpeg(testsupport.FFmpegSucceeds),
		testsupport.WithBridgeURL(bridgeSrv.URL),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	input := []byte("RIFF....WAVEfmt fake pcm")
	bridgeSrv.AddFile("f1", input)

	svc := Assemble(cfg, logging.NewNop())
	client := bridge.NewClient(cfg.Bot.BridgeURL, cfg.Bot.Token, cfg.BridgeTimeout(), logging.NewNop())
	dispatcher := commands.NewDispatcher(commands.Options{
		Workspaces: svc.Workspaces,
		Configs:    svc.Configs,
		Assets:     svc.Assets,
		Audio:      svc.Pipeline,
		Privileges: svc.Privileges,
		Messages:   svc.Messages,
		Logger:     logging.NewNop(),
	})

	msg := commands.Message{
		ChatID:    42,
		MessageID: 5,
		UserID:    42,
		Private:   true,
		Audio: &media.Source{
			ID:       "f1",
			UniqueID: "u1",
			FileName: "song.wav",
			MimeType: "audio/wav",
			IsAudio:  true,
		},
	}
	dispatcher.Handle(context.Background(), msg, bridge.NewChat(client, msg.ChatID, msg.MessageID))

	uploads := bridgeSrv.CallsTo("sendAudio")
	if len(uploads) != 1 {
		t.Fatalf("expected one audio upload, got calls %+v", bridgeSrv.Calls())
	}
	if uploads[0].FileName != "song.mp3" {
		t.Fatalf("unexpected delivered name %q", uploads[0].FileName)
	}
	if !bytes.Equal(uploads[0].File, input) {
		t.Fatalf("delivered bytes differ from stub transcoder output")
	}
	if len(bridgeSrv.CallsTo("deleteMessage")) != 1 {
		t.Fatal("expected status message to be deleted")
	}

	entries, err := os.ReadDir(svc.Workspaces.ScratchDir(42))
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch not cleaned: %v", entries)
	}
}

func TestAssembledPipelineReportsTranscoderDiagnostic(t *testing.T) {
	bridgeSrv := testsupport.NewFakeBridge(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedFFmpeg(testsupport.FFmpegRejectsInput),
		testsupport.WithBridgeURL(bridgeSrv.URL),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	bridgeSrv.AddFile("bad", []byte("not audio at all"))

	svc := Assemble(cfg, logging.NewNop())
	client := bridge.NewClient(cfg.Bot.BridgeURL, cfg.Bot.Token, cfg.BridgeTimeout(), logging.NewNop())
	dispatcher := commands.NewDispatcher(commands.Options{
		Workspaces: svc.Workspaces,
		Configs:    svc.Configs,
		Assets:     svc.Assets,
		Audio:      svc.Pipeline,
		Messages:   svc.Messages,
		Logger:     logging.NewNop(),
	})

	msg := commands.Message{
		ChatID:    7,
		MessageID: 1,
		UserID:    7,
		Private:   true,
		Audio:     &media.Source{ID: "bad", UniqueID: "ubad", FileName: "clip.ogg", MimeType: "audio/ogg", IsAudio: true},
	}
	dispatcher.Handle(context.Background(), msg, bridge.NewChat(client, msg.ChatID, msg.MessageID))

	if len(bridgeSrv.CallsTo("sendAudio")) != 0 {
		t.Fatal("failed conversion must not deliver audio")
	}
	found := false
	for _, call := range bridgeSrv.CallsTo("sendMessage") {
		if strings.Contains(call.Fields["text"], "Invalid data found when processing input") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected diagnostic in a reply, got %+v", bridgeSrv.CallsTo("sendMessage"))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	bridgeSrv := testsupport.NewFakeBridge(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedFFmpeg(testsupport.FFmpegSucceeds),
		testsupport.WithBridgeURL(bridgeSrv.URL),
	)
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{})
	}()

	lockPath := filepath.Join(cfg.Paths.LogDir, daemon.LockFileName)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(lockPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon did not take its lock")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "musicbot.pid")); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestSweepScratchRemovesOrphanedSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	svc := Assemble(cfg, logging.NewNop())
	if _, err := svc.Workspaces.Ensure(context.Background(), 42); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	orphan := filepath.Join(svc.Workspaces.ScratchDir(42), "dead-submission")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	sweepScratch(context.Background(), svc, logging.NewNop())

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphaned submission should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(svc.Workspaces.ScratchDir(42)); err != nil {
		t.Fatalf("scratch dir itself must remain: %v", err)
	}
}
