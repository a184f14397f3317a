package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"musicbot/internal/fileutil"
	"musicbot/internal/media"
	"musicbot/internal/pipeline"
)

// localDeliverer stands in for a chat: progress goes to stderr, replies to
// stdout, and the delivered artifact is copied into outDir.
type localDeliverer struct {
	progress  io.Writer
	replies   io.Writer
	outDir    string
	delivered string
}

func (l *localDeliverer) Status(_ context.Context, text string) error {
	fmt.Fprintf(l.progress, "… %s\n", text)
	return nil
}

func (l *localDeliverer) ClearStatus(context.Context) error { return nil }

func (l *localDeliverer) DeliverAudio(_ context.Context, path, name, _ string) error {
	target := filepath.Join(l.outDir, name)
	if err := fileutil.CopyFileVerified(path, target); err != nil {
		return err
	}
	l.delivered = target
	return nil
}

func (l *localDeliverer) Notify(_ context.Context, text string) error {
	_, err := fmt.Fprintln(l.replies, text)
	return err
}

// audioTypes covers extensions the system mime table often lacks.
var audioTypes = map[string]string{
	".mp3":  media.CanonicalMimeType,
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
}

func localSource(path string) media.Source {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := audioTypes[ext]
	if !ok {
		mimeType = mime.TypeByExtension(ext)
	}
	if base, _, ok := strings.Cut(mimeType, ";"); ok {
		mimeType = base
	}
	return media.Source{
		ID:       path,
		UniqueID: "local-" + uuid.NewString()[:8],
		FileName: filepath.Base(path),
		MimeType: mimeType,
		IsAudio:  strings.HasPrefix(mimeType, "audio/"),
	}
}

var localFetcher = media.FetcherFunc(func(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
})

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var userID int64
	var outDir string
	var retain bool
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Run the audio pipeline on a local file",
		Long: `Run the audio pipeline on a local file as if the given user had sent it.

The file is converted (or passed through when already MP3) using the
configured transcoder and copied into --out. The user's workspace is
created when missing so their config and assets apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(input); err != nil {
				return fmt.Errorf("inspect input: %w", err)
			} else if info.IsDir() {
				return fmt.Errorf("input %s is a directory", input)
			}
			if outDir == "" {
				outDir = filepath.Dir(input)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			svc, err := ctx.services(cmd)
			if err != nil {
				return err
			}
			if _, err := svc.Workspaces.Ensure(cmd.Context(), userID); err != nil {
				return err
			}

			deliverer := &localDeliverer{progress: cmd.ErrOrStderr(), replies: cmd.OutOrStdout(), outDir: outDir}
			outcome := svc.Pipeline.Process(cmd.Context(), pipeline.Submission{
				UserID:    userID,
				Source:    localSource(input),
				Fetcher:   localFetcher,
				Requester: deliverer,
				Retain:    retain,
			})
			if outcome.State == pipeline.StateFailed {
				return outcome.Failure
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (converted: %s)\n", deliverer.delivered, yesNo(outcome.Converted))
			if outcome.Handoff != nil {
				fmt.Fprintf(out, "Retained artifact at %s\n", outcome.Handoff.Path)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 1, "User id whose workspace applies")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the normalized file (default: next to the input)")
	cmd.Flags().BoolVar(&retain, "retain", false, "Keep a copy in the user's scratch/retained directory")
	return cmd
}
