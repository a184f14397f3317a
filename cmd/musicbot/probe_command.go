package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"musicbot/internal/deps"
	"musicbot/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect an audio file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			binary := deps.ResolveFFprobe(cfg.Transcoder.FFprobeBinary, cfg.Transcoder.FFmpegBinary)
			result, err := ffprobe.Inspect(cmd.Context(), binary, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				_, err := cmd.OutOrStdout().Write(result.RawJSON())
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Format:   %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration: %.1fs\n", result.DurationSeconds())
			fmt.Fprintf(out, "Size:     %d bytes\n", result.SizeBytes())
			fmt.Fprintf(out, "Covers:   %d\n", result.CoverArtCount())
			if title := result.Tag("title"); title != "" {
				fmt.Fprintf(out, "Title:    %s\n", title)
			}
			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				rows = append(rows, []string{
					strconv.Itoa(stream.Index),
					stream.CodecType,
					stream.CodecName,
					stream.SampleRate,
					strconv.Itoa(stream.Channels),
					stream.BitRate,
				})
			}
			fmt.Fprint(out, renderTable([]string{"#", "Type", "Codec", "Rate", "Channels", "Bitrate"}, rows, 0, 3, 4, 5))
			if result.AudioStreamCount() == 0 {
				return fmt.Errorf("%s has no audio stream", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw ffprobe JSON")
	return cmd
}
