package daemonrun

import (
	"context"
	"log/slog"

	"musicbot/internal/assets"
	"musicbot/internal/config"
	"musicbot/internal/deps"
	"musicbot/internal/media/ffprobe"
	"musicbot/internal/messages"
	"musicbot/internal/pipeline"
	"musicbot/internal/privilege"
	"musicbot/internal/transcode"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

// Services holds the stores and the pipeline built from one config.
type Services struct {
	Workspaces *workspace.Store
	Configs    *userconfig.Manager
	Assets     *assets.Manager
	Privileges *privilege.Memory
	Pool       *transcode.Pool
	Pipeline   *pipeline.Pipeline
	Messages   *messages.Catalog
}

// Assemble wires the workspace store, config and asset managers, the
// transcoder pool, and the audio pipeline. The CLI uses it to run the
// pipeline locally with the same settings as the daemon.
func Assemble(cfg *config.Config, logger *slog.Logger) *Services {
	store := workspace.NewStore(cfg.Paths.DataDir, logger)
	configs := userconfig.NewManager(store, cfg.Paths.TemplatePath, logger)
	store.SetInitializer(configs)

	catalog := messages.New(cfg.Bot.Locale)
	pool := transcode.NewPool(
		transcode.NewFFmpeg(cfg.Transcoder.FFmpegBinary, cfg.TranscodeTimeout(), logger),
		cfg.Transcoder.MaxConcurrent,
	)
	assetManager := assets.NewManager(store, logger)

	var prober pipeline.Prober
	if cfg.Transcoder.VerifyOutput {
		binary := deps.ResolveFFprobe(cfg.Transcoder.FFprobeBinary, cfg.Transcoder.FFmpegBinary)
		prober = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}

	return &Services{
		Workspaces: store,
		Configs:    configs,
		Assets:     assetManager,
		Privileges: privilege.NewMemory(cfg.Bot.Admins...),
		Pool:       pool,
		Messages:   catalog,
		Pipeline: pipeline.New(pipeline.Options{
			Workspaces:         store,
			Configs:            configs,
			Assets:             assetManager,
			Transcoder:         pool,
			Messages:           catalog,
			Logger:             logger,
			Codec:              cfg.Transcoder.Codec,
			Bitrate:            cfg.Transcoder.Bitrate,
			MaxDiagnosticChars: cfg.Bot.MaxDiagnosticChars,
			Prober:             prober,
		}),
	}
}
