package config

const (
	defaultConfigPath         = "~/.config/musicbot/config.toml"
	defaultDataDir            = "~/.local/share/musicbot/users"
	defaultTemplatePath       = "~/.config/musicbot/template.json"
	defaultLogDir             = "~/.local/share/musicbot/logs"
	defaultBridgeURL          = "http://127.0.0.1:8081"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultLocale             = "en"
	defaultMaxDiagnosticChars = 3500
	defaultRequestTimeout     = 60
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultCodec              = "libmp3lame"
	defaultBitrate            = "192k"
	defaultMaxConcurrent      = 2
	defaultTranscodeTimeout   = 900
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30

	placeholderToken = "replace-me"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			TemplatePath: defaultTemplatePath,
			LogDir:       defaultLogDir,
		},
		Bot: Bot{
			BridgeURL:          defaultBridgeURL,
			APIBind:            defaultAPIBind,
			Locale:             defaultLocale,
			MaxDiagnosticChars: defaultMaxDiagnosticChars,
			RequestTimeout:     defaultRequestTimeout,
		},
		Transcoder: Transcoder{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			Codec:          defaultCodec,
			Bitrate:        defaultBitrate,
			MaxConcurrent:  defaultMaxConcurrent,
			TimeoutSeconds: defaultTranscodeTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
