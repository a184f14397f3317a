package config

import (
	"fmt"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBot()
	c.normalizeTranscoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatePath) == "" {
		c.Paths.TemplatePath = defaultTemplatePath
	}
	if c.Paths.TemplatePath, err = expandPath(c.Paths.TemplatePath); err != nil {
		return fmt.Errorf("paths.template_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBot() {
	c.Bot.Token = strings.TrimSpace(c.Bot.Token)
	c.Bot.APIToken = strings.TrimSpace(c.Bot.APIToken)
	c.Bot.BridgeURL = strings.TrimRight(strings.TrimSpace(c.Bot.BridgeURL), "/")
	if c.Bot.BridgeURL == "" {
		c.Bot.BridgeURL = defaultBridgeURL
	}
	c.Bot.APIBind = strings.TrimSpace(c.Bot.APIBind)
	if c.Bot.APIBind == "" {
		c.Bot.APIBind = defaultAPIBind
	}
	c.Bot.Locale = strings.ToLower(strings.TrimSpace(c.Bot.Locale))
	if c.Bot.Locale == "" {
		c.Bot.Locale = defaultLocale
	}
	if c.Bot.MaxDiagnosticChars <= 0 {
		c.Bot.MaxDiagnosticChars = defaultMaxDiagnosticChars
	}
	if len(c.Bot.Admins) > 0 {
		admins := slices.Clone(c.Bot.Admins)
		slices.Sort(admins)
		c.Bot.Admins = slices.Compact(admins)
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegBinary = strings.TrimSpace(c.Transcoder.FFmpegBinary)
	if c.Transcoder.FFmpegBinary == "" {
		c.Transcoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcoder.FFprobeBinary = strings.TrimSpace(c.Transcoder.FFprobeBinary)
	if c.Transcoder.FFprobeBinary == "" {
		c.Transcoder.FFprobeBinary = defaultFFprobeBinary
	}
	c.Transcoder.Codec = strings.TrimSpace(c.Transcoder.Codec)
	c.Transcoder.Bitrate = strings.ToLower(strings.TrimSpace(c.Transcoder.Bitrate))
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
