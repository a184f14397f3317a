package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

var bitratePattern = regexp.MustCompile(`^[1-9][0-9]*k$`)

// SupportedLocales lists the reply locales bundled with the bot.
var SupportedLocales = []string{"en", "fa"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBot(); err != nil {
		return err
	}
	if err := c.validateTranscoder(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBot() error {
	if c.Bot.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("bot.token is required. Set MUSICBOT_TOKEN env var or edit %s (create with 'musicbot config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Bot.BridgeURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("bot.bridge_url %q must be an absolute http(s) URL", c.Bot.BridgeURL)
	}
	if err := validateLocale(c.Bot.Locale); err != nil {
		return err
	}
	for _, id := range c.Bot.Admins {
		if id <= 0 {
			return fmt.Errorf("bot.admins contains invalid user id %d", id)
		}
	}
	return ensurePositiveMap(map[string]int{
		"bot.max_diagnostic_chars": c.Bot.MaxDiagnosticChars,
		"bot.request_timeout":      c.Bot.RequestTimeout,
	})
}

func validateLocale(value string) error {
	tag, err := language.Parse(value)
	if err != nil {
		return fmt.Errorf("bot.locale %q: %w", value, err)
	}
	base, _ := tag.Base()
	for _, supported := range SupportedLocales {
		if base.String() == supported {
			return nil
		}
	}
	return fmt.Errorf("bot.locale %q is not supported (choose one of %s)", value, strings.Join(SupportedLocales, ", "))
}

func (c *Config) validateTranscoder() error {
	if c.Transcoder.Codec == "" {
		return errors.New("transcoder.codec must be set")
	}
	if !bitratePattern.MatchString(c.Transcoder.Bitrate) {
		return fmt.Errorf("transcoder.bitrate %q must look like 192k", c.Transcoder.Bitrate)
	}
	return ensurePositiveMap(map[string]int{
		"transcoder.max_concurrent":  c.Transcoder.MaxConcurrent,
		"transcoder.timeout_seconds": c.Transcoder.TimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
