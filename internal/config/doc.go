// Package config loads, normalizes, and validates musicbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for secrets
// such as MUSICBOT_TOKEN. The Config type centralizes every knob the daemon and
// CLI need so the workspace root, the chat bridge endpoint, and the transcoder
// settings are discovered in one pass.
//
// The package also embeds the sample service configuration and the default
// per-user template document so `musicbot config init` can bootstrap a host.
package config
