// Package services defines shared utilities consumed by the command handlers,
// the normalization pipeline, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs, submission keys, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent log classifications (user mistake vs tool failure).
//
// Use these helpers when wiring new handler or stage logic so operational
// behaviour (error handling, observability) stays uniform across the bot.
package services
