// Package textutil provides filename and path-segment sanitization for the
// files the bot writes on behalf of users.
//
// Declared file names arrive from chat clients and may contain separators,
// control characters, or decomposed Unicode. SanitizeFileName folds them into
// NFC and strips anything unsafe for a single path segment; SanitizeKey turns
// transport identifiers into case-preserving directory names.
package textutil
