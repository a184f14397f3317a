// Package userconfig manages the per-user config.json document.
//
// Documents are created from the shared template, read, and replaced as a
// whole. Every write goes through a temp file in the workspace directory so
// the canonical file is never observed half-written, and user_id is always
// forced to the owning workspace id. Unknown members round-trip verbatim and
// in order.
package userconfig
