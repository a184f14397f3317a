// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths that musicbot depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when the
//     transcoder is missing, since every audio submission would fail.
//   - The CLI "musicbot status" command uses individual check functions
//     (CheckBridge, CheckDirectoryAccess) to display service health.
package preflight
