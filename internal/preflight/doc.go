// Package preflight provides readiness checks for the filesystem paths and
// external binaries that darkroom depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs failures. Nothing halts:
//     a root that appears later (a mounted SD card) is picked up by rescans.
//   - The CLI "darkroom status" command uses the individual check functions
//     to display readiness per path and per binary.
//
// Each check is gated by its config toggle -- the trash directory is only
// checked under the trash-dir retire strategy.
package preflight
