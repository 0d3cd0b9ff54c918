// Package ir provides the shared data model for wtas.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Ticks are uint32, counted from the start of a playback run
//   - Script ticks are absolute once a Script leaves the parser
//   - All JSON tags use snake_case
//   - Positions and angles are float32, matching the host's layout
package ir
