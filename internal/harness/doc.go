// Package harness runs playback scenarios against the headless host.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	scripts:
//	  walk.wtas: |
//	    version 0
//	    start now
//	    1>U
//	    +10>u
//	steps: 20
//	commands:
//	  - at: 0
//	    type: PlayFile
//	    data: { name: walk.wtas }
//	  - at: 5
//	    type: AdvanceFrame
//	assertions:
//	  - type: input
//	    tick: 3
//	    keys: U
//	  - type: run
//	    index: 0
//	    reason: finished
//
// Commands use the remote control wire names and are decoded with the
// protocol codec, so a scenario exercises the same path a controller does.
//
// # Host Model
//
// Each step submits the commands scheduled for it, steps the player and
// injects its input, then advances the host. While the player is paused
// the host frame is held: later steps are recorded as held until a command
// releases the frame.
//
// # Deterministic Testing
//
// The harness uses:
//   - Fixed run IDs (from scenario.run_ids or run-1, run-2, ...)
//   - Deterministic wall clock (testutil.DeterministicClock)
//   - In-memory SQLite run store (isolated per scenario)
//
// This ensures identical renderings across runs for golden file comparison.
package harness
