// Package engine implements the wtas playback state machine.
//
// A Player replays a parsed script against a host Game one simulation step
// at a time, recording a trace of the run and exchanging protocol messages
// with a remote controller.
//
// ARCHITECTURE:
//
// Single-Writer Driver:
// The host calls Player.Drive once per simulation step, on one goroutine.
// That goroutine owns every piece of playback state. This ensures:
// - Inputs are derived exactly once per distinct tick
// - The trace has one sample per tick, indexed by ticks since run start
// - No locking on the hot path
//
// Step Flow:
// 1. Controller commands are drained from the inbox (non-blocking)
// 2. The live tick is read; current tick = live tick - run start tick
// 3. Stopped: report transform and state, inject nothing
// 4. Cursor exhausted: stop the run
// 5. Repeated tick: return the previous controller state unchanged
// 6. New tick: record a trace sample, honour the pause tick, derive input
//
// Hand-off:
// Commands arrive through a bounded FIFO filled by the protocol server's
// readers. SkipTo, PauseAt and SetTraceOptions are latest-wins cells rather
// than queue entries. Events leave through a bounded channel; when it is
// full the event is dropped rather than stalling the simulation.
//
// Frame stepping:
// While paused the host calls Player.AwaitFrame after each step. It blocks
// on the inbox until AdvanceFrame (one more step), PlayFile (resume) or
// Stop, re-checking state after every drained command.
package engine
