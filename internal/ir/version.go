package ir

// Version constants for scripts, protocol and engine.
const (
	// ScriptVersion is the only script language version accepted by the parser.
	ScriptVersion = 0

	// ProtocolVersion is the remote control wire format version.
	ProtocolVersion = "1"

	// EngineVersion is the wtas engine version.
	EngineVersion = "0.1.0"
)
