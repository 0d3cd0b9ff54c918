package ir

// TraceTick is the player state recorded for one tick of a run.
type TraceTick struct {
	Position    Vec3              `json:"position"`
	Angle       Vec2              `json:"angle"`
	Interaction InteractionStatus `json:"interaction"`
}

// PuzzleClick records where the camera was and which way it pointed
// when a puzzle click happened.
type PuzzleClick struct {
	Tick           uint32 `json:"tick"`
	CameraPosition Vec3   `json:"camera_position"`
	Direction      Vec3   `json:"direction"`
}
