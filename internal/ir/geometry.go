package ir

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Scale returns v * f.
func (v Vec3) Scale(f float32) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Vec2 is a view angle (yaw, pitch).
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}
