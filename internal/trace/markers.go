package trace

import (
	"image/color"

	"github.com/roach88/wtas/internal/ir"
)

// Marker colours.
var (
	ColorFocusMode    = color.RGBA{R: 255, A: 255}
	ColorSolvingPanel = color.RGBA{R: 255, G: 105, B: 180, A: 255}
	ColorWalking      = color.RGBA{G: 255, A: 255}
	ColorCinematic    = color.RGBA{R: 128, G: 128, B: 128, A: 128}
	ColorPuzzleClick  = color.RGBA{B: 255, A: 255}
)

// Marker is one sphere the host should draw in-world.
type Marker struct {
	Position ir.Vec3
	Radius   float32
	Color    color.RGBA
}

// InteractionColor returns the trace colour for an interaction status.
func InteractionColor(s ir.InteractionStatus) color.RGBA {
	switch s {
	case ir.FocusMode:
		return ColorFocusMode
	case ir.SolvingPanel:
		return ColorSolvingPanel
	case ir.Cinematic:
		return ColorCinematic
	default:
		return ColorWalking
	}
}

// Markers lists what to draw for the current display window: a sphere per
// visible tick, lifted by the z offset, followed by an indicator for each
// visible puzzle click placed along the click direction.
func (t *Trace) Markers() []Marker {
	opts := t.Options
	visible := t.Visible()
	clicks := t.VisibleClicks()

	out := make([]Marker, 0, len(visible)+len(clicks))
	for _, tick := range visible {
		pos := tick.Position
		pos.Z += opts.ZOffset
		out = append(out, Marker{Position: pos, Radius: opts.SphereRadius, Color: InteractionColor(tick.Interaction)})
	}
	for _, c := range clicks {
		out = append(out, Marker{
			Position: c.CameraPosition.Add(c.Direction.Scale(opts.ClickIndicatorDistanceMultiplier)),
			Radius:   opts.ClickIndicatorRadius,
			Color:    ColorPuzzleClick,
		})
	}
	return out
}
