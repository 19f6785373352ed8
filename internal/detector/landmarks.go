// Package detector provides the hand-landmark boundary: the Detector
// interface, MediaPipe landmark indices, and the conversion from raw
// landmarks to the pinch and palm readings the control surface consumes.
package detector

import (
	"math"

	"github.com/ayusman/pinchpad/internal/surface"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to [0, 1] of the
// frame width and height.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// toPixel scales a normalized landmark to integer frame pixels.
func toPixel(p Point3D, width, height int) (int, int) {
	return int(p.X * float64(width)), int(p.Y * float64(height))
}

// Pinch returns the thumb-tip to index-tip distance and the midpoint
// between them, both in frame pixels.
func (h *HandLandmarks) Pinch(width, height int) (float64, surface.Point) {
	tx, ty := toPixel(h.Points[ThumbTip], width, height)
	ix, iy := toPixel(h.Points[IndexTip], width, height)

	dx := float64(tx - ix)
	dy := float64(ty - iy)
	distance := math.Sqrt(dx*dx + dy*dy)

	center := surface.Point{
		X: float64(floorDiv(tx+ix, 2)),
		Y: float64(floorDiv(ty+iy, 2)),
	}
	return distance, center
}

// Palm returns the palm center, taken halfway between the wrist and the
// middle finger MCP.
func (h *HandLandmarks) Palm(width, height int) surface.Point {
	wrist := h.Points[Wrist]
	middle := h.Points[MiddleMCP]
	return surface.Point{
		X: float64(int((wrist.X + middle.X) / 2 * float64(width))),
		Y: float64(int((wrist.Y + middle.Y) / 2 * float64(height))),
	}
}

// ToHandSample converts landmarks into a surface sample. It reports false
// when the handedness label is not Left or Right.
func ToHandSample(h HandLandmarks, width, height int) (surface.HandSample, bool) {
	hand, ok := surface.ParseHandedness(h.Handedness)
	if !ok {
		return surface.HandSample{}, false
	}

	distance, center := h.Pinch(width, height)
	return surface.HandSample{
		Hand:          hand,
		PinchDistance: distance,
		PinchCenter:   center,
		PalmCenter:    h.Palm(width, height),
	}, true
}

// HandsFromLandmarks builds the per-frame hand slots from detector output.
// Hands with unrecognized labels are skipped; a repeated label keeps the
// later hand.
func HandsFromLandmarks(hands []HandLandmarks, width, height int) surface.Hands {
	var out surface.Hands
	for _, h := range hands {
		if s, ok := ToHandSample(h, width, height); ok {
			out.Set(s)
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
