package surface

// Rect is an axis-aligned rectangle with inclusive bounds.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether (x, y) lies inside or on the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// sliderZone computes the activation rectangle of a slider: its bar grown
// by the margin on every side, with y clamped to [SliderMinY, SliderMaxY].
func sliderZone(c *Config, s *SliderConfig) Rect {
	return Rect{
		MinX: s.X - c.SliderMargin,
		MaxX: s.X + s.Width + c.SliderMargin,
		MinY: max(c.SliderMinY, s.Y-c.SliderMargin),
		MaxY: min(c.SliderMaxY, s.Y+s.Height+c.SliderMargin),
	}
}

// InSliderZone reports whether (x, y) falls in the slider's activation zone.
// Points at or below PadMinY never match, so a point is never in both a
// slider zone and the pad zone.
func InSliderZone(zone Rect, padMinY, x, y float64) bool {
	return zone.Contains(x, y) && y < padMinY
}

// InPadZone reports whether y is at or below the pad separator line.
func InPadZone(padMinY, y float64) bool {
	return y >= padMinY
}
