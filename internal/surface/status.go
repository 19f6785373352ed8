package surface

import "time"

// SliderStatus is a read-only snapshot of one slider.
type SliderStatus struct {
	Label    string     `json:"label"`
	Hand     Handedness `json:"hand"`
	CC       uint8      `json:"cc"`
	Value    int        `json:"value"`
	LastSent int        `json:"last_sent"`
	Pinch    float64    `json:"pinch,omitempty"`
	Active   bool       `json:"active"`
	InZone   bool       `json:"in_zone"`
	Zone     Rect       `json:"zone"`
}

// PadStatus is a read-only snapshot of one pad.
type PadStatus struct {
	Label    string  `json:"label"`
	Note     uint8   `json:"note"`
	Active   bool    `json:"active"`
	Touching bool    `json:"touching"`
	Center   Point   `json:"center"`
	Radius   float64 `json:"radius"`
}

// Status is the per-frame snapshot handed to renderers. It is never read
// back by the control logic.
type Status struct {
	Frame   uint64                   `json:"frame"`
	At      time.Time                `json:"at"`
	Hands   int                      `json:"hands"`
	PadMinY float64                  `json:"pad_min_y"`
	Sliders [NumSliders]SliderStatus `json:"sliders"`
	Pads    [NumPads]PadStatus       `json:"pads"`
}

// ActiveLabels lists the labels of active sliders followed by active pads.
func (s Status) ActiveLabels() []string {
	var labels []string
	for _, sl := range s.Sliders {
		if sl.Active {
			labels = append(labels, sl.Label)
		}
	}
	for _, p := range s.Pads {
		if p.Active {
			labels = append(labels, p.Label)
		}
	}
	return labels
}
