package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
	}{
		{"default threshold", 1.0},
		{"high threshold", 5.0},
		{"low threshold", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if md.threshold != tt.threshold {
				t.Errorf("threshold = %f, want %f", md.threshold, tt.threshold)
			}
			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame1 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	detected, changePercent := md.Detect(&frame1)
	if detected || changePercent != 0 {
		t.Errorf("first frame: detected=%v change=%f, want false/0", detected, changePercent)
	}

	detected, changePercent = md.Detect(&frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	blackFrame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer blackFrame.Close()
	whiteFrame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer whiteFrame.Close()
	whiteFrame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	if detected, _ := md.Detect(&blackFrame); detected {
		t.Error("first frame should not detect motion")
	}

	detected, changePercent := md.Detect(&whiteFrame)
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}
	if changePercent < 50.0 {
		t.Errorf("changePercent = %f, expected > 50%% for black to white transition", changePercent)
	}
}

func TestMotionDetector_Baseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}
	if md.prevGray.Cols() != AnalysisWidth {
		t.Errorf("baseline width = %d, want %d", md.prevGray.Cols(), AnalysisWidth)
	}

	md.Close()

	if md.initialized {
		t.Error("detector should not be initialized after Close")
	}
	if !md.prevGray.Empty() {
		t.Error("prevGray should be empty after Close")
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)

	md.Close()
	md.Close()
}

func TestIdleGate(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	g := NewIdleGate(time.Second)

	if g.Allow(false, t0) {
		t.Error("gate should start closed")
	}
	if !g.Allow(true, t0) {
		t.Error("motion should open the gate")
	}
	if !g.Allow(false, t0.Add(time.Second)) {
		t.Error("gate should stay open for the hold duration")
	}
	if g.Allow(false, t0.Add(time.Second+time.Millisecond)) {
		t.Error("gate should close after the hold duration")
	}

	g.KeepAlive(t0.Add(5 * time.Second))
	if !g.Allow(false, t0.Add(5500*time.Millisecond)) {
		t.Error("keep-alive should reopen the gate")
	}
}

func TestIdleGate_ZeroHold(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)

	for _, hold := range []time.Duration{0, -time.Second} {
		g := NewIdleGate(hold)
		if g.hold != 0 {
			t.Errorf("NewIdleGate(%v).hold = %v, want 0", hold, g.hold)
		}
		if !g.Allow(true, t0) {
			t.Error("motion should open the gate")
		}
		if g.Allow(false, t0.Add(time.Millisecond)) {
			t.Error("gate should close on the next still frame")
		}
	}
}
