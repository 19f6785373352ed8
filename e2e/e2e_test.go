package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpad/internal/app"
	"github.com/ayusman/pinchpad/internal/capture"
	"github.com/ayusman/pinchpad/internal/config"
	"github.com/ayusman/pinchpad/internal/detector"
	"github.com/ayusman/pinchpad/internal/midi"
	"github.com/ayusman/pinchpad/internal/server"
	"github.com/ayusman/pinchpad/internal/store"
	"github.com/ayusman/pinchpad/internal/surface"
)

// performerHands returns a left hand pinching inside the first slider and a
// right hand resting on the bottom-right pad.
func performerHands() []detector.HandLandmarks {
	left := detector.PinchLandmarks("Left",
		detector.Point3D{X: 0.4, Y: 0.25},
		detector.Point3D{X: 0.55, Y: 0.25},
		detector.Point3D{X: 0.5, Y: 0.4},
	)
	pinch := detector.Point3D{X: 0.5, Y: 0.9}
	right := detector.PinchLandmarks("Right", pinch, pinch, detector.Point3D{X: 0.90625, Y: 0.8375})
	return []detector.HandLandmarks{left, right}
}

func flickerFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
		if i%2 == 1 {
			m.SetTo(gocv.NewScalar(255, 255, 255, 0))
		}
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func getJSON(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestE2E_PerformanceSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := config.DefaultConfig()
	surfaceCfg, err := cfg.ToSurfaceConfig()
	if err != nil {
		t.Fatalf("ToSurfaceConfig() error = %v", err)
	}

	det := detector.NewMockDetector()
	det.SetHands(performerHands())
	rec := midi.NewRecorder(false)
	hub := server.NewStatusHub()
	defer hub.Close()

	application, err := app.New(app.Config{
		Surface:         surfaceCfg,
		Sink:            rec,
		Camera:          capture.NewMockCamera(flickerFrames(t, 4), false),
		Detector:        det,
		Store:           s,
		Hub:             hub,
		MotionThreshold: cfg.Camera.MotionThreshold,
		IdleHold:        cfg.IdleHold(),
		IdleFPS:         500,
		ActiveFPS:       1000,
		SessionConfig:   cfg,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Shutdown()

	ts := httptest.NewServer(server.New(server.Config{
		Store:   s,
		Hub:     hub,
		Control: application,
	}))
	defer ts.Close()
	client := ts.Client()

	t.Run("Perform", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := application.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		events := rec.Events()
		if len(events) < 2 {
			t.Fatalf("expected slider and pad events, got %v", events)
		}
		if events[0].Kind != surface.ControlChange || events[0].Number != 20 {
			t.Errorf("first event = %v, want CC20 from the left hand", events[0])
		}
		if events[1].Kind != surface.NoteOn || events[1].Number != 46 {
			t.Errorf("second event = %v, want note-on 46", events[1])
		}
		for _, ev := range events[2:] {
			if ev.Kind != surface.ControlChange {
				t.Errorf("pad should not retrigger while held, got %v", ev)
			}
		}
	})

	t.Run("Status", func(t *testing.T) {
		var msg struct {
			Type   string         `json:"type"`
			Status surface.Status `json:"status"`
			Active []string       `json:"active"`
		}
		getJSON(t, client, ts.URL+"/api/status", &msg)

		if msg.Type != "status" || msg.Status.Frame != 4 {
			t.Errorf("status = %+v, want frame 4", msg)
		}
		if strings.Join(msg.Active, ",") != "SLIDER 1,PAD 4" {
			t.Errorf("active = %v, want [SLIDER 1 PAD 4]", msg.Active)
		}
	})

	t.Run("Control", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/control", "application/json", strings.NewReader(`{"enabled": false}`))
		if err != nil {
			t.Fatalf("POST /api/control: %v", err)
		}
		resp.Body.Close()

		if application.Enabled() {
			t.Error("output should be disabled through the API")
		}
		application.SetEnabled(true)
	})

	t.Run("Journal", func(t *testing.T) {
		sent := len(rec.Events())
		if err := application.Shutdown(); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if !rec.Closed() {
			t.Error("sink should be closed after shutdown")
		}

		var list struct {
			Sessions []struct {
				ID      string `json:"id"`
				EndedAt string `json:"ended_at"`
				Output  string `json:"output"`
				Events  int    `json:"events"`
			} `json:"sessions"`
		}
		getJSON(t, client, ts.URL+"/api/sessions", &list)

		if len(list.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(list.Sessions))
		}
		sess := list.Sessions[0]
		if sess.ID != application.SessionID() || sess.EndedAt == "" || sess.Output != "recorder" {
			t.Errorf("unexpected session %+v", sess)
		}

		want := sent + surface.NumSliders + surface.NumPads
		if sess.Events != want {
			t.Errorf("session events = %d, want %d", sess.Events, want)
		}

		var events struct {
			Events []struct {
				Seq    int64  `json:"seq"`
				Kind   string `json:"kind"`
				Number uint8  `json:"number"`
				Value  uint8  `json:"value"`
			} `json:"events"`
		}
		getJSON(t, client, ts.URL+"/api/sessions/"+sess.ID+"/events", &events)

		if len(events.Events) != want {
			t.Fatalf("listed %d events, want %d", len(events.Events), want)
		}
		last := events.Events[len(events.Events)-1]
		if last.Kind != "note_off" || last.Number != 46 || last.Seq != int64(want) {
			t.Errorf("last journaled event = %+v, want the final reset note-off", last)
		}
	})

	t.Run("HealthAfterShutdown", func(t *testing.T) {
		var health struct {
			Status string `json:"status"`
		}
		getJSON(t, client, ts.URL+"/api/health", &health)
		if health.Status != "ok" {
			t.Errorf("health status = %q", health.Status)
		}
	})
}
