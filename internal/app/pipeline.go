package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchpad/internal/capture"
	"github.com/ayusman/pinchpad/internal/detector"
	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/surface"
)

// Run is the capture loop. It opens the camera and, once per tick, reads a
// frame, runs hand detection when the motion gate allows it and calls Step.
// Frame and detection failures still advance the surface with no hands so
// pad sustain keeps running. Run returns when ctx is cancelled or the
// camera runs out of frames; the caller then calls Shutdown.
//
// Pipeline logic, when motion gating is on:
//  1. Start in idle mode (IdleFPS)
//  2. On motion or detected hands, switch to active mode (ActiveFPS)
//  3. After IdleHold without either, switch back to idle mode
func (a *App) Run(ctx context.Context) error {
	cam, det := a.config.Camera, a.config.Detector
	if cam == nil || det == nil {
		return ErrNoCamera
	}

	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			log.Warn("camera close failed", "err", err)
		}
	}()

	activeMode := false
	cam.SetFPS(a.config.IdleFPS)
	ticker := time.NewTicker(frameInterval(a.config.IdleFPS))
	defer ticker.Stop()

	log.Info("detection pipeline started", "idle_fps", a.config.IdleFPS, "active_fps", a.config.ActiveFPS)
	defer log.Info("detection pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now := time.Now()
		hands, active, err := a.processFrame(cam, det, now)
		if errors.Is(err, capture.ErrNoFrames) {
			return nil
		}

		a.Step(hands, now)

		if active != activeMode {
			activeMode = active
			fps := a.config.IdleFPS
			if active {
				fps = a.config.ActiveFPS
			}
			cam.SetFPS(fps)
			ticker.Reset(frameInterval(fps))
			log.Debug("pipeline mode changed", "active", active, "fps", fps)
		}
	}
}

// processFrame reads one frame and returns the hands found in it and
// whether the motion gate is open. Without a motion detector the gate is
// always open. Read and detection errors are logged and
// yield no hands; only ErrNoFrames is returned.
func (a *App) processFrame(cam capture.Camera, det detector.Detector, now time.Time) (surface.Hands, bool, error) {
	frame, err := cam.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrames) {
			return surface.Hands{}, false, err
		}
		log.Warn("frame read failed", "err", err)
		return surface.Hands{}, a.motion == nil || a.gate.Allow(false, now), nil
	}
	defer frame.Close()

	if a.motion != nil {
		motion, _ := a.motion.Detect(frame)
		if !a.gate.Allow(motion, now) {
			return surface.Hands{}, false, nil
		}
	}

	hands, err := a.detect(det, frame)
	if err != nil {
		log.Warn("hand detection failed", "err", err)
		return surface.Hands{}, true, nil
	}
	if hands.Len() > 0 {
		a.gate.KeepAlive(now)
	}
	return hands, true, nil
}

func (a *App) detect(det detector.Detector, frame *gocv.Mat) (surface.Hands, error) {
	landmarks, err := det.Detect(frame)
	if err != nil {
		return surface.Hands{}, err
	}
	return detector.HandsFromLandmarks(landmarks, frame.Cols(), frame.Rows()), nil
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = ActiveFPS
	}
	return time.Second / time.Duration(fps)
}
