package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"github.com/ayusman/pinchpad/internal/app"
	"github.com/ayusman/pinchpad/internal/capture"
	"github.com/ayusman/pinchpad/internal/config"
	"github.com/ayusman/pinchpad/internal/detector"
	"github.com/ayusman/pinchpad/internal/log"
	"github.com/ayusman/pinchpad/internal/midi"
	"github.com/ayusman/pinchpad/internal/server"
	"github.com/ayusman/pinchpad/internal/store"
	"github.com/ayusman/pinchpad/internal/surface"
	"github.com/ayusman/pinchpad/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		listPorts    = flag.Bool("list-ports", false, "List MIDI output and serial ports and exit")
		cameraDevice = flag.Int("camera", 0, "Camera device index")
		mirror       = flag.Bool("mirror", true, "Mirror camera frames horizontally")
		midiPort     = flag.String("port", "", "MIDI output port name (substring match)")
		serialDevice = flag.String("serial", "", "Serial MIDI device (e.g. /dev/ttyUSB0)")
		dryRun       = flag.Bool("dry-run", false, "Log MIDI events instead of sending them")
		journalPath  = flag.String("journal", "", "Session journal database path")
		noJournal    = flag.Bool("no-journal", false, "Disable the session journal")
		addr         = flag.String("addr", "", "HTTP listen address for status and journal API")
		staticDir    = flag.String("static", "", "Directory served at / by the HTTP server")
		withTray     = flag.Bool("tray", false, "Show the system tray menu")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	if *listPorts {
		return printPorts()
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(config.ExpandPath(*configPath))
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			o.CameraDevice = cameraDevice
		case "mirror":
			o.Mirror = mirror
		case "port":
			o.MIDIPort = midiPort
		case "serial":
			o.SerialDevice = serialDevice
		case "dry-run":
			o.DryRun = dryRun
		case "journal":
			o.JournalPath = journalPath
		case "no-journal":
			enabled := !*noJournal
			o.JournalEnabled = &enabled
		case "addr":
			o.ServerAddr = addr
		case "static":
			o.StaticDir = staticDir
		case "tray":
			o.Tray = withTray
		case "log-level":
			o.LogLevel = logLevel
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	surfaceCfg, err := cfg.ToSurfaceConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log.Init(cfg.Logging.Level)

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	logBindings(surfaceCfg, sink.Name())

	var st *store.Store
	if cfg.Journal.Enabled {
		st, err = store.New(config.ExpandPath(cfg.Journal.Path))
		if err != nil {
			sink.Close()
			return fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()
	}

	det := newDetector(cfg.DetectorOptions())
	hub := server.NewStatusHub()
	defer hub.Close()

	var tr *tray.Tray
	if cfg.Tray.Enabled {
		tr = tray.New(sink.Name())
	}

	a, err := app.New(app.Config{
		Surface:         surfaceCfg,
		Sink:            sink,
		Camera:          capture.NewCamera(cfg.CameraOptions()),
		Detector:        det,
		Store:           st,
		Hub:             hub,
		Tray:            tr,
		MotionThreshold: cfg.Camera.MotionThreshold,
		IdleHold:        cfg.IdleHold(),
		ActiveFPS:       cfg.Camera.FPS,
		SessionConfig:   cfg,
	})
	if err != nil {
		sink.Close()
		det.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.Server.Addr != "" {
		dir := cfg.Server.StaticDir
		if dir == "" {
			dir = findWebDir()
		}
		srv := server.New(server.Config{
			StaticDir: config.ExpandPath(dir),
			Store:     st,
			Hub:       hub,
			Control:   a,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Error("http server failed", "addr", cfg.Server.Addr, "err", err)
			}
		}()
	}

	runErr := make(chan error, 1)
	go func() {
		err := a.Run(ctx)
		stop()
		runErr <- err
	}()

	if tr != nil {
		tr.OnToggle(a.SetEnabled)
		tr.OnQuit(stop)
		if cfg.Server.Addr != "" {
			url := "http://" + cfg.Server.Addr
			tr.OnDashboard(func() { openURL(url) })
		}
		go func() {
			<-ctx.Done()
			tr.Quit()
		}()
		// systray needs the main goroutine.
		tr.Run()
	}

	err = <-runErr
	wg.Wait()

	if shutdownErr := a.Shutdown(); shutdownErr != nil {
		log.Warn("shutdown incomplete", "err", shutdownErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("pinchpad stopped", "midi_errors", a.SinkErrors())
	return nil
}

// openSink builds the MIDI output: a recorder for dry runs, otherwise the
// selected port, the serial device, or both.
func openSink(cfg config.Config) (midi.Sink, error) {
	if cfg.MIDI.DryRun {
		return midi.NewRecorder(true), nil
	}

	var sinks midi.Tee
	if cfg.MIDI.SerialDevice != "" {
		s, err := midi.OpenSerial(cfg.MIDI.SerialDevice, cfg.MIDI.SerialBaud)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	port, err := midi.OpenPort(cfg.PortOptions())
	switch {
	case err == nil:
		sinks = append(sinks, port)
	case len(sinks) > 0 && cfg.MIDI.Port == "":
		// A serial device alone is enough unless a port was asked for.
		log.Warn("no MIDI output port, using serial only", "err", err)
	default:
		sinks.Close()
		return nil, fmt.Errorf("open MIDI port: %w", err)
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func newDetector(opts detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(opts)
	if err != nil {
		log.Warn("MediaPipe not available, using mock detector", "err", err)
		return detector.NewMockDetector()
	}
	log.Info("using MediaPipe hand detection")
	return mp
}

// logBindings prints the control map once at startup.
func logBindings(cfg surface.Config, output string) {
	log.Info("pinchpad ready", "output", output, "channel", cfg.Channel+1)
	for _, s := range cfg.Sliders {
		log.Info("slider", "label", s.Label, "hand", s.Hand.String(), "cc", s.CC)
	}
	for _, p := range cfg.Pads {
		log.Info("pad", "label", p.Label, "note", p.Note)
	}
}

func printPorts() error {
	ports, err := midi.ListPorts()
	if err != nil {
		return err
	}
	fmt.Println("MIDI output ports:")
	if len(ports) == 0 {
		fmt.Println("  (none)")
	}
	for _, p := range ports {
		fmt.Println("  " + p)
	}

	serials, err := midi.SerialPorts()
	if err != nil {
		return err
	}
	fmt.Println("Serial ports:")
	if len(serials) == 0 {
		fmt.Println("  (none)")
	}
	for _, p := range serials {
		fmt.Println("  " + p)
	}
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.pinchpad/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".pinchpad", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("open dashboard failed", "url", url, "err", err)
	}
}
