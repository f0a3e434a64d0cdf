package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-aerocontrol/pkg/config"
	"github.com/opd-ai/go-aerocontrol/pkg/engine"
	"github.com/opd-ai/go-aerocontrol/pkg/event"
	"github.com/opd-ai/go-aerocontrol/pkg/health"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/render"
	rengo "github.com/opd-ai/go-aerocontrol/pkg/render/engo"
	"github.com/opd-ai/go-aerocontrol/pkg/telemetry"
)

const (
	hostHeadless = "headless"
	hostTerminal = "terminal"
	hostWindow   = "engo"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	configPath := flag.String("config", "", "Path to a json, yaml or toml configuration file")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	preset := flag.String("preset", "", "Aircraft preset, overriding the configuration")
	listPresets := flag.Bool("list-presets", false, "List the built-in presets and exit")
	host := flag.String("host", hostHeadless, "Input host: headless, terminal or engo")
	duration := flag.Duration("duration", 0, "Headless run time; 0 runs until interrupted")
	metricsAddr := flag.String("metrics", "", "Serve telemetry on this address, overriding the configuration")
	logFile := flag.String("log-file", "", "Write logs here instead of stderr")
	fontPath := flag.String("font", "", "TTF font for the engo HUD")
	width := flag.Int("width", 1280, "Window width for the engo host")
	height := flag.Int("height", 720, "Window height for the engo host")
	flag.Parse()

	switch *host {
	case hostHeadless, hostTerminal, hostWindow:
	default:
		logger.Error(ctx, "Unknown host", nil, "host", *host)
		os.Exit(2)
	}

	if *listPresets {
		printPresets(os.Stdout)
		return
	}

	if *writeConfig != "" {
		if err := config.SaveConfig(config.DefaultConfig(), *writeConfig); err != nil {
			logger.Error(ctx, "Failed to write default configuration", err, "config_path", *writeConfig)
			os.Exit(1)
		}
		logger.Info(ctx, "Wrote default configuration", "config_path", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *preset != "" {
		cfg.Preset = *preset
		cfg.Profile = nil
	}
	if *metricsAddr != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Addr = *metricsAddr
	}

	logger, closeLog, err := buildLogger(cfg, *host, *logFile)
	if err != nil {
		logging.NewLogger().Error(ctx, "Failed to open log file", err, "path", *logFile)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger, *host, *duration, *fontPath, *width, *height); err != nil {
		logger.Error(ctx, "Flight session failed", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.SimConfig, logger *logging.Logger, host string, duration time.Duration, fontPath string, width, height int) error {
	session, err := engine.NewSession(cfg, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	ctx := session.Context()
	logEvents(session.EventBus, logger)

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(runCtx, session, cfg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	switch host {
	case hostHeadless:
		if duration > 0 {
			var stop context.CancelFunc
			runCtx, stop = context.WithTimeout(runCtx, duration)
			defer stop()
		}
		logger.Info(ctx, "Flying headless", "duration", duration.String())
		if err := session.Run(runCtx); err != nil {
			return err
		}
		snap := session.Snapshot()
		logger.Info(ctx, "Final state",
			"ticks", snap.Tick,
			"altitude", snap.Altitude,
			"speed", snap.Speed,
			"aoa", snap.AoA)
		return nil

	case hostTerminal:
		screen, err := tcell.NewScreen()
		if err != nil {
			return logging.WrapError(err, "failed to open terminal")
		}
		return render.NewTerminalHost(screen, session, cfg.Cursor, logger).Run(runCtx)

	case hostWindow:
		rengo.Run(rengo.NewFlightScene(session, cfg.Cursor, fontPath, logger), width, height)
		return nil
	}
	return fmt.Errorf("unknown host %q", host)
}

// startTelemetry wires the metrics recorder, the snapshot sampler, the
// health checks and the HTTP server to the session.
func startTelemetry(ctx context.Context, session *engine.Session, cfg *config.SimConfig, logger *logging.Logger) (func(), error) {
	recorder := telemetry.NewRecorder()
	unsubscribe := recorder.Subscribe(session.EventBus)

	every := cfg.TickRate / 10
	sampler := telemetry.NewSampler(session.Flight, recorder, every)
	session.AddSystem(sampler)

	checker := health.NewChecker()
	server := telemetry.NewServer(telemetry.ServerOptions{
		Recorder: recorder,
		State:    sampler,
		Health:   checker,
		Controls: session.Controls,
		Logger:   logger,
	})
	checker.AddCheck(health.NewSessionCheck(session.Running))
	checker.AddCheck(health.NewTickProgressCheck(session.Ticks, 2*time.Second))
	checker.AddCheck(health.NewListenerCheck(server.Addr))
	checker.AddCheck(health.NewMemoryCheck(500, nil))

	if err := server.Start(ctx, cfg.Telemetry.Addr); err != nil {
		unsubscribe()
		return nil, err
	}
	return func() {
		unsubscribe()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}, nil
}

// logEvents reports limiter and stall transitions at info level.
func logEvents(bus *event.Bus, logger *logging.Logger) {
	log := logger.Component("events")
	for _, typ := range []event.Type{event.LimiterDisabled, event.CooldownStarted, event.CooldownEnded} {
		bus.Subscribe(typ, func(e event.Event) {
			le := e.(*event.LimiterEvent)
			log.Info(context.Background(), "AoA limiter", "event", string(le.GetType()), "aircraft", le.AircraftID, "aoa", le.AoA, "cooldown", le.CooldownRemaining)
		})
	}
	for _, typ := range []event.Type{event.StallEntered, event.StallRecovered} {
		bus.Subscribe(typ, func(e event.Event) {
			se := e.(*event.StallEvent)
			log.Info(context.Background(), "Stall", "event", string(se.GetType()), "aircraft", se.AircraftID, "speed", se.Speed, "duration", se.Duration)
		})
	}
}

// buildLogger applies the configured level. The terminal host owns the
// screen, so without a log file its logs are dropped.
func buildLogger(cfg *config.SimConfig, host, path string) (*logging.Logger, func(), error) {
	level := logging.ParseLevel(cfg.LogLevel)
	if env := os.Getenv(logging.LevelEnvVar); env != "" {
		level = logging.ParseLevel(env)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case path != "":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { f.Close() }
	case host == hostTerminal:
		w = io.Discard
	}
	return logging.NewLoggerWithWriter(w, level), closeFn, nil
}

func printPresets(w io.Writer) {
	presets := config.ListPresets()
	for _, name := range config.PresetNames() {
		p := presets[name]
		fmt.Fprintf(w, "%-10s %s (AoA limit %.0f°, stall %.0f)\n", name, p.Description, p.Profile.MaxAoAWithLimiter, p.Profile.StallSpeed)
	}
}
