// fcd is the flight-core daemon: it owns the configuration store, answers
// MSP configurator traffic over TCP and serial, journals lifecycle events
// and optionally exports MAVLink telemetry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fccore/internal/annunciator"
	"fccore/internal/app"
	"fccore/internal/bus"
	"fccore/internal/capability"
	"fccore/internal/config"
	"fccore/internal/eeprom"
	"fccore/internal/fc"
	"fccore/internal/journal"
	"fccore/internal/logging"
	"fccore/internal/msp"
	"fccore/internal/target"
	"fccore/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run daemon", "error", err)
		os.Exit(1)
	}
}

func run() error {
	tcpAddr := flag.String("tcp", "", "msp tcp listen address (overrides config)")
	serialPort := flag.String("serial", "", "msp serial port (overrides config)")
	targetPath := flag.String("target", "", "board definition yaml (overrides config)")
	silent := flag.Bool("silent", false, "disable the annunciator")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := app.ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(*tcpAddr) != "" {
		cfg.MSP.TCPAddress = strings.TrimSpace(*tcpAddr)
	}
	if strings.TrimSpace(*serialPort) != "" {
		cfg.MSP.SerialPort = strings.TrimSpace(*serialPort)
	}
	if strings.TrimSpace(*targetPath) != "" {
		cfg.Target.DefinitionPath = strings.TrimSpace(*targetPath)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		if closeErr := logMgr.Close(); closeErr != nil {
			slog.Warn("close log manager", "error", closeErr)
		}
	}()
	logger := logMgr.Logger("fcd")
	logger.Info("starting", "version", app.BuildVersion(), "build_date", app.BuildDateYMD())

	tgt, err := target.Load(cfg.Target.DefinitionPath)
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}
	logger.Info("target", "board", tgt.Board, "name", tgt.Name)

	b := bus.New(logMgr.Logger("bus"))
	defer b.Close()

	journalPath := cfg.Storage.JournalPath
	if journalPath == "" {
		journalPath = paths.JournalFile
	}
	db, err := journal.Open(ctx, journalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close journal", "error", closeErr)
		}
	}()

	repo := journal.NewEventRepo(db)
	writer := journal.NewWriterQueue(logMgr.Logger("journal"), 256)
	writer.Start(ctx)
	journal.NewRecorder(b, repo, writer, logMgr.Logger("journal")).Start(ctx)

	if !*silent {
		annunciator.NewService(b, annunciator.BeeepSounder{}, logMgr.Logger("annunciator")).Start(ctx)
	}

	settingsPath := cfg.Storage.SettingsPath
	if settingsPath == "" {
		settingsPath = paths.SettingsFile
	}
	medium := eeprom.NewFileMedium(settingsPath, cfg.Storage.SettingsSize)

	gate := msp.NewRCGate(nil)
	core := fc.NewController(fc.Deps{
		Medium: medium,
		Target: tgt,
		Hardware: fc.StaticHardware{
			Sensors:   tgt.SensorMask(),
			CompassOK: tgt.SensorMask().Has(capability.SensorMag),
			AllOK:     true,
		},
		Rx:     gate,
		Bus:    b,
		Logger: logMgr.Logger("fc"),
	})

	if err := core.EnsureValidStorage(ctx); err != nil {
		// Structurally unusable medium. Refusing to start is the safe
		// state on a host; a board would reboot into its bootloader.
		return fmt.Errorf("settings storage unusable: %w", err)
	}
	if err := core.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	dispatcher := msp.NewDispatcher(core, gate, logMgr.Logger("msp"))

	errCh := make(chan error, 3)

	if strings.TrimSpace(cfg.MSP.TCPAddress) != "" {
		server := msp.NewServer(dispatcher, logMgr.Logger("msp"))
		if err := server.Listen(cfg.MSP.TCPAddress); err != nil {
			return fmt.Errorf("msp tcp: %w", err)
		}
		defer func() { _ = server.Close() }()
		go func() { errCh <- server.Serve(ctx) }()
	}

	if strings.TrimSpace(cfg.MSP.SerialPort) != "" {
		link := msp.NewSerialLink(cfg.MSP.SerialPort, cfg.MSP.SerialBaud, dispatcher, logMgr.Logger("msp"))
		if err := link.Open(); err != nil {
			return fmt.Errorf("msp serial: %w", err)
		}
		defer func() { _ = link.Close() }()
		go func() { errCh <- link.Serve(ctx) }()
	}

	if cfg.Telemetry.Enabled && core.Features().Has(capability.FeatureTelemetry) {
		exporter, err := telemetry.NewExporter(cfg.Telemetry.UDPAddress, core, logMgr.Logger("telemetry"))
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer exporter.Close()
		go func() { errCh <- exporter.Run(ctx) }()
	}

	logger.Info("running", "tcp", cfg.MSP.TCPAddress, "serial", cfg.MSP.SerialPort, "telemetry", cfg.Telemetry.Enabled)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}
}
