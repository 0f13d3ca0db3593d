package main

import (
	"context"
	"errors"
	"fmt"
	"gonetcap/internal/analysis"
	"gonetcap/internal/capture"
	"gonetcap/internal/config"
	"gonetcap/internal/logging"
	"gonetcap/internal/models"
	"gonetcap/internal/reporting"
	"gonetcap/internal/session"
	"gonetcap/internal/tui"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gonetcap: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, name, err := openSource(cfg)
	if err != nil {
		log.Error("open capture source", zap.Error(err))
		return err
	}
	if src != nil {
		defer src.Close()
	}

	archive := session.NewArchive()
	stats := analysis.NewTrafficStats()
	detector := analysis.NewAnomalyDetector(analysis.DefaultConfig())

	if cfg.Headless {
		if src == nil {
			return errors.New("headless mode needs --interface or --read")
		}
		return runHeadless(ctx, cfg, log.Logger, src, archive, stats, detector)
	}

	deps := tui.Deps{
		Archive:      archive,
		Stats:        stats,
		Detector:     detector,
		Logger:       log.Named("tui"),
		Source:       src,
		SourceName:   name,
		ExportDir:    cfg.ExportDir,
		ExportPrefix: cfg.ExportPrefix,
		OpenDevice: func(device string) (capture.Source, error) {
			return capture.OpenLive(device, cfg.CaptureOptions())
		},
	}
	deps.Controller = session.NewController(archive, log.Named("session"),
		session.WithPollInterval(cfg.PollInterval),
		session.WithDisplay(func(pkt models.DecodedPacket) {
			stats.ProcessPacket(pkt)
			detector.ProcessPacket(pkt)
		}),
	)

	if src == nil {
		devices, err := capture.ListDevices()
		if err != nil {
			log.Error("list devices", zap.Error(err))
			return err
		}
		deps.Devices = devices
	}

	p := tea.NewProgram(tui.New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI: %w", err)
	}

	m, ok := final.(tui.Model)
	if !ok {
		return nil
	}
	if src == nil && m.Source() != nil {
		defer m.Source().Close()
	}
	// A run still in progress when the UI exits is retired so its worker stops.
	if deps.Controller.State() == session.Capturing {
		_, _ = deps.Controller.Wait(context.Background())
	}
	return m.Err()
}

// openSource opens the configured file or device. It returns a nil source
// when neither is set, leaving the choice to the device picker.
func openSource(cfg *config.Config) (capture.Source, string, error) {
	switch {
	case cfg.ReadFile != "":
		src, err := capture.OpenFile(cfg.ReadFile)
		if err != nil {
			return nil, "", err
		}
		return src, cfg.ReadFile, nil
	case cfg.Interface != "":
		src, err := capture.OpenLive(cfg.Interface, cfg.CaptureOptions())
		if err != nil {
			return nil, "", err
		}
		return src, cfg.Interface, nil
	default:
		return nil, "", nil
	}
}

// runHeadless captures a single session until interrupted or the configured
// duration elapses, prints every packet, then exports the session.
func runHeadless(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	src capture.Source,
	archive *session.Archive,
	stats *analysis.TrafficStats,
	detector *analysis.AnomalyDetector,
) error {
	ctrl := session.NewController(archive, log.Named("session"),
		session.WithPollInterval(cfg.PollInterval),
		session.WithDisplay(func(pkt models.DecodedPacket) {
			stats.ProcessPacket(pkt)
			detector.ProcessPacket(pkt)
			fmt.Print(reporting.Render(pkt))
		}),
	)

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}
	trigger := session.NewStopSignal()
	defer context.AfterFunc(runCtx, trigger.Stop)()

	s, captureErr := ctrl.Run(runCtx, src, trigger)
	if captureErr != nil {
		fmt.Fprintf(os.Stderr, "capture stopped: %v\n", captureErr)
	}

	sum := analysis.Summarize(s, 5)
	fmt.Fprintf(os.Stderr, "\n%d packets, %s captured in %s\n", sum.Packets, reporting.FormatBytes(sum.Bytes), s.Duration())
	for _, p := range sum.Protocols {
		fmt.Fprintf(os.Stderr, "  %-6s %d\n", p.Protocol, p.Count)
	}
	for _, a := range detector.GetRecentAlerts(analysis.DefaultConfig().MaxAlerts) {
		fmt.Fprintf(os.Stderr, "  alert: %s\n", a)
	}

	if s.Len() == 0 {
		fmt.Fprintln(os.Stderr, "nothing to export")
		return captureErr
	}

	path := reporting.LogFileName(cfg.ExportDir, cfg.ExportPrefix, s.EndedAt)
	n, err := reporting.ExportSession(archive, archive.Len()-1, path)
	if err != nil {
		log.Error("export session", zap.String("path", path), zap.Error(err))
		return errors.Join(captureErr, err)
	}
	log.Info("session exported", zap.String("path", path), zap.Int("packets", n))
	fmt.Fprintf(os.Stderr, "saved %d packets to %s\n", n, path)
	return captureErr
}
