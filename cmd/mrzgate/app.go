package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mrzgate/internal/platform/config"
	"mrzgate/internal/platform/logger"
	"mrzgate/internal/recognition"
	"mrzgate/internal/recognition/remote"
	"mrzgate/internal/recognition/tesseract"
	"mrzgate/internal/scan"
	"mrzgate/internal/scan/metrics"
	"mrzgate/internal/vision/opencv"
)

// app holds what every command needs: validated configuration, a logger
// and the resources to release on exit.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// loadApp reads configuration from the environment, the optional --config
// file and the logging flags, in that order.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err = config.LoadFile(cfg, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return &app{cfg: cfg, logger: log}, nil
}

// registry builds the configured engines in order. An engine that cannot be
// constructed is logged and left out; no engine at all is an error.
func (a *app) registry() (*recognition.Registry, error) {
	ec := a.cfg.Engines
	reg := recognition.NewRegistry()

	for _, name := range ec.Order {
		var (
			engine recognition.Engine
			err    error
		)
		switch name {
		case config.EngineTesseractMRZ, config.EngineTesseract:
			tc := tesseract.Config{Name: name, Languages: ec.TesseractLanguages, TessdataPrefix: ec.TessdataPrefix}
			var t *tesseract.Engine
			if name == config.EngineTesseractMRZ {
				t, err = tesseract.NewDocument(tc)
			} else {
				t, err = tesseract.NewGeneral(tc)
			}
			if err == nil {
				a.closers = append(a.closers, t)
				engine = t
			}
		case config.EngineRemote:
			engine, err = remote.New(remote.Config{
				Name:    ec.Remote.Name,
				URL:     ec.Remote.URL,
				Kind:    recognition.Kind(ec.Remote.Kind),
				APIKey:  ec.Remote.APIKey,
				Timeout: ec.Remote.Timeout,
			})
		default:
			err = fmt.Errorf("unknown engine %q", name)
		}
		if err != nil {
			a.logger.Warn("recognition engine unavailable", "engine", name, "error", err)
			continue
		}
		if err := reg.Register(engine); err != nil {
			return nil, err
		}
		a.logger.Info("recognition engine ready", "engine", engine.Name(), "kind", string(engine.Kind()))
	}

	if reg.Len() == 0 {
		return nil, errors.New("no recognition engine available")
	}
	return reg, nil
}

// service wires the scan pipeline. m may be nil.
func (a *app) service(m *metrics.Metrics) (*scan.Service, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	opts := []recognition.Option{
		recognition.WithLogger(a.logger),
		recognition.WithTimeout(a.cfg.Engines.Timeout),
	}
	if m != nil {
		opts = append(opts, recognition.WithObserver(m))
	}
	if n := a.cfg.Engines.BreakerThreshold; n > 0 {
		opts = append(opts, recognition.WithBreaker(n))
	}
	orchestrator := recognition.NewOrchestrator(reg, opts...)
	a.logEngines(reg, orchestrator)

	sc := a.cfg.Scan
	return scan.NewService(opencv.New(), orchestrator,
		scan.WithTempDir(sc.TempDir),
		scan.WithDebugDir(sc.DebugDir),
		scan.WithMaxConcurrent(int64(sc.MaxConcurrent)),
		scan.WithBottomFraction(sc.BottomFraction),
		scan.WithLogger(a.logger),
		scan.WithMetrics(m),
	), nil
}

// logEngines reports the call order and, when a Tesseract engine is
// registered, the library version it links against.
func (a *app) logEngines(reg *recognition.Registry, o *recognition.Orchestrator) {
	attrs := []any{"order", strings.Join(o.Engines(), ",")}
	for _, name := range []string{config.EngineTesseractMRZ, config.EngineTesseract} {
		e, ok := reg.Get(name)
		if !ok {
			continue
		}
		if v, ok := e.(interface{ Version() string }); ok {
			attrs = append(attrs, "tesseract_version", v.Version())
			break
		}
	}
	a.logger.Info("recognition chain ready", attrs...)
}

// Close releases engine resources.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}
