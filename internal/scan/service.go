// Package scan runs the full MRZ pipeline on one image: deskew, locate,
// enhance, recognize, parse, correct and derive BAC keys.
package scan

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"mrzgate/internal/bac"
	"mrzgate/internal/mrz"
	"mrzgate/internal/recognition"
	"mrzgate/internal/region"
	"mrzgate/internal/scan/metrics"
	"mrzgate/internal/vision"
	dErrors "mrzgate/pkg/domain-errors"
	"mrzgate/pkg/platform/sentinel"
	"mrzgate/pkg/requestcontext"
)

// Recognizer runs text recognition over a located band.
type Recognizer interface {
	Recognize(ctx context.Context, req recognition.Request) (recognition.Result, error)
}

// Service runs scans. Any number of goroutines may call it; at most
// MaxConcurrent pipelines run at once and the rest wait for a slot.
type Service struct {
	locator    *region.Locator
	enhancer   *region.Enhancer
	recognizer Recognizer
	slots      *semaphore.Weighted
	tracer     trace.Tracer

	tempDir        string
	debugDir       string
	bottomFraction float64
	maxConcurrent  int64
	newID          func() string

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithTempDir sets the parent of per-scan temp directories. Empty means the
// system default.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithDebugDir enables persisting the input frame and enhanced band.
func WithDebugDir(dir string) Option {
	return func(s *Service) { s.debugDir = dir }
}

// WithMaxConcurrent bounds concurrently running pipelines.
func WithMaxConcurrent(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithBottomFraction sets the part of the frame searched first for the band.
func WithBottomFraction(f float64) Option {
	return func(s *Service) { s.bottomFraction = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIDGenerator replaces the generator of debug image names.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService builds a scan service over an image processor and a recognizer.
func NewService(proc vision.Processor, recognizer Recognizer, opts ...Option) *Service {
	s := &Service{
		recognizer:     recognizer,
		bottomFraction: region.DefaultBottomFraction,
		maxConcurrent:  int64(runtime.GOMAXPROCS(0)),
		newID:          uuid.NewString,
		logger:         slog.Default(),
		tracer:         otel.Tracer("mrzgate/internal/scan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locator = region.NewLocator(proc, region.WithBottomFraction(s.bottomFraction))
	s.enhancer = region.NewEnhancer(proc)
	s.slots = semaphore.NewWeighted(s.maxConcurrent)
	return s
}

// Scan decodes an uploaded image and runs the pipeline on it.
func (s *Service) Scan(ctx context.Context, data []byte) (*Result, error) {
	img, format, err := vision.Decode(data)
	if err != nil {
		s.metrics.IncrementOutcome(OutcomeBadInput)
		if errors.Is(err, vision.ErrEmptyImage) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "no image provided")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid image")
	}
	s.logger.DebugContext(ctx, "image decoded",
		"request_id", requestcontext.RequestID(ctx),
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)
	return s.ScanImage(ctx, img)
}

// ScanImage runs the pipeline on a decoded image. It fails with a
// CodeNotFound error when no engine recognized any text. A result whose
// lines are not a TD3 zone is still a success, with a nil record.
func (s *Service) ScanImage(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)

	if err := s.slots.Acquire(ctx, 1); err != nil {
		s.metrics.IncrementOutcome(OutcomeError)
		return nil, dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeUnavailable, "no pipeline slot available")
	}
	defer s.slots.Release(1)
	defer s.metrics.TrackInFlight()()

	ctx, span := s.tracer.Start(ctx, "scan")
	defer span.End()

	res, err := s.run(ctx, img)
	s.metrics.ObserveScanLatency(time.Since(start))
	if err != nil {
		outcome := OutcomeError
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			outcome = OutcomeNotFound
		}
		s.metrics.IncrementOutcome(outcome)
		span.SetStatus(codes.Error, outcome)
		s.logger.InfoContext(ctx, "scan finished without result",
			"request_id", requestID,
			"outcome", outcome,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	s.metrics.IncrementOutcome(OutcomeSuccess)
	span.SetAttributes(
		attribute.String("mrz.engine", res.Engine),
		attribute.Bool("mrz.parsed", res.Record() != nil),
	)
	s.logger.InfoContext(ctx, "scan finished",
		"request_id", requestID,
		"engine", res.Engine,
		"stage", string(res.Stage),
		"parsed", res.Record() != nil,
		"valid", res.Record() != nil && res.Record().Valid(),
		"corrections", len(res.Reading.Corrections),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, img image.Image) (*Result, error) {
	ws, err := newWorkspace(s.tempDir)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create workspace")
	}
	defer func() {
		if err := ws.Close(); err != nil {
			s.logger.WarnContext(ctx, "failed to remove workspace", "dir", ws.dir, "error", err)
		}
	}()

	res := &Result{}

	_, span := s.tracer.Start(ctx, "deskew")
	frame, angle, err := s.locator.Deskew(img)
	span.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deskew image")
	}
	res.SkewDegrees = angle

	_, span = s.tracer.Start(ctx, "locate")
	band, found, err := s.locator.Locate(frame)
	span.SetAttributes(attribute.Bool("mrz.located", found))
	span.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to locate MRZ")
	}
	if !found {
		band = region.FallbackCrop(frame)
		s.metrics.IncrementRegionSource("fallback")
	} else {
		s.metrics.IncrementRegionSource("located")
	}
	res.Region = band.Bounds
	res.RegionLocated = found

	_, span = s.tracer.Start(ctx, "enhance")
	enhanced, err := s.enhancer.Enhance(band.Image)
	span.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enhance MRZ")
	}

	regionPath, err := ws.writePNG("region.png", enhanced)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save MRZ region")
	}
	res.DebugImages = s.saveDebug(ctx, img, enhanced)

	recCtx, span := s.tracer.Start(ctx, "recognize")
	rec, err := s.recognizer.Recognize(recCtx, recognition.Request{
		Region: recognition.Input{Image: enhanced, Path: regionPath},
		FullFrame: func() (recognition.Input, error) {
			path, err := ws.writePNG("frame.png", frame)
			return recognition.Input{Image: frame, Path: path}, err
		},
	})
	span.SetAttributes(attribute.Int("mrz.attempts", len(rec.Attempts)))
	span.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "scan canceled")
	}
	res.Attempts = rec.Attempts
	if !rec.Found() {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, NotFoundMessage)
	}
	res.RawLines = rec.Lines
	res.Engine = rec.Engine
	res.Stage = rec.Stage

	_, span = s.tracer.Start(ctx, "parse")
	res.Reading = mrz.Read(rec.Lines)
	span.End()
	for _, c := range res.Reading.Corrections {
		s.metrics.ObserveSolverTrials(c.Field, c.Fixed, c.Attempts)
	}

	if r := res.Record(); r != nil {
		_, span = s.tracer.Start(ctx, "derive_keys")
		keys, err := bac.Derive(r.DocumentNumber.Value, r.BirthDate.Value, r.ExpiryDate.Value)
		if err != nil {
			span.RecordError(err)
			res.KeyErr = err
		} else {
			res.Keys = &keys
		}
		span.End()
	}
	return res, nil
}

// saveDebug persists the input frame and the enhanced band when a debug
// directory is configured. Failures are logged, never returned.
func (s *Service) saveDebug(ctx context.Context, original, enhanced image.Image) []string {
	if s.debugDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.debugDir, 0o750); err != nil {
		s.logger.WarnContext(ctx, "failed to create debug dir", "dir", s.debugDir, "error", err)
		return nil
	}

	id := s.newID()
	var saved []string
	for i, img := range []image.Image{original, enhanced} {
		name := id + "_orig.png"
		if i == 1 {
			name = id + "_mrz.png"
		}
		path := filepath.Join(s.debugDir, name)
		if err := savePNG(path, img); err != nil {
			s.logger.WarnContext(ctx, "failed to save debug image", "path", path, "error", err)
			continue
		}
		saved = append(saved, path)
	}
	return saved
}
