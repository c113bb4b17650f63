package recognition

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mrzgate/pkg/platform/circuit"
)

// Observer receives every engine attempt, for metrics.
type Observer interface {
	ObserveEngineAttempt(engine, stage, status string, duration time.Duration)
}

// Request carries the images a recognition run may use. FullFrame is only
// called when the last fallback stage is reached, at most once.
type Request struct {
	Region    Input
	FullFrame func() (Input, error)
}

// Orchestrator calls the registered engines in fallback order:
//  1. document engines on the saved enhanced region
//  2. general engines on the in-memory enhanced region
//  3. document engines on the saved full deskewed frame
//
// The first non-empty result wins. Engine failures never abort the run.
// With WithBreaker each engine also gets a circuit breaker fed only by
// retryable failures (timeouts, unavailable backends); an open breaker marks
// the engine unavailable.
type Orchestrator struct {
	documents []Engine
	general   []Engine
	breakers  map[string]*circuit.Breaker
	timeout   time.Duration
	logger    *slog.Logger
	observer  Observer
}

// Option configures an Orchestrator.
type Option func(*orchestratorConfig)

type orchestratorConfig struct {
	timeout          time.Duration
	logger           *slog.Logger
	observer         Observer
	breakerThreshold int
	breakerOpts      []circuit.Option
}

// WithTimeout bounds each engine call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *orchestratorConfig) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *orchestratorConfig) { c.logger = l }
}

func WithObserver(o Observer) Option {
	return func(c *orchestratorConfig) { c.observer = o }
}

// WithBreaker gives every engine a circuit breaker that opens after
// threshold consecutive retryable failures. A threshold of zero or less
// leaves engines without breakers.
func WithBreaker(threshold int, opts ...circuit.Option) Option {
	return func(c *orchestratorConfig) {
		c.breakerThreshold = threshold
		c.breakerOpts = append(c.breakerOpts, opts...)
	}
}

// NewOrchestrator captures the engines of registry; engines registered later
// are not seen.
func NewOrchestrator(registry *Registry, opts ...Option) *Orchestrator {
	cfg := orchestratorConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &Orchestrator{
		documents: registry.ByKind(KindDocument),
		general:   registry.ByKind(KindGeneral),
		breakers:  make(map[string]*circuit.Breaker),
		timeout:   cfg.timeout,
		logger:    cfg.logger,
		observer:  cfg.observer,
	}
	if cfg.breakerThreshold > 0 {
		opts := append([]circuit.Option{circuit.WithFailureThreshold(cfg.breakerThreshold)}, cfg.breakerOpts...)
		for _, e := range registry.All() {
			o.breakers[e.Name()] = circuit.New(e.Name(), opts...)
		}
	}
	return o
}

// Engines returns the names of the engines in call order, without the
// full-frame retry.
func (o *Orchestrator) Engines() []string {
	names := make([]string, 0, len(o.documents)+len(o.general))
	for _, e := range o.documents {
		names = append(names, e.Name())
	}
	for _, e := range o.general {
		names = append(names, e.Name())
	}
	return names
}

// Recognize runs the fallback chain. The only error it returns is the
// context error when ctx ends between attempts; engine failures are
// reported in the result's attempts.
func (o *Orchestrator) Recognize(ctx context.Context, req Request) (Result, error) {
	var res Result

	for _, e := range o.documents {
		if done := o.try(ctx, &res, e, StageRegionFile, Input{Path: req.Region.Path}); done {
			return res, ctx.Err()
		}
	}
	for _, e := range o.general {
		if done := o.try(ctx, &res, e, StageRegionImage, Input{Image: req.Region.Image}); done {
			return res, ctx.Err()
		}
	}
	if len(o.documents) == 0 || req.FullFrame == nil {
		return res, nil
	}

	frame, err := req.FullFrame()
	if err != nil {
		o.logger.WarnContext(ctx, "full frame unavailable for recognition", "error", err)
		for _, e := range o.documents {
			o.record(ctx, &res, Attempt{Engine: e.Name(), Stage: StageFullFrame, Status: StatusFailed, Err: err})
		}
		return res, nil
	}
	for _, e := range o.documents {
		if done := o.try(ctx, &res, e, StageFullFrame, Input{Path: frame.Path}); done {
			return res, ctx.Err()
		}
	}
	return res, nil
}

// try runs one attempt and reports whether the run is over, either because
// text was found or because ctx ended.
func (o *Orchestrator) try(ctx context.Context, res *Result, e Engine, stage Stage, in Input) bool {
	if ctx.Err() != nil {
		return true
	}
	a, lines := o.call(ctx, e, stage, in)
	o.record(ctx, res, a)
	if a.Status != StatusRecognized {
		return false
	}
	res.Lines = lines
	res.Engine = e.Name()
	res.Stage = stage
	return true
}

func (o *Orchestrator) call(ctx context.Context, e Engine, stage Stage, in Input) (Attempt, []string) {
	name := e.Name()
	a := Attempt{Engine: name, Stage: stage}

	breaker := o.breakers[name]
	if breaker != nil && !breaker.Allow() {
		a.Status = StatusUnavailable
		a.Err = ErrEngineOpen
		return a, nil
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.Recognize(callCtx, in)
	a.Duration = time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			var ee *EngineError
			if !errors.As(err, &ee) {
				err = NewEngineError(ErrorTimeout, name, "recognition timed out", err)
			}
		}
		a.Status = StatusFailed
		a.Err = err
		// only retryable failures count toward opening the breaker
		if IsRetryable(err) {
			o.recordFailure(ctx, breaker)
		}
		return a, nil
	}
	if breaker != nil {
		if _, change := breaker.RecordSuccess(); change.Closed {
			o.logger.InfoContext(ctx, "engine circuit closed", "engine", name)
		}
	}

	lines := cleanLines(raw)
	a.Lines = len(lines)
	if len(lines) == 0 {
		a.Status = StatusEmpty
		return a, nil
	}
	a.Status = StatusRecognized
	return a, lines
}

func (o *Orchestrator) recordFailure(ctx context.Context, breaker *circuit.Breaker) {
	if breaker == nil {
		return
	}
	if _, change := breaker.RecordFailure(); change.Opened {
		o.logger.WarnContext(ctx, "engine circuit opened", "engine", breaker.Name())
	}
}

func (o *Orchestrator) record(ctx context.Context, res *Result, a Attempt) {
	res.Attempts = append(res.Attempts, a)
	if a.Err != nil && a.Status == StatusFailed {
		o.logger.WarnContext(ctx, "engine attempt failed",
			"engine", a.Engine,
			"stage", string(a.Stage),
			"category", string(GetCategory(a.Err)),
			"error", a.Err,
		)
	}
	if o.observer != nil {
		o.observer.ObserveEngineAttempt(a.Engine, string(a.Stage), string(a.Status), a.Duration)
	}
}

// cleanLines trims every line and drops blank ones.
func cleanLines(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		for _, part := range strings.Split(l, "\n") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
