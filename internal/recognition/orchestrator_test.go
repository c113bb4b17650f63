package recognition_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mrzgate/internal/recognition"
	"mrzgate/internal/recognition/mocks"
	"mrzgate/pkg/platform/circuit"
)

const (
	regionPath = "/tmp/region.png"
	framePath  = "/tmp/frame.png"
)

var mrzLines = []string{
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C<3UTO6908061F9406236ZE184226B<<<<<16",
}

type OrchestratorSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	ctx    context.Context
	region image.Image
	logger *slog.Logger
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.region = image.NewRGBA(image.Rect(0, 0, 10, 2))
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *OrchestratorSuite) engine(name string, kind recognition.Kind) *mocks.MockEngine {
	e := mocks.NewMockEngine(s.ctrl)
	e.EXPECT().Name().Return(name).AnyTimes()
	e.EXPECT().Kind().Return(kind).AnyTimes()
	return e
}

func (s *OrchestratorSuite) orchestrator(opts []recognition.Option, engines ...recognition.Engine) *recognition.Orchestrator {
	reg := recognition.NewRegistry()
	for _, e := range engines {
		s.Require().NoError(reg.Register(e))
	}
	return recognition.NewOrchestrator(reg, append([]recognition.Option{recognition.WithLogger(s.logger)}, opts...)...)
}

func (s *OrchestratorSuite) request(frameCalls *int) recognition.Request {
	return recognition.Request{
		Region: recognition.Input{Image: s.region, Path: regionPath},
		FullFrame: func() (recognition.Input, error) {
			*frameCalls++
			return recognition.Input{Path: framePath}, nil
		},
	}
}

func statuses(res recognition.Result) []recognition.Status {
	out := make([]recognition.Status, len(res.Attempts))
	for i, a := range res.Attempts {
		out[i] = a.Status
	}
	return out
}

func (s *OrchestratorSuite) TestDocumentEngineOnRegionWins() {
	doc := s.engine("mrz", recognition.KindDocument)
	general := s.engine("text", recognition.KindGeneral)
	doc.EXPECT().Recognize(gomock.Any(), recognition.Input{Path: regionPath}).Return(mrzLines, nil)

	frameCalls := 0
	res, err := s.orchestrator(nil, doc, general).Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.True(res.Found())
	s.Equal(mrzLines, res.Lines)
	s.Equal("mrz", res.Engine)
	s.Equal(recognition.StageRegionFile, res.Stage)
	s.Equal([]recognition.Status{recognition.StatusRecognized}, statuses(res))
	s.Zero(frameCalls)
}

func (s *OrchestratorSuite) TestGeneralEnginesInRegistrationOrder() {
	doc := s.engine("mrz", recognition.KindDocument)
	first := s.engine("first", recognition.KindGeneral)
	second := s.engine("second", recognition.KindGeneral)

	gomock.InOrder(
		doc.EXPECT().Recognize(gomock.Any(), recognition.Input{Path: regionPath}).Return(nil, nil),
		first.EXPECT().Recognize(gomock.Any(), recognition.Input{Image: s.region}).Return(nil, errors.New("model crashed")),
		second.EXPECT().Recognize(gomock.Any(), recognition.Input{Image: s.region}).Return([]string{"  line one ", "", "line two\nline three"}, nil),
	)

	frameCalls := 0
	res, err := s.orchestrator(nil, doc, first, second).Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.Equal([]string{"line one", "line two", "line three"}, res.Lines)
	s.Equal("second", res.Engine)
	s.Equal(recognition.StageRegionImage, res.Stage)
	s.Equal([]recognition.Status{
		recognition.StatusEmpty,
		recognition.StatusFailed,
		recognition.StatusRecognized,
	}, statuses(res))
	s.EqualError(res.Attempts[1].Err, "model crashed")
	s.Equal(3, res.Attempts[2].Lines)
	s.Zero(frameCalls)
}

func (s *OrchestratorSuite) TestFullFrameRetry() {
	doc := s.engine("mrz", recognition.KindDocument)
	general := s.engine("text", recognition.KindGeneral)

	gomock.InOrder(
		doc.EXPECT().Recognize(gomock.Any(), recognition.Input{Path: regionPath}).Return([]string{"   "}, nil),
		general.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil),
		doc.EXPECT().Recognize(gomock.Any(), recognition.Input{Path: framePath}).Return(mrzLines, nil),
	)

	frameCalls := 0
	res, err := s.orchestrator(nil, doc, general).Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.Equal(mrzLines, res.Lines)
	s.Equal(recognition.StageFullFrame, res.Stage)
	s.Equal(1, frameCalls)
	s.Len(res.Attempts, 3)
}

func (s *OrchestratorSuite) TestNothingFound() {
	doc := s.engine("mrz", recognition.KindDocument)
	general := s.engine("text", recognition.KindGeneral)
	doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	general.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil)

	frameCalls := 0
	res, err := s.orchestrator(nil, doc, general).Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.False(res.Found())
	s.Empty(res.Engine)
	s.Len(res.Attempts, 3)
}

func (s *OrchestratorSuite) TestNoDocumentEngineSkipsFullFrame() {
	general := s.engine("text", recognition.KindGeneral)
	general.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil)

	frameCalls := 0
	res, err := s.orchestrator(nil, general).Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.False(res.Found())
	s.Zero(frameCalls)
}

func (s *OrchestratorSuite) TestFullFrameUnavailable() {
	doc := s.engine("mrz", recognition.KindDocument)
	doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil)

	req := recognition.Request{
		Region: recognition.Input{Image: s.region, Path: regionPath},
		FullFrame: func() (recognition.Input, error) {
			return recognition.Input{}, errors.New("disk full")
		},
	}
	res, err := s.orchestrator(nil, doc).Recognize(s.ctx, req)

	s.Require().NoError(err)
	s.False(res.Found())
	s.Require().Len(res.Attempts, 2)
	s.Equal(recognition.StageFullFrame, res.Attempts[1].Stage)
	s.Equal(recognition.StatusFailed, res.Attempts[1].Status)
}

func (s *OrchestratorSuite) TestOpenBreakerMarksEngineUnavailable() {
	doc := s.engine("mrz", recognition.KindDocument)
	doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil,
		recognition.NewEngineError(recognition.ErrorUnavailable, "mrz", "backend down", nil)).Times(1)

	o := s.orchestrator([]recognition.Option{
		recognition.WithBreaker(1, circuit.WithCooldown(time.Hour)),
	}, doc)

	frameCalls := 0
	res, err := o.Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.Equal([]recognition.Status{recognition.StatusFailed, recognition.StatusUnavailable}, statuses(res))
	s.ErrorIs(res.Attempts[1].Err, recognition.ErrEngineOpen)
}

func (s *OrchestratorSuite) TestBadInputDoesNotTripBreaker() {
	doc := s.engine("mrz", recognition.KindDocument)
	badInput := recognition.NewEngineError(recognition.ErrorBadInput, "mrz", "set image", errors.New("unreadable"))
	gomock.InOrder(
		doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, badInput).Times(6),
		doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(mrzLines, nil).Times(1),
	)

	o := s.orchestrator([]recognition.Option{
		recognition.WithBreaker(1, circuit.WithCooldown(time.Hour)),
	}, doc)

	for range 3 {
		frameCalls := 0
		res, err := o.Recognize(s.ctx, s.request(&frameCalls))
		s.Require().NoError(err)
		s.False(res.Found())
		s.Equal([]recognition.Status{recognition.StatusFailed, recognition.StatusFailed}, statuses(res))
	}

	frameCalls := 0
	res, err := o.Recognize(s.ctx, s.request(&frameCalls))
	s.Require().NoError(err)
	s.True(res.Found())
	s.Equal(mrzLines, res.Lines)
}

func (s *OrchestratorSuite) TestNoBreakerByDefault() {
	doc := s.engine("mrz", recognition.KindDocument)
	down := recognition.NewEngineError(recognition.ErrorUnavailable, "mrz", "backend down", nil)
	gomock.InOrder(
		doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, down).Times(10),
		doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(mrzLines, nil).Times(1),
	)

	o := s.orchestrator(nil, doc)
	for range 5 {
		frameCalls := 0
		res, err := o.Recognize(s.ctx, s.request(&frameCalls))
		s.Require().NoError(err)
		s.False(res.Found())
	}

	frameCalls := 0
	res, err := o.Recognize(s.ctx, s.request(&frameCalls))
	s.Require().NoError(err)
	s.True(res.Found())
}

func (s *OrchestratorSuite) TestEngineTimeout() {
	doc := s.engine("mrz", recognition.KindDocument)
	doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ recognition.Input) ([]string, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	).Times(2)

	frameCalls := 0
	o := s.orchestrator([]recognition.Option{recognition.WithTimeout(10 * time.Millisecond)}, doc)
	res, err := o.Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.Require().Len(res.Attempts, 2)
	s.Equal(recognition.StatusFailed, res.Attempts[0].Status)
	s.Equal(recognition.ErrorTimeout, recognition.GetCategory(res.Attempts[0].Err))
	s.ErrorIs(res.Attempts[0].Err, context.DeadlineExceeded)
}

func (s *OrchestratorSuite) TestCanceledContext() {
	doc := s.engine("mrz", recognition.KindDocument)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	frameCalls := 0
	res, err := s.orchestrator(nil, doc).Recognize(ctx, s.request(&frameCalls))

	s.ErrorIs(err, context.Canceled)
	s.Empty(res.Attempts)
}

type attemptLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *attemptLog) ObserveEngineAttempt(engine, stage, status string, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, engine+"/"+stage+"/"+status)
}

func (s *OrchestratorSuite) TestObserverSeesEveryAttempt() {
	doc := s.engine("mrz", recognition.KindDocument)
	general := s.engine("text", recognition.KindGeneral)
	doc.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(nil, nil)
	general.EXPECT().Recognize(gomock.Any(), gomock.Any()).Return(mrzLines, nil)

	obs := &attemptLog{}
	frameCalls := 0
	_, err := s.orchestrator([]recognition.Option{recognition.WithObserver(obs)}, doc, general).
		Recognize(s.ctx, s.request(&frameCalls))

	s.Require().NoError(err)
	s.Equal([]string{"mrz/region_file/empty", "text/region_image/recognized"}, obs.seen)
}

func (s *OrchestratorSuite) TestEnginesCallOrder() {
	general := s.engine("text", recognition.KindGeneral)
	doc := s.engine("mrz", recognition.KindDocument)

	o := s.orchestrator(nil, general, doc)

	s.Equal([]string{"mrz", "text"}, o.Engines())
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	newEngine := func(name string, kind recognition.Kind) *mocks.MockEngine {
		e := mocks.NewMockEngine(ctrl)
		e.EXPECT().Name().Return(name).AnyTimes()
		e.EXPECT().Kind().Return(kind).AnyTimes()
		return e
	}

	reg := recognition.NewRegistry()
	a := newEngine("a", recognition.KindGeneral)
	b := newEngine("b", recognition.KindDocument)
	c := newEngine("c", recognition.KindGeneral)
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))
	require.NoError(t, reg.Register(c))

	err := reg.Register(newEngine("a", recognition.KindDocument))
	assert.ErrorContains(t, err, "already registered")

	got, ok := reg.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "b", got.Name())
	_, ok = reg.Get("zzz")
	assert.False(t, ok)

	assert.Equal(t, []recognition.Engine{a, c}, reg.ByKind(recognition.KindGeneral))
	assert.Equal(t, 3, reg.Len())
	assert.Len(t, reg.All(), 3)
}

func TestEngineError(t *testing.T) {
	cause := errors.New("connection refused")
	err := recognition.NewEngineError(recognition.ErrorUnavailable, "remote", "call failed", cause)

	assert.Equal(t, "engine remote [unavailable]: call failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, recognition.ErrorUnavailable, recognition.GetCategory(err))
	assert.Equal(t, recognition.ErrorInternal, recognition.GetCategory(cause))
}
