// Package pipeline runs the audio-to-tickets flows: validate, transcribe,
// generate and normalize, with no partial results on failure.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
	"github.com/frankwiersma/speech-to-jira/internal/service/extraction"
	"github.com/frankwiersma/speech-to-jira/internal/service/stt"
	"github.com/frankwiersma/speech-to-jira/internal/service/tickets"
	"github.com/frankwiersma/speech-to-jira/internal/service/timeline"
)

// DefaultPublishTimeout bounds each event publish so a slow broker cannot
// stall a run between provider calls.
const DefaultPublishTimeout = 2 * time.Second

// Flow names, used in logs, metrics and events.
const (
	FlowTranscribe = "transcribe"
	FlowProcess    = "process"
	FlowGenerate   = "generate"
)

// TranscriberFactory builds a transcriber for one run.
type TranscriberFactory func(ctx context.Context, provider string, opts stt.Options, creds config.Credentials) (stt.Transcriber, error)

// ExtractorFactory builds an extractor for one run.
type ExtractorFactory func(provider string, opts extraction.Options, creds config.Credentials) (extraction.Extractor, error)

// EventPublisher receives pipeline notifications. Publish errors never fail
// a run.
type EventPublisher interface {
	PublishTranscript(ctx context.Context, ev models.TranscriptCompleted) error
	PublishTickets(ctx context.Context, ev models.TicketsGenerated) error
}

// Config holds everything a Service needs to build providers per run.
type Config struct {
	STTProvider        string
	STTOptions         stt.Options
	GenerationProvider string
	GenerationOptions  extraction.Options
	Credentials        config.Credentials // server defaults, overridable per run
	Limits             Limits
}

// ConfigFrom derives the pipeline configuration from the service config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		STTProvider:        cfg.STT.Provider,
		STTOptions:         stt.OptionsFromConfig(cfg.STT),
		GenerationProvider: cfg.Generation.Provider,
		GenerationOptions:  extraction.OptionsFromConfig(cfg.Generation),
		Credentials:        cfg.Credentials,
		Limits:             LimitsFromConfig(cfg.Limits),
	}
}

// AudioInput is one uploaded recording.
type AudioInput struct {
	Data        []byte
	MimeType    string
	Filename    string
	Credentials config.Credentials // per-request overrides
}

// ProcessResult is the outcome of the full audio-to-tickets flow.
type ProcessResult struct {
	RunID         string
	Transcription *models.TranscriptionResult
	Generation    *models.GenerationResult
	Dropped       []tickets.Rejection
}

// GenerateResult is the outcome of the transcript-to-tickets flow.
type GenerateResult struct {
	RunID      string
	Generation *models.GenerationResult
	Dropped    []tickets.Rejection
}

// Option configures a Service.
type Option func(*Service)

// WithTranscriberFactory replaces stt.New.
func WithTranscriberFactory(f TranscriberFactory) Option {
	return func(s *Service) { s.newTranscriber = f }
}

// WithExtractorFactory replaces extraction.New.
func WithExtractorFactory(f ExtractorFactory) Option {
	return func(s *Service) { s.newExtractor = f }
}

// WithPublisher sets the event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPublishTimeout bounds each event publish. Zero or less disables the
// bound.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service runs pipeline flows. It holds no per-run state and is safe for
// concurrent use.
type Service struct {
	cfg            Config
	newTranscriber TranscriberFactory
	newExtractor   ExtractorFactory
	publisher      EventPublisher
	publishTimeout time.Duration
	metrics        *metrics.Metrics
}

// New creates a Service.
func New(cfg Config, opts ...Option) *Service {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	s := &Service{
		cfg:            cfg,
		newTranscriber: stt.New,
		newExtractor:   extraction.New,
		publishTimeout: DefaultPublishTimeout,
		metrics:        metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the guardrails the service enforces.
func (s *Service) Limits() Limits {
	return s.cfg.Limits
}

// CheckCredentials reports whether flow can run with the server credentials
// merged with override. Transports call it before reading an upload so a
// keyless request is refused without buffering the body.
func (s *Service) CheckCredentials(flow string, override config.Credentials) error {
	if err := s.checkCredentials(flow, s.cfg.Credentials.Merge(override)); err != nil {
		s.metrics.RecordRejection(rejectionReason(err))
		return err
	}
	return nil
}

func (s *Service) checkCredentials(flow string, creds config.Credentials) error {
	if flow != FlowGenerate {
		if err := stt.CheckCredentials(s.cfg.STTProvider, creds); err != nil {
			return err
		}
	}
	if flow != FlowTranscribe {
		return extraction.CheckCredentials(s.cfg.GenerationProvider, creds)
	}
	return nil
}

// ProcessAudio transcribes a recording.
func (s *Service) ProcessAudio(ctx context.Context, in AudioInput) (*models.TranscriptionResult, error) {
	r := s.begin(FlowTranscribe)
	creds := s.cfg.Credentials.Merge(in.Credentials)

	if err := s.checkCredentials(FlowTranscribe, creds); err != nil {
		return nil, r.reject(err)
	}
	mimeType, err := ValidateAudio(in.Data, in.MimeType, s.cfg.Limits)
	if err != nil {
		return nil, r.reject(err)
	}
	r.log.Info().
		Int("bytes", len(in.Data)).
		Str("mimeType", mimeType).
		Str("filename", in.Filename).
		Msg("Audio accepted")
	s.metrics.RecordAudio(len(in.Data))

	res, err := s.transcribe(ctx, r, in.Data, mimeType, creds)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessAudioAndGenerate transcribes a recording and extracts tickets from
// the timestamped transcript. Nothing is returned unless both stages succeed.
func (s *Service) ProcessAudioAndGenerate(ctx context.Context, in AudioInput) (*ProcessResult, error) {
	r := s.begin(FlowProcess)
	creds := s.cfg.Credentials.Merge(in.Credentials)

	if err := s.checkCredentials(FlowProcess, creds); err != nil {
		return nil, r.reject(err)
	}
	mimeType, err := ValidateAudio(in.Data, in.MimeType, s.cfg.Limits)
	if err != nil {
		return nil, r.reject(err)
	}
	r.log.Info().
		Int("bytes", len(in.Data)).
		Str("mimeType", mimeType).
		Str("filename", in.Filename).
		Msg("Audio accepted")
	s.metrics.RecordAudio(len(in.Data))

	transcription, err := s.transcribe(ctx, r, in.Data, mimeType, creds)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := ValidateTranscript(transcription.Transcript, s.cfg.Limits.MinTranscriptChars); err != nil {
		return nil, r.reject(err)
	}

	gen, dropped, err := s.generate(ctx, r, transcription.TimestampedTranscript, creds)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &ProcessResult{
		RunID:         r.lc.RunID(),
		Transcription: transcription,
		Generation:    gen,
		Dropped:       dropped,
	}, nil
}

// GenerateFromTranscript extracts tickets from an existing transcript.
func (s *Service) GenerateFromTranscript(ctx context.Context, transcript string, override config.Credentials) (*GenerateResult, error) {
	r := s.begin(FlowGenerate)
	creds := s.cfg.Credentials.Merge(override)

	if err := s.checkCredentials(FlowGenerate, creds); err != nil {
		return nil, r.reject(err)
	}
	if err := ValidateTranscript(transcript, s.cfg.Limits.MinTranscriptChars); err != nil {
		return nil, r.reject(err)
	}

	gen, dropped, err := s.generate(ctx, r, transcript, creds)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &GenerateResult{
		RunID:      r.lc.RunID(),
		Generation: gen,
		Dropped:    dropped,
	}, nil
}

func (s *Service) transcribe(ctx context.Context, r *run, audio []byte, mimeType string, creds config.Credentials) (*models.TranscriptionResult, error) {
	if err := r.lc.Advance(StateTranscribing); err != nil {
		return nil, apperr.Internal(apperr.StageTranscription, err)
	}

	t, err := s.newTranscriber(ctx, s.cfg.STTProvider, s.cfg.STTOptions, creds)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := stt.Close(t); err != nil {
			r.log.Warn().Err(err).Msg("Failed to close transcriber")
		}
	}()

	stageLog := logging.WithStage(r.lc.RunID(), r.lc.Flow(), apperr.StageTranscription, t.Name())
	stageCtx, cancel := s.stageContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := t.Transcribe(stageCtx, audio, mimeType)
	latency := time.Since(start)
	s.metrics.RecordStage(apperr.StageTranscription, t.Name(), latency.Seconds())
	if err != nil {
		return nil, stageError(ctx, stageCtx, apperr.StageTranscription, err)
	}
	if res == nil {
		return nil, apperr.Empty(apperr.StageTranscription, "No transcription result")
	}

	timeline.Apply(res)
	s.metrics.RecordAudioDuration(res.Duration)

	stageLog.Info().
		Dur("latency", latency).
		Float64("duration", res.Duration).
		Float64("confidence", res.Confidence).
		Int("utterances", len(res.Utterances)).
		Msg("Transcription completed")

	s.publishTranscript(ctx, r, models.TranscriptCompleted{
		EventType:      models.EventTranscriptCompleted,
		RunID:          r.lc.RunID(),
		Flow:           r.lc.Flow(),
		Provider:       t.Name(),
		Duration:       res.Duration,
		Confidence:     res.Confidence,
		UtteranceCount: len(res.Utterances),
		Timestamp:      time.Now().UnixMilli(),
	})
	return res, nil
}

func (s *Service) generate(ctx context.Context, r *run, transcript string, creds config.Credentials) (*models.GenerationResult, []tickets.Rejection, error) {
	if err := r.lc.Advance(StateGenerating); err != nil {
		return nil, nil, apperr.Internal(apperr.StageGeneration, err)
	}

	ex, err := s.newExtractor(s.cfg.GenerationProvider, s.cfg.GenerationOptions, creds)
	if err != nil {
		return nil, nil, err
	}

	stageLog := logging.WithStage(r.lc.RunID(), r.lc.Flow(), apperr.StageGeneration, ex.Name())
	stageCtx, cancel := s.stageContext(ctx)
	defer cancel()

	start := time.Now()
	draft, err := ex.Extract(stageCtx, transcript)
	latency := time.Since(start)
	s.metrics.RecordStage(apperr.StageGeneration, ex.Name(), latency.Seconds())
	if err != nil {
		return nil, nil, stageError(ctx, stageCtx, apperr.StageGeneration, err)
	}
	if draft == nil {
		return nil, nil, apperr.Empty(apperr.StageGeneration, "No response from generation provider")
	}

	normalized, dropped := tickets.NewNormalizer(tickets.NewRunPrefix()).Normalize(draft.Tickets)
	for _, d := range dropped {
		s.metrics.RecordDropped(d.Reason)
		stageLog.Warn().
			Int("index", d.Index).
			Str("id", d.ID).
			Str("reason", d.Reason).
			Msg("Dropped ticket draft")
	}
	if len(normalized) == 0 && len(draft.Tickets) > 0 {
		return nil, nil, apperr.Empty(apperr.StageGeneration,
			fmt.Sprintf("All %d generated tickets were invalid", len(draft.Tickets)))
	}
	stories, tasks := models.CountByType(normalized)
	s.metrics.RecordTickets(stories, tasks)

	stageLog.Info().
		Dur("latency", latency).
		Int("drafts", len(draft.Tickets)).
		Int("tickets", len(normalized)).
		Int("dropped", len(dropped)).
		Msg("Tickets generated")

	gen := &models.GenerationResult{Tickets: normalized, Summary: draft.Summary}
	s.publishTickets(ctx, r, models.TicketsGenerated{
		EventType: models.EventTicketsGenerated,
		RunID:     r.lc.RunID(),
		Count:     len(normalized),
		Stories:   stories,
		Tasks:     tasks,
		Summary:   gen.Summary,
		Tickets:   normalized,
		Timestamp: time.Now().UnixMilli(),
	})
	return gen, dropped, nil
}

func (s *Service) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Limits.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Limits.StageTimeout)
}

// stageError classifies a provider failure. Caller cancellation and the
// stage deadline take precedence over whatever the provider reported.
func stageError(parent, stageCtx context.Context, stage string, err error) error {
	if e := apperr.FromContext(stage, parent.Err()); e != nil {
		return e
	}
	if e := apperr.FromContext(stage, stageCtx.Err()); e != nil {
		return e
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if e := apperr.FromContext(stage, err); e != nil {
		return e
	}
	return apperr.Upstream(stage, err)
}

func (s *Service) publishTranscript(ctx context.Context, r *run, ev models.TranscriptCompleted) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := s.publishContext(ctx)
	defer cancel()
	if err := s.publisher.PublishTranscript(ctx, ev); err != nil {
		r.log.Warn().Err(err).Msg("Failed to publish transcript event")
	}
}

func (s *Service) publishTickets(ctx context.Context, r *run, ev models.TicketsGenerated) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := s.publishContext(ctx)
	defer cancel()
	if err := s.publisher.PublishTickets(ctx, ev); err != nil {
		r.log.Warn().Err(err).Msg("Failed to publish tickets event")
	}
}

// publishContext detaches the publish from caller cancellation and bounds it
// by the publish timeout.
func (s *Service) publishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.publishTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.publishTimeout)
}

// run tracks one invocation of a flow.
type run struct {
	lc      *Lifecycle
	log     zerolog.Logger
	start   time.Time
	metrics *metrics.Metrics
}

func (s *Service) begin(flow string) *run {
	runID := uuid.NewString()
	s.metrics.RecordRunStart()
	r := &run{
		lc:      NewLifecycle(runID, flow),
		log:     logging.WithRun(runID, flow),
		start:   time.Now(),
		metrics: s.metrics,
	}
	r.log.Debug().Msg("Run started")
	return r
}

// reject fails the run during validation.
func (r *run) reject(err error) error {
	r.metrics.RecordRejection(rejectionReason(err))
	return r.fail(err)
}

func (r *run) fail(err error) error {
	stage := apperr.StageOf(err)
	kind := apperr.KindOf(err)
	if !r.lc.Fail(stage) {
		return err
	}
	if kind != apperr.KindValidation && kind != apperr.KindAuthorization {
		r.metrics.RecordStageError(stage, kind.String())
	}
	r.metrics.RecordRunEnd(r.lc.Flow(), kind.String(), time.Since(r.start).Seconds())

	ev := r.log.Warn()
	if kind == apperr.KindInternal || kind == apperr.KindConfiguration {
		ev = r.log.Error()
	}
	ev.Err(err).
		Str("stage", stage).
		Str("kind", kind.String()).
		Dur("elapsed", time.Since(r.start)).
		Msg("Run failed")
	return err
}

func (r *run) done() error {
	if err := r.lc.Advance(StateDone); err != nil {
		return r.fail(apperr.Internal("", err))
	}
	r.metrics.RecordRunEnd(r.lc.Flow(), "success", time.Since(r.start).Seconds())
	r.log.Info().
		Dur("elapsed", time.Since(r.start)).
		Msg("Run completed")
	return nil
}
