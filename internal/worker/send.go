package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomcast/qabroadcast/internal/content"
	"github.com/roomcast/qabroadcast/internal/device"
	"github.com/roomcast/qabroadcast/internal/message"
)

const instrumentationName = "github.com/roomcast/qabroadcast/internal/worker"

// Cycle errors.
var (
	// ErrCycleInProgress is returned when a trigger fires while a cycle runs.
	ErrCycleInProgress = errors.New("send cycle already in progress")

	// ErrNoEligibleDevices is returned when no roster device passes the battery threshold.
	ErrNoEligibleDevices = errors.New("no eligible devices")
)

// DeviceSelector returns the eligible targets of a roster.
type DeviceSelector interface {
	Select(ctx context.Context, barcodes []string, minBattery int) ([]device.Target, error)
}

// ContentRenderer renders the localized message body for a send timestamp.
type ContentRenderer interface {
	Render(templates map[string]string, sendAt string) (content.Rendered, error)
}

// MessageWriter stores one broadcast.
type MessageWriter interface {
	Write(ctx context.Context, req message.Request) (*message.Result, error)
}

// SendJobConfig holds configuration for creating a SendJob.
type SendJobConfig struct {
	Config   SendConfig
	Logger   zerolog.Logger
	Selector DeviceSelector
	Renderer ContentRenderer
	Writer   MessageWriter

	// Verifier defaults to NoopVerifier.
	Verifier Verifier

	// Tracer and Meter default to the global providers.
	Tracer trace.Tracer
	Meter  metric.Meter

	// Now defaults to time.Now.
	Now func() time.Time
}

// SendJob runs send cycles: select devices, render content, write the
// broadcast, remember it and hand the history to the verifier.
// At most one cycle runs at a time.
type SendJob struct {
	config   SendConfig
	logger   zerolog.Logger
	selector DeviceSelector
	renderer ContentRenderer
	writer   MessageWriter
	verifier Verifier
	tracer   trace.Tracer
	now      func() time.Time

	history *History
	running atomic.Bool

	metrics     *SendMetrics
	instruments instruments
}

// NewSendJob creates a new send job.
func NewSendJob(cfg SendJobConfig) *SendJob {
	config := cfg.Config.withDefaults()

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SendJob{
		config:      config,
		logger:      cfg.Logger,
		selector:    cfg.Selector,
		renderer:    cfg.Renderer,
		writer:      cfg.Writer,
		verifier:    verifier,
		tracer:      tracer,
		now:         now,
		history:     NewHistory(config.HistorySize),
		metrics:     &SendMetrics{},
		instruments: newInstruments(meter),
	}
}

// RunCycle executes one send cycle. It is the terminal handler for cycle
// errors: they are logged here and returned for the caller's information.
// Rows written before a failure are left in place.
func (j *SendJob) RunCycle(ctx context.Context) (*message.Result, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn().Msg("previous send cycle still running, skipping")
		j.recordDropped(ctx)
		return nil, ErrCycleInProgress
	}
	defer j.running.Store(false)

	started := j.now().In(j.config.Location)
	start := started.Truncate(time.Second)
	sendAt := start.Format(message.SendAtLayout)

	logger := j.logger.With().
		Str("cycle_id", uuid.NewString()).
		Str("send_at", sendAt).
		Logger()

	ctx, span := j.tracer.Start(ctx, "broadcast.send_cycle",
		trace.WithAttributes(attribute.String("broadcast.send_at", sendAt)))
	defer span.End()

	logger.Info().Int("roster", len(j.config.Barcodes)).Msg("sending QA broadcast")

	result, err := j.send(ctx, start, sendAt)
	elapsed := j.now().Sub(started)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case errors.Is(err, ErrNoEligibleDevices):
		span.SetAttributes(attribute.String("broadcast.outcome", OutcomeSkipped))
		logger.Warn().Int("min_battery_lvl", j.config.MinBatteryLevel).Msg("no eligible devices, nothing sent")
		j.record(ctx, OutcomeSkipped, start, elapsed, 0, 0, err)
		return nil, err
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("send cycle failed")
		j.record(ctx, OutcomeFailed, start, elapsed, 0, 0, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("broadcast.outcome", OutcomeSuccess),
		attribute.Int64("broadcast.message_id", result.MessageID),
		attribute.Int("broadcast.recipients", len(result.Devices)),
	)
	j.record(ctx, OutcomeSuccess, start, elapsed, len(result.Devices), result.MessageID, nil)

	j.history.Add(*result)
	history := j.history.Snapshot()

	logger.Info().
		Int64("message_id", result.MessageID).
		Int64("message_info_id", result.MessageInfoID).
		Int("recipients", len(result.Devices)).
		Int("history", len(history)).
		Msg("QA broadcast sent")

	if err := j.verifier.Verify(ctx, history); err != nil {
		logger.Warn().Err(err).Msg("send verification failed")
	}

	return result, nil
}

func (j *SendJob) send(ctx context.Context, start time.Time, sendAt string) (*message.Result, error) {
	targets, err := j.selector.Select(ctx, j.config.Barcodes, j.config.MinBatteryLevel)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoEligibleDevices
	}

	rendered, err := j.renderer.Render(j.config.MessageContent, sendAt)
	if err != nil {
		return nil, err
	}

	return j.writer.Write(ctx, message.Request{
		SendAt:  start,
		Targets: targets,
		Content: rendered,
	})
}

// History returns the retained sends, oldest first.
func (j *SendJob) History() []message.Result {
	return j.history.Snapshot()
}

// Running reports whether a cycle is in progress.
func (j *SendJob) Running() bool {
	return j.running.Load()
}
