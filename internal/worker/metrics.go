package worker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Cycle outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// SendMetrics tracks send job statistics.
type SendMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalCycles       int64
	SuccessfulCycles  int64
	FailedCycles      int64
	SkippedCycles     int64
	RecipientsWritten int64

	// Last cycle
	LastCycleAt       time.Time
	LastCycleDuration time.Duration
	LastOutcome       string
	LastMessageID     int64
	LastError         string
}

type instruments struct {
	cycles     metric.Int64Counter
	recipients metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) instruments {
	var inst instruments
	var err error

	inst.cycles, err = meter.Int64Counter("broadcast.send.cycles",
		metric.WithDescription("Send cycles by outcome"))
	if err != nil {
		inst.cycles = noop.Int64Counter{}
	}

	inst.recipients, err = meter.Int64Counter("broadcast.send.recipients",
		metric.WithDescription("Message recipient rows written"))
	if err != nil {
		inst.recipients = noop.Int64Counter{}
	}

	inst.duration, err = meter.Float64Histogram("broadcast.send.duration",
		metric.WithDescription("Send cycle duration"),
		metric.WithUnit("s"))
	if err != nil {
		inst.duration = noop.Float64Histogram{}
	}

	return inst
}

func (j *SendJob) record(ctx context.Context, outcome string, at time.Time, d time.Duration, recipients int, messageID int64, cause error) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	j.instruments.cycles.Add(ctx, 1, attrs)
	j.instruments.duration.Record(ctx, d.Seconds(), attrs)
	if recipients > 0 {
		j.instruments.recipients.Add(ctx, int64(recipients))
	}

	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalCycles++
	switch outcome {
	case OutcomeSuccess:
		j.metrics.SuccessfulCycles++
		j.metrics.RecipientsWritten += int64(recipients)
		j.metrics.LastMessageID = messageID
	case OutcomeFailed:
		j.metrics.FailedCycles++
	case OutcomeSkipped:
		j.metrics.SkippedCycles++
	}
	j.metrics.LastCycleAt = at
	j.metrics.LastCycleDuration = d
	j.metrics.LastOutcome = outcome
	j.metrics.LastError = ""
	if cause != nil {
		j.metrics.LastError = cause.Error()
	}
}

// recordDropped counts a trigger dropped by the overlap guard. The last-cycle
// fields keep describing the cycle that is still running.
func (j *SendJob) recordDropped(ctx context.Context) {
	j.instruments.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", OutcomeSkipped)))

	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalCycles++
	j.metrics.SkippedCycles++
}

// GetMetrics returns a copy of the current metrics.
func (j *SendJob) GetMetrics() SendMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SendMetrics{
		TotalCycles:       j.metrics.TotalCycles,
		SuccessfulCycles:  j.metrics.SuccessfulCycles,
		FailedCycles:      j.metrics.FailedCycles,
		SkippedCycles:     j.metrics.SkippedCycles,
		RecipientsWritten: j.metrics.RecipientsWritten,
		LastCycleAt:       j.metrics.LastCycleAt,
		LastCycleDuration: j.metrics.LastCycleDuration,
		LastOutcome:       j.metrics.LastOutcome,
		LastMessageID:     j.metrics.LastMessageID,
		LastError:         j.metrics.LastError,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SendJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_cycles":        m.TotalCycles,
		"successful_cycles":   m.SuccessfulCycles,
		"failed_cycles":       m.FailedCycles,
		"skipped_cycles":      m.SkippedCycles,
		"recipients_written":  m.RecipientsWritten,
		"last_cycle_at":       m.LastCycleAt,
		"last_cycle_duration": m.LastCycleDuration.String(),
		"last_outcome":        m.LastOutcome,
		"last_message_id":     m.LastMessageID,
		"last_error":          m.LastError,
	}
}
