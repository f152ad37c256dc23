package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the trigger subscription.
const (
	JobSendMessage = "send_message"
	JobHealthCheck = "health_check"
)

// ErrUnknownJob is returned for job messages with an unrecognized type.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is a trigger message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// JobDispatcher runs trigger messages against the send job.
type JobDispatcher struct {
	job    Cycler
	ping   func(ctx context.Context) error
	logger zerolog.Logger
}

// NewJobDispatcher creates a dispatcher. ping may be nil.
func NewJobDispatcher(job Cycler, ping func(ctx context.Context) error, logger zerolog.Logger) *JobDispatcher {
	return &JobDispatcher{job: job, ping: ping, logger: logger}
}

// Dispatch decodes data and runs the requested job.
func (d *JobDispatcher) Dispatch(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("parse job message: %w", err)
	}

	d.logger.Debug().Str("job_type", msg.JobType).Msg("dispatching job")

	switch msg.JobType {
	case JobSendMessage:
		// Shutdown must not cut a cycle off between its writes; Receive
		// returns once the callback does.
		_, err := d.job.RunCycle(context.WithoutCancel(ctx))
		return err
	case JobHealthCheck:
		if d.ping == nil {
			return nil
		}
		if err := d.ping(ctx); err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// PubSubHandler receives trigger messages from Pub/Sub.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *JobDispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *JobDispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// One cycle at a time; the job drops overlapping triggers anyway.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// handleMessage always acks: a failed cycle waits for the next trigger
// instead of being redelivered.
func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if err := h.dispatcher.Dispatch(ctx, msg.Data); err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Ack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
