package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/roomcast/qabroadcast/internal/message"
)

// Cycler runs one send cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (*message.Result, error)
}

// SchedulerConfig holds configuration for creating a Scheduler.
type SchedulerConfig struct {
	// Spec is a cron expression with optional seconds field, or a descriptor
	// such as "@hourly" or "@every 30m".
	Spec string

	// Location evaluates Spec. Default: UTC
	Location *time.Location

	// RunOnStart runs one cycle as soon as Start is called.
	RunOnStart bool

	Job    Cycler
	Logger zerolog.Logger
}

// Scheduler triggers send cycles from a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	job        Cycler
	logger     zerolog.Logger
	runOnStart bool
	entry      cron.EntryID

	wg sync.WaitGroup
}

// NewScheduler validates the schedule and registers the send job.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		return nil, fmt.Errorf("schedule required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	// SecondOptional accepts both 5-field and 6-field (with seconds) specs.
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	clog := cronLogger{log: cfg.Logger.With().Str("component", "cron").Logger()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		spec:       spec,
		job:        cfg.Job,
		logger:     cfg.Logger,
		runOnStart: cfg.RunOnStart,
	}
	return s, nil
}

// Start begins triggering cycles. Cycles see the values of ctx but not its
// cancellation: a started cycle always runs to completion, and Stop bounds
// how long shutdown waits for it.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx := context.WithoutCancel(ctx)

	id, err := s.cron.AddFunc(s.spec, func() {
		_, _ = s.job.RunCycle(runCtx) //nolint:errcheck // logged by the job
	})
	if err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}
	s.entry = id

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_, _ = s.job.RunCycle(runCtx) //nolint:errcheck // logged by the job
		}()
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.spec).
		Bool("run_on_start", s.runOnStart).
		Time("next", s.Next()).
		Msg("scheduler started")
	return nil
}

// Next returns the next scheduled trigger, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop stops triggering and waits for running cycles until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out with a cycle still running")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
