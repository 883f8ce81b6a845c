package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Task is a recurring unit of work. Errors are logged; the next tick runs
// regardless.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs tasks on fixed periods. It can be started again after Stop;
// each start gets a fresh cron instance so no entries leak between runs.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tasks   []Task
	log     zerolog.Logger
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(log zerolog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks: tasks,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	for _, task := range s.tasks {
		c.Schedule(cron.Every(task.Every), s.job(ctx, task))
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	return nil
}

// Stop halts scheduling and cancels the context handed to running tasks. The
// returned context is done once in-flight tasks have returned. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	s.cancel()
	done := s.cron.Stop()
	s.running = false
	s.cron = nil
	return done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) job(ctx context.Context, task Task) cron.FuncJob {
	return func() {
		if ctx.Err() != nil {
			return
		}
		if err := task.Run(ctx); err != nil {
			s.log.Error().Err(err).Str("task", task.Name).Msg("scheduled task failed")
		}
	}
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
