package watch

import (
	"context"
	"log/slog"
	"time"
)

// Debounce defaults.
const (
	DefaultQuietPeriod = 500 * time.Millisecond
	DefaultThrottle    = time.Second
)

// State is the scheduler's debounce state.
type State int

const (
	Idle State = iota
	Pending
)

// RebuildFunc runs one full build pass.
type RebuildFunc func(ctx context.Context) error

// Observer is notified about scheduler decisions.
type Observer interface {
	EventThrottled()
	RebuildFinished(d time.Duration, err error)
}

// Observers fans notifications out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

type multiObserver []Observer

func (m multiObserver) EventThrottled() {
	for _, o := range m {
		o.EventThrottled()
	}
}

func (m multiObserver) RebuildFinished(d time.Duration, err error) {
	for _, o := range m {
		o.RebuildFinished(d, err)
	}
}

// SchedulerOptions configures debounce timing. Zero values use the defaults.
type SchedulerOptions struct {
	QuietPeriod time.Duration
	Throttle    time.Duration
}

// Scheduler coalesces change events into rebuilds. It is the single consumer
// of the event channel and owns the only quiet-period timer.
type Scheduler struct {
	rebuild  RebuildFunc
	quiet    time.Duration
	throttle time.Duration
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler creates a Scheduler. observer may be nil.
func NewScheduler(rebuild RebuildFunc, opts SchedulerOptions, observer Observer, logger *slog.Logger) *Scheduler {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if observer == nil {
		observer = multiObserver(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		rebuild:  rebuild,
		quiet:    opts.QuietPeriod,
		throttle: opts.Throttle,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Run consumes events until ctx is cancelled, then waits for a running
// rebuild to finish. Rebuilds run one at a time and are never interrupted.
// Events arriving during a rebuild are coalesced into one follow-up rebuild.
func (s *Scheduler) Run(ctx context.Context, events <-chan ChangeEvent) error {
	timer := time.NewTimer(s.quiet)
	timer.Stop()
	defer timer.Stop()

	var (
		state     = Idle
		running   bool
		dirty     bool
		started   time.Time
		completed time.Time
		done      = make(chan error, 1)
	)

	// Rebuilds outlive ctx so a pass is never cut short.
	buildCtx := context.WithoutCancel(ctx)

	finish := func(err error) {
		running = false
		completed = s.now()
		d := completed.Sub(started)
		if err != nil {
			s.logger.Error("scheduler: rebuild failed",
				slog.Duration("duration", d),
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("scheduler: rebuild complete", slog.Duration("duration", d))
		}
		s.observer.RebuildFinished(d, err)
	}

	for {
		select {
		case <-ctx.Done():
			if running {
				finish(<-done)
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if running {
				dirty = true
				continue
			}
			switch state {
			case Idle:
				if !completed.IsZero() && s.now().Sub(completed) < s.throttle {
					s.logger.Debug("scheduler: event throttled", slog.String("path", ev.Path))
					s.observer.EventThrottled()
					continue
				}
				state = Pending
				timer.Reset(s.quiet)
			case Pending:
				timer.Reset(s.quiet)
			}

		case <-timer.C:
			running = true
			started = s.now()
			go func() { done <- s.rebuild(buildCtx) }()

		case err := <-done:
			finish(err)
			state = Idle
			if dirty {
				dirty = false
				state = Pending
				timer.Reset(s.quiet)
			}
		}
	}
}
