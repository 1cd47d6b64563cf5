package scheduler

import "time"

type Option func(*Scheduler)

// WithUnit sets the duration of one cadence unit. Production uses a minute;
// tests shrink it.
func WithUnit(unit time.Duration) Option {
	return func(s *Scheduler) {
		if unit > 0 {
			s.unit = unit
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.sendTimeout = timeout
		}
	}
}

func WithButtonLabel(label string) Option {
	return func(s *Scheduler) {
		if label != "" {
			s.buttonLabel = label
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}
