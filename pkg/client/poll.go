package client

import (
	"context"
	"log/slog"
	"time"
)

// RetryDelay is how long the poller waits after a failed status fetch.
const RetryDelay = 3 * time.Second

// Outcome is how a poll loop ended.
type Outcome int

const (
	Succeeded Outcome = iota + 1
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Observation is one status reading of a background operation.
type Observation struct {
	Status   string
	Terminal bool
	Failed   bool
	Progress int
	Step     string
}

// Policy controls poll pacing. Interval receives the 1-based attempt number.
// A zero MaxAttempts or Timeout means no limit of that kind.
type Policy struct {
	Interval    func(attempt int) time.Duration
	MaxAttempts int
	Timeout     time.Duration
	// FinalCheck makes one more fetch after the loop gives up.
	FinalCheck bool
}

// InitializationPolicy polls every 2 seconds for at most 90 seconds.
func InitializationPolicy() Policy {
	return Policy{
		Interval: func(int) time.Duration { return 2 * time.Second },
		Timeout:  90 * time.Second,
	}
}

// PlanPolicy ramps from 1s to 3s between attempts and gives up after 60
// attempts, about two minutes.
func PlanPolicy() Policy {
	return Policy{
		Interval: func(attempt int) time.Duration {
			switch {
			case attempt <= 10:
				return time.Second
			case attempt <= 30:
				return 2 * time.Second
			default:
				return 3 * time.Second
			}
		},
		MaxAttempts: 60,
		FinalCheck:  true,
	}
}

// Poller repeatedly fetches a status until it is terminal or the policy runs
// out. Sleep and Now default to real time.
type Poller struct {
	Policy   Policy
	Sleep    func(ctx context.Context, d time.Duration) error
	Now      func() time.Time
	OnUpdate func(Observation)
}

func NewPoller(p Policy) *Poller {
	return &Poller{Policy: p}
}

// Poll runs the loop. Fetch errors are logged and retried after RetryDelay;
// they never end the loop. The only error returned is ctx's.
func (p *Poller) Poll(ctx context.Context, fetch func(ctx context.Context) (Observation, error)) (Outcome, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	interval := p.Policy.Interval
	if interval == nil {
		interval = func(int) time.Duration { return time.Second }
	}

	start := now()
	expired := func() bool {
		return p.Policy.Timeout > 0 && now().Sub(start) >= p.Policy.Timeout
	}
	// No sleep after the last attempt.
	done := func(attempt int) bool {
		return expired() || (p.Policy.MaxAttempts > 0 && attempt >= p.Policy.MaxAttempts)
	}

	for attempt := 1; p.Policy.MaxAttempts == 0 || attempt <= p.Policy.MaxAttempts; attempt++ {
		obs, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			slog.Warn("status check failed, retrying", "attempt", attempt, "error", err)
			if done(attempt) {
				break
			}
			if err := sleep(ctx, RetryDelay); err != nil {
				return 0, err
			}
			continue
		}

		if p.OnUpdate != nil {
			p.OnUpdate(obs)
		}
		if obs.Terminal {
			return outcomeOf(obs), nil
		}
		if done(attempt) {
			break
		}
		if err := sleep(ctx, interval(attempt)); err != nil {
			return 0, err
		}
	}

	if p.Policy.FinalCheck {
		if obs, err := fetch(ctx); err == nil && obs.Terminal {
			if p.OnUpdate != nil {
				p.OnUpdate(obs)
			}
			return outcomeOf(obs), nil
		}
	}
	return TimedOut, nil
}

func outcomeOf(obs Observation) Outcome {
	if obs.Failed {
		return Failed
	}
	return Succeeded
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
