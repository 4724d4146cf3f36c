package processing

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/banshee-data/survey.report/internal/config"
)

// PollPolicy controls the delay between status queries while a survey is
// pending. The zero value of MaxWait polls until the backend reaches a
// terminal phase; a Multiplier above 1 grows the delay after every pending
// answer, capped at MaxInterval when that is set.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	MaxWait     time.Duration
}

// DefaultPollPolicy polls once a second with no upper bound.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: time.Second, Multiplier: 1}
}

// PollPolicyFromConfig reads the poll_* settings.
func PollPolicyFromConfig(cfg *config.ClientConfig) PollPolicy {
	return PollPolicy{
		Interval:    cfg.GetPollInterval(),
		MaxInterval: cfg.GetPollMaxInterval(),
		Multiplier:  cfg.GetPollMultiplier(),
		MaxWait:     cfg.GetPollMaxWait(),
	}
}

func (p PollPolicy) normalized() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = time.Duration(math.MaxInt64)
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	return p
}

// NewBackOff returns a deterministic exponential backoff for p whose elapsed
// time is measured on clock. NextBackOff returns backoff.Stop once the next
// delay would carry the wait past MaxWait.
func (p PollPolicy) NewBackOff(clock backoff.Clock) *backoff.ExponentialBackOff {
	p = p.normalized()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Interval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxWait
	b.RandomizationFactor = 0
	b.Clock = clock
	b.Reset()
	return b
}
