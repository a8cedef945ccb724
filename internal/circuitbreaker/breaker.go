package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/aman-churiwal/api-manager/internal/config"
	log "github.com/sirupsen/logrus"
)

var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Threshold int           // consecutive failures that open the breaker, default 5
	Cooldown  time.Duration // time spent open before probing, default 30s
	Trials    int           // half-open successes needed to close, default 1
}

func FromConfig(cfg config.CircuitBreakerConfig) Config {
	return Config{
		Threshold: cfg.MaxFailures,
		Cooldown:  cfg.OpenTimeout,
		Trials:    cfg.HalfOpenSuccess,
	}
}

// Breaker trips on consecutive failures of one dispatch target
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	rejected    int64
	openedAt    time.Time
	lastFailure time.Time
	changedAt   time.Time
}

func New(name string, cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trials <= 0 {
		cfg.Trials = 1
	}

	return &Breaker{
		name:      name,
		cfg:       cfg,
		now:       time.Now,
		state:     StateClosed,
		changedAt: time.Now(),
	}
}

// Runs fn when the breaker admits it and records the outcome
func (b *Breaker) Execute(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	b.Record(err)
	return err
}

// Returns ErrOpen while the cooldown has not elapsed
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		b.rejected++
		return ErrOpen
	}
	b.transition(StateHalfOpen)
	return nil
}

// Records the outcome of an admitted call; a nil error is a success
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
			b.transition(StateOpen)
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.Trials {
			b.transition(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

// Must hold mu
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.changedAt = b.now()
	b.successes = 0

	switch to {
	case StateOpen:
		b.openedAt = b.changedAt
	case StateClosed:
		b.failures = 0
	}

	log.WithFields(log.Fields{
		"breaker":  b.name,
		"from":     from,
		"to":       to,
		"failures": b.failures,
	}).Warn("circuit breaker state changed")
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Closes the breaker regardless of its current state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transition(StateClosed)
	b.failures = 0
	b.rejected = 0
}

type Snapshot struct {
	Name                string     `json:"name"`
	State               State      `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TrialSuccesses      int        `json:"trial_successes"`
	Rejected            int64      `json:"rejected"`
	LastFailure         *time.Time `json:"last_failure"`
	ChangedAt           time.Time  `json:"changed_at"`
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Name:                b.name,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		TrialSuccesses:      b.successes,
		Rejected:            b.rejected,
		ChangedAt:           b.changedAt,
	}
	if !b.lastFailure.IsZero() {
		last := b.lastFailure
		s.LastFailure = &last
	}
	return s
}
