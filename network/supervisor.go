package network

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

// ErrNoNetworks is returned by Connect when there is nothing to try.
var ErrNoNetworks = errors.New("no candidate networks")

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "invalid"
}

// Link is the network interface being supervised.
type Link interface {
	Up() bool
	Join(ctx context.Context, cred config.Credential) error
}

// Toggler is flipped on every connection attempt.
type Toggler interface {
	Toggle()
}

// Supervisor owns the connection state and retries the candidate networks.
type Supervisor struct {
	link           Link
	candidates     []config.Credential
	attemptTimeout time.Duration
	retryDelay     time.Duration
	backoffMax     time.Duration
	clock          clockwork.Clock
	led            Toggler
	rnd            *rand.Rand

	// OnAttempt is called before each attempt, e.g. to update the display.
	OnAttempt func(attempt int, ssid string)

	mu    sync.Mutex
	state State
	ssid  string
}

func NewSupervisor(link Link, cfg config.NetworkConfig, clock clockwork.Clock, led Toggler) *Supervisor {
	return &Supervisor{
		link:           link,
		candidates:     cfg.Candidates,
		attemptTimeout: cfg.AttemptTimeout,
		retryDelay:     cfg.RetryDelay,
		backoffMax:     cfg.BackoffMax,
		clock:          clock,
		led:            led,
		rnd:            rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SSID is the network joined by the last successful Connect.
func (s *Supervisor) SSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ssid
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Check observes the link and updates the state.
func (s *Supervisor) Check() State {
	up := s.link.Up()
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case up && s.state != Connected:
		logger.Info("Link is up")
		s.state = Connected
	case !up && s.state == Connected:
		logger.Warn("Link lost")
		s.state = Disconnected
	}
	return s.state
}

// Connect tries each candidate in order, round after round, until one joins
// or ctx is cancelled. It returns the number of attempts made.
func (s *Supervisor) Connect(ctx context.Context) (int, error) {
	if len(s.candidates) == 0 {
		return 0, ErrNoNetworks
	}
	s.setState(Connecting)
	attempts := 0
	for round := 0; ; round++ {
		for i, cred := range s.candidates {
			attempts++
			if s.led != nil {
				s.led.Toggle()
			}
			if s.OnAttempt != nil {
				s.OnAttempt(attempts, cred.SSID)
			}
			logger.Infof("Connecting to [%v] attempt [%v]", cred.SSID, attempts)

			err := s.join(ctx, cred)
			if err == nil {
				s.mu.Lock()
				s.state = Connected
				s.ssid = cred.SSID
				s.mu.Unlock()
				logger.Infof("Connected to [%v] after [%v] attempts", cred.SSID, attempts)
				return attempts, nil
			}
			logger.Infof("Connection to [%v] failed [%v]", cred.SSID, err)

			delay := s.retryDelay
			if i == len(s.candidates)-1 {
				delay = s.roundDelay(round)
			}
			if err := s.wait(ctx, delay); err != nil {
				s.setState(Disconnected)
				return attempts, err
			}
		}
	}
}

func (s *Supervisor) join(ctx context.Context, cred config.Credential) error {
	if s.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		defer cancel()
	}
	return s.link.Join(ctx, cred)
}

// roundDelay doubles the retry delay each full round, capped at backoffMax,
// with up to half of it as jitter. Without backoffMax it is the retry delay.
func (s *Supervisor) roundDelay(round int) time.Duration {
	if s.backoffMax <= 0 {
		return s.retryDelay
	}
	d := s.retryDelay
	for i := 0; i < round && d < s.backoffMax; i++ {
		d *= 2
	}
	if d > s.backoffMax {
		d = s.backoffMax
	}
	if half := int64(d / 2); half > 0 {
		d = time.Duration(half + s.rnd.Int63n(half+1))
	}
	return d
}

func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
