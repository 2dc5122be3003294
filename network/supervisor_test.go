package network

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	mu    sync.Mutex
	up    bool
	good  string
	tried []string
}

func (f *fakeLink) Up() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up
}

func (f *fakeLink) setUp(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up = up
}

func (f *fakeLink) Join(ctx context.Context, cred config.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tried = append(f.tried, cred.SSID)
	if cred.SSID != f.good {
		return errors.New("association failed")
	}
	f.up = true
	return nil
}

type countingLED struct{ n int }

func (c *countingLED) Toggle() { c.n++ }

func candidates(ssids ...string) []config.Credential {
	var creds []config.Credential
	for _, s := range ssids {
		creds = append(creds, config.Credential{SSID: s, Password: "pw"})
	}
	return creds
}

func TestConnect_ThirdCandidate(t *testing.T) {
	link := &fakeLink{good: "C"}
	led := &countingLED{}
	cfg := config.NetworkConfig{Candidates: candidates("A", "B", "C", "D"), AttemptTimeout: time.Second}
	s := NewSupervisor(link, cfg, clockwork.NewFakeClock(), led)

	var seen []string
	s.OnAttempt = func(_ int, ssid string) { seen = append(seen, ssid) }

	assert.Equal(t, Disconnected, s.State())
	attempts, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, Connected, s.State())
	assert.Equal(t, "C", s.SSID())
	assert.Equal(t, []string{"A", "B", "C"}, link.tried)
	assert.Equal(t, []string{"A", "B", "C"}, seen)
	assert.Equal(t, 3, led.n)
}

func TestConnect_KeepsTrying(t *testing.T) {
	link := &fakeLink{good: "B"}
	clock := clockwork.NewFakeClock()
	cfg := config.NetworkConfig{Candidates: candidates("A"), RetryDelay: 666 * time.Millisecond}
	s := NewSupervisor(link, cfg, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		attempts int
		err      error
	}
	done := make(chan result)
	go func() {
		n, err := s.Connect(ctx)
		done <- result{n, err}
	}()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		assert.Equal(t, Connecting, s.State())
		clock.Advance(666 * time.Millisecond)
	}
	clock.BlockUntil(1)
	cancel()

	r := <-done
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Equal(t, 4, r.attempts)
	assert.Equal(t, Disconnected, s.State())
}

func TestConnect_NoCandidates(t *testing.T) {
	s := NewSupervisor(&fakeLink{}, config.NetworkConfig{}, clockwork.NewFakeClock(), nil)
	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoNetworks)
}

func TestCheck_LinkDrop(t *testing.T) {
	link := &fakeLink{good: "A"}
	s := NewSupervisor(link, config.NetworkConfig{Candidates: candidates("A")}, clockwork.NewFakeClock(), nil)

	assert.Equal(t, Disconnected, s.Check())
	_, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Connected, s.Check())

	link.setUp(false)
	assert.Equal(t, Disconnected, s.Check())

	// associated behind our back
	link.setUp(true)
	assert.Equal(t, Connected, s.Check())
}

func TestRoundDelay(t *testing.T) {
	cfg := config.NetworkConfig{RetryDelay: time.Second}
	s := NewSupervisor(&fakeLink{}, cfg, clockwork.NewFakeClock(), nil)
	assert.Equal(t, time.Second, s.roundDelay(5), "fixed delay without a cap")

	cfg.BackoffMax = 10 * time.Second
	s = NewSupervisor(&fakeLink{}, cfg, clockwork.NewFakeClock(), nil)
	for round, ceil := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second} {
		d := s.roundDelay(round)
		assert.GreaterOrEqual(t, d, ceil/2, "round %d", round)
		assert.LessOrEqual(t, d, ceil, "round %d", round)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "invalid", State(7).String())
}
