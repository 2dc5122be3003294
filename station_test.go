package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/display"
	"github.com/gr-butler/estacion/network"
	"github.com/gr-butler/estacion/reporting"
	"github.com/gr-butler/estacion/telemetry"
	"github.com/gr-butler/estacion/uplink"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu    sync.Mutex
	calls int
	s     data.SampleSet
}

func (f *fakeReader) Acquire(now time.Time) data.SampleSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s := f.s
	s.Time = now
	return s
}

func (f *fakeReader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNet struct {
	mu       sync.Mutex
	state    network.State
	checks   int
	connects int
	release  chan struct{}
}

func (f *fakeNet) Check() network.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.state
}

func (f *fakeNet) State() network.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeNet) Connect(ctx context.Context) (int, error) {
	f.mu.Lock()
	f.connects++
	f.state = network.Connecting
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = network.Connected
	return 3, nil
}

func (f *fakeNet) SSID() string { return "ISET57" }

func (f *fakeNet) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []telemetry.Payload
	res  uplink.Result
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, p telemetry.Payload) uplink.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return f.res
}

func (f *fakeTransport) Sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeScreen struct {
	mu    sync.Mutex
	shown [][]string
}

func (f *fakeScreen) Show(rows []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, rows)
	return nil
}

func (f *fakeScreen) Close() error { return nil }

func (f *fakeScreen) last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.shown) == 0 {
		return nil
	}
	return f.shown[len(f.shown)-1]
}

type fakeSink struct {
	reports []data.SampleSet
	err     error
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Report(_ context.Context, s data.SampleSet) error {
	f.reports = append(f.reports, s)
	return f.err
}

func (f *fakeSink) Close() error { return nil }

type fakeLED struct {
	mu      sync.Mutex
	flashes int
}

func (f *fakeLED) Flash() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes++
}

func (f *fakeLED) Flashes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flashes
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func validSample() data.SampleSet {
	return data.SampleSet{
		Temperature:   data.Of(25),
		Humidity:      data.Of(50),
		HeatIndex:     data.Of(26.55),
		WindSpeed:     data.Of(10),
		WindDirection: data.DirectionOf(2),
	}
}

func newTestStation(clock clockwork.Clock) (*weatherstation, *fakeReader, *fakeNet, *fakeTransport, *fakeScreen) {
	reader := &fakeReader{s: validSample()}
	net := &fakeNet{state: network.Connected}
	tr := &fakeTransport{res: uplink.Result{Sent: true, Status: 200}}
	screen := &fakeScreen{}
	w := &weatherstation{
		clock:     clock,
		cadence:   config.Default().Cadence,
		reader:    reader,
		renderer:  display.NewRenderer(display.LCD2004, "--", config.DefaultPrecision()),
		screen:    screen,
		transport: tr,
		net:       net,
	}
	return w, reader, net, tr, screen
}

func TestTick_Cadences(t *testing.T) {
	w, reader, _, tr, screen := newTestStation(clockwork.NewFakeClockAt(t0))
	ctx := context.Background()

	w.tick(ctx, t0)
	assert.Equal(t, 1, reader.Calls())
	assert.Equal(t, 1, tr.Sent())
	require.Len(t, screen.shown, 1)
	assert.Equal(t, "TEMP  25\x00C  ST  27\x00C", screen.last()[2])

	w.tick(ctx, t0.Add(50*time.Millisecond))
	assert.Equal(t, 1, reader.Calls())
	assert.Len(t, screen.shown, 1)

	w.tick(ctx, t0.Add(time.Second))
	assert.Equal(t, 1, reader.Calls())
	assert.Len(t, screen.shown, 2)

	w.tick(ctx, t0.Add(2500*time.Millisecond))
	assert.Equal(t, 2, reader.Calls())
	assert.Equal(t, 2, tr.Sent())
	assert.Len(t, screen.shown, 3)

	s, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, t0.Add(2500*time.Millisecond), s.Time)
}

func TestTick_Disconnected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	w, reader, net, tr, screen := newTestStation(clock)
	net.state = network.Disconnected
	net.release = make(chan struct{})
	ctx := context.Background()

	w.tick(ctx, t0)
	assert.Equal(t, 1, reader.Calls(), "acquisition runs while disconnected")
	assert.Equal(t, 0, tr.Sent())
	require.Eventually(t, func() bool { return net.State() == network.Connecting }, time.Second, time.Millisecond)

	attempts := testutil.ToFloat64(Prom_connectAttempts)
	w.onAttempt(1, "A")
	assert.Equal(t, attempts+1, testutil.ToFloat64(Prom_connectAttempts), "counted while still connecting")
	w.tick(ctx, t0.Add(time.Second))
	assert.Equal(t, "Conectando al wifi..", screen.last()[0][:20])
	w.onAttempt(2, "B")
	assert.Equal(t, attempts+2, testutil.ToFloat64(Prom_connectAttempts))
	w.tick(ctx, t0.Add(2*time.Second))
	assert.Equal(t, "..Conectando al wifi", screen.last()[0][:20])

	// no second connect while the first is running
	w.tick(ctx, t0.Add(2500*time.Millisecond))
	assert.Equal(t, 0, tr.Sent())
	assert.Equal(t, 1, net.Connects())

	clock.Advance(3 * time.Second)
	close(net.release)
	require.Eventually(t, func() bool { return !w.connecting.Load() }, time.Second, time.Millisecond)

	w.tick(ctx, t0.Add(3*time.Second))
	assert.Equal(t, "Conectado al wifi:  ", screen.last()[0])
	assert.Equal(t, "ISET57              ", screen.last()[1])

	w.tick(ctx, t0.Add(5*time.Second))
	assert.Equal(t, 1, tr.Sent())
	assert.Equal(t, "PRESION     -- hPa  ", screen.last()[0])
}

func TestSend_Outcomes(t *testing.T) {
	w, _, _, tr, _ := newTestStation(clockwork.NewFakeClockAt(t0))
	led := &fakeLED{}
	w.led = led
	ctx := context.Background()

	w.send(ctx, validSample())
	require.Eventually(t, func() bool { return led.Flashes() == 1 }, time.Second, time.Millisecond)

	tr.res = uplink.Result{Status: 500, Err: uplink.ErrStatus}
	w.send(ctx, validSample())
	assert.Equal(t, 2, tr.Sent())

	// nothing valid, nothing sent
	w.send(ctx, data.SampleSet{})
	assert.Equal(t, 2, tr.Sent())
	assert.Equal(t, 1, led.Flashes())
}

func TestTick_Report(t *testing.T) {
	w, _, net, _, _ := newTestStation(clockwork.NewFakeClockAt(t0))
	sink := &fakeSink{err: errors.New("down")}
	w.sinks = []reporting.Sink{sink}
	ctx := context.Background()

	w.tick(ctx, t0)
	require.Len(t, sink.reports, 1)

	w.tick(ctx, t0.Add(5*time.Minute))
	assert.Len(t, sink.reports, 1)

	w.tick(ctx, t0.Add(15*time.Minute))
	assert.Len(t, sink.reports, 2)

	net.state = network.Disconnected
	net.release = make(chan struct{})
	defer close(net.release)
	w.tick(ctx, t0.Add(30*time.Minute))
	assert.Len(t, sink.reports, 2, "no reports without a link")
}

func TestReport_TestMode(t *testing.T) {
	w, _, _, _, _ := newTestStation(clockwork.NewFakeClockAt(t0))
	sink := &fakeSink{}
	w.sinks = []reporting.Sink{sink}
	w.testMode = true

	w.report(context.Background(), validSample())
	assert.Empty(t, sink.reports)
}

func TestRun_FakeClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	w, reader, _, tr, screen := newTestStation(clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	clock.BlockUntil(1)
	assert.Equal(t, "ESTACION            ", screen.last()[0])
	clock.Advance(w.cadence.Tick)
	require.Eventually(t, func() bool { return reader.Calls() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 50; i++ {
		clock.Advance(w.cadence.Tick)
	}
	require.Eventually(t, func() bool { return reader.Calls() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return tr.Sent() == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHandler(t *testing.T) {
	w, _, _, _, _ := newTestStation(clockwork.NewFakeClockAt(t0))

	rec := httptest.NewRecorder()
	w.handler(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "{}", rec.Body.String())

	w.tick(context.Background(), t0)
	rec = httptest.NewRecorder()
	w.handler(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"temperatura":25`)
	assert.Contains(t, rec.Body.String(), `"direccion":45`)
}
