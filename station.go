package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/display"
	"github.com/gr-butler/estacion/network"
	"github.com/gr-butler/estacion/reporting"
	"github.com/gr-butler/estacion/telemetry"
	"github.com/gr-butler/estacion/uplink"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

// how long the "connected" screen stays up
const statusHold = 2 * time.Second

type acquirer interface {
	Acquire(now time.Time) data.SampleSet
}

type supervisor interface {
	Check() network.State
	State() network.State
	Connect(ctx context.Context) (int, error)
	SSID() string
}

type flasher interface {
	Flash()
}

type weatherstation struct {
	clock     clockwork.Clock
	cadence   config.CadenceConfig
	reader    acquirer
	renderer  *display.Renderer
	screen    display.Display
	transport uplink.Transport
	net       supervisor
	sinks     []reporting.Sink
	led       flasher
	testMode  bool

	lastAcquire time.Time
	lastDisplay time.Time
	lastReport  time.Time

	connecting  atomic.Bool
	mu          sync.Mutex
	latest      data.SampleSet
	haveSample  bool
	status      []string
	statusUntil time.Time
}

// Run drives the cadences until ctx is cancelled.
func (w *weatherstation) Run(ctx context.Context) error {
	w.show(w.renderer.Banner())
	ticker := w.clock.NewTicker(w.cadence.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Station loop stopped")
			return ctx.Err()
		case <-ticker.Chan():
			w.tick(ctx, w.clock.Now())
		}
	}
}

// tick runs whichever cadences are due at now.
func (w *weatherstation) tick(ctx context.Context, now time.Time) {
	if due(w.lastAcquire, now, w.cadence.Acquire) {
		w.lastAcquire = now
		s := w.reader.Acquire(now)
		w.setLatest(s)
		recordSample(s)
		if w.supervise(ctx) {
			w.send(ctx, s)
		}
	}

	if due(w.lastDisplay, now, w.cadence.Display) {
		w.lastDisplay = now
		w.refreshDisplay(now)
	}

	if w.cadence.Report > 0 && len(w.sinks) > 0 && due(w.lastReport, now, w.cadence.Report) {
		if s, ok := w.Latest(); ok && w.net.State() == network.Connected {
			w.lastReport = now
			w.report(ctx, s)
		}
	}
}

func due(last, now time.Time, period time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= period
}

// supervise reports whether the link is up, starting a reconnect in the
// background when it is not.
func (w *weatherstation) supervise(ctx context.Context) bool {
	if w.connecting.Load() {
		return false
	}
	if w.net.Check() == network.Connected {
		return true
	}
	w.connecting.Store(true)
	go w.connect(ctx)
	return false
}

func (w *weatherstation) connect(ctx context.Context) {
	defer w.connecting.Store(false)
	_, err := w.net.Connect(ctx)
	if err != nil {
		if errors.Is(err, network.ErrNoNetworks) {
			logger.Error("No networks configured")
		}
		return
	}
	w.setStatus(w.renderer.Status("Conectado al wifi:", w.net.SSID()), w.clock.Now().Add(statusHold))
}

// onAttempt counts the attempt and alternates the connecting banner.
func (w *weatherstation) onAttempt(attempt int, _ string) {
	Prom_connectAttempts.Inc()
	line := "Conectando al wifi.."
	if attempt%2 == 0 {
		line = "..Conectando al wifi"
	}
	w.setStatus(w.renderer.Status(line), time.Time{})
}

func (w *weatherstation) send(ctx context.Context, s data.SampleSet) {
	p := telemetry.Encode(s)
	if p.Len() == 0 {
		logger.Debug("No valid readings, nothing to send")
		return
	}
	res := w.transport.Send(ctx, p)
	switch {
	case res.Err != nil:
		Prom_uplink.WithLabelValues("failed").Inc()
		logger.Errorf("Failed to send telemetry [%v] payload [%v]", res.Err, p)
	case res.Sent:
		Prom_uplink.WithLabelValues("sent").Inc()
		logger.Debugf("Telemetry sent [%v] [%v]", res.Status, res.Body)
		if w.led != nil {
			go w.led.Flash()
		}
	default:
		Prom_uplink.WithLabelValues("logged").Inc()
	}
}

func (w *weatherstation) refreshDisplay(now time.Time) {
	w.mu.Lock()
	status, until := w.status, w.statusUntil
	s, ok := w.latest, w.haveSample
	w.mu.Unlock()

	switch {
	case w.connecting.Load() && status != nil:
		w.show(status)
	case status != nil && now.Before(until):
		w.show(status)
	case ok:
		w.show(w.renderer.Render(s))
	}
}

func (w *weatherstation) show(rows []string) {
	if err := w.screen.Show(rows); err != nil {
		logger.Errorf("Display write failed [%v]", err)
	}
}

func (w *weatherstation) setStatus(rows []string, until time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = rows
	w.statusUntil = until
}

func (w *weatherstation) setLatest(s data.SampleSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest = s
	w.haveSample = true
}

// Latest is the most recent SampleSet, if any.
func (w *weatherstation) Latest() (data.SampleSet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest, w.haveSample
}

// handler serves the latest payload as JSON.
func (w *weatherstation) handler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	p := telemetry.Payload{}
	if s, ok := w.Latest(); ok {
		p = telemetry.Encode(s)
	}
	js, err := json.Marshal(p)
	if err != nil {
		logger.Errorf("JSON error [%v]", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = rw.Write(js) // not much we can do if this fails
}
