package sensors

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gr-butler/estacion/buffer"
	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/env"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioutil"
)

const (
	// every 10 seconds for the last hour = 3600 / 10 = 360
	rainRollPeriod = 10 * time.Second
	rainSlots      = 360
)

// RainSource supplies the rainfall reading for a cycle.
type RainSource interface {
	Rainfall() data.Reading
}

// RainGauge counts tipping bucket tips and reports mm over the last hour.
type RainGauge struct {
	gpioPin gpio.PinIO
	tips    atomic.Uint64
	tipBuf  *buffer.SampleBuffer
	clock   clockwork.Clock
	OnTip   func()
}

// NewRainGauge debounces pin and counts falling edges.
func NewRainGauge(pin gpio.PinIO, clock clockwork.Clock) (*RainGauge, error) {
	if pin == nil {
		return nil, fmt.Errorf("rain pin: %w", errNoPin)
	}
	logger.Infof("Starting tip bucket monitor on [%s]", pin)
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("rain pin %s: %w", pin, err)
	}
	// Ignore glitches lasting less than 100ms, and ignore repeated edges within 500ms.
	rainpin, err := gpioutil.Debounce(pin, 100*time.Millisecond, 500*time.Millisecond, gpio.FallingEdge)
	if err != nil {
		return nil, fmt.Errorf("failed to set debounce: %w", err)
	}
	return newRainGauge(rainpin, clock), nil
}

func newRainGauge(pin gpio.PinIO, clock clockwork.Clock) *RainGauge {
	return &RainGauge{
		gpioPin: pin,
		tipBuf:  buffer.NewBuffer(rainSlots),
		clock:   clock,
	}
}

// Monitor counts tips and rolls them into the hourly buffer until ctx is done.
func (r *RainGauge) Monitor(ctx context.Context) {
	go r.roll(ctx)
	defer func() { _ = r.gpioPin.Halt() }()
	for ctx.Err() == nil {
		if !r.gpioPin.WaitForEdge(edgeWait) {
			continue
		}
		if r.gpioPin.Read() == gpio.Low {
			r.Tip()
		}
	}
}

// Tip records one bucket tip.
func (r *RainGauge) Tip() {
	n := r.tips.Add(1)
	logger.Infof("Bucket tip. [%v] @ %v", n, r.clock.Now().Format(time.ANSIC))
	if r.OnTip != nil {
		r.OnTip()
	}
}

func (r *RainGauge) roll(ctx context.Context) {
	ticker := r.clock.NewTicker(rainRollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Roll()
		}
	}
}

// Roll moves the pending tips into the newest slot of the hourly buffer.
func (r *RainGauge) Roll() {
	r.tipBuf.AddItem(float64(r.tips.Swap(0)))
}

// Rainfall is the mm fallen over the last hour, including tips not yet rolled.
func (r *RainGauge) Rainfall() data.Reading {
	tips := r.tipBuf.GetSum() + float64(r.tips.Load())
	return data.Of(tips * env.MMPerBucketTip)
}

// SimulatedRain produces a random rainfall in [0,15) mm for benches without a gauge.
type SimulatedRain struct {
	rnd *rand.Rand
}

func NewSimulatedRain(seed int64) *SimulatedRain {
	return &SimulatedRain{rnd: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedRain) Rainfall() data.Reading {
	return data.Of(s.rnd.Float64() * 15)
}
