package sensors

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// edgeWait bounds each WaitForEdge so the monitor notices cancellation.
const edgeWait = 500 * time.Millisecond

// Anemometer counts rising edges from the cup sensor reed switch.
type Anemometer struct {
	gpioPin gpio.PinIO
	counter *PulseCounter
}

func NewAnemometer(pin gpio.PinIO, counter *PulseCounter) (*Anemometer, error) {
	if pin == nil {
		return nil, fmt.Errorf("wind pin: %w", errNoPin)
	}
	logger.Infof("Starting wind sensor on [%s]", pin)
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("wind pin %s: %w", pin, err)
	}
	return &Anemometer{gpioPin: pin, counter: counter}, nil
}

// Monitor feeds the pulse counter until ctx is done.
func (a *Anemometer) Monitor(ctx context.Context) {
	defer func() { _ = a.gpioPin.Halt() }()
	for {
		if ctx.Err() != nil {
			return
		}
		if a.gpioPin.WaitForEdge(edgeWait) {
			a.counter.OnPulse()
		}
	}
}
