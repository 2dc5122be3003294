package led

import (
	"sync"
	"time"

	"github.com/gr-butler/estacion/env"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// LED is a status light on a GPIO output. A nil pin makes every call a no-op.
type LED struct {
	Name    string
	lock    sync.Mutex
	on      bool
	gpioPin gpio.PinOut
	sleep   func(time.Duration)
}

func NewLED(name string, pin gpio.PinOut) *LED {
	l := &LED{Name: name, gpioPin: pin, sleep: time.Sleep}
	if pin == nil {
		logger.Errorf("No pin for LED [%v]", name)
		return l
	}
	logger.Infof("Creating new LED on pin [%v] called [%v]", pin, name)
	_ = l.gpioPin.Out(gpio.Low)
	return l
}

// Toggle inverts the LED, once per connection attempt.
func (l *LED) Toggle() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.on = !l.on
	l.out(l.on)
}

func (l *LED) out(on bool) {
	if l.gpioPin != nil {
		_ = l.gpioPin.Out(gpio.Level(on))
	}
}

// Flash briefly inverts the LED and restores it.
func (l *LED) Flash() {
	if l.gpioPin == nil {
		return
	}
	if !l.lock.TryLock() {
		// a flash is already in progress, drop this one
		return
	}
	defer l.lock.Unlock()
	l.out(!l.on)
	l.sleep(env.LEDFlashDuration)
	l.out(l.on)
}
