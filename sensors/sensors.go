package sensors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/derived"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

/*
 * Sensors is responsible for reading the sensors and converting sensor output to real values.
 */

var errNoPin = errors.New("pin not found")

type HumiditySensor interface {
	ReadHumidity() (tempC float64, rh float64, err error)
}

type PressureSensor interface {
	ReadPressure() (tempC float64, hPa float64, err error)
}

type VaneLines interface {
	Bits() ([4]bool, error)
}

// Reader builds one SampleSet per acquisition cycle. Any of the devices may be nil.
type Reader struct {
	Humidity    HumiditySensor
	Pressure    PressureSensor
	Pulses      *PulseCounter
	Vane        VaneLines
	Decoder     *VaneDecoder
	Rain        RainSource
	Calibration float64 // km/h per pulse/ms
	SeaLevelHPa float64

	lastAcquire time.Time
}

// Acquire reads every sensor. A failed or absent device leaves its readings missing.
func (r *Reader) Acquire(now time.Time) data.SampleSet {
	s := data.SampleSet{Time: now}

	humTemp := data.Missing
	if r.Humidity != nil {
		t, rh, err := r.Humidity.ReadHumidity()
		if err != nil {
			logger.Debugf("Humidity missing [%v]", err)
		} else {
			humTemp = data.Of(t)
			s.Humidity = data.Of(rh)
		}
	}

	if r.Pressure != nil {
		t, hPa, err := r.Pressure.ReadPressure()
		if err != nil {
			logger.Debugf("Pressure missing [%v]", err)
		} else {
			s.Temperature = data.Of(t)
			s.Pressure = data.Of(hPa)
			s.Altitude = derived.Altitude(s.Pressure, data.Of(r.SeaLevelHPa))
		}
	}
	if !s.Temperature.Valid() {
		s.Temperature = humTemp
	}

	s.WindSpeed = r.windSpeed(now)

	if r.Vane != nil && r.Decoder != nil {
		bits, err := r.Vane.Bits()
		if err != nil {
			logger.Debugf("Wind direction unknown [%v]", err)
		} else {
			s.WindDirection = data.DirectionOf(r.Decoder.Decode(bits))
		}
	}

	if r.Rain != nil {
		s.Rainfall = r.Rain.Rainfall()
	}

	s.HeatIndex = derived.HeatIndex(s.Temperature, s.WindSpeed)
	s.DewPoint = derived.DewPoint(s.Temperature, s.Humidity)
	return s
}

// windSpeed drains the pulse counter once and converts it over the time since the last cycle.
func (r *Reader) windSpeed(now time.Time) data.Reading {
	if r.Pulses == nil {
		r.lastAcquire = now
		return data.Missing
	}
	count := r.Pulses.ReadAndReset()
	last := r.lastAcquire
	r.lastAcquire = now
	if last.IsZero() {
		return data.Missing
	}
	dtMs := float64(now.Sub(last)) / float64(time.Millisecond)
	return WindSpeed(count, dtMs, r.Calibration)
}

// WindSpeed is count * calibration / dtMs in km/h, missing when dtMs <= 0.
func WindSpeed(count uint64, dtMs, calibration float64) data.Reading {
	if dtMs <= 0 {
		return data.Missing
	}
	return data.Of(float64(count) * calibration / dtMs)
}

// Hardware holds the devices opened on the host and the Reader over them.
type Hardware struct {
	Reader *Reader

	bus        i2c.BusCloser
	anemometer *Anemometer
	gauge      *RainGauge
	hygrometer *Hygrometer
	barometer  *Barometer
}

// Open prepares the sensors described by cfg. Only an unopenable I2C bus is an
// error; any other missing device is logged and its readings stay missing.
func Open(cfg config.SensorsConfig, clock clockwork.Clock) (*Hardware, error) {
	table, err := VaneTableFromInts(cfg.VaneTable)
	if err != nil {
		return nil, err
	}
	h := &Hardware{
		Reader: &Reader{
			Pulses:      &PulseCounter{},
			Decoder:     NewVaneDecoder(table),
			Calibration: cfg.WindCalibration,
			SeaLevelHPa: cfg.SeaLevelHPa,
		},
	}
	if cfg.Rain == "simulated" {
		h.Reader.Rain = NewSimulatedRain(clock.Now().UnixNano())
	}
	if !cfg.Hardware {
		logger.Info("Hardware disabled, sensors will read as missing")
		return h, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init host drivers: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C: %w", err)
	}
	h.bus = bus

	if hyg, err := NewHygrometer(bus, cfg.HumidityAddr); err != nil {
		logger.Errorf("Humidity sensor unavailable [%v]", err)
	} else {
		h.hygrometer = hyg
		h.Reader.Humidity = hyg
	}
	if baro, err := NewBarometer(bus, cfg.BarometerAddr); err != nil {
		logger.Errorf("Barometer unavailable [%v]", err)
	} else {
		h.barometer = baro
		h.Reader.Pressure = baro
	}

	if a, err := NewAnemometer(gpioreg.ByName(cfg.WindPin), h.Reader.Pulses); err != nil {
		logger.Errorf("Wind sensor unavailable [%v]", err)
	} else {
		h.anemometer = a
	}

	pins := make([]gpio.PinIO, 0, len(cfg.VanePins))
	for _, name := range cfg.VanePins {
		pins = append(pins, gpioreg.ByName(name))
	}
	if v, err := NewVane(pins...); err != nil {
		logger.Errorf("Wind vane unavailable [%v]", err)
	} else {
		h.Reader.Vane = v
	}

	if cfg.Rain == "gauge" {
		if g, err := NewRainGauge(gpioreg.ByName(cfg.RainPin), clock); err != nil {
			logger.Errorf("Rain gauge unavailable [%v]", err)
		} else {
			h.gauge = g
			h.Reader.Rain = g
		}
	}

	logger.Info("Sensors initialized.")
	return h, nil
}

// OnRainTip registers a callback run on each bucket tip.
func (h *Hardware) OnRainTip(f func()) {
	if h.gauge != nil {
		h.gauge.OnTip = f
	}
}

// Start launches the edge monitors. They stop with ctx.
func (h *Hardware) Start(ctx context.Context) {
	if h.anemometer != nil {
		go h.anemometer.Monitor(ctx)
	}
	if h.gauge != nil {
		go h.gauge.Monitor(ctx)
	}
}

func (h *Hardware) Close() error {
	if h.hygrometer != nil {
		_ = h.hygrometer.Halt()
	}
	if h.barometer != nil {
		_ = h.barometer.Halt()
	}
	if h.bus != nil {
		return h.bus.Close()
	}
	return nil
}
