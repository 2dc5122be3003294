package sensors

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// Hygrometer reads relative humidity from a BME280.
type Hygrometer struct {
	dev *bmxx80.Dev
}

// Barometer reads pressure and temperature from a BMP280/BME280.
type Barometer struct {
	dev *bmxx80.Dev
}

func NewHygrometer(bus i2c.Bus, addr uint16) (*Hygrometer, error) {
	logger.Infof("Starting humidity sensor [%x]", addr)
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("humidity sensor %#x: %w", addr, err)
	}
	return &Hygrometer{dev: dev}, nil
}

func NewBarometer(bus i2c.Bus, addr uint16) (*Barometer, error) {
	logger.Infof("Starting barometer [%x]", addr)
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("barometer %#x: %w", addr, err)
	}
	return &Barometer{dev: dev}, nil
}

// ReadHumidity returns temperature in °C and relative humidity in %.
func (h *Hygrometer) ReadHumidity() (float64, float64, error) {
	em := physic.Env{}
	if err := h.dev.Sense(&em); err != nil {
		return 0, 0, fmt.Errorf("humidity read: %w", err)
	}
	return em.Temperature.Celsius(), float64(em.Humidity) / float64(physic.PercentRH), nil
}

// ReadPressure returns temperature in °C and pressure in hPa.
func (b *Barometer) ReadPressure() (float64, float64, error) {
	em := physic.Env{}
	if err := b.dev.Sense(&em); err != nil {
		return 0, 0, fmt.Errorf("pressure read: %w", err)
	}
	return em.Temperature.Celsius(), float64(em.Pressure) / float64(100*physic.Pascal), nil
}

func (h *Hygrometer) Halt() error { return h.dev.Halt() }

func (b *Barometer) Halt() error { return b.dev.Halt() }
