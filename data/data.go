package data

import (
	"fmt"
	"math"
	"time"
)

// Reading is a single measured or derived quantity that may be missing.
// The zero value is missing.
type Reading struct {
	value float64
	valid bool
}

// Missing is the "no value" reading.
var Missing = Reading{}

// Of wraps v. NaN and infinities become Missing.
func Of(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	return Reading{value: v, valid: true}
}

func (r Reading) Valid() bool {
	return r.valid
}

// Value returns the value and whether it is present.
func (r Reading) Value() (float64, bool) {
	return r.value, r.valid
}

// Float64 returns the value, or NaN when missing.
func (r Reading) Float64() float64 {
	if !r.valid {
		return math.NaN()
	}
	return r.value
}

func (r Reading) String() string {
	if !r.valid {
		return "missing"
	}
	return fmt.Sprintf("%g", r.value)
}

// SampleSet holds every reading from one acquisition cycle.
type SampleSet struct {
	Time          time.Time
	Altitude      Reading // m
	DewPoint      Reading // °C
	Humidity      Reading // %RH
	Rainfall      Reading // mm
	Pressure      Reading // hPa
	HeatIndex     Reading // °C
	Temperature   Reading // °C
	WindSpeed     Reading // km/h
	WindDirection Direction
}
