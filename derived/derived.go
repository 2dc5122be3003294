// Package derived computes secondary meteorological quantities. Every function
// returns data.Missing when any input is missing or the result is undefined.
package derived

import (
	"math"

	"github.com/gr-butler/estacion/data"
)

// Magnus coefficients (Sonntag 1990), valid for -45..60 °C.
const (
	magnusB = 17.62
	magnusC = 243.12
)

// HeatIndex is the apparent temperature felt in wind ("sensación térmica"):
// 13.12 + 0.6215T - 11.37W^0.16 + 0.3965T W^0.16 with T in °C and W in km/h.
func HeatIndex(tempC, windKmh data.Reading) data.Reading {
	t, ok := tempC.Value()
	if !ok {
		return data.Missing
	}
	w, ok := windKmh.Value()
	if !ok || w < 0 {
		return data.Missing
	}
	w16 := math.Pow(w, 0.16)
	return data.Of(13.12 + 0.6215*t - 11.37*w16 + 0.3965*t*w16)
}

// DewPoint uses the Magnus approximation.
func DewPoint(tempC, rhPct data.Reading) data.Reading {
	t, ok := tempC.Value()
	if !ok {
		return data.Missing
	}
	rh, ok := rhPct.Value()
	if !ok || rh <= 0 {
		return data.Missing
	}
	if magnusC+t == 0 {
		return data.Missing
	}
	gamma := math.Log(rh/100) + (magnusB*t)/(magnusC+t)
	if magnusB-gamma == 0 {
		return data.Missing
	}
	return data.Of(magnusC * gamma / (magnusB - gamma))
}

// Altitude from station pressure using the international barometric formula.
func Altitude(pressureHPa, seaLevelHPa data.Reading) data.Reading {
	p, ok := pressureHPa.Value()
	if !ok || p <= 0 {
		return data.Missing
	}
	p0, ok := seaLevelHPa.Value()
	if !ok || p0 <= 0 {
		return data.Missing
	}
	return data.Of(44330.0 * (1 - math.Pow(p/p0, 1/5.255)))
}
