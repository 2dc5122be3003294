package telemetry

import (
	"net/url"

	"github.com/google/go-querystring/query"
	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/env"
)

/*
 * https://wow.metoffice.gov.uk/support/dataformats
 *
 * All uploads must contain siteid, siteAuthenticationKey, dateutc and softwaretype
 * plus at least one piece of weather data. dateutc is "YYYY-mm-DD HH:mm:ss" in UTC
 * with ':' encoded as %3A and the space as '+'.
 */

// WOWReport is one Met Office WOW automatic reading. Nil fields are left out.
type WOWReport struct {
	SiteID       string   `url:"siteid"`
	AuthKey      string   `url:"siteAuthenticationKey"`
	DateUTC      string   `url:"dateutc"`
	SoftwareType string   `url:"softwaretype"`
	PressureIn   *float64 `url:"baromin,omitempty"`
	Humidity     *float64 `url:"humidity,omitempty"`
	TempF        *float64 `url:"tempf,omitempty"`
	DewPointF    *float64 `url:"dewptf,omitempty"`
	WindDir      *float64 `url:"winddir,omitempty"`
	WindSpeedMph *float64 `url:"windspeedmph,omitempty"`
}

// NewWOWReport converts s to WOW units.
func NewWOWReport(s data.SampleSet, siteID, authKey, software string) WOWReport {
	w := WOWReport{
		SiteID:       siteID,
		AuthKey:      authKey,
		DateUTC:      s.Time.UTC().Format("2006-01-02 15:04:05"),
		SoftwareType: software,
	}
	w.PressureIn = convert(s.Pressure, func(hPa float64) float64 { return hPa * env.HPaToInHg })
	w.Humidity = convert(s.Humidity, nil)
	w.TempF = convert(s.Temperature, ctof)
	w.DewPointF = convert(s.DewPoint, ctof)
	w.WindSpeedMph = convert(s.WindSpeed, func(kmh float64) float64 { return kmh * env.KmhToMph })
	if deg, ok := s.WindDirection.Degrees(); ok {
		w.WindDir = &deg
	}
	return w
}

// HasWeather reports whether at least one measurement is present.
func (w WOWReport) HasWeather() bool {
	return w.PressureIn != nil || w.Humidity != nil || w.TempF != nil ||
		w.DewPointF != nil || w.WindDir != nil || w.WindSpeedMph != nil
}

func (w WOWReport) Values() (url.Values, error) {
	return query.Values(w)
}

func convert(r data.Reading, f func(float64) float64) *float64 {
	v, ok := r.Value()
	if !ok {
		return nil
	}
	if f != nil {
		v = f(v)
	}
	return &v
}

func ctof(c float64) float64 {
	//(0°C × 9/5) + 32 = 32°F
	return (c * 9 / 5) + 32
}
