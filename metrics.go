package main

import (
	"time"

	"github.com/gr-butler/estacion/data"
	"github.com/prometheus/client_golang/prometheus"
	logger "github.com/sirupsen/logrus"
)

var Prom_altitude = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "altitude",
		Help: "Barometric altitude m",
	},
)

var Prom_dewPoint = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "dew_point",
		Help: "Dew point C",
	},
)

var Prom_humidity = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relative_humidity",
		Help: "Relative Humidity",
	},
)

var Prom_rainHour = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "rain_hour",
		Help: "Rain over the last hour mm",
	},
)

var Prom_atmPresure = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "atmospheric_pressure",
		Help: "Atmospheric pressure hPa",
	},
)

var Prom_heatIndex = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "heat_index",
		Help: "Apparent temperature C",
	},
)

var Prom_temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "temperature",
		Help: "Temperature C",
	},
)

var Prom_windspeed = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "windspeed",
		Help: "Wind Speed km/h",
	},
)

var Prom_windDirection = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "winddirection",
		Help: "Wind Direction Deg",
	},
)

var Prom_uplink = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "uplink_total",
		Help: "Telemetry sends by outcome",
	},
	[]string{"result"},
)

var Prom_connectAttempts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "connect_attempts_total",
		Help: "Network connection attempts",
	},
)

var Prom_reportFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "report_failures_total",
		Help: "Failed periodic reports per sink",
	},
	[]string{"sink"},
)

// called by prometheus
func init() {
	logger.Infof("%v: Initialize prometheus...", time.Now().Format(time.RFC822))
	prometheus.MustRegister(
		Prom_altitude,
		Prom_dewPoint,
		Prom_humidity,
		Prom_rainHour,
		Prom_atmPresure,
		Prom_heatIndex,
		Prom_temperature,
		Prom_windspeed,
		Prom_windDirection,
		Prom_uplink,
		Prom_connectAttempts,
		Prom_reportFailures)
}

// recordSample updates the gauges of the valid readings; missing ones keep their last value.
func recordSample(s data.SampleSet) {
	for _, g := range []struct {
		gauge prometheus.Gauge
		r     data.Reading
	}{
		{Prom_altitude, s.Altitude},
		{Prom_dewPoint, s.DewPoint},
		{Prom_humidity, s.Humidity},
		{Prom_rainHour, s.Rainfall},
		{Prom_atmPresure, s.Pressure},
		{Prom_heatIndex, s.HeatIndex},
		{Prom_temperature, s.Temperature},
		{Prom_windspeed, s.WindSpeed},
	} {
		if v, ok := g.r.Value(); ok {
			g.gauge.Set(v)
		}
	}
	if deg, ok := s.WindDirection.Degrees(); ok {
		Prom_windDirection.Set(deg)
	}
}
