package env

import "time"

// Raspberry Pi header names as registered by periph.io.
const (
	GPIO06 = "GPIO6"
	GPIO12 = "GPIO12" // rain bucket
	GPIO13 = "GPIO13" // vane D0
	GPIO16 = "GPIO16" // lcd D5
	GPIO17 = "GPIO17" // lcd RS
	GPIO19 = "GPIO19" // vane D1
	GPIO20 = "GPIO20" // status LED
	GPIO21 = "GPIO21" // lcd D6
	GPIO22 = "GPIO22" // lcd E
	GPIO23 = "GPIO23" // lcd D4
	GPIO24 = "GPIO24" // lcd D7
	GPIO26 = "GPIO26" // vane D2
	GPIO27 = "GPIO27" // wind pulse

	WindSensorIn = GPIO27
	RainSensorIn = GPIO12
	StatusLed    = GPIO20

	LcdRS = GPIO17
	LcdE  = GPIO22
	LcdD4 = GPIO23
	LcdD5 = GPIO16
	LcdD6 = GPIO21
	LcdD7 = GPIO24
)

// vane encoder lines, D0 first
var VanePins = []string{GPIO13, GPIO19, GPIO26, GPIO06}

const (
	HumidityI2C  uint16 = 0x77 // BME280
	BarometerI2C uint16 = 0x76 // BMP280

	// 1 pulse/s = 2.4 km/h, expressed per pulse/ms
	KmhPerPulsePerMs = 2400.0

	SeaLevelHPa = 1013.25

	MMPerBucketTip = 0.2794
	HPaToInHg      = 0.02953
	KmhToMph       = 0.621371

	ReportFreqMin = 15

	LEDFlashDuration = time.Millisecond * 100
)
