package reporting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gr-butler/estacion/data"
	"github.com/gr-butler/estacion/telemetry"
	logger "github.com/sirupsen/logrus"
)

var errNoWeather = errors.New("no weather data to report")

// WOW uploads readings to the Met Office Weather Observations Website.
type WOW struct {
	URL      string
	SiteID   string
	AuthKey  string
	Software string
	Timeout  time.Duration
}

func NewWOW(url, siteID, authKey, software string) *WOW {
	return &WOW{URL: url, SiteID: siteID, AuthKey: authKey, Software: software, Timeout: 30 * time.Second}
}

func (w *WOW) Name() string { return "metoffice-wow" }

func (w *WOW) Report(ctx context.Context, s data.SampleSet) error {
	report := telemetry.NewWOWReport(s, w.SiteID, w.AuthKey, w.Software)
	if !report.HasWeather() {
		return errNoWeather
	}
	vals, err := report.Values()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	logger.Debugf("WOW data: [%v]", vals)

	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	// Metoffice accepts a GET
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL+"?"+vals.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send report: HTTP [%v]", resp.Status)
	}
	return nil
}

func (w *WOW) Close() error { return nil }
