package reporting

import (
	"context"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/data"
	logger "github.com/sirupsen/logrus"
)

// Sink receives the latest SampleSet on the reporting cadence. Each call is a
// single attempt; a failure is logged by the caller and the report dropped.
type Sink interface {
	Name() string
	Report(ctx context.Context, s data.SampleSet) error
	Close() error
}

// Open returns the sinks configured in cfg. A sink that cannot be set up is skipped.
func Open(cfg config.ReportingConfig, software string) []Sink {
	var sinks []Sink
	if cfg.WOW.SiteID != "" && cfg.WOW.AuthKey != "" {
		sinks = append(sinks, NewWOW(cfg.WOW.URL, cfg.WOW.SiteID, cfg.WOW.AuthKey, software))
	}
	if cfg.Postgres.DSN != "" {
		rec, err := NewRecorder(cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			logger.Errorf("Postgres recorder disabled [%v]", err)
		} else {
			sinks = append(sinks, rec)
		}
	}
	if cfg.Redis.Addr != "" {
		sinks = append(sinks, NewSnapshot(cfg.Redis.Addr, cfg.Redis.Key, cfg.Redis.TTL))
	}
	for _, s := range sinks {
		logger.Infof("Reporting to [%v]", s.Name())
	}
	return sinks
}
