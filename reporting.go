package main

import (
	"context"
	"time"

	"github.com/gr-butler/estacion/data"
	logger "github.com/sirupsen/logrus"
)

// per sink bound on a report
const reportTimeout = 30 * time.Second

// report sends s to every sink once. Failures are logged and the report dropped.
func (w *weatherstation) report(ctx context.Context, s data.SampleSet) {
	for _, sink := range w.sinks {
		if w.testMode {
			logger.Infof("TEST MODE skipping report to [%v]", sink.Name())
			continue
		}
		func() {
			ctx, cancel := context.WithTimeout(ctx, reportTimeout)
			defer cancel()
			logger.Infof("Reporting to [%v]", sink.Name())
			if err := sink.Report(ctx, s); err != nil {
				Prom_reportFailures.WithLabelValues(sink.Name()).Inc()
				logger.Errorf("Failed to report to [%v] [%v]", sink.Name(), err)
			}
		}()
	}
}

func (w *weatherstation) closeSinks() {
	for _, sink := range w.sinks {
		if err := sink.Close(); err != nil {
			logger.Errorf("Failed to close [%v] [%v]", sink.Name(), err)
		}
	}
}
