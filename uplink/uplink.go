package uplink

import (
	"context"
	"errors"
	"fmt"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/telemetry"
	logger "github.com/sirupsen/logrus"
)

// ErrStatus wraps a non-2xx reply from the server.
var ErrStatus = errors.New("unexpected status")

// Result is the outcome of one send. A failed payload is dropped by the caller.
type Result struct {
	Sent   bool
	Status int
	Body   string
	Err    error
}

// Transport delivers one payload per call over its own connection.
type Transport interface {
	Send(ctx context.Context, p telemetry.Payload) Result
	Name() string
}

// New builds the transport selected in cfg.
func New(cfg config.UplinkConfig) (Transport, error) {
	switch cfg.Transport {
	case "http", "":
		return NewHTTP(cfg.BaseURL, cfg.Token, cfg.Timeout), nil
	case "mqtt":
		return NewMQTT(cfg.MQTTBroker, cfg.Token, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// LogOnly stands in for a real transport in test mode.
type LogOnly struct{}

func (LogOnly) Name() string { return "log" }

func (LogOnly) Send(_ context.Context, p telemetry.Payload) Result {
	logger.Infof("TEST MODE payload [%v]", p)
	return Result{}
}
