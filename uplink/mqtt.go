package uplink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gr-butler/estacion/telemetry"
)

// TelemetryTopic is the ThingsBoard device telemetry topic.
const TelemetryTopic = "v1/devices/me/telemetry"

var errTimeout = errors.New("timed out")

// MQTTTransport connects, publishes and disconnects for every payload.
// The device token is the MQTT username.
type MQTTTransport struct {
	Broker  string
	Token   string
	Timeout time.Duration
}

func NewMQTT(broker, token string, timeout time.Duration) *MQTTTransport {
	return &MQTTTransport{Broker: broker, Token: token, Timeout: timeout}
}

func (m *MQTTTransport) Name() string { return "mqtt" }

func (m *MQTTTransport) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.Broker)
	opts.SetClientID(fmt.Sprintf("estacion-%d", time.Now().UnixNano()))
	opts.SetUsername(m.Token)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(m.Timeout)
	return opts
}

func (m *MQTTTransport) Send(ctx context.Context, p telemetry.Payload) Result {
	body, err := p.MarshalJSON()
	if err != nil {
		return Result{Err: fmt.Errorf("encode payload: %w", err)}
	}

	client := mqtt.NewClient(m.options())
	if err := m.wait(ctx, client.Connect()); err != nil {
		// a connect that completes after we gave up is torn down by paho
		client.Disconnect(0)
		return Result{Err: fmt.Errorf("mqtt connect: %w", err)}
	}
	defer client.Disconnect(250)

	if err := m.wait(ctx, client.Publish(TelemetryTopic, 1, false, body)); err != nil {
		return Result{Err: fmt.Errorf("mqtt publish: %w", err)}
	}
	return Result{Sent: true}
}

// wait blocks on token, bounded by the timeout and ctx.
func (m *MQTTTransport) wait(ctx context.Context, token mqtt.Token) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(timeout):
		return errTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
