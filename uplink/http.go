package uplink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gr-butler/estacion/telemetry"
)

const maxBody = 4096

// HTTPTransport posts telemetry to a ThingsBoard device endpoint.
type HTTPTransport struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewHTTP(baseURL, token string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{BaseURL: baseURL, Token: token, Timeout: timeout}
}

func (h *HTTPTransport) Name() string { return "http" }

// Endpoint is <base>/api/v1/<token>/telemetry.
func (h *HTTPTransport) Endpoint() string {
	return fmt.Sprintf("%s/api/v1/%s/telemetry", strings.TrimRight(h.BaseURL, "/"), url.PathEscape(h.Token))
}

func (h *HTTPTransport) Send(ctx context.Context, p telemetry.Payload) Result {
	body, err := p.MarshalJSON()
	if err != nil {
		return Result{Err: fmt.Errorf("encode payload: %w", err)}
	}
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	// one connection per send
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("post telemetry: %w", err)}
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	res := Result{Status: resp.StatusCode, Body: string(reply)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Err = fmt.Errorf("%w: HTTP %d [%s]", ErrStatus, resp.StatusCode, res.Body)
		return res
	}
	res.Sent = true
	return res
}
