// Package gateway performs the HTTP offer/answer exchange with the
// streaming gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pion/sdp/v3"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Desk/internal/core"
)

const maxAnswerBytes = 1 << 20

type Config struct {
	URL         string
	Path        string
	CaptureType int
	Timeout     time.Duration
	// Overrides maps a device id to its own gateway base url.
	Overrides map[string]string
}

// Client is a core.Signaler. Requests are never retried.
type Client struct {
	http        *http.Client
	base        string
	path        string
	captureType int
	overrides   map[string]string
}

var (
	_ core.Signaler       = (*Client)(nil)
	_ core.SignalerRouter = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.Path == "" {
		cfg.Path = "/rtc/play"
	}
	if cfg.CaptureType == 0 {
		cfg.CaptureType = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	overrides := make(map[string]string, len(cfg.Overrides))
	for id, u := range cfg.Overrides {
		overrides[strings.ToLower(id)] = u
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		base:        cfg.URL,
		path:        cfg.Path,
		captureType: cfg.CaptureType,
		overrides:   overrides,
	}
}

// Endpoint is the full url offers are posted to.
func (c *Client) Endpoint() string {
	return strings.TrimRight(c.base, "/") + "/" + strings.TrimLeft(c.path, "/")
}

// ForDevice returns a client bound to the device's override gateway, or c.
// Device ids are matched case-insensitively.
func (c *Client) ForDevice(deviceID string) core.Signaler {
	u, ok := c.overrides[strings.ToLower(deviceID)]
	if !ok || u == "" {
		return c
	}
	cp := *c
	cp.base = u
	return &cp
}

type offerRequest struct {
	Type        string `json:"type"`
	CaptureType int    `json:"caputretype"`
	SDP         string `json:"sdp"`
	StreamURL   string `json:"streamurl"`
}

func (c *Client) Negotiate(ctx context.Context, offerSDP, streamURL string) (string, error) {
	body, err := json.Marshal(offerRequest{
		Type:        "offer",
		CaptureType: c.captureType,
		SDP:         offerSDP,
		StreamURL:   streamURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal offer: %w", err)
	}

	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read answer: %v", core.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: gateway returned %d", core.ErrNetwork, resp.StatusCode)
	}

	answer, err := extractAnswer(raw)
	if err != nil {
		return "", err
	}
	log.Debug().Str("module", "adapters.gateway").Str("endpoint", endpoint).Str("stream", streamURL).Msg("answer received")
	return answer, nil
}

// extractAnswer finds the answer at "sdp" or "data.sdp" and checks it parses.
func extractAnswer(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response is not json", core.ErrProtocol)
	}
	var answer string
	for _, r := range gjson.GetManyBytes(body, "sdp", "data.sdp") {
		if r.Type == gjson.String && r.Str != "" {
			answer = r.Str
			break
		}
	}
	if answer == "" {
		return "", fmt.Errorf("%w: no sdp in response", core.ErrProtocol)
	}

	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(answer)); err != nil {
		return "", fmt.Errorf("%w: invalid sdp: %v", core.ErrProtocol, err)
	}
	return answer, nil
}
