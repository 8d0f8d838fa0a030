// Package directory is a read-only client of the device directory REST API.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Desk/internal/domain"
)

const maxBodyBytes = 4 << 20

var ErrUnauthorized = errors.New("directory: unauthorized")

// APIError is a non-success envelope or HTTP status.
type APIError struct {
	Status  int
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("directory: status %d code %d", e.Status, e.Code)
	}
	return fmt.Sprintf("directory: status %d code %d: %s", e.Status, e.Code, e.Message)
}

type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type Client struct {
	http  *http.Client
	base  string
	token string
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		base:  strings.TrimRight(cfg.URL, "/"),
		token: cfg.Token,
	}
}

// WithToken returns a copy of c authenticating with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type ListOptions struct {
	Page          int
	PageSize      int
	Status        domain.DeviceStatus
	MyDevicesOnly bool
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.MyDevicesOnly {
		q.Set("my_devices_only", "true")
	}
	return q
}

type DeviceList struct {
	Devices []domain.Device `json:"list"`
	Total   int             `json:"total"`
}

func (c *Client) ListDevices(ctx context.Context, opts ListOptions) (*DeviceList, error) {
	body, err := c.get(ctx, "/devices", opts.query())
	if err != nil {
		return nil, err
	}

	list := gjson.GetBytes(body, "list")
	if !list.Exists() {
		list = gjson.GetBytes(body, "data.list")
	}
	out := &DeviceList{}
	if list.IsArray() {
		if err := json.Unmarshal([]byte(list.Raw), &out.Devices); err != nil {
			return nil, fmt.Errorf("directory: decode devices: %w", err)
		}
	}
	total := gjson.GetBytes(body, "total")
	if !total.Exists() {
		total = gjson.GetBytes(body, "data.total")
	}
	out.Total = int(total.Int())
	if !total.Exists() {
		out.Total = len(out.Devices)
	}
	return out, nil
}

func (c *Client) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	body, err := c.get(ctx, "/devices/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	raw := body
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		raw = []byte(data.Raw)
	}
	var d domain.Device
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("directory: decode device: %w", err)
	}
	return &d, nil
}

// get performs the request and checks both the HTTP status and the
// response envelope. Envelope codes 0, 200 and 201 mean success.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("directory: read body: %w", err)
	}
	log.Debug().Str("module", "adapters.directory").Str("path", path).Int("status", resp.StatusCode).Msg("response")

	message := gjson.GetBytes(body, "message").String()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: message}
	}
	if !gjson.ValidBytes(body) {
		return nil, &APIError{Status: resp.StatusCode, Message: "response is not json"}
	}

	if code := gjson.GetBytes(body, "code"); code.Exists() {
		switch code.Int() {
		case 0, 200, 201:
		case 401:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, message)
		default:
			return nil, &APIError{Status: resp.StatusCode, Code: code.Int(), Message: message}
		}
	}
	return body, nil
}
