package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Desk/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestFormatMetrics(t *testing.T) {
	line := FormatMetrics(domain.QualityMetrics{
		Timestamp:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local),
		BitrateKbps:     4200.4,
		FramesPerSecond: 59.94,
		PacketLossRate:  0.0125,
		LatencyMs:       18,
		JitterMs:        2.5,
		TransferredMB:   12.5,
		Codec:           "video/H264",
	})
	assert.Equal(t, "03:04:05  4200 kbps  59.9 fps  loss 1.25%  rtt 18 ms  jitter 2.5 ms  12.50 MB  video/H264", line)

	assert.Contains(t, FormatMetrics(domain.QualityMetrics{}), "  -")
}

func directoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "online", r.URL.Query().Get("status"))
		fmt.Fprint(w, `{"code":0,"list":[{"id":17,"device_name":"lab-box","device_id":"dev-42","status":"online"}],"total":1}`)
	})
	mux.HandleFunc("/devices/17", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"id":17,"name":"lab-box","device_id":"dev-42","ip":"10.0.0.5","status":"online","cpu":{"model":"M2"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, directoryURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("directory:\n  url: "+directoryURL+"\n"), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDevicesList(t *testing.T) {
	srv := directoryServer(t)
	cfg := writeConfig(t, srv.URL)

	out, err := run(t, "devices", "ls", "--config", cfg, "--token", "tok", "--status", "online")
	require.NoError(t, err)
	assert.Contains(t, out, "lab-box")
	assert.Contains(t, out, "dev-42")
	assert.Contains(t, out, "Total: 1")

	out, err = run(t, "devices", "ls", "--config", cfg, "--token", "tok", "--status", "online", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"device_id": "dev-42"`)
}

func TestDevicesGet(t *testing.T) {
	srv := directoryServer(t)
	cfg := writeConfig(t, srv.URL)

	out, err := run(t, "devices", "get", "17", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "10.0.0.5")
	assert.Contains(t, out, "model=M2")
}

func TestPlayRequiresDevice(t *testing.T) {
	_, err := run(t, "play")
	assert.EqualError(t, err, "a device id or --id is required")
}
