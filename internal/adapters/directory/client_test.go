package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Desk/internal/domain"
)

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/api/v1/", Token: "secret"})
}

func TestListDevices(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "online", r.URL.Query().Get("status"))
		assert.Equal(t, "true", r.URL.Query().Get("my_devices_only"))
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","total":41,"list":[
			{"id":1,"device_name":"a","device_id":"dev-1","status":"online"},
			{"id":"2","name":"b","device_id":"dev-2","status":"offline","cpu":{"model":"M2"}}
		]}`))
	})

	list, err := c.ListDevices(context.Background(), ListOptions{Page: 2, PageSize: 20, Status: domain.DeviceOnline, MyDevicesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 41, list.Total)
	require.Len(t, list.Devices, 2)
	assert.Equal(t, "dev-1", list.Devices[0].DeviceID)
	assert.Equal(t, "a", list.Devices[0].Name)
	assert.Equal(t, "model=M2", list.Devices[1].CPU.String())
}

func TestListDevicesNestedData(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"code":200,"data":{"list":[{"id":7,"device_id":"dev-7"}]}}`))
	})

	list, err := c.ListDevices(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "7", list.Devices[0].ID)
}

func TestGetDevice(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices/17", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","id":17,"device_id":"dev-42","ip_address":"10.0.0.5","os":"Windows 11"}`))
	})

	d, err := c.GetDevice(context.Background(), "17")
	require.NoError(t, err)
	assert.Equal(t, "dev-42", d.DeviceID)
	assert.Equal(t, "10.0.0.5", d.IP)
	assert.Equal(t, "Windows 11", d.OS.String())
}

func TestGetDeviceUnderData(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":201,"data":{"id":3,"device_id":"dev-3"}}`))
	})
	d, err := c.GetDevice(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "dev-3", d.DeviceID)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name: "http 401", status: http.StatusUnauthorized, body: `{"message":"expired"}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) },
		},
		{
			name: "envelope 401", status: http.StatusOK, body: `{"code":401,"message":"login"}`,
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnauthorized) },
		},
		{
			name: "envelope failure", status: http.StatusOK, body: `{"code":4004,"message":"no such device"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, int64(4004), apiErr.Code)
				assert.Equal(t, "no such device", apiErr.Message)
			},
		},
		{
			name: "http failure", status: http.StatusBadGateway, body: `upstream down`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusBadGateway, apiErr.Status)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetDevice(context.Background(), "1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestWithToken(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer other", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":0,"list":[]}`))
	})
	_, err := c.WithToken("other").ListDevices(context.Background(), ListOptions{})
	require.NoError(t, err)
}
