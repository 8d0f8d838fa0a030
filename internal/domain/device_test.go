package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceUnmarshalAliases(t *testing.T) {
	raw := `{
		"id": 17,
		"device_name": "lab-box",
		"device_id": "dev-42",
		"ip_address": "10.0.0.5",
		"mac_address": "aa:bb:cc:dd:ee:ff",
		"status": "online",
		"created_at": "2025-01-02T03:04:05Z"
	}`

	var d Device
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, "17", d.ID)
	assert.Equal(t, "lab-box", d.Name)
	assert.Equal(t, "dev-42", d.DeviceID)
	assert.Equal(t, "10.0.0.5", d.IP)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", d.MAC)
	assert.Equal(t, DeviceOnline, d.Status)
	assert.Equal(t, "2025-01-02T03:04:05Z", d.CreatedAt)
	assert.Equal(t, d.CreatedAt, d.UpdatedAt, "updatedAt falls back to createdAt")
}

func TestDeviceUnmarshalDefaults(t *testing.T) {
	var d Device
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","status":"rebooting"}`), &d))

	assert.Equal(t, "Cloud PC", d.Name)
	assert.Equal(t, "N/A", d.IP)
	assert.Equal(t, "N/A", d.MAC)
	assert.Equal(t, DeviceOffline, d.Status)
	assert.Equal(t, "N/A", d.CPU.String())
}

func TestAttrUnion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind AttrKind
		want string
	}{
		{name: "text", raw: `"Intel i7"`, kind: AttrText, want: "Intel i7"},
		{name: "number", raw: `16`, kind: AttrText, want: "16"},
		{name: "null", raw: `null`, kind: AttrEmpty, want: "N/A"},
		{name: "empty string", raw: `""`, kind: AttrEmpty, want: "N/A"},
		{name: "object", raw: `{"model":"Ryzen","cores":8}`, kind: AttrObject, want: "cores=8 model=Ryzen"},
		{name: "list", raw: `[{"device":"sda","total":100},{"device":"sdb","total":50}]`, kind: AttrList, want: "device=sda total=100; device=sdb total=50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Attr
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &a))
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestDeviceStructuredHardware(t *testing.T) {
	raw := `{"id":"1","device_id":"d","cpu":{"model":"M2"},"os":"linux","disk":[{"device":"nvme0"}]}`

	var d Device
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, AttrObject, d.CPU.Kind)
	assert.Equal(t, "M2", d.CPU.Object["model"])
	assert.Equal(t, "linux", d.OS.String())
	assert.Equal(t, AttrList, d.Disk.Kind)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"cpu":{"model":"M2"}`)
	assert.Contains(t, string(out), `"memory":null`)
}
