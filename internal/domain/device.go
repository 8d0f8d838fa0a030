package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type DeviceStatus string

const (
	DeviceOnline      DeviceStatus = "online"
	DeviceOffline     DeviceStatus = "offline"
	DeviceMaintenance DeviceStatus = "maintenance"
)

const notAvailable = "N/A"

// AttrKind tells which arm of Attr is populated.
type AttrKind int

const (
	AttrEmpty AttrKind = iota
	AttrText
	AttrObject
	AttrList
)

// Attr is a hardware attribute the directory reports either as a plain
// scalar or as a structured object / array of objects.
type Attr struct {
	Kind   AttrKind
	Text   string
	Object map[string]any
	List   []map[string]any
}

func (a *Attr) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*a = Attr{}
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case 'n':
		return nil
	case '"':
		if err := json.Unmarshal(b, &a.Text); err != nil {
			return err
		}
		if a.Text != "" {
			a.Kind = AttrText
		}
	case '{':
		if err := json.Unmarshal(b, &a.Object); err != nil {
			return err
		}
		a.Kind = AttrObject
	case '[':
		if err := json.Unmarshal(b, &a.List); err != nil {
			return err
		}
		a.Kind = AttrList
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		a.Kind, a.Text = AttrText, strconv.FormatBool(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("attr: unsupported value %s", b)
		}
		a.Kind, a.Text = AttrText, n.String()
	}
	return nil
}

func (a Attr) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AttrText:
		return json.Marshal(a.Text)
	case AttrObject:
		return json.Marshal(a.Object)
	case AttrList:
		return json.Marshal(a.List)
	default:
		return []byte("null"), nil
	}
}

// String renders the attribute for display.
func (a Attr) String() string {
	switch a.Kind {
	case AttrText:
		return a.Text
	case AttrObject:
		return renderObject(a.Object)
	case AttrList:
		parts := make([]string, 0, len(a.List))
		for _, item := range a.List {
			parts = append(parts, renderObject(item))
		}
		return strings.Join(parts, "; ")
	default:
		return notAvailable
	}
}

func renderObject(obj map[string]any) string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, obj[k]))
	}
	return strings.Join(parts, " ")
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", b)
	}
	*s = FlexString(n.String())
	return nil
}

// Device is a directory record. DeviceID is the identifier the streaming
// gateway knows the device by.
type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DeviceID     string       `json:"device_id"`
	IP           string       `json:"ip"`
	MAC          string       `json:"mac"`
	Status       DeviceStatus `json:"status"`
	CPU          Attr         `json:"cpu"`
	Memory       Attr         `json:"memory"`
	Disk         Attr         `json:"disk"`
	OS           Attr         `json:"os"`
	IsAssociated *bool        `json:"isAssociated,omitempty"`
	IsLoggedIn   *bool        `json:"isLoggedIn,omitempty"`
	UserDeviceID string       `json:"userDeviceId,omitempty"`
	CreatedAt    string       `json:"createdAt"`
	UpdatedAt    string       `json:"updatedAt"`
}

// wireDevice carries every alias the backend has been seen to use.
type wireDevice struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	DeviceName   string     `json:"device_name"`
	DeviceID     FlexString `json:"device_id"`
	IP           string     `json:"ip"`
	IPAddress    string     `json:"ip_address"`
	MAC          string     `json:"mac"`
	MACAddress   string     `json:"mac_address"`
	Status       string     `json:"status"`
	CPU          Attr       `json:"cpu"`
	Memory       Attr       `json:"memory"`
	Disk         Attr       `json:"disk"`
	OS           Attr       `json:"os"`
	IsAssociated *bool      `json:"isAssociated"`
	IsLoggedIn   *bool      `json:"isLoggedIn"`
	UserDeviceID FlexString `json:"userDeviceId"`
	CreatedAt    string     `json:"createdAt"`
	CreatedAtAlt string     `json:"created_at"`
	UpdatedAt    string     `json:"updatedAt"`
	UpdatedAtAlt string     `json:"updated_at"`
}

func (d *Device) UnmarshalJSON(b []byte) error {
	var w wireDevice
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Device{
		ID:           string(w.ID),
		Name:         firstNonEmpty(w.Name, w.DeviceName, "Cloud PC"),
		DeviceID:     string(w.DeviceID),
		IP:           firstNonEmpty(w.IP, w.IPAddress, notAvailable),
		MAC:          firstNonEmpty(w.MAC, w.MACAddress, notAvailable),
		Status:       normalizeStatus(w.Status),
		CPU:          w.CPU,
		Memory:       w.Memory,
		Disk:         w.Disk,
		OS:           w.OS,
		IsAssociated: w.IsAssociated,
		IsLoggedIn:   w.IsLoggedIn,
		UserDeviceID: string(w.UserDeviceID),
		CreatedAt:    firstNonEmpty(w.CreatedAt, w.CreatedAtAlt),
	}
	d.UpdatedAt = firstNonEmpty(w.UpdatedAt, w.UpdatedAtAlt, d.CreatedAt)
	return nil
}

func normalizeStatus(s string) DeviceStatus {
	switch DeviceStatus(s) {
	case DeviceOnline, DeviceMaintenance:
		return DeviceStatus(s)
	default:
		return DeviceOffline
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
