package domain

// SessionState is the lifecycle state of a streaming session.
type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateNegotiating  SessionState = "negotiating"
	StateConnected    SessionState = "connected"
	StateDisconnected SessionState = "disconnected"
	StateFailed       SessionState = "failed"
	StateClosed       SessionState = "closed"
)

func (s SessionState) String() string { return string(s) }

// Resting reports whether a new session may be started from s.
// Idle and Closed are equivalent rest states.
func (s SessionState) Resting() bool {
	return s == StateIdle || s == StateClosed
}

// SessionInfo is a read-only view of the session for APIs.
type SessionInfo struct {
	DeviceID   string         `json:"device_id,omitempty"`
	State      SessionState   `json:"state"`
	Epoch      uint64         `json:"epoch"`
	Forwarding bool           `json:"forwarding"`
	Metrics    QualityMetrics `json:"metrics"`
}

// Notice is a user-visible notification.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
