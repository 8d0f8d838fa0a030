package core

import "errors"

var (
	// ErrNetwork means the signaling request failed, timed out or returned non-2xx.
	ErrNetwork = errors.New("network error")
	// ErrProtocol means the signaling response carried no usable SDP answer.
	ErrProtocol = errors.New("protocol error")

	ErrSessionBusy           = errors.New("session already active")
	ErrSuperseded            = errors.New("session superseded")
	ErrTransportDisconnected = errors.New("transport disconnected")
	ErrTransportFailed       = errors.New("transport failed")
	ErrChannelClosed         = errors.New("input channel not open")
	ErrBackpressure          = errors.New("backpressure")
)
