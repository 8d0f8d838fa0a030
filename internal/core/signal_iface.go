package core

import "context"

// Frame is a raw payload queued to a viewer.
type Frame []byte

// ViewerConnection abstracts the control-surface transport of one viewer.
// Owned by the adapter; the adapter must Close() it.
type ViewerConnection interface {
	TrySend(Frame) error
	Close()
}

// Signaler performs the one-shot SDP offer/answer exchange with the gateway.
type Signaler interface {
	Negotiate(ctx context.Context, offerSDP, streamURL string) (string, error)
}

// SignalerRouter is implemented by signalers that can target a
// device-specific gateway.
type SignalerRouter interface {
	ForDevice(deviceID string) Signaler
}
