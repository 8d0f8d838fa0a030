package core

import (
	"context"

	"github.com/pion/rtp"
)

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// ConnectionState mirrors the peer connection state reported by the transport.
type ConnectionState int

const (
	ConnectionNew ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionDisconnected
	ConnectionFailed
	ConnectionClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionNew:
		return "new"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionFailed:
		return "failed"
	case ConnectionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is a receive-only real-time media connection to one device.
// It is owned by the session controller; nothing else may close it.
type Transport interface {
	StatsSource

	// AddReceiveOnly requests a recvonly transceiver for kind.
	AddReceiveOnly(kind MediaKind) error
	// CreateInputChannel opens the data channel used for input frames.
	CreateInputChannel(label string) (InputChannel, error)
	// CreateOffer creates the local offer, applies it locally and returns its SDP
	// once candidate gathering is complete.
	CreateOffer(ctx context.Context) (string, error)
	// ApplyAnswer sets the remote answer SDP.
	ApplyAnswer(sdp string) error

	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(RemoteTrack))
	// OnConnectionStateChange sets a callback for peer connection state changes.
	OnConnectionStateChange(func(ConnectionState))
	// DetachHandlers replaces every registered callback with a no-op.
	DetachHandlers()

	Close() error
}

// TransportFactory builds a fresh transport for each session start.
type TransportFactory func() (Transport, error)

// InputChannel is the auxiliary data link carrying binary input frames.
type InputChannel interface {
	Label() string
	IsOpen() bool
	Send(data []byte) error
	DetachHandlers()
	Close() error
}

// RemoteTrack is one incoming media track.
type RemoteTrack interface {
	ID() string
	// StreamID is empty when the track arrived without a bundled stream.
	StreamID() string
	Kind() MediaKind
	Codec() string
	ReadRTP() (*rtp.Packet, error)
	// Stop releases the underlying receiver; pending reads return an error.
	Stop() error
}

// MediaSink consumes remote tracks for local rendering.
type MediaSink interface {
	Attach(ctx context.Context, track RemoteTrack)
	// Stop stops and releases every attached track.
	Stop()
}
