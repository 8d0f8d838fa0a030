// Package rtc implements the session transport on top of pion/webrtc.
package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
)

// WebRTCConfig builds the peer connection configuration. An empty list
// means host candidates only.
func WebRTCConfig(iceServers []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return cfg
}

// Factory returns a core.TransportFactory producing fresh connections.
func Factory(cfg webrtc.Configuration) core.TransportFactory {
	return func() (core.Transport, error) {
		return NewConnection(cfg)
	}
}

// Connection is a receive-only peer connection. Handlers registered with
// OnTrack and OnConnectionStateChange run on pion goroutines.
type Connection struct {
	pc *webrtc.PeerConnection

	mu      sync.RWMutex
	onTrack func(core.RemoteTrack)
	onState func(core.ConnectionState)
}

var _ core.Transport = (*Connection)(nil)

func NewConnection(cfg webrtc.Configuration) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &Connection{pc: pc}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "adapters.rtc").Str("ice_state", s.String()).Msg("ICE state")
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "adapters.rtc").Str("peer_connection_state", s.String()).Msg("Peer state")
		c.mu.RLock()
		fn := c.onState
		c.mu.RUnlock()
		if fn != nil {
			fn(connectionState(s))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "adapters.rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		c.mu.RLock()
		fn := c.onTrack
		c.mu.RUnlock()
		if fn != nil {
			fn(&remoteTrack{track: track, receiver: receiver})
		}
	})

	return c, nil
}

func (c *Connection) AddReceiveOnly(kind core.MediaKind) error {
	codecType := webrtc.RTPCodecTypeVideo
	if kind == core.MediaAudio {
		codecType = webrtc.RTPCodecTypeAudio
	}
	_, err := c.pc.AddTransceiverFromKind(codecType, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

func (c *Connection) CreateInputChannel(label string) (core.InputChannel, error) {
	ordered := true
	dc, err := c.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	return newDataChannel(dc), nil
}

// CreateOffer waits for ICE gathering so the returned SDP carries every
// candidate; the exchange with the gateway is one-shot.
func (c *Connection) CreateOffer(ctx context.Context) (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	local := c.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("rtc: no local description")
	}
	return local.SDP, nil
}

func (c *Connection) ApplyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

// OnTrack sets application-level callback for remote tracks.
func (c *Connection) OnTrack(fn func(core.RemoteTrack)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *Connection) OnConnectionStateChange(fn func(core.ConnectionState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *Connection) DetachHandlers() {
	c.mu.Lock()
	c.onTrack = nil
	c.onState = nil
	c.mu.Unlock()
}

func (c *Connection) Stats() (core.RawStats, error) {
	raw, ok := rawStats(c.pc.GetStats())
	if !ok {
		return core.RawStats{}, ErrNoInboundStats
	}
	return raw, nil
}

func (c *Connection) Close() error {
	if err := c.pc.Close(); err != nil {
		log.Debug().Err(err).Str("module", "adapters.rtc").Msg("close error")
		return err
	}
	log.Info().Str("module", "adapters.rtc").Msg("closed")
	return nil
}

func connectionState(s webrtc.PeerConnectionState) core.ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return core.ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return core.ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return core.ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return core.ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return core.ConnectionClosed
	default:
		return core.ConnectionNew
	}
}
