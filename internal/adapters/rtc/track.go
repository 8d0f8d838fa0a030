package rtc

import (
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Desk/internal/core"
)

type remoteTrack struct {
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
}

func (t *remoteTrack) ID() string       { return t.track.ID() }
func (t *remoteTrack) StreamID() string { return t.track.StreamID() }
func (t *remoteTrack) Codec() string    { return t.track.Codec().MimeType }

func (t *remoteTrack) Kind() core.MediaKind {
	if t.track.Kind() == webrtc.RTPCodecTypeAudio {
		return core.MediaAudio
	}
	return core.MediaVideo
}

func (t *remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := t.track.ReadRTP()
	return pkt, err
}

func (t *remoteTrack) Stop() error {
	return t.receiver.Stop()
}
