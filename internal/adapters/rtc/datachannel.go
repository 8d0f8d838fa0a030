package rtc

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
)

type dataChannel struct {
	dc *webrtc.DataChannel
}

func newDataChannel(dc *webrtc.DataChannel) *dataChannel {
	label := dc.Label()
	dc.OnOpen(func() {
		log.Debug().Str("module", "adapters.rtc").Str("label", label).Msg("input channel open")
	})
	dc.OnClose(func() {
		log.Debug().Str("module", "adapters.rtc").Str("label", label).Msg("input channel closed")
	})
	dc.OnError(func(err error) {
		log.Debug().Err(err).Str("module", "adapters.rtc").Str("label", label).Msg("input channel error")
	})
	return &dataChannel{dc: dc}
}

func (d *dataChannel) Label() string { return d.dc.Label() }

func (d *dataChannel) IsOpen() bool {
	return d.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (d *dataChannel) Send(data []byte) error {
	if !d.IsOpen() {
		return core.ErrChannelClosed
	}
	return d.dc.Send(data)
}

func (d *dataChannel) DetachHandlers() {
	d.dc.OnOpen(func() {})
	d.dc.OnClose(func() {})
	d.dc.OnError(func(error) {})
	d.dc.OnMessage(func(webrtc.DataChannelMessage) {})
}

func (d *dataChannel) Close() error {
	return d.dc.Close()
}
