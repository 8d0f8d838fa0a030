// Package sink consumes the remote tracks of a session: it binds them to
// the rendered stream, relays their RTP to local outputs and releases them
// on teardown.
package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
)

// CompositeStream names the locally built stream collecting tracks that
// arrived without one.
const CompositeStream = "composite"

type Config struct {
	// VideoForward and AudioForward are UDP host:port targets; empty disables.
	VideoForward string
	AudioForward string
}

// TrackInfo describes an attached track.
type TrackInfo struct {
	ID         string         `json:"id"`
	StreamID   string         `json:"stream_id"`
	Kind       core.MediaKind `json:"kind"`
	Codec      string         `json:"codec"`
	Packets    uint64         `json:"packets"`
	Forwarding bool           `json:"forwarding"`
}

// Sink implements core.MediaSink. The composite stream is bound until the
// first track carrying its own stream arrives; that stream then stays
// bound until Stop.
type Sink struct {
	mu      sync.Mutex
	writers map[core.MediaKind]PacketWriter
	closers []func() error
	relays  map[string]*Relay
	order   []string
	bound   string
}

var _ core.MediaSink = (*Sink)(nil)

func New(cfg Config) (*Sink, error) {
	s := NewWithWriters(nil)
	targets := map[core.MediaKind]string{
		core.MediaVideo: cfg.VideoForward,
		core.MediaAudio: cfg.AudioForward,
	}
	for kind, addr := range targets {
		if addr == "" {
			continue
		}
		w, err := DialUDP(addr)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.writers[kind] = w
		s.closers = append(s.closers, w.Close)
		log.Info().Str("module", "app.sink").Str("kind", string(kind)).Str("addr", addr).Msg("forwarding enabled")
	}
	return s, nil
}

// NewWithWriters builds a sink relaying to the given per-kind writers.
func NewWithWriters(writers map[core.MediaKind]PacketWriter) *Sink {
	if writers == nil {
		writers = make(map[core.MediaKind]PacketWriter)
	}
	return &Sink{
		writers: writers,
		relays:  make(map[string]*Relay),
		bound:   CompositeStream,
	}
}

// Attach starts relaying track. A track with the same id replaces the
// previous one.
func (s *Sink) Attach(ctx context.Context, track core.RemoteTrack) {
	logger := log.With().
		Str("module", "app.sink").
		Str("track_id", track.ID()).
		Str("stream_id", track.StreamID()).
		Str("kind", string(track.Kind())).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(track, cancel)
	if w, ok := s.writers[track.Kind()]; ok {
		relay.AddOutput(string(track.Kind()), NewOutput(w))
	}

	s.mu.Lock()
	if old, ok := s.relays[track.ID()]; ok {
		logger.Info().Msg("replacing existing relay for track")
		old.cancel()
		_ = old.Src.Stop()
	} else {
		s.order = append(s.order, track.ID())
	}
	s.relays[track.ID()] = relay
	if stream := track.StreamID(); stream != "" && s.bound == CompositeStream {
		s.bound = stream
		logger.Info().Msg("bound remote stream")
	}
	s.applyBindingLocked()
	s.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	go relay.loop(relayCtx, &logger)
}

func streamOf(track core.RemoteTrack) string {
	if id := track.StreamID(); id != "" {
		return id
	}
	return CompositeStream
}

func (s *Sink) applyBindingLocked() {
	for _, r := range s.relays {
		r.setMuted(streamOf(r.Src) != s.bound)
	}
}

// Bound returns the id of the stream currently rendered.
func (s *Sink) Bound() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Tracks reports attached tracks in arrival order.
func (s *Sink) Tracks() []TrackInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrackInfo, 0, len(s.order))
	for _, id := range s.order {
		r, ok := s.relays[id]
		if !ok {
			continue
		}
		out = append(out, TrackInfo{
			ID:         id,
			StreamID:   r.Src.StreamID(),
			Kind:       r.Src.Kind(),
			Codec:      r.Src.Codec(),
			Packets:    r.Packets(),
			Forwarding: streamOf(r.Src) == s.bound,
		})
	}
	return out
}

// Stop stops every relay and releases every track. The sink is ready for
// the next session afterwards.
func (s *Sink) Stop() {
	s.mu.Lock()
	relays := s.relays
	s.relays = make(map[string]*Relay)
	s.order = nil
	s.bound = CompositeStream
	s.mu.Unlock()

	for id, r := range relays {
		r.cancel()
		r.markAllDelete()
		if err := r.Src.Stop(); err != nil {
			log.Debug().Err(err).Str("module", "app.sink").Str("track_id", id).Msg("track stop error ignored")
		}
	}
	if len(relays) > 0 {
		log.Info().Str("module", "app.sink").Int("tracks", len(relays)).Msg("released tracks")
	}
}

// Close stops the sink and closes its outputs.
func (s *Sink) Close() error {
	s.Stop()
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
