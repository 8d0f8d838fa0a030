package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/adapters/directory"
	"github.com/dkeye/Desk/internal/adapters/gateway"
	"github.com/dkeye/Desk/internal/adapters/rtc"
	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/app/session"
	"github.com/dkeye/Desk/internal/app/sink"
	"github.com/dkeye/Desk/internal/config"
)

// stack is the wired application shared by serve and play.
type stack struct {
	cfg       *config.Config
	gateway   *gateway.Client
	directory *directory.Client
	sink      *sink.Sink
	orch      *orch.Orchestrator
}

func newDirectory(cfg *config.Config) *directory.Client {
	return directory.New(directory.Config{
		URL:     cfg.Directory.URL,
		Token:   cfg.Directory.Token,
		Timeout: cfg.Directory.Timeout,
	})
}

func newStack(cfg *config.Config) (*stack, error) {
	gw := gateway.New(gateway.Config{
		URL:         cfg.Gateway.URL,
		Path:        cfg.Gateway.Path,
		CaptureType: cfg.Gateway.CaptureType,
		Timeout:     cfg.Gateway.Timeout,
		Overrides:   cfg.Gateway.Overrides,
	})
	snk, err := sink.New(sink.Config{
		VideoForward: cfg.Sink.VideoForward,
		AudioForward: cfg.Sink.AudioForward,
	})
	if err != nil {
		return nil, fmt.Errorf("media sink: %w", err)
	}
	dir := newDirectory(cfg)

	o := orch.New(orch.Options{
		Session: session.Options{
			NewTransport: rtc.Factory(rtc.WebRTCConfig(cfg.RTC.ICEServers)),
			Signaler:     gw,
			Sink:         snk,
			StreamHost:   cfg.Gateway.StreamHost,
			ChannelLabel: cfg.RTC.ChannelLabel,
			Forwarding:   cfg.Input.Forwarding,
		},
		StatsInterval: cfg.Stats.Interval,
		Directory:     dir,
	})

	log.Info().
		Str("module", "cli").
		Str("gateway", gw.Endpoint()).
		Str("directory", cfg.Directory.URL).
		Int("ice_servers", len(cfg.RTC.ICEServers)).
		Msg("stack ready")

	return &stack{cfg: cfg, gateway: gw, directory: dir, sink: snk, orch: o}, nil
}

func (s *stack) Close() {
	s.orch.Shutdown()
	if err := s.sink.Close(); err != nil {
		log.Warn().Err(err).Str("module", "cli").Msg("sink close")
	}
}
