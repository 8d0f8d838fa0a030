package stats

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

const DefaultInterval = 2 * time.Second

// Sampler polls a StatsSource on a fixed interval and hands every derived
// snapshot to emit. It implements core.StatsRunner.
type Sampler struct {
	interval time.Duration
	emit     func(domain.QualityMetrics)
	now      func() time.Time

	// emitMu is held across emit; Stop takes it so no snapshot of a
	// stopped run is delivered after Stop returns.
	emitMu sync.Mutex

	mu     sync.Mutex
	gen    uint64
	stop   chan struct{}
	latest domain.QualityMetrics
	has    bool
}

var _ core.StatsRunner = (*Sampler)(nil)

func NewSampler(interval time.Duration, emit func(domain.QualityMetrics)) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if emit == nil {
		emit = func(domain.QualityMetrics) {}
	}
	return &Sampler{interval: interval, emit: emit, now: time.Now}
}

// Start begins polling src. A running loop is replaced.
func (s *Sampler) Start(src core.StatsSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.stop = make(chan struct{})
	s.has = false
	s.latest = domain.QualityMetrics{}
	go s.run(s.gen, s.stop, src)
	log.Debug().Str("module", "app.stats").Dur("interval", s.interval).Msg("sampler started")
}

// Stop halts polling. It waits for an emit already in progress; any later
// snapshot of the stopped run is discarded. Stop must not be called from emit.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stopped := s.stopLocked()
	if stopped {
		s.gen++
	}
	s.mu.Unlock()

	s.emitMu.Lock()
	s.emitMu.Unlock()
	if stopped {
		log.Debug().Str("module", "app.stats").Msg("sampler stopped")
	}
}

func (s *Sampler) stopLocked() bool {
	if s.stop == nil {
		return false
	}
	close(s.stop)
	s.stop = nil
	return true
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Latest returns the most recent snapshot of the current run.
func (s *Sampler) Latest() (domain.QualityMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

func (s *Sampler) run(gen uint64, stop <-chan struct{}, src core.StatsSource) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var d Deriver
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		raw, err := src.Stats()
		if err != nil {
			log.Debug().Str("module", "app.stats").Err(err).Msg("stats unavailable, tick skipped")
			continue
		}
		if raw.Timestamp.IsZero() {
			raw.Timestamp = s.now()
		}
		m := d.Derive(raw)

		s.emitMu.Lock()
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			s.emitMu.Unlock()
			return
		}
		s.latest, s.has = m, true
		s.mu.Unlock()

		s.emit(m)
		s.emitMu.Unlock()
	}
}
