package session

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/domain"
)

const (
	evNegotiate  = "negotiate"
	evConnect    = "connect"
	evDisconnect = "disconnect"
	evFail       = "fail"
	evReset      = "reset"
	evClose      = "close"
)

func newStateMachine(onEnter func(from, to domain.SessionState)) *fsm.FSM {
	idle := domain.StateIdle.String()
	negotiating := domain.StateNegotiating.String()
	connected := domain.StateConnected.String()
	disconnected := domain.StateDisconnected.String()
	failed := domain.StateFailed.String()
	closed := domain.StateClosed.String()

	return fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: evNegotiate, Src: []string{idle, closed}, Dst: negotiating},
			{Name: evConnect, Src: []string{negotiating}, Dst: connected},
			{Name: evDisconnect, Src: []string{negotiating, connected}, Dst: disconnected},
			{Name: evFail, Src: []string{negotiating, connected}, Dst: failed},
			{Name: evReset, Src: []string{negotiating, connected, disconnected, failed}, Dst: idle},
			{Name: evClose, Src: []string{idle, negotiating, connected, disconnected, failed}, Dst: closed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(domain.SessionState(e.Src), domain.SessionState(e.Dst))
			},
		},
	)
}

// fireLocked runs event on the state machine. Events that do not apply to
// the current state are ignored.
func (c *Controller) fireLocked(event string) bool {
	err := c.fsm.Event(context.Background(), event)
	if err == nil {
		return true
	}
	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	if !errors.As(err, &noTransition) && !errors.As(err, &invalid) {
		log.Warn().Str("module", "app.session").Str("event", event).Err(err).Msg("state machine error")
	}
	return false
}

func (c *Controller) stateLocked() domain.SessionState {
	return domain.SessionState(c.fsm.Current())
}
