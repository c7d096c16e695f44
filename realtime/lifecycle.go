package realtime

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Runner lifecycle states.
const (
	LifecycleStopped  = "stopped"
	LifecycleRunning  = "running"
	LifecycleStopping = "stopping"
)

const (
	eventStart   = "start"
	eventStop    = "stop"
	eventStopped = "stopped"
)

func newLifecycle(log *zap.SugaredLogger) *fsm.FSM {
	return fsm.NewFSM(
		LifecycleStopped,
		fsm.Events{
			{Name: eventStart, Src: []string{LifecycleStopped}, Dst: LifecycleRunning},
			{Name: eventStop, Src: []string{LifecycleRunning}, Dst: LifecycleStopping},
			{Name: eventStopped, Src: []string{LifecycleStopping}, Dst: LifecycleStopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugw("Runner lifecycle changed", "from", e.Src, "to", e.Dst)
			},
		},
	)
}
