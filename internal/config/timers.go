package config

import (
	"fmt"
	"time"

	"github.com/matiu2/finny"
)

// TimerOverride replaces individual timer settings. Unset fields keep the
// value chosen by the machine.
type TimerOverride struct {
	Enabled           *bool          `yaml:"enabled"`
	Timeout           *time.Duration `yaml:"timeout"`
	Renew             *bool          `yaml:"renew"`
	CancelOnStateExit *bool          `yaml:"cancel_on_state_exit"`
}

// TimerOverrides maps timer ids, as printed by fmt, to overrides.
type TimerOverrides map[string]TimerOverride

// Apply overrides the settings of timer id.
func (o TimerOverrides) Apply(id any, s *finny.TimerFsmSettings) {
	ov, ok := o[fmt.Sprint(id)]
	if !ok {
		return
	}
	if ov.Enabled != nil {
		s.Enabled = *ov.Enabled
	}
	if ov.Timeout != nil {
		s.Timeout = *ov.Timeout
	}
	if ov.Renew != nil {
		s.Renew = *ov.Renew
	}
	if ov.CancelOnStateExit != nil {
		s.CancelOnStateExit = *ov.CancelOnStateExit
	}
}

// Setup wraps a timer setup function so the overrides for id are applied after it.
func Setup[C any](o TimerOverrides, id any, next finny.TimerSetup[C]) finny.TimerSetup[C] {
	return func(ctx *C, s *finny.TimerFsmSettings) {
		if next != nil {
			next(ctx, s)
		}
		o.Apply(id, s)
	}
}
