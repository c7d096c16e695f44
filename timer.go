package finny

import "time"

// TimerFsmSettings configures a state's entry timer. The setup function of
// OnEntryStartTimer receives the defaults and may change any field.
type TimerFsmSettings struct {
	Enabled           bool          `json:"enabled" yaml:"enabled"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout"`
	Renew             bool          `json:"renew" yaml:"renew"`
	CancelOnStateExit bool          `json:"cancel_on_state_exit" yaml:"cancel_on_state_exit"`
}

// DefaultTimerFsmSettings: enabled, one second, no renew, cancelled on exit.
func DefaultTimerFsmSettings() TimerFsmSettings {
	return TimerFsmSettings{
		Enabled:           true,
		Timeout:           time.Second,
		Renew:             false,
		CancelOnStateExit: true,
	}
}

// TimerSettings projects the settings a timer capability needs.
func (s TimerFsmSettings) TimerSettings() TimerSettings {
	return TimerSettings{Enabled: s.Enabled, Timeout: s.Timeout, Renew: s.Renew}
}

// TimerInstance is a running timer owned by the state that started it.
type TimerInstance[T comparable] struct {
	ID       T
	Settings TimerFsmSettings
}

// TimerSetup customises the settings of an entry timer.
type TimerSetup[C any] func(ctx *C, settings *TimerFsmSettings)

// TimerTrigger turns a fired timer into an event. The context and the owning
// state are read-only. Returning false enqueues nothing.
type TimerTrigger[C any, S comparable, E any] func(ctx *C, state S) (E, bool)

type timerDef[C any, S comparable, E any, T comparable] struct {
	id      T
	state   S
	setup   TimerSetup[C]
	trigger TimerTrigger[C, S, E]
}

// timerController owns the optional running instance of one declared timer.
type timerController[C any, S comparable, E any, T comparable] struct {
	def      *timerDef[C, S, E, T]
	instance *TimerInstance[T]
}

func (tc *timerController[C, S, E, T]) executeOnEnter(env dispatchEnv[E, T], ctx *C) {
	insp := env.inspect.ForTimer(tc.def.id)
	settings := DefaultTimerFsmSettings()
	if tc.def.setup != nil {
		tc.def.setup(ctx, &settings)
	}
	tc.instance = nil
	if !settings.Enabled {
		insp.Info("The timer wasn't enabled.")
		return
	}
	if err := env.timers.Create(tc.def.id, settings.TimerSettings()); err != nil {
		insp.OnError("Failed to create a timer", err)
		return
	}
	tc.instance = &TimerInstance[T]{ID: tc.def.id, Settings: settings}
	insp.Info("Started the timer.")
}

func (tc *timerController[C, S, E, T]) executeOnExit(env dispatchEnv[E, T]) {
	if tc.instance == nil || !tc.instance.Settings.CancelOnStateExit {
		return
	}
	insp := env.inspect.ForTimer(tc.def.id)
	tc.instance = nil
	if err := env.timers.Cancel(tc.def.id); err != nil {
		insp.OnError("Failed to cancel the timer", err)
		return
	}
	insp.Info("Cancelled the timer.")
}

func (tc *timerController[C, S, E, T]) executeTrigger(env dispatchEnv[E, T], ctx *C) {
	insp := env.inspect.ForTimer(tc.def.id)
	if tc.instance == nil {
		insp.OnError("Timer hasn't been started.", ErrTimerNotStarted)
		return
	}
	if tc.def.trigger == nil {
		return
	}
	ev, ok := tc.def.trigger(ctx, tc.def.state)
	if !ok {
		return
	}
	if err := env.queue.Enqueue(NewEvent[E, T](ev)); err != nil {
		insp.OnError("The event triggered by the timer couldn't be enqueued.", err)
		return
	}
	insp.Info("The event triggered by the timer was enqueued.")
}

// live reports the running instance, if any.
func (tc *timerController[C, S, E, T]) live() (TimerInstance[T], bool) {
	if tc.instance == nil {
		return TimerInstance[T]{}, false
	}
	return *tc.instance, true
}
