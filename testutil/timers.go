package testutil

import (
	"fmt"

	"github.com/matiu2/finny"
)

// ManualTimers is a timer capability whose timers only fire through Fire.
type ManualTimers[T comparable] struct {
	live      map[T]finny.TimerSettings
	triggered []T
	created   []T
	cancelled []T

	// CreateErr, when set, is returned by every Create.
	CreateErr error
	// CancelErr, when set, is returned by every Cancel.
	CancelErr error
}

var _ finny.Timers[int] = (*ManualTimers[int])(nil)

// NewManualTimers creates a capability with no timers.
func NewManualTimers[T comparable]() *ManualTimers[T] {
	return &ManualTimers[T]{live: make(map[T]finny.TimerSettings)}
}

func (m *ManualTimers[T]) Create(id T, settings finny.TimerSettings) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.live[id] = settings
	m.created = append(m.created, id)
	return nil
}

func (m *ManualTimers[T]) Cancel(id T) error {
	if m.CancelErr != nil {
		return m.CancelErr
	}
	delete(m.live, id)
	m.cancelled = append(m.cancelled, id)
	return nil
}

func (m *ManualTimers[T]) GetTriggeredTimer() (T, bool) {
	if len(m.triggered) == 0 {
		var zero T
		return zero, false
	}
	id := m.triggered[0]
	m.triggered = m.triggered[1:]
	return id, true
}

// Fire reports id as triggered, whether or not it is running. A one-shot
// timer that is running stops.
func (m *ManualTimers[T]) Fire(id T) {
	if s, ok := m.live[id]; ok && !s.Renew {
		delete(m.live, id)
	}
	m.triggered = append(m.triggered, id)
}

// Live reports whether id is running.
func (m *ManualTimers[T]) Live(id T) bool {
	_, ok := m.live[id]
	return ok
}

// Settings returns the settings id was created with.
func (m *ManualTimers[T]) Settings(id T) (finny.TimerSettings, error) {
	s, ok := m.live[id]
	if !ok {
		return finny.TimerSettings{}, fmt.Errorf("timer %v is not running", id)
	}
	return s, nil
}

// Created returns every id passed to Create, in order.
func (m *ManualTimers[T]) Created() []T { return append([]T(nil), m.created...) }

// Cancelled returns every id passed to Cancel, in order.
func (m *ManualTimers[T]) Cancelled() []T { return append([]T(nil), m.cancelled...) }
