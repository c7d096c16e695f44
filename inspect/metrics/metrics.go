// Package metrics is an Inspect sink exporting Prometheus counters and a
// dispatch latency histogram.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matiu2/finny"
)

const namespace = "finny"

// Collectors groups the metric vectors. Register them once and share them
// between instances with New.
type Collectors struct {
	Events      *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Guards      *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Timers      *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewCollectors creates the vectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events dispatched, by machine.",
		}, []string{"machine"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transitions taken, by machine and endpoints.",
		}, []string{"machine", "from", "to"}),
		Guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guards_total",
			Help:      "Guard evaluations, by machine and result.",
		}, []string{"machine", "result"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors reported during dispatch, by machine.",
		}, []string{"machine"}),
		Timers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_messages_total",
			Help:      "Timer lifecycle messages, by machine and message.",
		}, []string{"machine", "message"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from the start of a dispatch to its completion.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"machine"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.Events, c.Transitions, c.Guards, c.Errors, c.Timers, c.Duration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// Inspect records into a shared set of collectors.
type Inspect struct {
	c       *Collectors
	machine string
	from    string
	to      string
	timer   bool
	started time.Time
	now     func() time.Time
}

var _ finny.Inspect = Inspect{}

// New returns an Inspect recording into c.
func New(c *Collectors) Inspect {
	return Inspect{c: c, now: time.Now}
}

func (i Inspect) NewEvent(machine string, _ any) finny.Inspect {
	next := i
	if next.machine == "" {
		next.machine = machine
	}
	next.from, next.to, next.timer = "", "", false
	next.started = i.now()
	i.c.Events.WithLabelValues(next.machine).Inc()
	return next
}

func (i Inspect) ForTransition(from, to any) finny.Inspect {
	i.from, i.to = fmt.Sprint(from), fmt.Sprint(to)
	return i
}

func (i Inspect) ForSubMachine(name string) finny.Inspect {
	i.machine = i.machine + "/" + name
	i.from, i.to = "", ""
	return i
}

func (i Inspect) ForTimer(any) finny.Inspect {
	i.timer = true
	return i
}

func (i Inspect) OnGuard(passed bool) {
	result := "rejected"
	if passed {
		result = "passed"
	}
	i.c.Guards.WithLabelValues(i.machine, result).Inc()
}

// OnStateEnter counts the transition once its target is entered.
func (i Inspect) OnStateEnter(any) {
	if i.from == "" && i.to == "" {
		return
	}
	i.c.Transitions.WithLabelValues(i.machine, i.from, i.to).Inc()
}

func (Inspect) OnStateExit(any) {}

func (Inspect) OnAction(string) {}

func (i Inspect) EventDone() {
	if i.started.IsZero() {
		return
	}
	i.c.Duration.WithLabelValues(i.machine).Observe(i.now().Sub(i.started).Seconds())
}

func (i Inspect) OnError(msg string, _ error) {
	i.c.Errors.WithLabelValues(i.machine).Inc()
	if i.timer {
		i.c.Timers.WithLabelValues(i.machine, msg).Inc()
	}
}

func (i Inspect) Info(msg string) {
	if i.timer {
		i.c.Timers.WithLabelValues(i.machine, msg).Inc()
	}
}
