package metrics_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matiu2/finny"
	"github.com/matiu2/finny/inspect/metrics"
)

type toggle struct{}

var _ = Describe("Inspect", func() {
	var (
		reg  *prometheus.Registry
		cols *metrics.Collectors
	)

	BeforeEach(func() {
		var err error
		reg = prometheus.NewRegistry()
		cols, err = metrics.NewCollectors(reg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("refuses to register twice", func() {
		_, err := metrics.NewCollectors(reg)
		Expect(err).To(HaveOccurred())
	})

	It("counts events, transitions and guards of a running machine", func() {
		allow := false
		b := finny.NewBuilder[struct{}, string, toggle, string]("switch")
		b.InitialState("off")
		b.State("off").On(toggle{}).TransitionTo("on").Guard(func(toggle, *struct{}) bool { return allow })
		b.State("on").On(toggle{}).TransitionTo("off")
		schema, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		fsm, err := finny.NewWith(schema, struct{}{}, nil, metrics.New(cols), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fsm.Start()).To(Succeed())

		Expect(fsm.Enqueue(toggle{})).To(Succeed())
		Expect(fsm.DriveUntilEmpty()).To(Succeed())
		allow = true
		Expect(fsm.Enqueue(toggle{})).To(Succeed())
		Expect(fsm.Enqueue(toggle{})).To(Succeed())
		Expect(fsm.DriveUntilEmpty()).To(Succeed())

		Expect(testutil.ToFloat64(cols.Events.WithLabelValues("switch"))).To(Equal(4.0))
		Expect(testutil.ToFloat64(cols.Guards.WithLabelValues("switch", "rejected"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Guards.WithLabelValues("switch", "passed"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Transitions.WithLabelValues("switch", "off", "on"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Transitions.WithLabelValues("switch", "on", "off"))).To(Equal(1.0))
		Expect(testutil.CollectAndCount(cols.Duration)).To(Equal(1))
	})

	It("labels sub-machine activity with the machine path", func() {
		insp := metrics.New(cols).NewEvent("lamp", nil).ForSubMachine("dimmer")
		insp.NewEvent("dimmer", nil).ForTransition("Low", "High").OnStateEnter("High")

		Expect(testutil.ToFloat64(cols.Transitions.WithLabelValues("lamp/dimmer", "Low", "High"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Events.WithLabelValues("lamp/dimmer"))).To(Equal(1.0))
	})

	It("counts timer messages and errors", func() {
		insp := metrics.New(cols).NewEvent("worker", nil).ForTimer("tick")
		insp.Info("Started the timer.")
		insp.OnError("Timer hasn't been started.", errors.New("not started"))

		Expect(testutil.ToFloat64(cols.Timers.WithLabelValues("worker", "Started the timer."))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Timers.WithLabelValues("worker", "Timer hasn't been started."))).To(Equal(1.0))
		Expect(testutil.ToFloat64(cols.Errors.WithLabelValues("worker"))).To(Equal(1.0))
	})
})
