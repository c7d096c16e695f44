package logging_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matiu2/finny"
	"github.com/matiu2/finny/inspect/logging"
)

type state string
type event struct{ name string }

func (e event) String() string { return e.name }

var _ = Describe("Inspect", func() {
	var (
		logs *observer.ObservedLogs
		insp finny.Inspect
	)

	BeforeEach(func() {
		var core zapcore.Core
		core, logs = observer.New(zapcore.DebugLevel)
		insp = logging.New(zap.New(core).Sugar())
	})

	It("tags entries with the machine and event", func() {
		insp.NewEvent("worker", "Start").OnStateEnter("Running")

		entries := logs.FilterMessage("Entering state").All()
		Expect(entries).To(HaveLen(1))
		fields := entries[0].ContextMap()
		Expect(fields).To(HaveKeyWithValue("machine", "worker"))
		Expect(fields).To(HaveKeyWithValue("event", "Start"))
		Expect(fields).To(HaveKeyWithValue("state", "Running"))
	})

	It("builds the sub-machine path", func() {
		sub := insp.NewEvent("lamp", "x").ForSubMachine("dimmer")
		sub.NewEvent("dimmer", "Up").ForTransition("Low", "High").OnGuard(false)

		entries := logs.FilterMessage("Guard evaluated").All()
		Expect(entries).To(HaveLen(1))
		fields := entries[0].ContextMap()
		Expect(fields).To(HaveKeyWithValue("machine", "lamp/dimmer"))
		Expect(fields).To(HaveKeyWithValue("from", "Low"))
		Expect(fields).To(HaveKeyWithValue("to", "High"))
		Expect(fields).To(HaveKeyWithValue("passed", false))
	})

	It("logs errors at error level", func() {
		insp.NewEvent("worker", "t").ForTimer("tick").OnError("Failed to create a timer", errors.New("full"))

		entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Message).To(Equal("Failed to create a timer"))
		Expect(entries[0].ContextMap()).To(HaveKeyWithValue("timer", "tick"))
	})

	It("observes a running machine", func() {
		b := finny.NewBuilder[struct{}, state, event, string]("door",
			finny.WithEventKey(func(e event) any { return e.name }))
		b.InitialState("closed")
		b.State("closed").On(event{"open"}).TransitionTo("open")
		b.State("open").On(event{"close"}).TransitionTo("closed")
		schema, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		fsm, err := finny.NewWith(schema, struct{}{}, nil, insp, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fsm.Start()).To(Succeed())
		Expect(fsm.Enqueue(event{"open"})).To(Succeed())
		Expect(fsm.DriveUntilEmpty()).To(Succeed())

		Expect(logs.FilterMessage("Exiting state").All()).To(HaveLen(1))
		Expect(logs.FilterMessage("Entering state").All()).To(HaveLen(2))
		Expect(logs.FilterMessage("Event done").All()).To(HaveLen(2))
	})
})
