package tracing_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/matiu2/finny"
	"github.com/matiu2/finny/inspect/tracing"
)

type press struct{}

func eventNames(span sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, e := range span.Events() {
		names = append(names, e.Name)
	}
	return names
}

var _ = Describe("Inspect", func() {
	var (
		rec  *tracetest.SpanRecorder
		insp tracing.Inspect
	)

	BeforeEach(func() {
		rec = tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		DeferCleanup(func() { _ = tp.Shutdown(context.Background()) })
		insp = tracing.New(context.Background(), tp.Tracer("finny-test"))
	})

	It("records one span per dispatched event", func() {
		b := finny.NewBuilder[struct{}, string, press, string]("button")
		b.InitialState("up")
		b.State("up").On(press{}).TransitionTo("down").Action(func(press, *finny.EventContext[struct{}, press, string]) {})
		b.State("down")
		schema, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		fsm, err := finny.NewWith(schema, struct{}{}, nil, insp, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(fsm.Start()).To(Succeed())
		Expect(fsm.Enqueue(press{})).To(Succeed())
		Expect(fsm.DriveUntilEmpty()).To(Succeed())

		spans := rec.Ended()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Name()).To(Equal("dispatch button"))
		Expect(eventNames(spans[0])).To(Equal([]string{"enter"}))
		Expect(eventNames(spans[1])).To(Equal([]string{"exit", "action", "enter"}))
	})

	It("nests sub-machine dispatches under the parent span", func() {
		parent := insp.NewEvent("lamp", "Up")
		child := parent.ForSubMachine("dimmer").NewEvent("dimmer", "Up")
		child.EventDone()
		parent.EventDone()

		spans := rec.Ended()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Name()).To(Equal("dispatch lamp/dimmer"))
		Expect(spans[0].Parent().SpanID()).To(Equal(spans[1].SpanContext().SpanID()))
	})

	It("marks the span failed on error", func() {
		ev := insp.NewEvent("worker", "tick")
		ev.ForTimer("tick").OnError("Timer hasn't been started.", errors.New("not started"))
		ev.EventDone()

		spans := rec.Ended()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Status().Code).To(Equal(codes.Error))
		Expect(spans[0].Status().Description).To(Equal("Timer hasn't been started."))
		Expect(eventNames(spans[0])).To(ContainElement("exception"))
	})
})
