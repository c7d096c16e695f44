package sentry_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	finnysentry "github.com/matiu2/finny/inspect/sentry"
)

// captureTransport keeps every event it is asked to send.
type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions)        {}
func (t *captureTransport) Flush(time.Duration) bool              { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Close()                                {}
func (t *captureTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *captureTransport) all() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

var _ = Describe("Inspect", func() {
	var (
		transport *captureTransport
		hub       *sentry.Hub
	)

	BeforeEach(func() {
		transport = &captureTransport{}
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:       "https://test@sentry.io/123",
			Transport: transport,
		})
		Expect(err).NotTo(HaveOccurred())
		hub = sentry.NewHub(client, sentry.NewScope())
	})

	It("captures errors with machine tags", func() {
		insp := finnysentry.New(hub).NewEvent("worker", "Tick").ForTimer("tick")
		insp.OnError("Failed to create a timer", errors.New("capacity"))

		events := transport.all()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Message).To(Equal("Failed to create a timer"))
		Expect(events[0].Tags).To(HaveKeyWithValue("machine", "worker"))
		Expect(events[0].Tags).To(HaveKeyWithValue("timer", "tick"))
		Expect(events[0].Exception).To(HaveLen(1))
		Expect(events[0].Exception[0].Value).To(Equal("capacity"))
	})

	It("attaches state changes as breadcrumbs", func() {
		root := finnysentry.New(hub)
		root.NewEvent("lamp", "PowerOn").ForTransition("Off", "On").OnStateEnter("On")
		sub := root.NewEvent("lamp", "Up").ForSubMachine("dimmer")
		sub.NewEvent("dimmer", "Up").OnError("Sub-machine dispatch failed", errors.New("boom"))

		events := transport.all()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Tags).To(HaveKeyWithValue("machine", "lamp/dimmer"))
		Expect(events[0].Breadcrumbs).To(HaveLen(1))
		Expect(events[0].Breadcrumbs[0].Message).To(Equal("Entered On"))
	})

	It("does not report informational messages", func() {
		finnysentry.New(hub).NewEvent("worker", "Tick").Info("No handler for the event.")
		Expect(transport.all()).To(BeEmpty())
	})
})
