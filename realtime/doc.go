// Package realtime drives a finny Frontend at a fixed tick rate.
//
// Events sent to a Runner are batched and dispatched at tick boundaries.
// Each tick:
//
//  1. collects the batch sent since the previous tick,
//  2. orders it by priority, then by send order,
//  3. enqueues the batch into the frontend,
//  4. enqueues one timer event per triggered timer,
//  5. drives the frontend until its queue is empty, including events
//     raised by the actions it runs.
//
// Given the same sequence of Send calls between ticks, the machine executes
// the same way regardless of goroutine scheduling.
//
// # Example Usage
//
//	fsm, _ := finny.New(schema, ctx, finny.WithClock(clk))
//	rt := realtime.NewRunner(fsm, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//		Clock:    clk,
//	})
//	rt.Start(ctx)
//	defer rt.Stop()
//	rt.Send(Start{})
//
// # Event Sources
//
// An EventSource attached before Start is read on its own goroutine while the
// runner is running. ChannelSource adapts a Go channel; TickerSource emits a
// fixed event periodically.
//
// # Concurrency
//
// Send, SendWithPriority and TickNumber are safe from any goroutine. The
// frontend is only touched while holding the runner's lock; use Do to read
// or modify it from outside the tick loop.
package realtime
