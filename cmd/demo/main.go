// Command demo runs a traffic light on the realtime runner. Phases advance on
// entry timers; pedestrians press the button from a background producer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matiu2/finny"
	"github.com/matiu2/finny/diskqueue"
	"github.com/matiu2/finny/inspect/logging"
	"github.com/matiu2/finny/inspect/metrics"
	sentryinspect "github.com/matiu2/finny/inspect/sentry"
	"github.com/matiu2/finny/inspect/tracing"
	"github.com/matiu2/finny/internal/config"
	"github.com/matiu2/finny/internal/logger"
	"github.com/matiu2/finny/internal/production"
	"github.com/matiu2/finny/realtime"
)

type Phase string

const (
	Red    Phase = "red"
	Green  Phase = "green"
	Yellow Phase = "yellow"
)

type Signal string

const (
	Next   Signal = "next"
	Button Signal = "button"
)

type Junction struct {
	Cycles  int `json:"cycles" yaml:"cycles"`
	Presses int `json:"presses" yaml:"presses"`
}

type ec = finny.EventContext[Junction, Signal, string]

func advance(*Junction, Phase) (Signal, bool) { return Next, true }

func phaseTimer(o config.TimerOverrides, id string, d time.Duration) finny.TimerSetup[Junction] {
	return config.Setup[Junction](o, id, func(_ *Junction, s *finny.TimerFsmSettings) {
		s.Timeout = d
	})
}

func build(o config.TimerOverrides) (*finny.Schema[Junction, Phase, Signal, string], error) {
	b := finny.NewBuilder[Junction, Phase, Signal, string]("traffic-light",
		finny.WithEventKey(finny.EventValueKey[Signal]),
		finny.WithVersion[Signal]("1"))
	b.InitialState(Red)

	b.State(Red).
		OnEntryStartTimer("red", phaseTimer(o, "red", 3*time.Second), advance).
		On(Next).TransitionTo(Green).
		Action(func(_ Signal, c *ec) { c.Context.Cycles++ })
	b.State(Green).
		OnEntryStartTimer("green", phaseTimer(o, "green", 4*time.Second), advance).
		On(Next).TransitionTo(Yellow)
	b.State(Green).On(Button).TransitionTo(Yellow).
		Action(func(_ Signal, c *ec) { c.Context.Presses++ })
	b.State(Yellow).
		OnEntryStartTimer("yellow", phaseTimer(o, "yellow", time.Second), advance).
		On(Next).TransitionTo(Red)
	b.State(Red).On(Button).InternalTransition().
		Action(func(_ Signal, c *ec) { c.Context.Presses++ })
	b.State(Yellow).On(Button).InternalTransition().
		Action(func(_ Signal, c *ec) { c.Context.Presses++ })

	return b.Build()
}

func openQueue(cfg config.QueueConfig, log *zap.SugaredLogger) (finny.Queue[Signal, string], func() error, error) {
	switch cfg.Kind {
	case config.QueueArray:
		return finny.NewQueueArray[Signal, string](cfg.Capacity), func() error { return nil }, nil
	case config.QueueDisk:
		q, err := diskqueue.Open(cfg.Dir, diskqueue.NewJSONCodec[Signal, string](), log)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		return finny.NewQueueVec[Signal, string](), func() error { return nil }, nil
	}
}

func buildInspect(ctx context.Context, base *zap.Logger, reg prometheus.Registerer, publisher *production.ChannelPublisher, withSentry bool) (finny.Inspect, error) {
	collectors, err := metrics.NewCollectors(reg)
	if err != nil {
		return nil, err
	}
	members := []finny.Inspect{
		logging.New(logger.For(base, logger.ComponentMachine)),
		metrics.New(collectors),
		tracing.New(ctx, otel.Tracer("github.com/matiu2/finny/cmd/demo")),
		publisher,
	}
	if withSentry {
		members = append(members, sentryinspect.New(sentry.CurrentHub()))
	}
	return finny.Chain(members...), nil
}

func presses(ctx context.Context, out chan<- Signal, every time.Duration) error {
	defer close(out)
	for {
		jitter := time.Duration(rand.Int64N(int64(every)))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(every/2 + jitter):
		}
		select {
		case out <- Button:
		case <-ctx.Done():
			return nil
		}
	}
}

func run(configPath, metricsAddr string, duration time.Duration) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	base := logger.New(cfg.Logging.Level, logger.ParseFormat(cfg.Logging.Format))
	defer func() { _ = base.Sync() }()
	log := logger.For(base, logger.ComponentDemo)

	withSentry := os.Getenv("SENTRY_DSN") != ""
	if withSentry {
		if err := sentry.Init(sentry.ClientOptions{Dsn: os.Getenv("SENTRY_DSN")}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	schema, err := build(cfg.Timers)
	if err != nil {
		return err
	}

	queue, closeQueue, err := openQueue(cfg.Queue, logger.For(base, logger.ComponentDiskQueue))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeQueue(); err != nil {
			log.Errorw("Closing queue", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	transitions := make(chan production.Transition, 64)
	publisher := production.NewChannelPublisher(transitions)

	reg := prometheus.NewRegistry()
	insp, err := buildInspect(ctx, base, reg, publisher, withSentry)
	if err != nil {
		return err
	}

	clk := clock.New()
	fsm, err := finny.NewWith(schema, Junction{}, queue, insp, finny.NewTimersStd[string](clk), finny.WithID("junction-1"))
	if err != nil {
		return err
	}

	runner := realtime.NewRunner(fsm, realtime.Config{
		TickRate:         cfg.Runner.TickRate,
		MaxEventsPerTick: cfg.Runner.MaxEventsPerTick,
		Clock:            clk,
		Logger:           logger.For(base, logger.ComponentRunner),
	})
	buttons := make(chan Signal)
	if err := runner.Attach(realtime.NewChannelSource[Signal](buttons)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}
	g.Go(func() error { return presses(gctx, buttons, 5*time.Second) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case t := <-transitions:
				log.Infow("Light changed", "from", t.From, "to", t.To, "event", t.Event)
			}
		}
	})
	g.Go(func() error {
		if err := runner.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return runner.Stop()
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := publisher.Close(); err != nil {
		return err
	}

	return report(runner, schema, cfg.Snapshot, log)
}

func report(runner *realtime.Runner[Junction, Phase, Signal, string], schema *finny.Schema[Junction, Phase, Signal, string], cfg config.SnapshotConfig, log *zap.SugaredLogger) error {
	snap, err := runner.Snapshot()
	if err != nil {
		return err
	}
	log.Infow("Stopped", "ticks", runner.TickNumber(), "active", snap.Active())

	vis := &production.Visualizer{}
	fmt.Println(vis.ExportDOT(schema.Describe(), snap.Active()))

	if cfg.Dir == "" {
		return nil
	}
	persister, err := production.NewPersister(cfg.Format, cfg.Dir)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := persister.Save(ctx, snap); err != nil {
		return err
	}
	log.Infow("Snapshot saved", "dir", cfg.Dir, "format", cfg.Format, "id", snap.ID)
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on, e.g. :9090")
	duration := flag.Duration("duration", 30*time.Second, "how long to run; 0 runs until interrupted")
	flag.Parse()

	if err := run(*configPath, *metricsAddr, *duration); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
