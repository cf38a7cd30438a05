package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/config"
	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/metrics"
	"github.com/roach88/roamwatch/internal/store"
	"github.com/roach88/roamwatch/internal/wlan"
)

// MonitorOptions holds flags for the monitor command. Each flag overrides
// the config file only when set explicitly.
type MonitorOptions struct {
	*RootOptions
	Adapter          string
	Script           string
	Poll             time.Duration
	IngressBuffer    int
	SubscriberBuffer int
	StaleAfter       time.Duration
	Capture          string
	MetricsListen    string

	Duration time.Duration // stop after this long; 0 runs until interrupted
	Follow   bool          // keep running after a sim script ends
}

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	return newMonitorCommand(&MonitorOptions{RootOptions: rootOpts})
}

func newMonitorCommand(opts *MonitorOptions) *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Classify roams and reconnects as they happen",
		Long: `Subscribe to the wireless adapter's notifications and print each roam
or reconnect outcome as it completes.

Outcomes are drained and printed every poll interval. With --capture every
notification and outcome is also written to a SQLite capture log that the
replay command can verify later. With --metrics-listen a Prometheus
endpoint is served at /metrics.

The sim adapter replays a script and stops once the script has been
played and processed, unless --follow is set.

Examples:
  roamwatch monitor
  roamwatch monitor --capture ./roamwatch.db --metrics-listen :9108
  roamwatch monitor --adapter sim --script ./office.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Adapter, "adapter", def.Adapter, "adapter to open (windows|sim)")
	f.StringVar(&opts.Script, "script", "", "script for the sim adapter")
	f.DurationVar(&opts.Poll, "poll", def.PollInterval, "outcome reporting interval")
	f.IntVar(&opts.IngressBuffer, "ingress-buffer", def.IngressBuffer, "notifications queued between the adapter and the bus")
	f.IntVar(&opts.SubscriberBuffer, "subscriber-buffer", def.SubscriberBuffer, "per-subscriber bus queue bound")
	f.DurationVar(&opts.StaleAfter, "stale-after", def.StaleAfter, "reset an unfinished correlation after this long (0 disables)")
	f.StringVar(&opts.Capture, "capture", "", "SQLite capture log path")
	f.StringVar(&opts.MetricsListen, "metrics-listen", "", "address for the Prometheus endpoint")
	f.DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	f.BoolVar(&opts.Follow, "follow", false, "keep running after a sim script ends")

	return cmd
}

// resolve layers explicitly set flags over the loaded config.
func (o *MonitorOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := o.config()
	f := cmd.Flags()
	if f.Changed("adapter") {
		cfg.Adapter = o.Adapter
	}
	if f.Changed("script") {
		cfg.SimScript = o.Script
		if !f.Changed("adapter") {
			cfg.Adapter = config.AdapterSim
		}
	}
	if f.Changed("poll") {
		cfg.PollInterval = o.Poll
	}
	if f.Changed("ingress-buffer") {
		cfg.IngressBuffer = o.IngressBuffer
	}
	if f.Changed("subscriber-buffer") {
		cfg.SubscriberBuffer = o.SubscriberBuffer
	}
	if f.Changed("stale-after") {
		cfg.StaleAfter = o.StaleAfter
	}
	if f.Changed("capture") {
		cfg.CaptureDB = o.Capture
	}
	if f.Changed("metrics-listen") {
		cfg.MetricsListen = o.MetricsListen
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runMonitor(opts *MonitorOptions, cmd *cobra.Command) error {
	logger := opts.logger()
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	sigCtx, stopSignals := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	ctx, stop := context.WithCancel(sigCtx)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	adapter, err := openAdapter(cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open adapter", err)
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			logger.Error("error closing adapter", "error", err)
		}
	}()
	iface := interfaceName(ctx, adapter, logger)

	b := bus.New(bus.WithSubscriberBuffer(cfg.SubscriberBuffer))
	in := bus.NewIngress(cfg.IngressBuffer, logger.With("component", "ingress"))
	sink := engine.NewSink()
	m := metrics.New()
	m.RegisterBus(b)
	m.RegisterIngress(in)

	var rec *store.Recorder
	if cfg.CaptureDB != "" {
		st, err := store.Open(cfg.CaptureDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open capture log", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing capture log", "error", err)
			}
		}()
		sess, err := st.OpenSession(ctx, cfg.Adapter, iface, time.Now())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open capture session", err)
		}
		rec = store.NewRecorder(st, sess, logger.With("component", "recorder"))
		logger.Info("capturing", "db", cfg.CaptureDB, "session", sess.ID)
	}

	hook := m.ObserveOutcome
	if rec != nil {
		hook = func(seq int64, o engine.Outcome) {
			m.ObserveOutcome(seq, o)
			rec.RecordOutcome(seq, o)
		}
	}
	eng := engine.New(sink,
		engine.WithLogger(logger.With("component", "engine")),
		engine.WithStaleAfter(cfg.StaleAfter),
		engine.WithOutcomeHook(hook),
	)
	m.RegisterEngine(eng)
	tracker := metrics.NewSignalTracker(m, logger.With("component", "signal"))

	var srv *metrics.Server
	if cfg.MetricsListen != "" {
		srv, err = metrics.Listen(cfg.MetricsListen, m, logger.With("component", "metrics"))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics endpoint", err)
		}
	}

	// Consumers subscribe before the adapter starts delivering.
	engSub := b.Subscribe()
	sigSub := b.Subscribe()
	var recSub *bus.Subscription
	if rec != nil {
		recSub = b.Subscribe()
	}

	out := opts.formatter(cmd)
	var printed int
	report := func() error {
		for _, o := range sink.Drain() {
			if err := out.Line(o); err != nil {
				return fmt.Errorf("write outcome: %w", err)
			}
			printed++
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return in.Run(gctx, b) })
	g.Go(func() error { return eng.Run(gctx, engSub) })
	g.Go(func() error { return tracker.Run(gctx, sigSub) })
	if rec != nil {
		g.Go(func() error { return rec.Run(gctx, recSub) })
	}
	if srv != nil {
		g.Go(func() error { return srv.Serve(gctx) })
	}
	g.Go(func() error {
		t := time.NewTicker(cfg.PollInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if err := report(); err != nil {
					return err
				}
			}
		}
	})

	if err := adapter.Subscribe(in.HandleRaw); err != nil {
		stop()
		_ = g.Wait()
		return WrapExitError(ExitCommandError, "failed to subscribe to notifications", err)
	}
	if sim, ok := adapter.(*wlan.Sim); ok && !opts.Follow {
		g.Go(func() error {
			if !waitScriptProcessed(gctx, sim, in, b) {
				return nil
			}
			logger.Info("sim script finished, stopping")
			stop()
			return nil
		})
	}
	logger.Info("monitor started", "adapter", cfg.Adapter, "interface", iface, "poll", cfg.PollInterval)

	runErr := g.Wait()

	// The engine has stopped; anything it produced since the last tick is
	// still in the sink or the recorder queue.
	if rec != nil {
		rec.Flush(context.WithoutCancel(ctx))
	}
	if err := report(); err != nil && runErr == nil {
		runErr = err
	}

	st := eng.Stats()
	logger.Info("monitor stopped",
		"outcomes", printed,
		"events", st.Events,
		"violations", st.Violations,
		"missed", st.Missed,
		"ingress_dropped", in.Dropped(),
		"decode_errors", in.DecodeErrors(),
	)
	if rec != nil {
		logger.Info("capture closed", "session", rec.Session().ID, "written", rec.Written(), "failed", rec.Failed())
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitCommandError, "monitor failed", runErr)
	}
	return nil
}

// waitScriptProcessed blocks until the sim script has been played and every
// notification has left the ingress queue and the bus. Returns false if ctx
// ends first.
func waitScriptProcessed(ctx context.Context, sim *wlan.Sim, in *bus.Ingress, b *bus.Bus) bool {
	select {
	case <-ctx.Done():
		return false
	case <-sim.Done():
	}

	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
		// Two consecutive idle reads so an event in flight between the
		// ingress pump and Publish is not missed.
		if in.Len() == 0 && b.Pending() == 0 {
			idle++
		} else {
			idle = 0
		}
		if idle >= 2 {
			return true
		}
	}
}
