package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	mmsreportd "github.com/slonegd/mmsreportd"
	"github.com/slonegd/mmsreportd/config"
	"github.com/slonegd/mmsreportd/logging"
	"github.com/slonegd/mmsreportd/metrics"
	"github.com/slonegd/mmsreportd/rcb"
	"github.com/slonegd/mmsreportd/report"
	"github.com/slonegd/mmsreportd/scl"
	"github.com/slonegd/mmsreportd/sink"
)

// argumentError marks a bad invocation (missing host, malformed flag value):
// exit code 1.
type argumentError struct{ cause error }

func (e *argumentError) Error() string { return fmt.Sprintf("mmsreportd: %v", e.cause) }
func (e *argumentError) Unwrap() error { return e.cause }

// connectError marks a failure to establish the TCP/COTP transport: exit
// code 2.
type connectError struct{ cause error }

func (e *connectError) Error() string { return fmt.Sprintf("mmsreportd: connect: %v", e.cause) }
func (e *connectError) Unwrap() error { return e.cause }

// initiateError marks a failure to negotiate the MMS association or to
// enable any configured RCB: exit code 3.
type initiateError struct{ cause error }

func (e *initiateError) Error() string { return fmt.Sprintf("mmsreportd: initiate: %v", e.cause) }
func (e *initiateError) Unwrap() error { return e.cause }

// exitCodeFor maps a run error to the process exit code the invocation
// surface documents. *connectError and *initiateError map directly; a
// connection lost mid-run after a report was already decoded has no
// dedicated code of its own, so it is also treated as a connect-class
// failure since recovery means dialing again from scratch. Anything else,
// including cobra's own usage errors (bad flag, wrong arg count), is an
// argument error.
func exitCodeFor(err error) int {
	var ce *connectError
	if errors.As(err, &ce) {
		return 2
	}
	var ie *initiateError
	if errors.As(err, &ie) {
		return 3
	}
	return 1
}

type runFlags struct {
	port        int
	domain      string
	sclPath     string
	debug       bool
	verbose     bool
	sinkURL     string
	sinkBatchMs int
	sinkNoBatch bool
	configPath  string
	metricsAddr string
}

func newRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <host> [port]",
		Short: "Connect to an IED and stream decoded reports",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd.Context(), args, flags, cmd.Flags())
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&flags.port, "port", 102, "IED MMS port")
	fl.StringVar(&flags.domain, "domain", "VMC7_1LD0", "logical-device domain to address RCBs under")
	fl.StringVar(&flags.sclPath, "scl", "", "SCL/ICD/CID file to load dataset member labels from")
	fl.BoolVar(&flags.debug, "debug", false, "hex-dump sent/received MMS PDUs")
	fl.BoolVar(&flags.verbose, "verbose", false, "dump raw report PDUs and entry values")
	fl.StringVar(&flags.sinkURL, "sink-url", "", "push decoded samples to this HTTP sink URL")
	fl.IntVar(&flags.sinkBatchMs, "sink-batch-ms", 200, "sink batch flush interval in milliseconds")
	fl.BoolVar(&flags.sinkNoBatch, "sink-no-batch", false, "send one HTTP POST per sample instead of batching")
	fl.StringVar(&flags.configPath, "config", "", "optional YAML config file, overlaid under these flags")
	fl.StringVar(&flags.metricsAddr, "metrics-addr", ":9110", "address to serve Prometheus metrics on")

	return cmd
}

func runMain(ctx context.Context, args []string, flags runFlags, fl *pflag.FlagSet) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return &argumentError{cause: err}
	}
	applyFlagsOverConfig(&cfg, args, flags, fl)

	if cfg.Host == "" {
		return &argumentError{cause: fmt.Errorf("host is required")}
	}
	if len(cfg.RCBs) == 0 {
		return &argumentError{cause: fmt.Errorf("no RCBs configured: pass --config with an rcbs: list")}
	}

	log := logging.New(cfg.Debug, cfg.Verbose)
	clientLogger := logging.NewLogrusAdapter(log, "client")

	labels := report.DatasetLabels{}
	if cfg.SCLPath != "" {
		sclLabels, err := scl.Parse(cfg.SCLPath)
		if err != nil {
			return &argumentError{cause: err}
		}
		for k, v := range sclLabels {
			labels[k] = v
		}
	}

	collector := metrics.New(cfg.Domain)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)
	stopMetrics := serveMetrics(flags.metricsAddr, registry, clientLogger)
	defer stopMetrics()

	var samples sink.Sink
	if cfg.SinkURL != "" {
		interval := time.Duration(cfg.SinkBatchMs) * time.Millisecond
		if cfg.SinkNoBatch {
			interval = 0
		}
		httpSink := sink.NewHTTPSink(cfg.SinkURL, interval)
		defer httpSink.Close()
		samples = httpSink
	}

	client := mmsreportd.New(cfg.Domain,
		mmsreportd.WithLogger(clientLogger),
		mmsreportd.WithMetrics(collector),
		mmsreportd.WithSink(samples),
		mmsreportd.WithDatasetLabels(labels),
		mmsreportd.WithIntegrityPeriodMs(cfg.IntegrityPeriodMs),
	)

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Connect(runCtx, cfg.Host, cfg.Port); err != nil {
		return &connectError{cause: err}
	}
	defer client.Close()

	if err := client.Initiate(runCtx); err != nil {
		return &initiateError{cause: err}
	}

	specs := make([]mmsreportd.RCBSpec, 0, len(cfg.RCBs))
	for _, r := range cfg.RCBs {
		kind := rcb.Unbuffered
		if r.Buffered {
			kind = rcb.Buffered
		}
		specs = append(specs, mmsreportd.RCBSpec{Domain: r.Domain, Item: r.Item, Kind: kind})
	}
	if err := client.Subscribe(runCtx, specs); err != nil {
		return &initiateError{cause: err}
	}

	if err := client.Run(runCtx); err != nil {
		if errors.Is(runCtx.Err(), context.Canceled) {
			return nil
		}
		return &connectError{cause: err}
	}
	return nil
}

// applyFlagsOverConfig overlays the CLI flags (and positional host/port) onto
// cfg, which already carries the file-loaded values under the built-in
// defaults. Only flags the user actually passed on the command line override
// cfg; an unset flag keeps whatever config.Load already resolved, so a bare
// "mmsreportd run host --config prod.yaml" still picks up the file's values.
func applyFlagsOverConfig(cfg *config.Config, args []string, flags runFlags, fl *pflag.FlagSet) {
	cfg.Host = args[0]
	if len(args) > 1 {
		if p, err := strconv.Atoi(args[1]); err == nil {
			cfg.Port = p
		}
	} else if fl.Changed("port") {
		cfg.Port = flags.port
	}
	if fl.Changed("domain") {
		cfg.Domain = flags.domain
	}
	if fl.Changed("scl") {
		cfg.SCLPath = flags.sclPath
	}
	if fl.Changed("debug") {
		cfg.Debug = flags.debug
	}
	if fl.Changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if fl.Changed("sink-url") {
		cfg.SinkURL = flags.sinkURL
	}
	if fl.Changed("sink-batch-ms") {
		cfg.SinkBatchMs = flags.sinkBatchMs
	}
	if fl.Changed("sink-no-batch") {
		cfg.SinkNoBatch = flags.sinkNoBatch
	}
}

// serveMetrics starts a best-effort /metrics HTTP server and returns a
// shutdown func; a failure to bind is logged, not fatal, since metrics are
// an ambient concern and must never block the reporting connection itself.
func serveMetrics(addr string, registry *prometheus.Registry, log interface{ Debug(string, ...any) }) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Debug("metrics server stopped: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
