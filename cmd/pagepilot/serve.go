package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/pagepilot/pkg/apiproxy"
	"github.com/entrhq/pagepilot/pkg/background"
	"github.com/entrhq/pagepilot/pkg/config"
	"github.com/entrhq/pagepilot/pkg/contentscript"
	"github.com/entrhq/pagepilot/pkg/host/bridge"
	"github.com/entrhq/pagepilot/pkg/host/pwhost"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/session"
	"github.com/spf13/cobra"
)

// Host adapters selectable with --host.
const (
	hostBridge     = "bridge"
	hostPlaywright = "playwright"
)

type serveOptions struct {
	host       string
	configPath string
	listen     string
	backend    string
	headless   bool
	open       []string
	logFile    bool
	llmModel   string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background orchestrator",
		Long: `Run the background orchestrator until interrupted.

With --host bridge (the default) the daemon listens for the extension's shim
on a loopback WebSocket. With --host playwright it launches Chromium and acts
as both the extension and its content script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			overrides := opts.overrides(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, overrides, cmd.OutOrStdout())
		},
	}

	bindServeFlags(cmd, opts)
	return cmd
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.host, "host", hostBridge, "Host adapter: bridge or playwright")
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.pagepilot/config.yaml)")
	flags.StringVar(&opts.listen, "listen", "", "Bridge listen address (loopback only)")
	flags.StringVar(&opts.backend, "backend", "", "Backend base URL (or set "+config.EnvBackendURL+")")
	flags.BoolVar(&opts.headless, "headless", true, "Run Chromium without a window (playwright host)")
	flags.StringSliceVar(&opts.open, "open", nil, "URLs to open on start (playwright host)")
	flags.BoolVar(&opts.logFile, "log-file", false, "Log to ~/.pagepilot/logs instead of stderr")
	flags.StringVar(&opts.llmModel, "model", "", "Model for page classification (needs "+config.EnvOpenAIAPIKey+")")
}

func (o *serveOptions) validate() error {
	switch o.host {
	case hostBridge, hostPlaywright:
		return nil
	default:
		return fmt.Errorf("unknown host %q (want %s or %s)", o.host, hostBridge, hostPlaywright)
	}
}

// overrides collects the flags the user actually set.
func (o *serveOptions) overrides(cmd *cobra.Command) config.Overrides {
	out := config.Overrides{
		BackendURL: o.backend,
		ListenAddr: o.listen,
		StartURLs:  o.open,
		LLMModel:   o.llmModel,
	}
	if cmd.Flags().Changed("headless") {
		headless := o.headless
		out.Headless = &headless
	}
	return out
}

func runServe(ctx context.Context, opts *serveOptions, overrides config.Overrides, out io.Writer) error {
	if err := config.Initialize(opts.configPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	settings := config.Resolve(config.Global(), overrides)

	logger := newLogger(opts.logFile)
	defer logger.Close()

	proxy := apiproxy.New(settings.Backend.BaseURL,
		apiproxy.WithUserID(settings.Backend.UserID),
		apiproxy.WithSummaryMaxLength(settings.Backend.SummaryMaxLength),
		apiproxy.WithHTTPClient(&http.Client{Timeout: settings.Backend.Timeout}),
		apiproxy.WithLogger(logger.WithComponent("apiproxy")),
	)
	logger.Infof("backend at %s", proxy.BaseURL())

	started := time.Now()
	var (
		stats session.Stats
		err   error
	)
	switch opts.host {
	case hostPlaywright:
		stats, err = servePlaywright(ctx, settings, proxy, logger)
	default:
		stats, err = serveBridge(ctx, settings, proxy, logger)
	}

	fmt.Fprintln(out, renderSummary(opts.host, stats, time.Since(started)))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(toFile bool) *logging.Logger {
	if !toFile {
		return logging.New("pagepilot", os.Stderr)
	}
	// NewLogger falls back to stderr on its own.
	logger, _ := logging.NewLogger("pagepilot")
	return logger
}

func serveBridge(ctx context.Context, settings config.Settings, proxy *apiproxy.Client, logger *logging.Logger) (session.Stats, error) {
	var orch *background.Orchestrator
	b := bridge.New(
		bridge.WithRequestTimeout(settings.Bridge.RequestTimeout),
		bridge.WithPingInterval(settings.Bridge.PingInterval),
		bridge.WithLogger(logger.WithComponent("bridge")),
		bridge.WithStats(func() session.Stats { return orch.Stats() }),
	)
	orch = background.New(b, background.Options{Proxy: proxy, Logger: logger})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		err := b.ListenAndServe(runCtx, settings.Bridge.ListenAddr)
		cancel()
		serveErr <- err
	}()

	runErr := orch.Run(runCtx)
	stats := orch.Stats()
	if err := <-serveErr; err != nil && ctx.Err() == nil {
		return stats, err
	}
	return stats, runErr
}

func servePlaywright(ctx context.Context, settings config.Settings, proxy *apiproxy.Client, logger *logging.Logger) (session.Stats, error) {
	h := pwhost.New(
		pwhost.WithHeadless(settings.Browser.Headless),
		pwhost.WithInstall(settings.Browser.Install),
		pwhost.WithAnalyzer(newAnalyzer(settings.LLM, logger)),
		pwhost.WithLogger(logger.WithComponent("browser")),
	)
	orch := background.New(h, background.Options{Proxy: proxy, Logger: logger})

	runErr := make(chan error, 1)
	go func() {
		runErr <- orch.Run(ctx)
	}()

	if err := h.Start(ctx); err != nil {
		_ = h.Close()
		<-runErr
		return orch.Stats(), err
	}
	for _, u := range settings.Browser.StartURLs {
		if _, err := h.Open(ctx, u); err != nil {
			logger.Warnf("failed to open %s: %v", u, err)
		}
	}

	<-ctx.Done()
	closeErr := h.Close()
	err := <-runErr
	if closeErr != nil {
		logger.Warnf("%v", closeErr)
	}
	return orch.Stats(), err
}

// newAnalyzer builds the content script analyzer, classifying with the model
// when an API key is configured.
func newAnalyzer(llm config.LLMSettings, logger *logging.Logger) *contentscript.Analyzer {
	opts := []contentscript.AnalyzerOption{
		contentscript.WithLogger(logger.WithComponent("contentscript")),
	}
	if llm.Enabled() {
		classifier := contentscript.NewLLMClassifier(llm.APIKey,
			contentscript.WithModel(llm.Model),
			contentscript.WithBaseURL(llm.BaseURL),
			contentscript.WithLLMLogger(logger.WithComponent("classifier")),
		)
		logger.Infof("classifying pages with %s", classifier.Model())
		opts = append(opts, contentscript.WithClassifier(classifier))
	}
	return contentscript.NewAnalyzer(opts...)
}
