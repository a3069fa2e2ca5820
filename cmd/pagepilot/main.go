// Package main provides the pagepilot command, a browser assistant that
// answers questions about a web page by reasoning over tool results.
//
// In one-shot mode the prompt is taken from the command line and the
// transcript is printed. In serve mode the agent and the tool bridge are
// exposed over HTTP so a browser shell can execute tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/entrhq/pagepilot/pkg/agent"
	"github.com/entrhq/pagepilot/pkg/agent/bridge"
	"github.com/entrhq/pagepilot/pkg/config"
	"github.com/entrhq/pagepilot/pkg/executor"
	"github.com/entrhq/pagepilot/pkg/executor/browser"
	"github.com/entrhq/pagepilot/pkg/executor/stub"
	"github.com/entrhq/pagepilot/pkg/llm/openai"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/server"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/entrhq/pagepilot/pkg/ui"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

var cliLog *logging.Logger

func init() {
	var err error
	cliLog, err = logging.NewLogger("cli")
	if err != nil {
		cliLog.Warnf("Failed to initialize cli logger, using stderr fallback: %v", err)
	}
}

// Executor modes selectable with -executor.
const (
	executorBrowser = "browser"
	executorStub    = "stub"
	executorRemote  = "remote"
)

// Flags holds the command line flags. Empty values leave the config file
// and environment settings untouched.
type Flags struct {
	ConfigPath  string
	APIKey      string
	BaseURL     string
	Model       string
	URL         string
	Executor    string
	Addr        string
	Serve       bool
	Headed      bool
	Verbose     bool
	ShowVersion bool
	Prompt      string
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("pagepilot v%s\n", version)
		return
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := flags.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, cfg); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err))
		stop()
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&flags.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&flags.BaseURL, "base-url", "", "OpenAI API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&flags.Model, "model", "", "LLM model to use")
	flag.StringVar(&flags.URL, "url", "", "URL of the page the question is about")
	flag.StringVar(&flags.Executor, "executor", "", "Tool executor: browser, stub or remote (default: remote with -serve, stub otherwise)")
	flag.StringVar(&flags.Addr, "addr", "", "Listen address for -serve")
	flag.BoolVar(&flags.Serve, "serve", false, "Serve the agent and tool bridge over HTTP")
	flag.BoolVar(&flags.Headed, "headed", false, "Show the browser window (browser executor only)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Print agent events to stderr")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pagepilot - a browser assistant agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pagepilot [options] <prompt>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key (demo mode when unset)\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "  PAGEPILOT_MODEL    Model name\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pagepilot \"what do the plans cost?\"\n")
		fmt.Fprintf(os.Stderr, "  pagepilot -executor browser -url https://example.com \"summarize this page\"\n")
		fmt.Fprintf(os.Stderr, "  pagepilot -serve -addr :8787\n")
	}

	flag.Parse()
	flags.Prompt = strings.TrimSpace(strings.Join(flag.Args(), " "))
	return flags
}

// validate checks flag combinations
func (f *Flags) validate() error {
	switch f.Executor {
	case "", executorBrowser, executorStub, executorRemote:
	default:
		return fmt.Errorf("unknown executor %q (must be 'browser', 'stub' or 'remote')", f.Executor)
	}

	if f.Serve {
		return nil
	}
	if f.Prompt == "" {
		return errors.New("a prompt is required unless -serve is set")
	}
	if f.Executor == executorRemote {
		return errors.New("the remote executor requires -serve")
	}
	return nil
}

// executorMode resolves the default executor for the selected mode.
func (f *Flags) executorMode() string {
	if f.Executor != "" {
		return f.Executor
	}
	if f.Serve {
		return executorRemote
	}
	return executorStub
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig(flags *Flags) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	if flags.APIKey != "" {
		cfg.LLM.APIKey = flags.APIKey
	}
	if flags.BaseURL != "" {
		cfg.LLM.BaseURL = flags.BaseURL
	}
	if flags.Model != "" {
		cfg.LLM.Model = flags.Model
	}
	if flags.Addr != "" {
		cfg.Server.ListenAddr = flags.Addr
	}
	if flags.Headed {
		cfg.Browser.Headless = false
	}
	if flags.URL != "" {
		cfg.Browser.StartURL = flags.URL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.SetLevel(cfg.LogLevel()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run wires the bridge, the executor and the agent and runs the selected mode.
func run(ctx context.Context, flags *Flags, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := bridge.NewStore(cfg.Bridge.ResultTTL)
	hub := bridge.NewHub()
	dispatcher := bridge.NewDispatcher(store, hub.Emit, bridge.WithTimeout(cfg.Bridge.DispatchTimeout))
	cliLog.Infof("Tool calls time out after %v", dispatcher.Timeout())

	a, err := newAgent(cfg, dispatcher, flags.Verbose)
	if err != nil {
		return err
	}

	handler, closeHandler, err := newHandler(flags.executorMode(), cfg)
	if err != nil {
		return err
	}
	defer closeHandler()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return store.Run(gctx, cfg.Bridge.SweepInterval)
	})

	if handler != nil {
		requests, unsubscribe := hub.Subscribe(bridge.DefaultSubscriberBuffer)
		defer unsubscribe()
		g.Go(func() error {
			return executor.Serve(gctx, requests, handler, store.Submit)
		})
	}

	if flags.Serve {
		srv := server.New(a, hub, store, cfg.Server.ListenAddr)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
		return g.Wait()
	}

	url := flags.URL
	if url == "" && flags.executorMode() == executorBrowser {
		url = cfg.Browser.StartURL
	}

	var output string
	g.Go(func() error {
		defer cancel()
		out, err := a.Run(gctx, flags.Prompt, url)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println(ui.RenderTranscript(output))
	return nil
}

// newAgent builds the agent. Without a credential the agent runs the
// built-in demonstration.
func newAgent(cfg *config.Config, dispatcher agent.ToolDispatcher, verbose bool) (*agent.Agent, error) {
	var opts []agent.Option

	if cfg.HasCredential() {
		providerOpts := []openai.ProviderOption{
			openai.WithModel(cfg.LLM.Model),
			openai.WithTemperature(cfg.LLM.Temperature),
		}
		if cfg.LLM.BaseURL != "" {
			providerOpts = append(providerOpts, openai.WithBaseURL(cfg.LLM.BaseURL))
		}
		provider, err := openai.NewProvider(cfg.LLM.APIKey, providerOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		cliLog.Infof("Using model %s at %s", provider.GetModel(), provider.GetBaseURL())
		opts = append(opts, agent.WithProvider(provider))
	} else {
		cliLog.Infof("No API key configured, running the demo")
	}

	if verbose {
		opts = append(opts, agent.WithEventEmitter(printEvent))
	}

	return agent.New(dispatcher, opts...), nil
}

// newHandler creates the in-process tool executor for mode. The remote
// mode has none; tools are executed by a shell connected to the server.
func newHandler(mode string, cfg *config.Config) (executor.Handler, func(), error) {
	switch mode {
	case executorStub:
		return stub.New(), func() {}, nil
	case executorBrowser:
		allow, err := browser.NewAllowlist(cfg.Browser.AllowedHosts)
		if err != nil {
			return nil, nil, err
		}
		cliLog.Infof("Navigation allowed to %s", describeAllowlist(allow))
		session, err := browser.Launch(browser.Options{
			Headless: cfg.Browser.Headless,
			StartURL: cfg.Browser.StartURL,
			Timeout:  cfg.Browser.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return browser.NewExecutor(session, browser.WithAllowlist(allow)), session.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func printEvent(event *types.AgentEvent) {
	fmt.Fprintln(os.Stderr, formatEvent(event))
}

// formatEvent renders an agent event as one line for -verbose output.
func formatEvent(event *types.AgentEvent) string {
	if event.IsToolEvent() {
		return fmt.Sprintf("[%d] %s", event.Iteration, formatToolEvent(event))
	}
	if event.Type == types.EventTypeError {
		return fmt.Sprintf("error: %v", event.Error)
	}
	return fmt.Sprintf("[%d] %s", event.Iteration, event.Type)
}

func formatToolEvent(event *types.AgentEvent) string {
	switch event.Type {
	case types.EventTypeToolCall:
		if event.ToolArg == "" {
			return "tool " + event.ToolName
		}
		return fmt.Sprintf("tool %s(%s)", event.ToolName, event.ToolArg)
	case types.EventTypeToolResultError:
		return fmt.Sprintf("%s failed: %v", event.ToolName, event.Error)
	default:
		return fmt.Sprintf("%s: %s", event.ToolName, event.Content)
	}
}

// describeAllowlist summarizes the hosts navigate_to may visit.
func describeAllowlist(allow *browser.Allowlist) string {
	patterns := allow.Patterns()
	if len(patterns) == 0 {
		return "all hosts"
	}
	return strings.Join(patterns, ", ")
}
