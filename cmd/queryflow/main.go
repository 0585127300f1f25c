// ABOUTME: CLI entrypoint for the query pipeline with one-shot, validate, and server modes.
// ABOUTME: Wires together the agent graph, LLM client, run store, HTTP server, and signal handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kft-research/queryflow/llm"
	"github.com/kft-research/queryflow/pipeline"
	"github.com/kft-research/queryflow/server"
	"github.com/kft-research/queryflow/sqlagent"
	"github.com/kft-research/queryflow/store"
)

var version = "dev"

// cliConfig holds all CLI configuration parsed from flags and positional
// arguments.
type cliConfig struct {
	serverMode   bool
	validateOnly bool
	offline      bool
	verbose      bool
	showVersion  bool
	query        string
}

func main() {
	if err := server.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("queryflow %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("queryflow", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Validate the pipeline graph and vocabulary without executing")
	fs.BoolVar(&cfg.offline, "offline", false, "Accept the payload locally instead of submitting it")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Log pipeline events")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.query = strings.Join(fs.Args(), " ")
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg cliConfig) int {
	envCfg, err := server.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	vocab, err := loadVocabulary(envCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if cfg.validateOnly {
		return validateGraph(vocab)
	}

	if !cfg.serverMode && cfg.query == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	client, err := llm.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: no LLM API key found")
		fmt.Fprintln(os.Stderr, "Set one of: GEMINI_API_KEY or OPENAI_API_KEY")
		return 1
	}
	defer func() { _ = client.Close() }()

	model := sqlagent.NewLLMClient(client, envCfg.Model)
	model.Provider = envCfg.Provider

	agent, err := buildAgent(cfg, envCfg, vocab, model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if cfg.serverMode {
		return runServer(envCfg, agent)
	}
	return runQuery(cfg, agent)
}

// loadVocabulary returns the override vocabulary when configured, otherwise
// the embedded default.
func loadVocabulary(envCfg *server.Config) (*sqlagent.Vocabulary, error) {
	if envCfg.Vocabulary != "" {
		return sqlagent.LoadVocabulary(envCfg.Vocabulary)
	}
	return sqlagent.DefaultVocabulary()
}

// buildAgent wires the agent graph with the configured submitter and event
// logging.
func buildAgent(cfg cliConfig, envCfg *server.Config, vocab *sqlagent.Vocabulary, model sqlagent.ModelClient) (*sqlagent.Agent, error) {
	var submitter sqlagent.PayloadSubmitter
	switch {
	case cfg.offline || envCfg.SubmitURL == "":
		submitter = &sqlagent.StubSubmitter{}
	default:
		submitter = sqlagent.NewHTTPSubmitter(envCfg.SubmitURL, envCfg.SubmitToken)
	}

	var events func(pipeline.Event)
	if cfg.verbose {
		events = func(evt pipeline.Event) {
			log.Printf("event type=%s stage=%s data=%v", evt.Type, evt.Stage, evt.Data)
		}
	}

	return sqlagent.NewAgent(sqlagent.AgentConfig{
		Vocabulary: vocab,
		Model:      model,
		Submitter:  submitter,
		MaxSteps:   envCfg.MaxSteps,
		Events:     events,
	})
}

// runQuery processes one query and prints the final state as JSON.
func runQuery(cfg cliConfig, agent *sqlagent.Agent) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	final := agent.Run(ctx, cfg.query)

	out, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Println(string(out))

	if final.Status != pipeline.StatusSucceeded {
		return 1
	}
	return 0
}

// runServer starts the HTTP API with the run store and blocks until the
// listener fails or a shutdown signal arrives.
func runServer(envCfg *server.Config, agent *sqlagent.Agent) int {
	if err := os.MkdirAll(envCfg.Home, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating data directory: %v\n", err)
		return 1
	}

	runs, err := store.Open(filepath.Join(envCfg.Home, "runs.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = runs.Close() }()

	srv, err := server.NewServer(server.ServerConfig{
		Addr:      envCfg.Bind,
		Agent:     agent,
		Runs:      runs,
		AuthToken: envCfg.AuthToken,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("queryflow %s listening on %s", version, envCfg.Bind)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	log.Printf("queryflow shut down")
	return 0
}

// validateGraph builds the agent graph with inert collaborators and reports
// whether the wiring and vocabulary are valid.
func validateGraph(vocab *sqlagent.Vocabulary) int {
	_, err := sqlagent.NewAgent(sqlagent.AgentConfig{
		Vocabulary: vocab,
		Model:      noopModel{},
		Submitter:  &sqlagent.StubSubmitter{},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation failed: %v\n", err)
		return 1
	}
	fmt.Println("pipeline graph and vocabulary are valid")
	return 0
}

// noopModel satisfies the model seam for graph validation without a backend.
type noopModel struct{}

func (noopModel) GenerateText(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("no model configured")
}

func printHelp(w io.Writer, version string) {
	fmt.Fprintf(w, `queryflow %s - natural language to SQL visualization pipeline

Usage:
  queryflow [flags] "your question about the data"
  queryflow -server

Flags:
  -server      Start the HTTP API (QUERYFLOW_BIND, default 127.0.0.1:8420)
  -validate    Validate the pipeline graph and vocabulary, then exit
  -offline     Accept the payload locally instead of submitting it
  -verbose     Log pipeline events
  -version     Print version and exit

Environment:
  GEMINI_API_KEY or OPENAI_API_KEY   LLM provider credentials (required to run queries)
  QUERYFLOW_MODEL                    Model name (default %s)
  QUERYFLOW_SUBMIT_URL               Visualizer raw-query endpoint
  QUERYFLOW_SUBMIT_TOKEN             Visualizer bearer token
  QUERYFLOW_VOCABULARY               Vocabulary YAML override path
  QUERYFLOW_HOME                     Data directory (default ~/.queryflow)
`, version, sqlagent.DefaultModel)
}
