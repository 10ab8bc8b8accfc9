// Command-line entry point for the flight assistant.
//
// The CLI answers a single query per invocation using the same agent loop
// and guardrail pipeline as the HTTP service. With -stream it prints the
// progress events as JSONL; otherwise it prints the final response.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"flight_assistant/internal/agent"
	"flight_assistant/internal/config"
	"flight_assistant/internal/flightlog"
	"flight_assistant/internal/guardrail"
	"flight_assistant/internal/metar"
	"flight_assistant/internal/specs"
	"flight_assistant/internal/tools"
	"flight_assistant/internal/trace"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "flight_assistant - commands:")
	fmt.Fprintln(w, "  ask    - answer one query and print the response as JSON")
	fmt.Fprintln(w, "  tools  - list the registered tools")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, `  flight_assistant ask "crosswind for landing at KDEN runway 260" [-stream] [-pretty]`)
	fmt.Fprintln(w, "  flight_assistant tools")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Settings (weather upstream, guardrail policy, audit path) come from")
	fmt.Fprintln(w, "the environment; see internal/config.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "ask":
		runAsk(os.Args[2:])
	case "tools":
		runTools()
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func buildAgent(cfg config.Settings, sink *trace.Sink) (*agent.Agent, *tools.Registry, func(), error) {
	store, err := specs.Open(cfg.SpecsDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open specs database: %w", err)
	}

	var upstream metar.Fetcher
	if cfg.WeatherURL != "" {
		upstream = metar.NewHTTPFetcher(cfg.WeatherURL, cfg.WeatherToken, cfg.WeatherTimeout)
	}
	weather := metar.NewClient(upstream, sink)

	registry := tools.NewBuiltinRegistry(tools.Deps{
		Weather:   weather,
		Specs:     store,
		FlightLog: flightlog.NewMemoryWriter(),
		Policy: tools.Policy{
			UseGust:         cfg.UseGust,
			MagneticEnabled: cfg.MagneticEnabled,
		},
	})

	verifier := guardrail.New(guardrail.Config{
		ThresholdKt:     cfg.GuardrailThresholdKt,
		UseGust:         cfg.UseGust,
		MagneticEnabled: cfg.MagneticEnabled,
	})

	var decider agent.Decider = &agent.PatternDecider{}
	if cfg.LLMBackend == config.BackendExternal {
		decider = agent.NewExternalDecider(cfg.LLMURL, cfg.LLMModel, cfg.LLMTimeout, registry.Catalog())
	}

	a := agent.New(registry, decider, verifier, sink)
	a.MaxLoops = cfg.MaxLoops
	a.Deadline = cfg.RequestDeadline
	return a, registry, func() { store.Close() }, nil
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	stream := fs.Bool("stream", false, "Print progress events as JSONL")
	pretty := fs.Bool("pretty", false, "Pretty-print the final response")
	_ = fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "ask: a query is required")
		os.Exit(2)
	}

	cfg := config.Load()
	sink, err := trace.NewSink(cfg.AuditLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit log: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	a, _, cleanup, err := buildAgent(cfg, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()

	if *stream {
		enc := json.NewEncoder(os.Stdout)
		for ev := range a.RunStream(ctx, query) {
			_ = enc.Encode(ev)
		}
		return
	}

	resp, err := a.Run(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printJSON(resp, *pretty)
}

func runTools() {
	cfg := config.Load()
	_, registry, cleanup, err := buildAgent(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	printJSON(registry.Catalog(), true)
}

func printJSON(v any, pretty bool) {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
