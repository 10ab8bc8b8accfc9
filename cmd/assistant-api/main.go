// Package main provides the assistant-api server.
//
// This is the HTTP front end of the flight assistant: it answers aviation
// weather and runway questions through an agentic tool loop and verifies
// every crosswind figure before it leaves the service.
//
// Usage:
//
//	assistant-api [options]
//
// Options:
//
//	-addr ADDR          Listen address (default: :8000, env: LISTEN_ADDR)
//	-audit-log PATH     Append-only audit log (default: logs/trace.jsonl, env: AUDIT_LOG_PATH)
//	-llm-backend NAME   Decision backend: pattern or external (env: LLM_BACKEND)
//
// Remaining settings come from the environment; see internal/config.
//
// API Endpoints:
//
//	POST /query
//	    Answer a query. Body: {"query": "crosswind for landing at KDEN"}
//
//	POST /query/stream
//	    Same, streaming NDJSON progress events ending with a final event.
//
//	GET /health
//	    Liveness check.
//
//	GET /health/weather
//	    Reports 503 when live weather is unavailable.
//
//	GET /tools
//	    Lists the registered tools and their parameters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"flight_assistant/internal/agent"
	"flight_assistant/internal/analytics"
	"flight_assistant/internal/api"
	"flight_assistant/internal/config"
	"flight_assistant/internal/flightlog"
	"flight_assistant/internal/guardrail"
	"flight_assistant/internal/metar"
	"flight_assistant/internal/specs"
	"flight_assistant/internal/tools"
	"flight_assistant/internal/trace"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.ListenAddr, "Listen address")
	auditPath := flag.String("audit-log", cfg.AuditLogPath, "Append-only audit log path")
	backend := flag.String("llm-backend", cfg.LLMBackend, "Decision backend: pattern or external")
	flag.Parse()

	ctx := context.Background()

	sink, err := trace.NewSink(*auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audit log: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	if cfg.NATSURL != "" {
		if err := sink.ConnectNATS(cfg.NATSURL); err != nil {
			// Audit mirroring is best effort; the file sink still works.
			log.Printf("NATS mirror unavailable: %v", err)
		} else {
			log.Printf("Audit records mirrored to NATS at %s", cfg.NATSURL)
		}
	}

	store, err := specs.Open(cfg.SpecsDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening specs database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var flightLog flightlog.Writer = flightlog.NewMemoryWriter()
	if cfg.PostgresDSN != "" {
		pg, err := flightlog.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening PostgreSQL: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		flightLog = pg
	}

	var outcomes *analytics.Sink
	if cfg.ClickHouseHost != "" {
		outcomes, err = analytics.Open(ctx, analytics.Config{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening ClickHouse: %v\n", err)
			os.Exit(1)
		}
		defer outcomes.Close()
	}

	var upstream metar.Fetcher
	if cfg.WeatherURL != "" {
		upstream = metar.NewHTTPFetcher(cfg.WeatherURL, cfg.WeatherToken, cfg.WeatherTimeout)
		log.Printf("Live weather from %s", cfg.WeatherURL)
	} else {
		log.Printf("No weather upstream configured; serving fallback data")
	}
	weather := metar.NewClient(upstream, sink)

	registry := tools.NewBuiltinRegistry(tools.Deps{
		Weather:   weather,
		Specs:     store,
		FlightLog: flightLog,
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

	newAgent := func() *agent.Agent {
		var decider agent.Decider = &agent.PatternDecider{}
		if *backend == config.BackendExternal {
			decider = agent.NewExternalDecider(cfg.LLMURL, cfg.LLMModel, cfg.LLMTimeout, registry.Catalog())
		}
		a := agent.New(registry, decider, verifier, sink)
		a.Analytics = outcomes
		a.MaxLoops = cfg.MaxLoops
		a.Deadline = cfg.RequestDeadline
		return a
	}

	server := api.NewServer(registry, weather, newAgent, api.Config{Addr: *addr})
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
