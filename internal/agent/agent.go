// Package agent runs the think/act/observe/decide loop over the tool
// registry and pushes every candidate answer through the guardrail
// pipeline before it reaches the caller.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"flight_assistant/internal/analytics"
	"flight_assistant/internal/guardrail"
	"flight_assistant/internal/metar"
	"flight_assistant/internal/runway"
	"flight_assistant/internal/tools"
	"flight_assistant/internal/trace"
)

// Step is one completed loop iteration.
type Step struct {
	Thought string
	Tool    string
	Args    tools.Args
	Result  any
	Err     string
}

// State is the working memory of one agent run. TrackedMetar and
// TrackedRunway hold the most recent observations; later tool results
// overwrite earlier ones.
type State struct {
	Query            string
	Location         string
	Steps            []Step
	TrackedMetar     *metar.Record
	TrackedRunway    *float64
	TrackedSelection *runway.Selection
	Loop             int
}

func (st *State) toolFailed(name string) bool {
	for _, s := range st.Steps {
		if s.Tool == name && s.Err != "" {
			return true
		}
	}
	return false
}

// Landing is the crosswind block attached to landing-related responses.
type Landing struct {
	RunwayNumber  string  `json:"runway_number"`
	RunwayHeading int     `json:"runway_heading"`
	CrosswindKt   float64 `json:"crosswind_kt"`
	HeadwindKt    float64 `json:"headwind_kt"`
}

// ToolCall is the per-call record exposed in response details.
type ToolCall struct {
	Tool  string     `json:"tool"`
	Args  tools.Args `json:"args"`
	Error string     `json:"error,omitempty"`
}

// Details carries loop diagnostics alongside the answer.
type Details struct {
	Verification *guardrail.Result `json:"verification,omitempty"`
	Loops        int               `json:"loops"`
	ToolCalls    []ToolCall        `json:"tool_calls"`
}

// Response is the terminal answer for one query.
type Response struct {
	ResponseType    string        `json:"response_type"` // metar or text
	Metar           *metar.Record `json:"metar,omitempty"`
	Landing         *Landing      `json:"landing,omitempty"`
	TextResponse    string        `json:"text_response,omitempty"`
	GuardrailStatus string        `json:"guardrail_status"`
	IsFallback      bool          `json:"is_fallback"`
	Canceled        bool          `json:"canceled,omitempty"`
	Details         Details       `json:"details"`
}

// DefaultMaxLoops bounds the think/act loop.
const DefaultMaxLoops = 8

// Agent wires the decider, tools, guardrail, and audit sink together.
// Construct one per request; it is not safe for concurrent runs.
type Agent struct {
	Registry  *tools.Registry
	Decider   Decider
	Verifier  *guardrail.Verifier
	Sink      *trace.Sink
	Analytics *analytics.Sink
	MaxLoops  int
	Deadline  time.Duration

	// Optional caller context carried into the audit trail.
	UserID   string
	Location string
}

// New builds an agent with default loop limits.
func New(reg *tools.Registry, dec Decider, ver *guardrail.Verifier, sink *trace.Sink) *Agent {
	return &Agent{
		Registry: reg,
		Decider:  dec,
		Verifier: ver,
		Sink:     sink,
		MaxLoops: DefaultMaxLoops,
		Deadline: 30 * time.Second,
	}
}

// Run answers one query. The only errors returned are client errors such
// as an invalid station code; everything else degrades into the response
// itself (fallback data, safe-fail text, cancellation markers).
func (a *Agent) Run(ctx context.Context, query string) (*Response, error) {
	return a.execute(ctx, query, nil)
}

func (a *Agent) execute(ctx context.Context, query string, emit func(Event)) (*Response, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	start := time.Now()
	maxLoops := a.MaxLoops
	if maxLoops <= 0 {
		maxLoops = DefaultMaxLoops
	}
	if a.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Deadline)
		defer cancel()
	}

	st := &State{Query: query, Location: a.Location}
	var draft string
	done := false

	for !done {
		if ctx.Err() != nil {
			return a.canceledResponse(st), nil
		}
		if st.Loop >= maxLoops {
			// Out of loops: summarize whatever was observed.
			draft = composeWeatherAnswer(st, classify(st.Query) == classLanding)
			break
		}

		dec, err := a.Decider.Decide(ctx, st)
		if err != nil {
			// The deterministic decider always produces a decision.
			dec, _ = (&PatternDecider{}).Decide(ctx, st)
		}
		if dec.Thought != "" {
			emit(newEvent(EventThought, map[string]any{"content": dec.Thought}))
		}

		switch dec.Kind {
		case DecideTool:
			st.Loop++
			emit(newEvent(EventToolCall, map[string]any{"tool": dec.Tool, "args": dec.Args}))
			result, terr := a.Registry.Dispatch(ctx, dec.Tool, dec.Args)
			step := Step{Thought: dec.Thought, Tool: dec.Tool, Args: dec.Args}
			if terr != nil {
				if errors.Is(terr, metar.ErrInvalidStation) {
					return nil, terr
				}
				step.Err = terr.Error()
				emit(newEvent(EventToolResult, map[string]any{"tool": dec.Tool, "error": terr.Error()}))
			} else {
				step.Result = result
				a.track(st, result)
				emit(newEvent(EventToolResult, map[string]any{"tool": dec.Tool, "result": result}))
			}
			st.Steps = append(st.Steps, step)
		case DecideFinal:
			draft = dec.Text
			done = true
		case DecideAbort:
			draft = fmt.Sprintf("I was unable to complete the request: %s.", dec.Reason)
			done = true
		default:
			draft = "I was unable to decide on a next step for this request."
			done = true
		}
	}

	if ctx.Err() != nil {
		return a.canceledResponse(st), nil
	}
	emit(newEvent(EventDraft, map[string]any{"text": draft}))
	return a.respond(ctx, st, draft, emit, start), nil
}

// track stores observations the verifier needs later. Later observations
// of the same kind replace earlier ones.
func (a *Agent) track(st *State, result any) {
	switch v := result.(type) {
	case *metar.Record:
		st.TrackedMetar = v
	case *runway.Selection:
		st.TrackedSelection = v
		h := float64(v.HeadingDeg)
		st.TrackedRunway = &h
	}
}

// respond runs the guardrail pipeline: verify the draft, reflect once on
// failure, and fall back to the conservative answer when the corrected
// draft still fails. Exactly one audit record is written per response.
func (a *Agent) respond(ctx context.Context, st *State, draft string, emit func(Event), start time.Time) *Response {
	ver := a.Verifier.Verify(draft, st.TrackedMetar, st.TrackedRunway)

	logger := trace.NewLogger(trace.CategoryGuardrailPass)
	logger.SetContext("query", st.Query)
	if a.UserID != "" {
		logger.SetContext("user_id", a.UserID)
	}
	if a.Location != "" {
		logger.SetContext("location", a.Location)
	}
	if st.TrackedMetar != nil {
		logger.SetContext("airport", st.TrackedMetar.Station)
		logger.SetContext("metar", st.TrackedMetar.Raw)
		logger.SetContext("wind", st.TrackedMetar.WindString())
	}
	if st.TrackedRunway != nil {
		logger.SetContext("runway_heading", *st.TrackedRunway)
	}
	logger.LogInput(map[string]any{"draft": draft})
	logger.LogOperation(map[string]any{"verification": ver})
	emit(guardrailEvent(ver, 1))

	finalText := draft
	status := ver.Status
	isFallback := false
	finalVer := ver

	if ver.Status == guardrail.StatusFailed {
		logger.SetCategory(trace.CategoryGuardrailFail)
		emit(newEvent(EventReflection, map[string]any{"prompt": ver.ReflectionPrompt}))

		corrected := reflectedAnswer(st, ver)
		logger.LogTransformation(map[string]any{
			"reflection_prompt": ver.ReflectionPrompt,
			"corrected_draft":   corrected,
		})

		rever := a.Verifier.Verify(corrected, st.TrackedMetar, st.TrackedRunway)
		logger.LogOperation(map[string]any{"verification_after_reflection": rever})
		emit(guardrailEvent(rever, 2))
		finalVer = rever

		if rever.Passed() {
			logger.SetCategory(trace.CategoryReflection)
			finalText = corrected
			status = guardrail.StatusPassed
		} else {
			logger.SetCategory(trace.CategorySafeFail)
			var station, windStr string
			if st.TrackedMetar != nil {
				station = st.TrackedMetar.Station
				windStr = st.TrackedMetar.WindString()
			}
			finalText = guardrail.SafeFailText(station, windStr, ver.Truth, logger.TraceID())
			status = guardrail.StatusFailed
			isFallback = true
			emit(newEvent(EventSafeFail, map[string]any{"text": finalText, "trace_id": logger.TraceID()}))
		}
	}

	resp := a.buildResponse(st, finalText, status, isFallback, finalVer)
	logger.LogResult(map[string]any{
		"guardrail_status": status,
		"is_fallback":      isFallback,
		"response_type":    resp.ResponseType,
	})
	a.Sink.Write(logger.Record())

	a.Analytics.Record(context.WithoutCancel(ctx), analytics.Outcome{
		Timestamp:       start.UTC(),
		Query:           st.Query,
		ResponseType:    resp.ResponseType,
		GuardrailStatus: status,
		IsFallback:      isFallback,
		Loops:           st.Loop,
		ToolCalls:       len(st.Steps),
		LatencyMs:       time.Since(start).Milliseconds(),
		TraceID:         logger.TraceID(),
		UserID:          a.UserID,
	})
	return resp
}

func (a *Agent) buildResponse(st *State, text, status string, isFallback bool, ver *guardrail.Result) *Response {
	resp := &Response{
		ResponseType:    "text",
		TextResponse:    text,
		GuardrailStatus: status,
		IsFallback:      isFallback,
		Details: Details{
			Verification: ver,
			Loops:        st.Loop,
			ToolCalls:    toolCalls(st),
		},
	}
	if st.TrackedMetar != nil && st.TrackedMetar.Raw != "" {
		resp.ResponseType = "metar"
		resp.Metar = st.TrackedMetar
	}
	if st.TrackedSelection != nil && st.TrackedMetar != nil && classify(st.Query) == classLanding {
		sel := st.TrackedSelection
		resp.Landing = &Landing{
			RunwayNumber:  sel.Designator,
			RunwayHeading: sel.HeadingDeg,
			CrosswindKt:   round2(sel.CrosswindKt),
			HeadwindKt:    round2(sel.HeadwindKt),
		}
	}
	return resp
}

func (a *Agent) canceledResponse(st *State) *Response {
	return &Response{
		ResponseType:    "text",
		TextResponse:    "Request canceled before completion.",
		GuardrailStatus: guardrail.StatusSkipped,
		Canceled:        true,
		Details: Details{
			Loops:     st.Loop,
			ToolCalls: toolCalls(st),
		},
	}
}

func toolCalls(st *State) []ToolCall {
	out := make([]ToolCall, 0, len(st.Steps))
	for _, s := range st.Steps {
		out = append(out, ToolCall{Tool: s.Tool, Args: s.Args, Error: s.Err})
	}
	return out
}

// reflectedAnswer rewrites a failed draft around the verified figure. The
// verified crosswind leads the text so the re-verification reads it back.
func reflectedAnswer(st *State, ver *guardrail.Result) string {
	truth := *ver.Truth
	msg := fmt.Sprintf("Correction: the verified crosswind is %.2f kt", truth)
	if st.TrackedRunway != nil {
		msg += fmt.Sprintf(" for runway heading %.0f°", *st.TrackedRunway)
	}
	if st.TrackedMetar != nil {
		msg += fmt.Sprintf(" with wind %s", st.TrackedMetar.WindString())
	}
	msg += "."
	if formula, ok := ver.Calculation["formula"].(string); ok {
		msg += fmt.Sprintf(" Recalculated as %s = %.2f kt.", formula, truth)
	}
	msg += " Please disregard the earlier figure."
	return msg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
