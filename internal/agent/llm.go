package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flight_assistant/internal/tools"
)

const systemPrompt = `You are a flight assistant for aviation weather and runway operations.
Use the provided tools to fetch METAR data and select runways before answering.
Never invent wind or crosswind figures; report only values returned by tools.
State crosswind components in knots with one decimal place.`

type chatFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type chatToolCall struct {
	Function chatFunction `json:"function"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolDecl struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Tools    []chatToolDecl `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// ExternalDecider delegates decisions to an Ollama-compatible chat
// endpoint. A failed or malformed exchange is retried once; after that the
// decider downgrades to the deterministic pattern decider for the rest of
// the run so the request always completes.
type ExternalDecider struct {
	URL    string
	Model  string
	Client *http.Client

	toolDecls  []chatToolDecl
	downgraded bool
	fallback   PatternDecider
}

// NewExternalDecider builds a decider for the given endpoint, advertising
// the registry catalog as callable tools.
func NewExternalDecider(url, model string, timeout time.Duration, catalog []tools.Info) *ExternalDecider {
	decls := make([]chatToolDecl, 0, len(catalog))
	for _, info := range catalog {
		var d chatToolDecl
		d.Type = "function"
		d.Function.Name = info.Name
		d.Function.Description = info.Description
		d.Function.Parameters = paramSchema(info.Parameters)
		decls = append(decls, d)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ExternalDecider{
		URL:       url,
		Model:     model,
		Client:    &http.Client{Timeout: timeout},
		toolDecls: decls,
	}
}

// Decide implements Decider.
func (d *ExternalDecider) Decide(ctx context.Context, st *State) (Decision, error) {
	if d.downgraded {
		return d.fallback.Decide(ctx, st)
	}

	dec, err := d.chat(ctx, st)
	if err != nil {
		dec, err = d.chat(ctx, st)
	}
	if err != nil {
		d.downgraded = true
		return d.fallback.Decide(ctx, st)
	}
	return dec, nil
}

func (d *ExternalDecider) chat(ctx context.Context, st *State) (Decision, error) {
	body, err := json.Marshal(chatRequest{
		Model:    d.Model,
		Messages: d.messages(st),
		Tools:    d.toolDecls,
		Stream:   false,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("chat request: status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Decision{}, fmt.Errorf("decode chat response: %w", err)
	}

	if len(out.Message.ToolCalls) > 0 {
		call := out.Message.ToolCalls[0].Function
		if call.Name == "" {
			return Decision{}, fmt.Errorf("chat response: tool call without a name")
		}
		return Decision{
			Kind:    DecideTool,
			Thought: out.Message.Content,
			Tool:    call.Name,
			Args:    tools.Args(call.Arguments),
		}, nil
	}
	if out.Message.Content != "" {
		return Decision{Kind: DecideFinal, Text: out.Message.Content}, nil
	}
	return Decision{}, fmt.Errorf("chat response: neither content nor tool calls")
}

// messages replays the loop transcript as a chat history.
func (d *ExternalDecider) messages(st *State) []chatMessage {
	msgs := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: st.Query},
	}
	for _, step := range st.Steps {
		msgs = append(msgs, chatMessage{
			Role: "assistant",
			ToolCalls: []chatToolCall{
				{Function: chatFunction{Name: step.Tool, Arguments: map[string]any(step.Args)}},
			},
		})
		content := step.Err
		if content == "" {
			if raw, err := json.Marshal(step.Result); err == nil {
				content = string(raw)
			}
		}
		msgs = append(msgs, chatMessage{Role: "tool", Content: content})
	}
	return msgs
}

func paramSchema(params []tools.Param) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
