package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/obsrag/ai/core/llm"
	"github.com/hrygo/obsrag/ai/internal/strutil"
)

const (
	// fallbackTimeout bounds the Layer-2 model call. The fallback is an
	// enrichment step, not a dependency; a slow model must not stall the
	// request past what an interactive caller tolerates.
	fallbackTimeout = 30 * time.Second

	maxContextDocs = 5
)

const fallbackSystemPrompt = `You are a tagging assistant for a personal knowledge base.
Given a note, choose 3-6 tags that capture its topics.

Rules:
- Strongly prefer tags from the known tag list. Only invent a new tag when no known tag fits a clear topic of the note.
- New tags are lowercase, hyphen-separated, singular (e.g. "graph-theory").
- If an original filename is given, you may derive at most one course or context tag from it.
- Respond with JSON only, no prose, in exactly this shape:
{"existing_tags": ["..."], "new_tags": ["..."], "reasoning": "one sentence"}`

// TagDecision is the parsed Layer-2 output: which known tags the model
// picked, which tags it invented, and why.
type TagDecision struct {
	ExistingTags []string `json:"existing_tags"`
	NewTags      []string `json:"new_tags"`
	Reasoning    string   `json:"reasoning"`
}

// decisionSchema constrains the fallback reply for providers that honor
// structured output. Providers that ignore it still get the JSON-only
// instruction from the system prompt.
var decisionSchema = &llm.ResponseSchema{
	Name: "tag_decision",
	Schema: &llm.JSONSchema{
		Type: "object",
		Properties: map[string]*llm.JSONSchema{
			"existing_tags": {
				Type:        "array",
				Items:       &llm.JSONSchema{Type: "string"},
				Description: "Tags chosen from the known tag list",
			},
			"new_tags": {
				Type:        "array",
				Items:       &llm.JSONSchema{Type: "string"},
				Description: "Invented tags, lowercase hyphen-separated",
			},
			"reasoning": {
				Type:        "string",
				Description: "One sentence explaining the choice",
			},
		},
		Required: []string{"existing_tags", "new_tags", "reasoning"},
	},
}

// runFallback performs the Layer-2 model call. It never fails the request:
// call and parse errors are logged and counted, and nil is returned so the
// caller serves the Layer-1 result unchanged.
func (e *Engine) runFallback(ctx context.Context, requestID string, req Request, tags []Candidate) *TagDecision {
	if e.llm == nil {
		slog.DebugContext(ctx, "suggest_fallback_skipped", "request_id", requestID, "reason", "llm_not_configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, fallbackTimeout)
	defer cancel()

	prompt := e.buildFallbackPrompt(req, tags)
	messages := []llm.Message{
		llm.SystemPrompt(fallbackSystemPrompt),
		llm.UserMessage(prompt),
	}

	reply, stats, err := e.llm.ChatJSON(ctx, messages, decisionSchema)
	if err != nil {
		callErr := &LLMCallError{Err: err}
		slog.WarnContext(ctx, "suggest_fallback_call_failed", "request_id", requestID, "error", callErr)
		e.recordLLMFailure("call")
		return nil
	}
	e.recordLLMTokens(stats)

	decision, perr := parseTagDecision(reply)
	if perr != nil {
		slog.WarnContext(ctx, "suggest_fallback_parse_failed", "request_id", requestID, "error", perr)
		e.recordLLMFailure("parse")
		return nil
	}
	return decision
}

// buildFallbackPrompt assembles the user message: the note text capped at the
// configured rune limit, an optional filename hint, the known tags annotated
// with the documents that use them, and what Layer 1 already found.
func (e *Engine) buildFallbackPrompt(req Request, tags []Candidate) string {
	var sb strings.Builder

	sb.WriteString("Note content:\n")
	sb.WriteString(strutil.Truncate(req.Text, e.cfg.PromptTextLimit))
	sb.WriteString("\n")

	if req.Filename != "" {
		fmt.Fprintf(&sb, "\nOriginal filename: %s\n", req.Filename)
	}

	sb.WriteString("\nKnown tags:\n")
	names := e.registry.Names()
	if len(names) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, name := range names {
		docs := e.registry.ContextFor(name)
		if len(docs) > maxContextDocs {
			docs = docs[:maxContextDocs]
		}
		if len(docs) > 0 {
			fmt.Fprintf(&sb, "- %s (used by: %s)\n", name, strings.Join(docs, ", "))
		} else {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}

	sb.WriteString("\nTags already suggested by retrieval:\n")
	if len(tags) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, c := range tags {
		fmt.Fprintf(&sb, "- %s\n", c.Name)
	}

	return sb.String()
}

// parseTagDecision extracts and decodes the JSON object from the model reply.
// Models wrap JSON in code fences or prose often enough that a strict
// json.Unmarshal of the raw reply would reject valid answers.
func parseTagDecision(reply string) (*TagDecision, *LLMParseError) {
	payload := extractJSON(reply)
	if payload == "" {
		return nil, &LLMParseError{Raw: reply, Err: fmt.Errorf("no JSON object found in reply")}
	}

	var decision TagDecision
	if err := json.Unmarshal([]byte(payload), &decision); err != nil {
		return nil, &LLMParseError{Raw: reply, Err: err}
	}

	decision.ExistingTags = cleanTagList(decision.ExistingTags)
	decision.NewTags = cleanTagList(decision.NewTags)
	decision.Reasoning = strings.TrimSpace(decision.Reasoning)
	return &decision, nil
}

// extractJSON returns the first balanced top-level JSON object in s, or "".
// Brace counting is enough here; the decision schema has no braces inside
// string values worth worrying about, and a reply broken enough to trip this
// up is a parse failure anyway.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

func cleanTagList(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
