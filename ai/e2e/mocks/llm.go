// Package mocks provides configurable in-memory backends for pipeline tests.
package mocks

import (
	"context"
	"encoding/json"

	"github.com/hrygo/obsrag/ai/core/llm"
	"github.com/hrygo/obsrag/ai/suggest"
)

// MockChat is a configurable mock of the fallback chat backend.
// MockChat 是可配置的 Mock 聊天后端，用于测试。
type MockChat struct {
	reply string
	stats *llm.LLMCallStats
	err   error

	// Calls counts ChatJSON invocations.
	Calls int
	// LastPrompt holds the most recent user message.
	LastPrompt string
}

// NewMockChat creates a MockChat returning an empty decision by default.
// NewMockChat 创建一个默认返回空决策的 MockChat。
func NewMockChat() *MockChat {
	m := &MockChat{
		stats: &llm.LLMCallStats{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		},
	}
	return m.WithDecision(nil, nil, "no preference")
}

// WithDecision presets a well-formed tag decision reply.
// WithDecision 预设格式正确的标签决策响应。
func (m *MockChat) WithDecision(existing, fresh []string, reasoning string) *MockChat {
	raw, _ := json.Marshal(suggest.TagDecision{
		ExistingTags: existing,
		NewTags:      fresh,
		Reasoning:    reasoning,
	})
	m.reply = string(raw)
	m.err = nil
	return m
}

// WithReply presets a raw reply, useful for malformed output scenarios.
// WithReply 预设原始响应文本，用于格式错误的场景。
func (m *MockChat) WithReply(reply string) *MockChat {
	m.reply = reply
	m.err = nil
	return m
}

// WithError makes every call fail.
// WithError 使每次调用都失败。
func (m *MockChat) WithError(err error) *MockChat {
	m.err = err
	return m
}

// ChatJSON implements the suggest.ChatCompleter interface.
func (m *MockChat) ChatJSON(_ context.Context, messages []llm.Message, _ *llm.ResponseSchema) (string, *llm.LLMCallStats, error) {
	m.Calls++
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			m.LastPrompt = messages[i].Content
			break
		}
	}
	if m.err != nil {
		return "", nil, m.err
	}
	return m.reply, m.stats, nil
}

var _ suggest.ChatCompleter = (*MockChat)(nil)
