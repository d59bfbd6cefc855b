package suggest

import "fmt"

// ConfigurationError reports a required external resource (tag registry,
// vector index) missing or unreachable at startup. It is fatal: callers must
// refuse to serve requests after seeing one.
type ConfigurationError struct {
	Resource string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration: %s unavailable", e.Resource)
	}
	return fmt.Sprintf("configuration: %s unavailable: %v", e.Resource, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RetrievalError reports a vector index failure mid-request. The request
// fails as a whole; partial Layer-1 output is never returned alongside an
// error.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// RerankError reports a cross-encoder failure mid-request. Reranking is
// mandatory for Layer-1 quality, so it fails the request the same way a
// retrieval error does.
type RerankError struct {
	Err error
}

func (e *RerankError) Error() string {
	return fmt.Sprintf("rerank failed: %v", e.Err)
}

func (e *RerankError) Unwrap() error {
	return e.Err
}

// LLMCallError reports a network or auth failure calling the model backend.
// The fallback is an optional enhancement: the engine logs the error and
// returns Layer-1 output unchanged.
type LLMCallError struct {
	Err error
}

func (e *LLMCallError) Error() string {
	return fmt.Sprintf("llm call failed: %v", e.Err)
}

func (e *LLMCallError) Unwrap() error {
	return e.Err
}

// LLMParseError reports a model response that could not be parsed into a
// TagDecision. Recovered silently like LLMCallError: Layer-2 output degrades
// to absent.
type LLMParseError struct {
	Raw string
	Err error
}

func (e *LLMParseError) Error() string {
	return fmt.Sprintf("llm response parse failed: %v", e.Err)
}

func (e *LLMParseError) Unwrap() error {
	return e.Err
}
