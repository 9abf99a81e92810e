// Package llm abstracts model providers behind a narrow generation
// capability and routes each request to a text or a vision model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnsupported indicates a provider does not implement an optional
// capability such as embeddings.
var ErrUnsupported = errors.New("capability not supported by provider")

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks content authored by the caller.
	RoleUser Role = "user"
	// RoleAssistant marks content authored by the model.
	RoleAssistant Role = "assistant"
)

// Part is one piece of message content: either text or inline binary data
// such as an image.
type Part struct {
	// Text is the textual content, if this is a text part.
	Text string `json:"text,omitempty"`
	// MimeType is the media type for binary parts (e.g. image/png).
	MimeType string `json:"mime_type,omitempty"`
	// Data is the raw bytes for binary parts.
	Data []byte `json:"data,omitempty"`
}

// IsImage returns true if the part carries image data.
func (p Part) IsImage() bool {
	return strings.HasPrefix(p.MimeType, "image/")
}

// Message is one turn of a conversation.
type Message struct {
	// Role is the message author.
	Role Role `json:"role"`
	// Parts is the ordered message content.
	Parts []Part `json:"parts"`
}

// Request is a structured generation request. The router never mutates a
// request; providers must treat it as read-only.
type Request struct {
	// System is the system prompt.
	System string `json:"system,omitempty"`
	// Messages is the conversation so far.
	Messages []Message `json:"messages"`
	// Model optionally overrides the generator's default model.
	Model string `json:"model,omitempty"`
	// Temperature is the sampling temperature in [0,1].
	Temperature float64 `json:"temperature"`
	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// ActiveTools lists tool names available on this turn; used by
	// tool-based vision routing.
	ActiveTools []string `json:"active_tools,omitempty"`
}

// Text concatenates every text part of the request, used for
// vocabulary-based routing decisions.
func (r *Request) Text() string {
	var sb strings.Builder
	sb.WriteString(r.System)
	for _, m := range r.Messages {
		for _, p := range m.Parts {
			if p.Text != "" {
				sb.WriteString(" ")
				sb.WriteString(p.Text)
			}
		}
	}
	return sb.String()
}

// HasImageParts returns true if any message part carries image data.
func (r *Request) HasImageParts() bool {
	for _, m := range r.Messages {
		for _, p := range m.Parts {
			if p.IsImage() {
				return true
			}
		}
	}
	return false
}

// Response is a completed generation.
type Response struct {
	// Text is the generated content.
	Text string `json:"text"`
	// Model is the model that produced the response.
	Model string `json:"model"`
	// InputTokens is the prompt token count reported by the provider.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the completion token count.
	OutputTokens int64 `json:"output_tokens"`
	// StopReason is the provider's termination reason.
	StopReason string `json:"stop_reason,omitempty"`
}

// StreamChunk is one increment of a streaming generation. A chunk with a
// non-nil Err terminates the stream.
type StreamChunk struct {
	// Text is the incremental content.
	Text string
	// Done marks the final chunk.
	Done bool
	// Err reports a mid-stream failure.
	Err error
}

// Generator produces responses from a single underlying model.
// Implementations must be safe for concurrent use.
type Generator interface {
	// Generate performs a single-shot completion.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// GenerateStream performs a streaming completion. The returned channel
	// is closed after the final chunk.
	GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error)
	// CountTokens returns the prompt token count for a request.
	CountTokens(ctx context.Context, req *Request) (int64, error)
	// Embed returns an embedding vector for the given text, or
	// ErrUnsupported when the provider has no embedding capability.
	Embed(ctx context.Context, text string) ([]float64, error)
	// ModelID returns the provider's model identifier.
	ModelID() string
}

// Constructor builds a Generator for a model identifier.
type Constructor func(model string) (Generator, error)

// registry maps provider names to constructors. Plain map under a lock,
// populated by provider packages at init time or by hosts.
var (
	regMu        sync.RWMutex
	constructors = make(map[string]Constructor)
)

// RegisterProvider installs a constructor under a provider name.
// Later registrations replace earlier ones.
func RegisterProvider(name string, ctor Constructor) {
	regMu.Lock()
	defer regMu.Unlock()
	constructors[name] = ctor
}

// NewGenerator builds a generator for the named provider and model.
func NewGenerator(provider, model string) (Generator, error) {
	regMu.RLock()
	ctor, ok := constructors[provider]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return ctor(model)
}

// Providers returns the registered provider names.
func Providers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(constructors))
	for name := range constructors {
		out = append(out, name)
	}
	return out
}
