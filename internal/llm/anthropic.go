package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// ProviderAnthropic is the registry name of the Anthropic provider.
const ProviderAnthropic = "anthropic"

func init() {
	RegisterProvider(ProviderAnthropic, func(model string) (Generator, error) {
		return NewAnthropicGenerator(AnthropicConfig{Model: model})
	})
}

// AnthropicConfig configures an Anthropic-backed generator.
type AnthropicConfig struct {
	// Model is the model identifier (e.g. claude-sonnet-4-20250514).
	Model string
	// APIKey is the Anthropic API key. Empty falls back to the
	// ANTHROPIC_API_KEY environment variable.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool
	// AWSRegion is the Bedrock region (e.g. us-west-2).
	AWSRegion string
	// AWSProfile is the optional shared-config profile name.
	AWSProfile string
}

// AnthropicGenerator implements Generator over the Anthropic Messages API.
// The same implementation serves both text and vision requests; vision
// requests simply carry image blocks.
type AnthropicGenerator struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewAnthropicGenerator creates a generator for the configured model.
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		ctx := context.Background()
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &AnthropicGenerator{
		inner: anthropic.NewClient(opts...),
		model: model,
	}, nil
}

// ModelID returns the configured model identifier.
func (g *AnthropicGenerator) ModelID() string {
	return string(g.model)
}

// Generate performs a single-shot completion.
func (g *AnthropicGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	params := g.buildParams(req)
	msg, err := g.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &Response{
		Text:         text,
		Model:        string(msg.Model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		StopReason:   string(msg.StopReason),
	}, nil
}

// GenerateStream performs a streaming completion, emitting incremental text
// chunks on the returned channel.
func (g *AnthropicGenerator) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	params := g.buildParams(req)
	stream := g.inner.Messages.NewStreaming(ctx, params)

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					select {
					case out <- StreamChunk{Text: delta.Text}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Err: fmt.Errorf("anthropic stream: %w", err)}
			return
		}
		out <- StreamChunk{Done: true}
	}()
	return out, nil
}

// CountTokens returns the prompt token count for a request.
// The system prompt is folded into the message list for counting.
func (g *AnthropicGenerator) CountTokens(ctx context.Context, req *Request) (int64, error) {
	msgs := g.buildMessages(req)
	if req.System != "" {
		msgs = append([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.System)),
		}, msgs...)
	}
	res, err := g.inner.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    g.resolveModel(req),
		Messages: msgs,
	})
	if err != nil {
		return 0, fmt.Errorf("anthropic count tokens: %w", err)
	}
	return res.InputTokens, nil
}

// Embed is not supported by the Anthropic API.
func (g *AnthropicGenerator) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, ErrUnsupported
}

// resolveModel returns the request's model override or the default.
func (g *AnthropicGenerator) resolveModel(req *Request) anthropic.Model {
	if req.Model != "" {
		return anthropic.Model(req.Model)
	}
	return g.model
}

// buildParams converts a Request into Messages API parameters.
func (g *AnthropicGenerator) buildParams(req *Request) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:       g.resolveModel(req),
		MaxTokens:   maxTokens,
		Messages:    g.buildMessages(req),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// buildMessages converts request messages into API message params,
// encoding image parts as base64 image blocks.
func (g *AnthropicGenerator) buildMessages(req *Request) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, p := range m.Parts {
			if p.IsImage() {
				encoded := base64.StdEncoding.EncodeToString(p.Data)
				blocks = append(blocks, anthropic.NewImageBlockBase64(p.MimeType, encoded))
				continue
			}
			if p.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(p.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(blocks...))
		}
	}
	return msgs
}
