package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Strategy selects how the router decides between text and vision models.
type Strategy string

const (
	// StrategyExplicit uses vision only for enumerated vision phrases.
	StrategyExplicit Strategy = "explicit"
	// StrategyToolBased uses vision when a vision tool is active.
	StrategyToolBased Strategy = "tool-based"
	// StrategyAuto combines image parts, tools, and vocabulary signals.
	StrategyAuto Strategy = "auto"
)

// Valid returns true for a known routing strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyExplicit, StrategyToolBased, StrategyAuto:
		return true
	}
	return false
}

// visionPhrases trigger vision routing under the explicit strategy.
var visionPhrases = []string{
	"analyze this image",
	"describe the screenshot",
	"describe this image",
	"look at this image",
	"what is in this image",
	"read this screenshot",
}

// visionTools are tool names whose presence implies visual output.
var visionTools = map[string]bool{
	"screenshot":         true,
	"snapshot":           true,
	"capture":            true,
	"browser_screenshot": true,
}

// browserWords and screenshotWords are the vocabulary signals for the
// auto strategy.
var browserWords = []string{"webpage", "browser", "ui", "dom", "element", "viewport", "css"}

var screenshotWords = []string{"screenshot", "screen capture", "visual diff", "rendered page"}

// RouterConfig configures a ContentRouter.
type RouterConfig struct {
	// Strategy picks the routing decision mode. Defaults to auto.
	Strategy Strategy
	// FallbackToText enables a single vision-to-text retry on vision
	// failure. The reverse direction is never allowed.
	FallbackToText bool
}

// ContentRouter sends each request to a text model or a vision model and
// owns the fallback policy. It never mutates requests.
type ContentRouter struct {
	text           Generator
	vision         Generator
	secondaries    []Generator
	strategy       Strategy
	fallbackToText bool
}

// NewContentRouter builds a router over a text generator and an optional
// vision generator. With no vision generator every request goes to text.
func NewContentRouter(text, vision Generator, cfg RouterConfig) (*ContentRouter, error) {
	if text == nil {
		return nil, fmt.Errorf("content router requires a text generator")
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyAuto
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown routing strategy %q", strategy)
	}
	return &ContentRouter{
		text:           text,
		vision:         vision,
		strategy:       strategy,
		fallbackToText: cfg.FallbackToText,
	}, nil
}

// AddFallback appends a secondary generator to the ordered fallback chain
// used when the primary model is exhausted.
func (cr *ContentRouter) AddFallback(g Generator) {
	cr.secondaries = append(cr.secondaries, g)
}

// TextModel returns the text model identifier.
func (cr *ContentRouter) TextModel() string {
	return cr.text.ModelID()
}

// VisionModel returns the vision model identifier, or empty when no vision
// generator is configured.
func (cr *ContentRouter) VisionModel() string {
	if cr.vision == nil {
		return ""
	}
	return cr.vision.ModelID()
}

// Info describes the router's current configuration.
type Info struct {
	// Strategy is the active routing strategy.
	Strategy Strategy `json:"strategy"`
	// TextModel is the primary text model identifier.
	TextModel string `json:"text_model"`
	// VisionModel is the vision model identifier, if any.
	VisionModel string `json:"vision_model,omitempty"`
	// FallbackModels lists the secondary chain in order.
	FallbackModels []string `json:"fallback_models,omitempty"`
	// FallbackToText reports whether vision failures retry on text.
	FallbackToText bool `json:"fallback_to_text"`
}

// Info returns the router configuration summary.
func (cr *ContentRouter) Info() Info {
	info := Info{
		Strategy:       cr.strategy,
		TextModel:      cr.TextModel(),
		VisionModel:    cr.VisionModel(),
		FallbackToText: cr.fallbackToText,
	}
	for _, g := range cr.secondaries {
		info.FallbackModels = append(info.FallbackModels, g.ModelID())
	}
	return info
}

// wantsVision applies the configured strategy to a request.
func (cr *ContentRouter) wantsVision(req *Request) bool {
	if cr.vision == nil {
		return false
	}
	text := strings.ToLower(req.Text())

	switch cr.strategy {
	case StrategyExplicit:
		for _, phrase := range visionPhrases {
			if strings.Contains(text, phrase) {
				return true
			}
		}
		return false

	case StrategyToolBased:
		return hasVisionTool(req.ActiveTools)

	default: // StrategyAuto
		if req.HasImageParts() {
			return true
		}
		if hasVisionTool(req.ActiveTools) {
			return true
		}
		words := tokenWords(text)
		for _, w := range browserWords {
			if words[w] {
				return true
			}
		}
		for _, w := range screenshotWords {
			if strings.Contains(w, " ") {
				if strings.Contains(text, w) {
					return true
				}
			} else if words[w] {
				return true
			}
		}
		return false
	}
}

func hasVisionTool(tools []string) bool {
	for _, t := range tools {
		if visionTools[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// tokenWords splits lowercased text into a word set.
func tokenWords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	}) {
		out[w] = true
	}
	return out
}

// Generate routes a request to the chosen model. A vision failure retries
// once on the text model when fallback is enabled; text failures never
// retry on vision.
func (cr *ContentRouter) Generate(ctx context.Context, req *Request) (*Response, error) {
	if cr.wantsVision(req) {
		resp, err := cr.vision.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !cr.fallbackToText {
			return nil, err
		}
		log.Printf("[llm] vision model %s failed, falling back to text: %v", cr.vision.ModelID(), err)
	}
	return cr.text.Generate(ctx, req)
}

// GenerateStream routes a streaming request. Vision stream setup failures
// fall back to the text model when enabled; mid-stream failures do not.
func (cr *ContentRouter) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	if cr.wantsVision(req) {
		ch, err := cr.vision.GenerateStream(ctx, req)
		if err == nil {
			return ch, nil
		}
		if !cr.fallbackToText {
			return nil, err
		}
		log.Printf("[llm] vision model %s failed to start stream, falling back to text: %v", cr.vision.ModelID(), err)
	}
	return cr.text.GenerateStream(ctx, req)
}

// GenerateWithVision forces the vision model regardless of strategy.
func (cr *ContentRouter) GenerateWithVision(ctx context.Context, req *Request) (*Response, error) {
	if cr.vision == nil {
		return nil, fmt.Errorf("no vision model configured")
	}
	resp, err := cr.vision.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !cr.fallbackToText {
		return nil, err
	}
	log.Printf("[llm] vision model %s failed, falling back to text: %v", cr.vision.ModelID(), err)
	return cr.text.Generate(ctx, req)
}

// CountTokens counts prompt tokens against the model the request would
// route to.
func (cr *ContentRouter) CountTokens(ctx context.Context, req *Request) (int64, error) {
	if cr.wantsVision(req) {
		return cr.vision.CountTokens(ctx, req)
	}
	return cr.text.CountTokens(ctx, req)
}

// Embed always uses the text model.
func (cr *ContentRouter) Embed(ctx context.Context, text string) ([]float64, error) {
	return cr.text.Embed(ctx, text)
}

// Fallback tries each secondary model in order, once, after the primary
// has been exhausted. It returns the first success or the last error.
func (cr *ContentRouter) Fallback(ctx context.Context, req *Request) (*Response, error) {
	if len(cr.secondaries) == 0 {
		return nil, fmt.Errorf("no fallback models configured")
	}
	var lastErr error
	for _, g := range cr.secondaries {
		resp, err := g.Generate(ctx, req)
		if err == nil {
			log.Printf("[llm] fallback model %s succeeded", g.ModelID())
			return resp, nil
		}
		log.Printf("[llm] fallback model %s failed: %v", g.ModelID(), err)
		lastErr = err
	}
	return nil, fmt.Errorf("all fallback models failed: %w", lastErr)
}
