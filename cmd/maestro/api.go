package main

import (
	"fmt"

	"github.com/tessellate-ai/maestro/internal/config"
	"github.com/tessellate-ai/maestro/internal/llm"
)

// buildModelRouter assembles the content router from the config document:
// a text generator, an optional vision generator, and the ordered fallback
// chain. All generators share the same credentials.
func buildModelRouter(cfg *config.Config) (*llm.ContentRouter, error) {
	if !cfg.Anthropic.UseBedrock {
		if _, err := config.GetAPIKey(cfg); err != nil {
			return nil, fmt.Errorf("%w\n\nSet it with:\n  export ANTHROPIC_API_KEY=your-key-here", err)
		}
	}

	base := llm.AnthropicConfig{
		APIKey:     cfg.Anthropic.APIKey,
		UseBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:  cfg.Anthropic.AWSRegion,
		AWSProfile: cfg.Anthropic.AWSProfile,
	}

	textCfg := base
	textCfg.Model = cfg.Router.TextModel
	text, err := llm.NewAnthropicGenerator(textCfg)
	if err != nil {
		return nil, fmt.Errorf("create text generator: %w", err)
	}

	var vision llm.Generator
	if cfg.Router.VisionModel != "" {
		visionCfg := base
		visionCfg.Model = cfg.Router.VisionModel
		v, err := llm.NewAnthropicGenerator(visionCfg)
		if err != nil {
			return nil, fmt.Errorf("create vision generator: %w", err)
		}
		vision = v
	}

	router, err := llm.NewContentRouter(text, vision, cfg.RouterSettings())
	if err != nil {
		return nil, err
	}
	for _, model := range cfg.Router.FallbackModels {
		fbCfg := base
		fbCfg.Model = model
		fb, err := llm.NewAnthropicGenerator(fbCfg)
		if err != nil {
			return nil, fmt.Errorf("create fallback generator %s: %w", model, err)
		}
		router.AddFallback(fb)
	}
	return router, nil
}
