// Package registry loads and maintains the set of valid agent descriptors.
// Descriptors are markdown files with a YAML frontmatter header and a
// system-prompt body, discovered under a project-local and a user-global
// directory.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tessellate-ai/maestro/pkg/models"
)

// frontmatterDelim separates the YAML header from the prompt body.
const frontmatterDelim = "---"

// descriptorHeader is the YAML frontmatter schema of a descriptor file.
type descriptorHeader struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Color       string                `yaml:"color"`
	Category    string                `yaml:"category"`
	Keywords    []string              `yaml:"keywords"`
	Tools       []string              `yaml:"tools"`
	Model       string                `yaml:"model"`
	Provider    string                `yaml:"provider"`
	Temperature *float64              `yaml:"temperature"`
	MaxTokens   *int                  `yaml:"maxTokens"`
	Examples    []models.AgentExample `yaml:"examples"`
}

// Defaults applied when a descriptor omits tuning fields.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
)

// ParseDescriptor parses a descriptor file's contents into a validated
// AgentDescriptor. The format is:
//
//	---
//	name: code-reviewer
//	description: ...
//	keywords: [review, quality]
//	tools: [read, search]
//	---
//	<system prompt body>
//
// Trailing whitespace and blank lines around the delimiters are tolerated.
func ParseDescriptor(content []byte, scope models.AgentScope) (*models.AgentDescriptor, error) {
	header, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, err
	}

	var h descriptorHeader
	if err := yaml.Unmarshal([]byte(header), &h); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	desc := &models.AgentDescriptor{
		Name:         h.Name,
		Description:  h.Description,
		Color:        h.Color,
		Category:     h.Category,
		Keywords:     h.Keywords,
		Tools:        h.Tools,
		Model:        h.Model,
		Provider:     h.Provider,
		Examples:     h.Examples,
		Temperature:  defaultTemperature,
		MaxTokens:    defaultMaxTokens,
		SystemPrompt: strings.TrimSpace(body),
		Scope:        scope,
	}
	if h.Temperature != nil {
		desc.Temperature = *h.Temperature
	}
	if h.MaxTokens != nil {
		desc.MaxTokens = *h.MaxTokens
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// ParseDescriptorFile reads and parses a descriptor from disk.
func ParseDescriptorFile(path string, scope models.AgentScope) (*models.AgentDescriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	desc, err := ParseDescriptor(content, scope)
	if err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return desc, nil
}

// splitFrontmatter separates the YAML header from the body.
func splitFrontmatter(content string) (header, body string, err error) {
	trimmed := strings.TrimLeft(content, "\n\r \t")
	if !strings.HasPrefix(trimmed, frontmatterDelim) {
		return "", "", fmt.Errorf("missing frontmatter header")
	}
	rest := trimmed[len(frontmatterDelim):]
	// The closing delimiter must start a line.
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return "", "", fmt.Errorf("unterminated frontmatter header")
	}
	header = rest[:idx]
	body = rest[idx+len(frontmatterDelim)+1:]
	// Drop the remainder of the delimiter line.
	if nl := strings.Index(body, "\n"); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return header, body, nil
}

// CanonicalDescriptor re-serializes a descriptor into the file format it was
// parsed from. Parsing the result yields an equal descriptor.
func CanonicalDescriptor(desc *models.AgentDescriptor) ([]byte, error) {
	h := descriptorHeader{
		Name:        desc.Name,
		Description: desc.Description,
		Color:       desc.Color,
		Category:    desc.Category,
		Keywords:    desc.Keywords,
		Tools:       desc.Tools,
		Model:       desc.Model,
		Provider:    desc.Provider,
		Examples:    desc.Examples,
	}
	temp := desc.Temperature
	h.Temperature = &temp
	maxTok := desc.MaxTokens
	h.MaxTokens = &maxTok

	headerBytes, err := yaml.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelim)
	sb.WriteString("\n")
	sb.Write(headerBytes)
	sb.WriteString(frontmatterDelim)
	sb.WriteString("\n")
	sb.WriteString(desc.SystemPrompt)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}
