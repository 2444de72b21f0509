package main

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// SectionWriter produces the body text of one outline section
type SectionWriter interface {
	WriteSection(topic Topic, section string) (string, error)
}

// PlaceholderWriter fills every section with a fixed line
type PlaceholderWriter struct {
	Text string
}

func (w PlaceholderWriter) WriteSection(topic Topic, section string) (string, error) {
	return w.Text, nil
}

// AgentWriter writes outline sections with the writer agent
type AgentWriter struct {
	apiKey       string
	systemPrompt string
	settings     AgentSettings
	prompt       func(systemPrompt, userPrompt string, settings types.RequestSettings) (string, error)
}

// NewAgentWriter creates a writer agent backed by the Anthropic API
func NewAgentWriter(apiKey, systemPrompt string, settings AgentSettings) (*AgentWriter, error) {
	if apiKey == "" {
		return nil, errors.New("API key required for the writer agent: use --api-key or ANTHROPIC_API_KEY")
	}

	w := &AgentWriter{
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		settings:     settings,
	}
	w.prompt = w.anthropicPrompt
	return w, nil
}

func (w *AgentWriter) anthropicPrompt(systemPrompt, userPrompt string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", w.apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", errors.New("no content in response")
	}
	return response.Content[0].Text, nil
}

// WriteSection asks the writer agent for the body of section
func (w *AgentWriter) WriteSection(topic Topic, section string) (string, error) {
	log.Printf("  → Writing section: %s", section)

	userPrompt := fmt.Sprintf(`Tutorial title: %s
Category: %s
Tags: %s
Summary: %s
All sections: %s

Write the section: %s`,
		topic.Title, topic.Category, strings.Join(topic.Tags, ", "), topic.Excerpt,
		strings.Join(topic.Sections, " / "), section)

	settings := types.RequestSettings{
		Model:       w.settings.Model,
		MaxTokens:   w.settings.MaxTokens,
		Temperature: w.settings.Temperature,
	}

	text, err := w.prompt(w.systemPrompt, userPrompt, settings)
	if err != nil {
		return "", fmt.Errorf("writer agent failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("writer agent returned an empty section")
	}
	return text, nil
}
