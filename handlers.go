package main

import (
	"fmt"
	"log"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// BodyHandler turns one kind of topic body into Markdown
type BodyHandler interface {
	CanHandle(topic Topic) bool
	Handle(topic Topic) (string, error)
}

// MarkdownHandler handles topics carrying literal Markdown
type MarkdownHandler struct{}

func (h *MarkdownHandler) CanHandle(topic Topic) bool {
	return topic.Content != ""
}

func (h *MarkdownHandler) Handle(topic Topic) (string, error) {
	return topic.Content, nil
}

// HTMLHandler handles topics authored in HTML
type HTMLHandler struct {
	converter *md.Converter
}

func (h *HTMLHandler) CanHandle(topic Topic) bool {
	return topic.ContentHTML != ""
}

func (h *HTMLHandler) Handle(topic Topic) (string, error) {
	markdown, err := h.converter.ConvertString(topic.ContentHTML)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// OutlineHandler emits a heading per section with a body from the writer
type OutlineHandler struct {
	writer SectionWriter
}

func (h *OutlineHandler) CanHandle(topic Topic) bool {
	return len(topic.Sections) > 0
}

func (h *OutlineHandler) Handle(topic Topic) (string, error) {
	parts := make([]string, 0, len(topic.Sections))
	for _, section := range topic.Sections {
		body, err := h.writer.WriteSection(topic, section)
		if err != nil {
			return "", fmt.Errorf("writing section %q: %w", section, err)
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", section, strings.TrimSpace(body)))
	}
	return strings.Join(parts, "\n\n"), nil
}

// BodyRenderer picks the first handler that accepts a topic
type BodyRenderer struct {
	handlers []BodyHandler
}

// NewBodyRenderer creates a renderer with the default handlers
func NewBodyRenderer(writer SectionWriter) *BodyRenderer {
	r := &BodyRenderer{}

	// Register handlers (most specific first)
	r.AddHandler(&MarkdownHandler{})
	r.AddHandler(&HTMLHandler{converter: md.NewConverter("", true, nil)})
	r.AddHandler(&OutlineHandler{writer: writer})

	return r
}

// AddHandler adds a body handler to the chain
func (r *BodyRenderer) AddHandler(handler BodyHandler) {
	r.handlers = append(r.handlers, handler)
}

// Render returns the Markdown body of topic
func (r *BodyRenderer) Render(topic Topic) (string, error) {
	for _, handler := range r.handlers {
		if handler.CanHandle(topic) {
			debugLog("rendering %q with %T", topic.Title, handler)
			return handler.Handle(topic)
		}
	}
	return "", fmt.Errorf("no body handler for topic %q", topic.Title)
}
