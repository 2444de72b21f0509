package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/aktagon/dailypost/internal/postfile"
)

const (
	dateLayout      = postfile.DateLayout
	timestampLayout = "2006-01-02 15:04:05"
)

// postData is the value the post template is executed with
type postData struct {
	Title    string
	Date     string
	Author   string
	Category string
	Tags     []string
	ReadTime int
	Excerpt  string
	Body     string
	Footer   string
}

// Renderer turns a topic and a date into a Post
type Renderer struct {
	body       *BodyRenderer
	tmpl       *template.Template
	author     string
	readTime   int
	footer     string
	maxSlug    int
	hashSuffix bool
}

// NewRenderer parses the post template and builds a renderer
func NewRenderer(body *BodyRenderer, templateText string, settings PostSettings, slug SlugSettings) (*Renderer, error) {
	tmpl, err := template.New("post").Funcs(template.FuncMap{
		"quote": strconv.Quote,
		"tags":  tagsJSON,
	}).Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parsing post template: %w", err)
	}

	return &Renderer{
		body:       body,
		tmpl:       tmpl,
		author:     settings.Author,
		readTime:   settings.ReadTime,
		footer:     settings.Footer,
		maxSlug:    slug.MaxLength,
		hashSuffix: slug.HashSuffix,
	}, nil
}

// Render builds the post for topic on date; next is the following day's topic
func (r *Renderer) Render(topic Topic, date time.Time, next Topic) (*Post, error) {
	body, err := r.body.Render(topic)
	if err != nil {
		return nil, fmt.Errorf("rendering body: %w", err)
	}

	data := postData{
		Title:    topic.Title,
		Date:     date.Format(timestampLayout),
		Author:   r.author,
		Category: topic.Category,
		Tags:     topic.Tags,
		ReadTime: r.readTime,
		Excerpt:  topic.Excerpt,
		Body:     body,
		Footer:   r.footer,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	return &Post{
		Filename:  r.Filename(topic.Title, date),
		Content:   buf.String(),
		Title:     topic.Title,
		Excerpt:   topic.Excerpt,
		Sections:  topic.Sections,
		NextTitle: next.Title,
		Date:      date,
	}, nil
}

// Filename returns YYYY-MM-DD-<slug>.md for title on date
func (r *Renderer) Filename(title string, date time.Time) string {
	return postfile.Filename(title, date, r.maxSlug, r.hashSuffix)
}

// tagsJSON serializes tags as a JSON array without escaping non-ASCII text
func tagsJSON(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
