package main

import (
	"fmt"
	"time"
)

// Topic is one entry of the tutorial library
type Topic struct {
	Title       string   `yaml:"title"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	Excerpt     string   `yaml:"excerpt"`
	Content     string   `yaml:"content"`
	ContentHTML string   `yaml:"content_html"`
	Sections    []string `yaml:"sections"`
}

// IsOutline reports whether the topic body is built from its section list
func (t Topic) IsOutline() bool {
	return t.Content == "" && t.ContentHTML == "" && len(t.Sections) > 0
}

// Post represents a rendered post ready to be written to disk
type Post struct {
	Filename  string
	Content   string
	Title     string
	Excerpt   string
	Sections  []string
	NextTitle string
	Date      time.Time
}

// Stage names a step of the publishing pipeline
type Stage string

const (
	StageGenerating Stage = "generating"
	StageBuilding   Stage = "building"
	StageCommitting Stage = "committing"
	StageNotifying  Stage = "notifying"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// PublishStatus represents the outcome of a pipeline run
type PublishStatus string

const (
	StatusPublished PublishStatus = "published"
	StatusUnchanged PublishStatus = "unchanged"
	StatusFailed    PublishStatus = "failed"
)

// Result tracks the outcome of one pipeline run
type Result struct {
	Status           PublishStatus
	Stage            Stage
	Post             *Post
	Path             string
	Notification     string
	NotificationPath string
	Diagnostic       string
	Err              error
}

// Success reports whether the run counts as a success for the exit code
func (r Result) Success() bool {
	return r.Status == StatusPublished || r.Status == StatusUnchanged
}

// StageError is returned when a pipeline stage fails
type StageError struct {
	Stage      Stage
	Diagnostic string
	Err        error
}

func (e *StageError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s failed: %s", e.Stage, e.Diagnostic)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Stage)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
