package main

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const secondsPerDay = 24 * 60 * 60

// topicFile is the on-disk layout of a topic library
type topicFile struct {
	Topics []Topic `yaml:"topics"`
}

// Library is the ordered, read-only set of topics rotated by date
type Library struct {
	topics []Topic
	epoch  time.Time
}

// NewLibrary creates a library anchored at epoch (day 0)
func NewLibrary(topics []Topic, epoch time.Time) (*Library, error) {
	if len(topics) == 0 {
		return nil, errors.New("topic library is empty")
	}
	for i, t := range topics {
		if t.Title == "" {
			return nil, fmt.Errorf("topic %d has no title", i)
		}
		if t.Content == "" && t.ContentHTML == "" && len(t.Sections) == 0 {
			return nil, fmt.Errorf("topic %d (%s) has no content, content_html or sections", i, t.Title)
		}
	}

	return &Library{
		topics: topics,
		epoch:  epoch,
	}, nil
}

// LoadLibrary loads topics from a file or http(s) URL, or the embedded
// library when path is empty
func LoadLibrary(path string, epoch time.Time) (*Library, error) {
	data := []byte(defaultTopics)
	if path != "" {
		var err error
		data, err = readSource(path)
		if err != nil {
			return nil, fmt.Errorf("reading topics file %s: %w", path, err)
		}
	}

	var file topicFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing topics YAML: %w", err)
	}

	return NewLibrary(file.Topics, epoch)
}

// Len returns the number of topics
func (l *Library) Len() int {
	return len(l.topics)
}

// Index returns the rotation index for date. Dates before the epoch wrap
// around so the result is always in [0, Len()).
func (l *Library) Index(date time.Time) int {
	n := len(l.topics)
	offset := dayOffset(l.epoch, date)
	return ((offset % n) + n) % n
}

// TopicFor returns the topic scheduled for date
func (l *Library) TopicFor(date time.Time) Topic {
	return l.topics[l.Index(date)]
}

// NextTopic returns the topic scheduled for the day after date
func (l *Library) NextTopic(date time.Time) Topic {
	return l.TopicFor(date.AddDate(0, 0, 1))
}

// dayOffset counts calendar days from epoch to date. The time of day is
// ignored and both dates are read in their own location.
func dayOffset(epoch, date time.Time) int {
	from := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	// Unix seconds instead of Sub: a time.Duration saturates after ~292 years
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}
