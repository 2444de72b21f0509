package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// notificationData is the value the notification template is executed with
type notificationData struct {
	Title     string
	ReadTime  int
	Date      string
	SiteURL   string
	RepoURL   string
	NextTitle string
}

// Notifier writes the announcement for a published post
type Notifier struct {
	tmpl     *template.Template
	path     string
	siteURL  string
	repoURL  string
	readTime int
}

// NewNotifier parses the notification template
func NewNotifier(templateText string, settings NotificationSettings, readTime int) (*Notifier, error) {
	tmpl, err := template.New("notification").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parsing notification template: %w", err)
	}
	return &Notifier{
		tmpl:     tmpl,
		path:     settings.Path,
		siteURL:  settings.SiteURL,
		repoURL:  settings.RepoURL,
		readTime: readTime,
	}, nil
}

// Path returns where the payload is written
func (n *Notifier) Path() string {
	return n.path
}

// Format renders the announcement text for post
func (n *Notifier) Format(post *Post) (string, error) {
	var buf bytes.Buffer
	err := n.tmpl.Execute(&buf, notificationData{
		Title:     post.Title,
		ReadTime:  n.readTime,
		Date:      post.Date.Format(dateLayout),
		SiteURL:   n.siteURL,
		RepoURL:   n.repoURL,
		NextTitle: post.NextTitle,
	})
	if err != nil {
		return "", fmt.Errorf("executing notification template: %w", err)
	}
	return buf.String(), nil
}

// Write stores text at the notification path for an external transport
func (n *Notifier) Write(text string) error {
	if err := os.MkdirAll(filepath.Dir(n.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(n.path, []byte(text), 0644)
}
