package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aktagon/dailypost/internal/postfile"
)

// defaultPostTitle is reported when today's post cannot be read
const defaultPostTitle = "AI教程文章"

// FindPostForDate returns the first post in dir whose filename starts with date
func FindPostForDate(dir string, date time.Time) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, date.Format(dateLayout)+"-*.md"))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no post for %s in %s", date.Format(dateLayout), dir)
	}
	sort.Strings(files)
	return files[0], nil
}

// PostTitleForDate reads the title of the post published on date, falling
// back to a generic title when the post is missing or unreadable
func PostTitleForDate(dir string, date time.Time) string {
	path, err := FindPostForDate(dir, date)
	if err != nil {
		debugLog("%v", err)
		return defaultPostTitle
	}

	content, err := os.ReadFile(path)
	if err != nil {
		debugLog("reading %s: %v", path, err)
		return defaultPostTitle
	}

	fm, err := postfile.ParseFrontMatter(string(content))
	if err != nil || fm.Title == "" {
		debugLog("no title in %s: %v", path, err)
		return defaultPostTitle
	}
	return fm.Title
}
