// Package postfile names post files and reads their front-matter. It is
// shared by the generator and the migrate tool so both agree on filenames.
package postfile

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	// DateLayout prefixes every post filename
	DateLayout = "2006-01-02"
	// HashLength is the length of the hex title hash suffix
	HashLength = 8
)

var (
	hashSuffixRe = regexp.MustCompile(`-([0-9a-f]{8})\.md$`)
	datePrefixRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)
)

// FrontMatter is the metadata block at the top of a post
type FrontMatter struct {
	Title    string   `yaml:"title"`
	Date     string   `yaml:"date"`
	Author   string   `yaml:"author"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	ReadTime int      `yaml:"readTime"`
	Cover    string   `yaml:"cover"`
	Excerpt  string   `yaml:"excerpt"`
	Featured bool     `yaml:"featured"`
}

// ParseFrontMatter reads the --- fenced block at the start of content
func ParseFrontMatter(content string) (*FrontMatter, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return nil, errors.New("missing front-matter fence")
	}

	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, errors.New("unterminated front-matter")
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, fmt.Errorf("parsing front-matter: %w", err)
	}
	return &fm, nil
}

// Filename returns YYYY-MM-DD-<slug>.md. With hashSuffix the slug is cut to
// leave room for -<hash> so the whole name part stays within maxLen runes.
func Filename(title string, date time.Time, maxLen int, hashSuffix bool) string {
	var name string
	if hashSuffix {
		name = Slug(title, maxLen-HashLength-1) + "-" + Hash(title)
	} else {
		name = Slug(title, maxLen)
	}
	return fmt.Sprintf("%s-%s.md", date.Format(DateLayout), name)
}

// Slug creates a filesystem-safe slug from a title. Letters and digits of
// any script are kept; everything else becomes a hyphen.
func Slug(title string, maxLen int) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")

	if runes := []rune(slug); len(runes) > maxLen {
		slug = strings.Trim(string(runes[:maxLen]), "-")
	}

	if slug == "" {
		return "post"
	}
	return slug
}

// Hash returns a short stable hex hash of s
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)[:HashLength]
}

// HashOf returns the hash suffix of a filename, or "" when it has none
func HashOf(filename string) string {
	if m := hashSuffixRe.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	return ""
}

// DateOf returns the date prefix of a filename
func DateOf(filename string) (time.Time, error) {
	m := datePrefixRe.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("%s has no date prefix", filename)
	}
	return time.Parse(DateLayout, m[1])
}
