package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultConfigDir = ".dailypost"
	epochLayout      = "2006-01-02"
	minSlugLength    = 16
)

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/topics.yaml
var defaultTopics string

//go:embed config/post-template.md
var defaultPostTemplate string

//go:embed config/notification-template.txt
var defaultNotificationTemplate string

//go:embed config/writer-system-prompt.md
var defaultWriterSystemPrompt string

// AgentSettings configures an LLM agent
type AgentSettings struct {
	Enabled     bool    `mapstructure:"enabled"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// PostSettings controls the rendered post
type PostSettings struct {
	Author       string `mapstructure:"author"`
	ReadTime     int    `mapstructure:"read_time"`
	Footer       string `mapstructure:"footer"`
	Placeholder  string `mapstructure:"placeholder"`
	TemplatePath string `mapstructure:"template_path"`
}

// SlugSettings controls filename derivation
type SlugSettings struct {
	MaxLength  int  `mapstructure:"max_length"`
	HashSuffix bool `mapstructure:"hash_suffix"`
}

// GitSettings is the identity used for automated commits
type GitSettings struct {
	UserName  string `mapstructure:"user_name"`
	UserEmail string `mapstructure:"user_email"`
}

// NotificationSettings controls the announcement payload
type NotificationSettings struct {
	Enabled      bool   `mapstructure:"enabled"`
	Path         string `mapstructure:"path"`
	SiteURL      string `mapstructure:"site_url"`
	RepoURL      string `mapstructure:"repo_url"`
	TemplatePath string `mapstructure:"template_path"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	ProjectRoot    string               `mapstructure:"project_root"`
	PostsOutputDir string               `mapstructure:"posts_output_dir"`
	Remote         string               `mapstructure:"remote"`
	RemoteBranch   string               `mapstructure:"remote_branch"`
	BuildCommand   string               `mapstructure:"build_command"`
	BuildTarget    string               `mapstructure:"build_target"`
	CommandTimeout time.Duration        `mapstructure:"command_timeout"`
	Epoch          string               `mapstructure:"epoch"`
	TopicsPath     string               `mapstructure:"topics_path"`
	Overwrite      bool                 `mapstructure:"overwrite"`
	Post           PostSettings         `mapstructure:"post"`
	Slug           SlugSettings         `mapstructure:"slug"`
	Git            GitSettings          `mapstructure:"git"`
	Notification   NotificationSettings `mapstructure:"notification"`
	Agents         struct {
		Writer AgentSettings `mapstructure:"writer"`
	} `mapstructure:"agents"`
}

// PipelineConfig is the injected configuration of the deployment driver
type PipelineConfig struct {
	ProjectRoot    string
	PostsOutputDir string
	Remote         string
	RemoteBranch   string
	BuildCommand   string
	BuildTarget    string
	CommandTimeout time.Duration
	Overwrite      bool
	GitUserName    string
	GitUserEmail   string
}

// LoadSettings reads settings from the embedded defaults, an optional YAML
// file and DAILYPOST_* environment variables, in that order of precedence.
// An empty path falls back to .dailypost/settings.yaml when it exists.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader([]byte(defaultSettings))); err != nil {
		return nil, fmt.Errorf("reading embedded settings: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = getConfigPath("settings.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings file %s: %w", path, err)
		}
		debugLog("merged settings from %s", path)
	} else if explicit {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	v.SetEnvPrefix("DAILYPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	return &settings, nil
}

// validate checks the settings for errors
func (s *Settings) validate() error {
	if _, err := s.EpochDate(); err != nil {
		return err
	}
	if s.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", s.CommandTimeout)
	}
	if strings.TrimSpace(s.BuildCommand) == "" {
		return errors.New("build_command is required")
	}
	if s.Remote == "" || s.RemoteBranch == "" {
		return errors.New("remote and remote_branch are required")
	}
	if s.Slug.MaxLength < minSlugLength {
		return fmt.Errorf("slug.max_length must be at least %d, got %d", minSlugLength, s.Slug.MaxLength)
	}
	return nil
}

// EpochDate parses the configured epoch
func (s *Settings) EpochDate() (time.Time, error) {
	epoch, err := time.Parse(epochLayout, s.Epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch %q: %w", s.Epoch, err)
	}
	return epoch, nil
}

// PipelineConfig returns the configuration injected into the publisher
func (s *Settings) PipelineConfig() PipelineConfig {
	return PipelineConfig{
		ProjectRoot:    s.ProjectRoot,
		PostsOutputDir: s.PostsOutputDir,
		Remote:         s.Remote,
		RemoteBranch:   s.RemoteBranch,
		BuildCommand:   s.BuildCommand,
		BuildTarget:    s.BuildTarget,
		CommandTimeout: s.CommandTimeout,
		Overwrite:      s.Overwrite,
		GitUserName:    s.Git.UserName,
		GitUserEmail:   s.Git.UserEmail,
	}
}

// PostsDir returns the absolute-or-relative directory posts are written to
func (c PipelineConfig) PostsDir() string {
	if filepath.IsAbs(c.PostsOutputDir) {
		return c.PostsOutputDir
	}
	return filepath.Join(c.ProjectRoot, c.PostsOutputDir)
}

// readOverride returns the file content at path, or the embedded fallback
// when path is empty
func readOverride(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// getConfigPath returns the path to a config file in .dailypost directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and default settings if they don't exist
func ensureConfigExists() (string, error) {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return "", fmt.Errorf("writing default settings: %w", err)
		}
	}

	return settingsPath, nil
}
