package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records commands and answers them from a table keyed by
// "name firstArg"; unknown commands succeed with empty output
type fakeRunner struct {
	calls   []string
	dirs    []string
	results map[string]CommandResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]CommandResult)}
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) CommandResult {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	f.dirs = append(f.dirs, dir)

	key := name
	if len(args) > 0 {
		key += " " + args[0]
	}
	if res, ok := f.results[key]; ok {
		return res
	}
	return CommandResult{OK: true}
}

func (f *fakeRunner) pendingChanges() {
	f.results["git status"] = CommandResult{OK: true, Stdout: " M content/posts/2026-02-06-b.md\n"}
}

func (f *fakeRunner) ran(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func testPipelineConfig(t *testing.T) PipelineConfig {
	t.Helper()
	return PipelineConfig{
		ProjectRoot:    t.TempDir(),
		PostsOutputDir: "content/posts",
		Remote:         "origin",
		RemoteBranch:   "main",
		BuildCommand:   "npm run build",
		CommandTimeout: time.Minute,
		Overwrite:      true,
		GitUserName:    "Clawd Bot",
		GitUserEmail:   "bot@clawd.ai",
	}
}

func newTestPublisher(t *testing.T, cfg PipelineConfig, runner Runner) (*Publisher, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p := NewPublisher(cfg, mustLibrary(t, sixTopics()), newTestRenderer(t, PlaceholderWriter{}, defaultSlug()),
		runner, NewPrinter(&out, &out, false))
	return p, &out
}

func TestRunPublishes(t *testing.T) {
	cfg := testPipelineConfig(t)
	runner := newFakeRunner()
	runner.pendingChanges()
	p, _ := newTestPublisher(t, cfg, runner)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	require.True(t, result.Success(), "diagnostic: %s", result.Diagnostic)
	assert.Equal(t, StatusPublished, result.Status)
	assert.Equal(t, StageDone, result.Stage)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "content/posts", "2026-02-06-b.md"), result.Path)
	assert.FileExists(t, result.Path)

	assert.Equal(t, []string{
		"npm run build",
		"git config user.email bot@clawd.ai",
		"git config user.name Clawd Bot",
		"git add -A",
		"git status --porcelain",
		"git commit -m [Auto] Daily AI tutorial - 2026-02-06",
		"git push origin main",
	}, runner.calls)

	for _, dir := range runner.dirs {
		assert.Equal(t, cfg.ProjectRoot, dir)
	}
}

func TestRunNothingToCommit(t *testing.T) {
	runner := newFakeRunner()
	p, _ := newTestPublisher(t, testPipelineConfig(t), runner)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.True(t, result.Success())
	assert.Equal(t, StatusUnchanged, result.Status)
	assert.Equal(t, StageDone, result.Stage)
	assert.True(t, runner.ran("git status"))
	assert.False(t, runner.ran("git commit"))
	assert.False(t, runner.ran("git push"))
}

func TestRunBuildFailureStopsBeforeGit(t *testing.T) {
	runner := newFakeRunner()
	runner.results["npm run"] = CommandResult{ExitCode: 1, Stderr: "build broke\n", Err: errors.New("exit status 1")}
	p, out := newTestPublisher(t, testPipelineConfig(t), runner)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.False(t, result.Success())
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, StageFailed, result.Stage)
	assert.Equal(t, "build broke", result.Diagnostic)
	assert.Equal(t, []string{"npm run build"}, runner.calls)
	assert.Contains(t, out.String(), "building failed: build broke")

	var stageErr *StageError
	require.True(t, errors.As(result.Err, &stageErr))
	assert.Equal(t, StageBuilding, stageErr.Stage)

	// Completed stages are not rolled back
	assert.FileExists(t, result.Path)
}

func TestRunBuildTargetAppended(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.BuildTarget = "github"
	runner := newFakeRunner()
	p, _ := newTestPublisher(t, cfg, runner)

	p.Run(context.Background(), testDate, PublishOptions{SkipPush: true})

	assert.Equal(t, []string{"npm run build github"}, runner.calls)
}

func TestRunGitFailures(t *testing.T) {
	tests := []struct {
		name       string
		failing    string
		diagnostic string
		skipped    []string
	}{
		{
			name:       "add",
			failing:    "git add",
			diagnostic: "git add: fatal: not a git repository",
			skipped:    []string{"git status", "git commit", "git push"},
		},
		{
			name:       "status",
			failing:    "git status",
			diagnostic: "git status: fatal: not a git repository",
			skipped:    []string{"git commit", "git push"},
		},
		{
			name:       "commit",
			failing:    "git commit",
			diagnostic: "git commit: fatal: not a git repository",
			skipped:    []string{"git push"},
		},
		{
			name:       "push",
			failing:    "git push",
			diagnostic: "git push: fatal: not a git repository",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.pendingChanges()
			runner.results[tt.failing] = CommandResult{ExitCode: 128, Stderr: "fatal: not a git repository\n"}
			p, _ := newTestPublisher(t, testPipelineConfig(t), runner)

			result := p.Run(context.Background(), testDate, PublishOptions{})

			assert.False(t, result.Success())
			assert.Equal(t, StageFailed, result.Stage)
			assert.Equal(t, tt.diagnostic, result.Diagnostic)
			for _, cmd := range tt.skipped {
				assert.False(t, runner.ran(cmd), "%s should not run", cmd)
			}

			var stageErr *StageError
			require.True(t, errors.As(result.Err, &stageErr))
			assert.Equal(t, StageCommitting, stageErr.Stage)
		})
	}
}

func TestRunGitConfigFailureOnlyWarns(t *testing.T) {
	runner := newFakeRunner()
	runner.pendingChanges()
	runner.results["git config"] = CommandResult{ExitCode: 1, Stderr: "could not lock config file"}
	p, out := newTestPublisher(t, testPipelineConfig(t), runner)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.True(t, result.Success())
	assert.Equal(t, StatusPublished, result.Status)
	assert.True(t, runner.ran("git push"))
	assert.Contains(t, out.String(), "[WARN] git config user.email: could not lock config file")
}

func TestRunSkipFlags(t *testing.T) {
	runner := newFakeRunner()
	p, _ := newTestPublisher(t, testPipelineConfig(t), runner)

	result := p.Run(context.Background(), testDate, PublishOptions{SkipBuild: true, SkipPush: true})

	assert.True(t, result.Success())
	assert.Equal(t, StatusPublished, result.Status)
	assert.Empty(t, runner.calls)
	assert.FileExists(t, result.Path)
}

func TestRunWritesNotification(t *testing.T) {
	cfg := testPipelineConfig(t)
	runner := newFakeRunner()
	runner.pendingChanges()
	p, _ := newTestPublisher(t, cfg, runner)

	path := filepath.Join(t.TempDir(), "out", "notification.txt")
	notifier, err := NewNotifier(defaultNotificationTemplate, NotificationSettings{
		Path:    path,
		SiteURL: "https://example.com",
		RepoURL: "https://github.com/example/blog",
	}, 10)
	require.NoError(t, err)
	p.SetNotifier(notifier)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	require.True(t, result.Success())
	assert.Equal(t, path, result.NotificationPath)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Equal(t, result.Notification, text)
	assert.Contains(t, text, "📄 B")
	assert.Contains(t, text, "明日预告：C")
	assert.Contains(t, text, "2026-02-06")
	assert.Contains(t, text, "10分钟")
	assert.Contains(t, text, "https://example.com")
}

func TestRunNotificationSkippedOnFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.results["npm run"] = CommandResult{ExitCode: 1, Stderr: "boom"}
	p, _ := newTestPublisher(t, testPipelineConfig(t), runner)

	path := filepath.Join(t.TempDir(), "notification.txt")
	notifier, err := NewNotifier(defaultNotificationTemplate, NotificationSettings{Path: path}, 10)
	require.NoError(t, err)
	p.SetNotifier(notifier)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.False(t, result.Success())
	assert.NoFileExists(t, path)
}

func TestRunNotificationWriteFailureOnlyWarns(t *testing.T) {
	runner := newFakeRunner()
	p, out := newTestPublisher(t, testPipelineConfig(t), runner)

	// A regular file where the parent directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	notifier, err := NewNotifier(defaultNotificationTemplate, NotificationSettings{Path: filepath.Join(blocker, "n.txt")}, 10)
	require.NoError(t, err)
	p.SetNotifier(notifier)

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.True(t, result.Success())
	assert.Empty(t, result.NotificationPath)
	assert.Contains(t, out.String(), "[WARN] writing notification")
}

func TestGenerateOverwritePolicy(t *testing.T) {
	t.Run("identical content is left alone", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		cfg.Overwrite = false
		p, _ := newTestPublisher(t, cfg, newFakeRunner())

		_, path, err := p.Generate(testDate)
		require.NoError(t, err)
		_, again, err := p.Generate(testDate)
		require.NoError(t, err)
		assert.Equal(t, path, again)
	})

	t.Run("different content fails without overwrite", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		cfg.Overwrite = false
		p, _ := newTestPublisher(t, cfg, newFakeRunner())

		path := filepath.Join(cfg.PostsDir(), "2026-02-06-b.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("hand edited"), 0644))

		_, _, err := p.Generate(testDate)
		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageGenerating, stageErr.Stage)
		assert.Contains(t, stageErr.Diagnostic, "overwrite is disabled")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hand edited", string(data))
	})

	t.Run("different content is replaced with overwrite", func(t *testing.T) {
		cfg := testPipelineConfig(t)
		p, _ := newTestPublisher(t, cfg, newFakeRunner())

		path := filepath.Join(cfg.PostsDir(), "2026-02-06-b.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

		post, _, err := p.Generate(testDate)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, post.Content, string(data))
	})
}

func TestRunGenerateFailureStopsEverything(t *testing.T) {
	cfg := testPipelineConfig(t)
	cfg.Overwrite = false
	runner := newFakeRunner()
	p, _ := newTestPublisher(t, cfg, runner)

	path := filepath.Join(cfg.PostsDir(), "2026-02-06-b.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("hand edited"), 0644))

	result := p.Run(context.Background(), testDate, PublishOptions{})

	assert.False(t, result.Success())
	assert.Nil(t, result.Post)
	assert.Empty(t, runner.calls)
}

func TestRunUsesRunDate(t *testing.T) {
	runner := newFakeRunner()
	runner.pendingChanges()
	p, _ := newTestPublisher(t, testPipelineConfig(t), runner)

	path := filepath.Join(t.TempDir(), "notification.txt")
	notifier, err := NewNotifier(defaultNotificationTemplate, NotificationSettings{Path: path}, 10)
	require.NoError(t, err)
	p.SetNotifier(notifier)

	// A backfill run names the day it publishes, not the wall clock
	date := time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)
	result := p.Run(context.Background(), date, PublishOptions{})

	require.True(t, result.Success())
	assert.True(t, runner.ran("git commit -m [Auto] Daily AI tutorial - 2030-05-01"))
	assert.Contains(t, result.Notification, "📅 2030-05-01")
	assert.True(t, strings.HasPrefix(filepath.Base(result.Path), "2030-05-01-"))
}

func TestCommitMessage(t *testing.T) {
	date := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "[Auto] Daily AI tutorial - 2026-03-09", commitMessage(date))
}

func TestPostsDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv/blog", "content/posts"),
		PipelineConfig{ProjectRoot: "/srv/blog", PostsOutputDir: "content/posts"}.PostsDir())
	assert.Equal(t, "/var/posts",
		PipelineConfig{ProjectRoot: "/srv/blog", PostsOutputDir: "/var/posts"}.PostsDir())
}
