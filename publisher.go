package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const commitMessagePrefix = "[Auto] Daily AI tutorial - "

// PublishOptions turns individual stages off for a run
type PublishOptions struct {
	SkipBuild bool
	SkipPush  bool
}

// Publisher drives generate → build → commit/push → notify
type Publisher struct {
	cfg      PipelineConfig
	library  *Library
	renderer *Renderer
	runner   Runner
	notifier *Notifier
	printer  *Printer
}

// NewPublisher creates a publisher; notifications stay off until SetNotifier
func NewPublisher(cfg PipelineConfig, library *Library, renderer *Renderer, runner Runner, printer *Printer) *Publisher {
	return &Publisher{
		cfg:      cfg,
		library:  library,
		renderer: renderer,
		runner:   runner,
		printer:  printer,
	}
}

// SetNotifier enables the notifying stage
func (p *Publisher) SetNotifier(n *Notifier) {
	p.notifier = n
}

// Run executes the whole pipeline for date. Any failing stage stops the run;
// completed stages are not rolled back.
func (p *Publisher) Run(ctx context.Context, date time.Time, opts PublishOptions) Result {
	p.printer.Header("开始执行 AI教程博客自动发布")
	p.printer.Info("时间: %s", date.Format(timestampLayout))

	post, path, err := p.Generate(date)
	if err != nil {
		return p.fail(StageGenerating, err, Result{})
	}
	result := Result{Post: post, Path: path}

	if opts.SkipBuild {
		p.printer.Warning("Skipping build")
	} else if err := p.build(ctx); err != nil {
		return p.fail(StageBuilding, err, result)
	}

	result.Status = StatusPublished
	if opts.SkipPush {
		p.printer.Warning("Skipping commit and push")
	} else {
		changed, err := p.commitAndPush(ctx, date)
		if err != nil {
			return p.fail(StageCommitting, err, result)
		}
		if !changed {
			result.Status = StatusUnchanged
		}
	}

	if p.notifier != nil {
		result.Stage = StageNotifying
		p.notify(&result)
	}

	result.Stage = StageDone
	p.printer.Success("全部完成！今日文章: %s", post.Title)
	return result
}

// Generate renders the post for date and writes it to the posts directory
func (p *Publisher) Generate(date time.Time) (*Post, string, error) {
	p.printer.Step("正在生成今日教程文章...")

	topic := p.library.TopicFor(date)
	next := p.library.NextTopic(date)

	post, err := p.renderer.Render(topic, date, next)
	if err != nil {
		return nil, "", &StageError{Stage: StageGenerating, Err: err}
	}

	path, err := p.save(post)
	if err != nil {
		return nil, "", err
	}

	p.printer.Success("文章已生成: %s", path)
	p.printer.Info("标题: %s", post.Title)
	return post, path, nil
}

// save writes post into the posts directory following the overwrite policy
func (p *Publisher) save(post *Post) (string, error) {
	dir := p.cfg.PostsDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &StageError{Stage: StageGenerating, Err: fmt.Errorf("creating posts directory: %w", err)}
	}

	path := filepath.Join(dir, post.Filename)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, []byte(post.Content)):
		p.printer.Info("%s is up to date", post.Filename)
		return path, nil
	case err == nil && !p.cfg.Overwrite:
		return "", &StageError{
			Stage:      StageGenerating,
			Diagnostic: fmt.Sprintf("%s exists with different content and overwrite is disabled", path),
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", &StageError{Stage: StageGenerating, Err: fmt.Errorf("reading existing post: %w", err)}
	}

	if err := os.WriteFile(path, []byte(post.Content), 0644); err != nil {
		return "", &StageError{Stage: StageGenerating, Err: fmt.Errorf("writing post: %w", err)}
	}
	return path, nil
}

// build runs the site build command in the project root
func (p *Publisher) build(ctx context.Context) error {
	p.printer.Step("正在构建网站...")

	name, args, err := splitCommand(p.cfg.BuildCommand, p.cfg.BuildTarget)
	if err != nil {
		return &StageError{Stage: StageBuilding, Err: err}
	}

	res := p.runner.Run(ctx, p.cfg.ProjectRoot, name, args...)
	if !res.OK {
		return &StageError{Stage: StageBuilding, Diagnostic: res.Diagnostic(), Err: res.Err}
	}

	p.printer.Success("网站构建成功")
	return nil
}

// commitAndPush stages everything and pushes a commit. It reports false when
// there was nothing to commit.
func (p *Publisher) commitAndPush(ctx context.Context, date time.Time) (bool, error) {
	p.printer.Step("正在推送到 %s/%s...", p.cfg.Remote, p.cfg.RemoteBranch)

	identity := [][]string{
		{"config", "user.email", p.cfg.GitUserEmail},
		{"config", "user.name", p.cfg.GitUserName},
	}
	for _, args := range identity {
		if res := p.git(ctx, args...); !res.OK {
			p.printer.Warning("git %s: %s", strings.Join(args[:2], " "), res.Diagnostic())
		}
	}

	if res := p.git(ctx, "add", "-A"); !res.OK {
		return false, &StageError{Stage: StageCommitting, Diagnostic: "git add: " + res.Diagnostic(), Err: res.Err}
	}

	res := p.git(ctx, "status", "--porcelain")
	if !res.OK {
		return false, &StageError{Stage: StageCommitting, Diagnostic: "git status: " + res.Diagnostic(), Err: res.Err}
	}
	if strings.TrimSpace(res.Stdout) == "" {
		p.printer.Info("没有新的更改需要提交")
		return false, nil
	}

	if res := p.git(ctx, "commit", "-m", commitMessage(date)); !res.OK {
		return false, &StageError{Stage: StageCommitting, Diagnostic: "git commit: " + res.Diagnostic(), Err: res.Err}
	}

	if res := p.git(ctx, "push", p.cfg.Remote, p.cfg.RemoteBranch); !res.OK {
		return false, &StageError{Stage: StageCommitting, Diagnostic: "git push: " + res.Diagnostic(), Err: res.Err}
	}

	p.printer.Success("成功推送到 %s/%s", p.cfg.Remote, p.cfg.RemoteBranch)
	return true, nil
}

func (p *Publisher) git(ctx context.Context, args ...string) CommandResult {
	return p.runner.Run(ctx, p.cfg.ProjectRoot, "git", args...)
}

// notify writes the announcement payload. Failures are only warned about.
func (p *Publisher) notify(result *Result) {
	text, err := p.notifier.Format(result.Post)
	if err != nil {
		p.printer.Warning("notification skipped: %v", err)
		return
	}
	result.Notification = text

	if err := p.notifier.Write(text); err != nil {
		p.printer.Warning("writing notification to %s: %v", p.notifier.Path(), err)
		return
	}
	result.NotificationPath = p.notifier.Path()
	p.printer.Success("通知已写入: %s", result.NotificationPath)
}

func (p *Publisher) fail(stage Stage, err error, result Result) Result {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		stageErr = &StageError{Stage: stage, Err: err}
	}

	result.Status = StatusFailed
	result.Stage = StageFailed
	result.Err = stageErr
	result.Diagnostic = stageErr.Diagnostic
	if result.Diagnostic == "" && stageErr.Err != nil {
		result.Diagnostic = stageErr.Err.Error()
	}

	p.printer.Error("%s", stageErr.Error())
	return result
}

// commitMessage returns the message of the automated commit for date
func commitMessage(date time.Time) string {
	return commitMessagePrefix + date.Format(dateLayout)
}
