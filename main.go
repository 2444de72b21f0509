package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	projectRoot string
	apiKey      string
	dateFlag    string
	debugMode   bool
	noColor     bool
	dryRun      bool
	notifyFlag  bool
	skipBuild   bool
	skipPush    bool
	previewDays int

	settings *Settings
	printer  *Printer
)

var errPipelineFailed = errors.New("pipeline failed")

var rootCmd = &cobra.Command{
	Use:           "dailypost",
	Short:         "Publish a daily AI tutorial post",
	Long:          `Selects the tutorial topic for the day, renders it into a Markdown post, builds the site and pushes it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			SetDebugMode(true)
		}
		printer = NewPrinter(os.Stdout, os.Stderr, resolveColors(noColor))

		if cmd.Name() == "init" {
			return nil
		}

		var err error
		settings, err = LoadSettings(configFile)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if projectRoot != "" {
			settings.ProjectRoot = projectRoot
		}
		if notifyFlag {
			settings.Notification.Enabled = true
		}
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return nil
	},
	RunE: runPipeline,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, build, commit and push today's post",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Only generate today's post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(dateFlag)
		if err != nil {
			return err
		}
		publisher, err := newPublisher(NewExecRunner(settings.CommandTimeout, dryRun, os.Stdout))
		if err != nil {
			return err
		}
		if _, _, err := publisher.Generate(date); err != nil {
			printer.Error("文章生成失败: %v", err)
			return errPipelineFailed
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the topic schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(dateFlag)
		if err != nil {
			return err
		}
		library, err := loadLibrary()
		if err != nil {
			return err
		}
		for i := 0; i < previewDays; i++ {
			day := date.AddDate(0, 0, i)
			printer.Info("%s  [%d/%d]  %s", day.Format(dateLayout), library.Index(day)+1, library.Len(), library.TopicFor(day).Title)
		}
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print the title of the post published today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDate(dateFlag)
		if err != nil {
			return err
		}
		fmt.Println(PostTitleForDate(settings.PipelineConfig().PostsDir(), date))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings to .dailypost/settings.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := ensureConfigExists()
		if err != nil {
			return err
		}
		printer.Success("Settings: %s", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (default .dailypost/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", "", "site project directory")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Anthropic API key for the section writer")
	rootCmd.PersistentFlags().StringVar(&dateFlag, "date", "", "publish date as YYYY-MM-DD (default now)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print external commands instead of running them")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().BoolVar(&notifyFlag, "notify", false, "Write the notification payload")
		cmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Skip the site build")
		cmd.Flags().BoolVar(&skipPush, "skip-push", false, "Skip git commit and push")
	}
	previewCmd.Flags().IntVar(&previewDays, "days", 7, "number of days to show")

	rootCmd.AddCommand(runCmd, generateCmd, previewCmd, todayCmd, initCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	date, err := parseDate(dateFlag)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(NewExecRunner(settings.CommandTimeout, dryRun, os.Stdout))
	if err != nil {
		return err
	}

	result := publisher.Run(cmd.Context(), date, PublishOptions{
		SkipBuild: skipBuild,
		SkipPush:  skipPush,
	})
	if !result.Success() {
		return errPipelineFailed
	}
	return nil
}

// newPublisher wires the pipeline components from the loaded settings
func newPublisher(runner Runner) (*Publisher, error) {
	library, err := loadLibrary()
	if err != nil {
		return nil, err
	}

	var writer SectionWriter = PlaceholderWriter{Text: settings.Post.Placeholder}
	if settings.Agents.Writer.Enabled {
		writer, err = NewAgentWriter(apiKey, defaultWriterSystemPrompt, settings.Agents.Writer)
		if err != nil {
			return nil, err
		}
	}

	postTemplate, err := readOverride(settings.Post.TemplatePath, defaultPostTemplate)
	if err != nil {
		return nil, fmt.Errorf("loading post template: %w", err)
	}
	renderer, err := NewRenderer(NewBodyRenderer(writer), postTemplate, settings.Post, settings.Slug)
	if err != nil {
		return nil, err
	}

	publisher := NewPublisher(settings.PipelineConfig(), library, renderer, runner, printer)

	if settings.Notification.Enabled {
		text, err := readOverride(settings.Notification.TemplatePath, defaultNotificationTemplate)
		if err != nil {
			return nil, fmt.Errorf("loading notification template: %w", err)
		}
		notifier, err := NewNotifier(text, settings.Notification, settings.Post.ReadTime)
		if err != nil {
			return nil, err
		}
		publisher.SetNotifier(notifier)
	}

	return publisher, nil
}

func loadLibrary() (*Library, error) {
	epoch, err := settings.EpochDate()
	if err != nil {
		return nil, err
	}
	library, err := LoadLibrary(settings.TopicsPath, epoch)
	if err != nil {
		return nil, fmt.Errorf("loading topics: %w", err)
	}
	return library, nil
}

// parseDate returns now for an empty value, otherwise local midnight of the date
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	date, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", value, err)
	}
	return date, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errPipelineFailed) {
			log.Printf("Error: %v", err)
		}
		os.Exit(1)
	}
}
