package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	speakerMode bool
	skipTests   bool
	debugMode   bool
)

// errReported marks failures whose details were already printed
var errReported = errors.New("migration failed")

// app bundles what every command needs
type app struct {
	settings *Settings
	console  *Console
	logger   *slog.Logger
}

func newApp() (*app, error) {
	if configFile == "" {
		if err := ensureConfigExists(); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
	}
	settings, err := LoadSettings(configFile)
	if err != nil {
		return nil, err
	}
	return &app{
		settings: settings,
		console:  NewConsole(os.Stdout),
		logger:   NewLogger(os.Stderr, debugMode),
	}, nil
}

func (a *app) fileStore() (*CommandFileStore, error) {
	return NewCommandFileStore(a.settings.FileStore)
}

var rootCmd = &cobra.Command{
	Use:   "talk-migrator <talk-url>",
	Short: "Migrate conference talk pages into plain-text talk artifacts",
	Long: `Fetches a talk page, extracts its metadata and resources, publishes the slide
PDF to the file store, resolves the video and writes a talk artifact.

With --speaker the URL is a speaker profile and every talk on it is migrated.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		audit, err := OpenAuditStore(a.settings.AuditDatabase)
		if err != nil {
			a.logger.Warn("audit ledger unavailable", "error", err)
		} else {
			defer audit.Close()
		}

		store, err := a.fileStore()
		if err != nil {
			return err
		}
		tests := NewCommandTestRunner(a.settings.TestCommand, a.logger.With("component", "tests"))
		migrator := NewTalkMigrator(a.settings, store, tests, audit, a.console, a.logger)

		if speakerMode {
			return runSpeaker(cmd.Context(), a, migrator, tests, args[0])
		}
		return runTalk(cmd.Context(), a, migrator, args[0])
	},
}

func runTalk(ctx context.Context, a *app, migrator *TalkMigrator, talkURL string) error {
	a.console.Println("Migrating " + talkURL)
	report, err := migrator.Migrate(ctx, talkURL, MigrateOptions{RunTests: !skipTests})
	if err != nil {
		a.console.Failure("Failed %s", talkURL)
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			for i, msg := range stepErr.Messages {
				a.console.Println(fmt.Sprintf("  %d. [%s] %s", i+1, stepErr.Step, msg))
			}
			return errReported
		}
		return err
	}

	a.console.Success("Generated: %s (%s)", report.ArtifactPath, report.Status)
	if report.TestsPassed != nil && !*report.TestsPassed {
		a.console.Failure("Tests failed")
		return errReported
	}
	return nil
}

func runSpeaker(ctx context.Context, a *app, migrator *TalkMigrator, tests TestRunner, profileURL string) error {
	batch := NewSpeakerBatch(NewSourceFetcher(a.settings.HTTPTimeout()), migrator, tests, a.settings.BatchPause(), a.console, a.logger.With("component", "batch"))
	result, err := batch.Run(ctx, profileURL)
	if err != nil {
		return err
	}

	a.console.Println(RenderOutcome(result))
	if !result.OK() {
		return errReported
	}
	return nil
}

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <file-id>",
	Short: "Fetch and cache the thumbnail of a file store file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		resolver := NewThumbnailResolver(a.settings.ThumbnailDirectory, a.settings.HTTPTimeout(), a.logger.With("component", "thumbnail"))
		path, ok := resolver.Resolve(cmd.Context(), args[0])
		if !ok {
			a.console.Println("no thumbnail available")
			return nil
		}
		a.console.Println(path)
		return nil
	},
}

var slidesCmd = &cobra.Command{
	Use:   "slides",
	Short: "Inspect the slides folder of the file store",
}

var slidesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files in the slides folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		store, err := a.fileStore()
		if err != nil {
			return err
		}
		ids, err := store.List(cmd.Context(), a.settings.FileStore.Folder)
		if err != nil {
			return err
		}
		for _, id := range ids {
			a.console.Println(id)
		}
		return nil
	},
}

var slidesDeleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete a file from the file store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		store, err := a.fileStore()
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		a.console.Success("Deleted %s", args[0])
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <talk-url>",
	Short: "Show the recorded migration runs of a talk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		audit, err := OpenAuditStore(a.settings.AuditDatabase)
		if err != nil {
			return err
		}
		defer audit.Close()

		entries, err := audit.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a.console.Println(renderHistory(entries))
		return nil
	},
}

func renderHistory(entries []AuditEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Started", "Run", "Status", "Step", "Artifact"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.RunID, e.Status, e.Step, filepath.Base(e.ArtifactPath)})
	}
	return tw.Render()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings file (default .talk-migrator/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&speakerMode, "speaker", false, "Treat the URL as a speaker profile and migrate every talk on it")
	rootCmd.Flags().BoolVar(&skipTests, "skip-tests", false, "Do not run the test command after a single-talk migration")

	slidesCmd.AddCommand(slidesListCmd, slidesDeleteCmd)
	rootCmd.AddCommand(thumbnailCmd, slidesCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
