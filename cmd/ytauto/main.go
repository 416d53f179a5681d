package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/config"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/database"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/history"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/llm"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/logging"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/narrate"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/pipeline"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/scheduler"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/scriptgen"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/server"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/story"
	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/tts"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "ytauto",
	Short:        "Telugu story video automation",
	Long:         "ytauto generates short Telugu stories with an LLM and narrates them to MP3, on demand or on a daily schedule.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logging.Setup("info", true)
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.Setup(level, cfg.Logging.Pretty || verbose)
		if path != "" {
			log.Debug().Str("path", path).Msg("Loaded config")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging with console output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ytauto", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/ytauto/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to pick providers; put API keys in the environment or a .env file.")
		return nil
	},
}

// app is the wired set of components shared by run and serve.
type app struct {
	provider llm.Provider
	pipeline *pipeline.Pipeline
	store    history.Store
	db       *database.DB
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func buildApp() (*app, error) {
	if err := os.MkdirAll(cfg.TTS.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	provider, err := llm.New(cfg.LLM, cfg.Secrets.LLMAPIKey, story.Schema())
	if err != nil {
		return nil, err
	}
	synth, err := tts.New(cfg.TTS, cfg.Secrets.TTSAPIKey)
	if err != nil {
		return nil, err
	}

	a := &app{
		provider: provider,
		pipeline: pipeline.New(
			scriptgen.NewGenerator(provider, cfg.LLM.MaxTokens),
			narrate.NewNarrator(synth, cfg.TTS.OutputDir, cfg.TTS.Language),
		),
	}

	if cfg.Automation.HistoryDB != "" {
		db, err := database.Open(cfg.Automation.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = db
		log.Info().Str("path", db.Path()).Msg("Recording runs to SQLite")
	} else {
		a.store = history.NewMemory(cfg.Automation.HistorySize)
	}
	return a, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate one story and narrate it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := scheduler.NewRunner(a.pipeline, a.store, cfg.Automation.RunTimeout)
		result, err := runner.Run(ctx, history.TriggerCLI)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("run failed at %s: %s", result.Stage, result.Error)
		}
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Automation.HistoryDB == "" {
			return errors.New("automation.history_db is not set; run history is only kept in memory by the server")
		}
		db, err := database.Open(cfg.Automation.HistoryDB)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.Recent(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Printf("No runs recorded yet in %s.\n", db.Path())
			return nil
		}

		for _, r := range runs {
			status := "ok"
			detail := r.Result.AudioPath
			if !r.Result.Success {
				status = "FAILED"
				detail = r.Result.Stage + ": " + r.Result.Error
			}
			title := ""
			if r.Result.Story != nil {
				title = r.Result.Story.TitleTranslated
			}
			fmt.Printf("%s  %-9s  %-6s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Trigger, status, title)
			if detail != "" {
				fmt.Printf("    %s\n", detail)
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show")
}

// --- serve command ---

var (
	servePort int
	automate  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		runner := scheduler.NewRunner(a.pipeline, a.store, cfg.Automation.RunTimeout)
		automation, err := scheduler.NewAutomation(runner, cfg.Automation.Schedule, cfg.Automation.Workers)
		if err != nil {
			return err
		}
		defer automation.Close()

		if automate {
			if _, err := automation.Start(); err != nil {
				return err
			}
		}

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}
		printBanner(a.provider, port)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, server.New(cfg, runner, automation, a.provider), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&automate, "automate", false, "Start the daily schedule immediately")
}

func printBanner(provider llm.Provider, port int) {
	mark := func(ok bool) string {
		if ok {
			return "set"
		}
		return "MISSING"
	}
	fmt.Printf("Server running on port %d\n", port)
	fmt.Printf("  LLM provider:   %s (%s), key %s\n", provider.Name(), cfg.LLM.Model, mark(provider.IsConfigured()))
	fmt.Printf("  TTS provider:   %s (%s)\n", cfg.TTS.Provider, cfg.TTS.Language)
	fmt.Printf("  YouTube keys:   %s\n", mark(cfg.Secrets.HasYouTubeKeys()))
	fmt.Printf("  Videos per day: %d\n", cfg.VideosPerDay())
	fmt.Printf("  Audio output:   %s\n", cfg.TTS.OutputDir)
	fmt.Println("Press Ctrl+C to stop")
}
