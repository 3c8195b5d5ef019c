package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/podcrop/internal/config"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/logging"
	"github.com/forPelevin/podcrop/internal/pipeline"
	"github.com/forPelevin/podcrop/internal/ports/adapters/terminal"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Run the pipeline: transcribe, wait for clips.json, extract, crop, subtitle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := pipelineConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx, cancelT := context.WithTimeout(ctx, 6*time.Hour)
			defer cancelT()

			res, err := pipeline.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res.Manifest))
			log.WithField("manifest", res.ManifestPath).Debug("done")
			return nil
		},
	}
	addEpisodeFlags(cmd)
	cmd.Flags().Int("from-step", 0, "Start at step N (1 transcribe, 2 clips, 3 extract, 4 crop, 5 subtitles); 0 resumes")
	cmd.Flags().Bool("skip-transcribe", false, "Reuse the existing transcript")
	cmd.Flags().Bool("no-subtitles", false, "Do not burn subtitles")

	// Hidden tuning flag (internal)
	cmd.Flags().Duration("poll", 2*time.Second, "clips.json poll interval")
	_ = cmd.Flags().MarkHidden("poll")
	return cmd
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [input]",
		Short: "Print the crop decision of every extracted clip without rendering",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := pipelineConfig(cmd, args)
			if err != nil {
				return err
			}
			m, err := pipeline.Plan(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPlan(m))
			return nil
		},
	}
	addEpisodeFlags(cmd)
	return cmd
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget completed steps so the next run starts from the beginning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lock, err := pipeline.Lock(app.Paths.Output)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()
			if err := pipeline.ResetState(app.Paths.Output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pipeline state reset in %s\n", app.Paths.Output)
			return nil
		},
	}
}

func addEpisodeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("speakers", 0, "Speakers in the episode (3-5); 0 uses config or transcript")
	cmd.Flags().String("scene", "", "Force the scene of every clip: speakers or content")
	cmd.Flags().Int("workers", 0, "Clips cropped in parallel (overrides workers)")
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	app, used, err := config.Load(path)
	if err != nil {
		return config.Config{}, used, fmt.Errorf("config: %w", err)
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		app.Paths.Output = out
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		app.Log.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		app.Log.Format = f
	}
	return app, used, nil
}

func pipelineConfig(cmd *cobra.Command, args []string) (pipeline.Config, *logrus.Logger, error) {
	app, used, err := loadConfig(cmd)
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	log, err := logging.New(logging.Options{Level: app.Log.Level, Format: app.Log.Format, Output: cmd.ErrOrStderr()})
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	if used != "" {
		log.WithField("path", used).Debug("config loaded")
	}

	input := app.Paths.Input
	if len(args) == 1 {
		input = args[0]
	}
	absIn, err := filepath.Abs(input)
	if err != nil {
		return pipeline.Config{}, nil, err
	}

	flags := cmd.Flags()
	if n, _ := flags.GetInt("workers"); n > 0 {
		app.Workers = n
	}
	if off, _ := flags.GetBool("no-subtitles"); off {
		app.Output.Subtitles = false
	}
	cfg := pipeline.Config{
		Input:    absIn,
		App:      app,
		Log:      log,
		Operator: terminal.NewStdio(),
	}
	cfg.Speakers, _ = flags.GetInt("speakers")
	cfg.FromStep, _ = flags.GetInt("from-step")
	cfg.SkipTranscribe, _ = flags.GetBool("skip-transcribe")
	cfg.PollInterval, _ = flags.GetDuration("poll")
	if s, _ := flags.GetString("scene"); s != "" {
		sc, err := scene.Parse(s)
		if err != nil {
			return pipeline.Config{}, nil, err
		}
		cfg.Scene = sc
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, log, nil
}
