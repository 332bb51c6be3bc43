package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/moodydev/evolvisense-pipeline/config"
	"github.com/moodydev/evolvisense-pipeline/orchestrator"
	"github.com/moodydev/evolvisense-pipeline/session"
	"github.com/moodydev/evolvisense-pipeline/tui"
	"github.com/moodydev/evolvisense-pipeline/uploader"
)

var (
	analyzeQuick       bool
	analyzeDashboard   bool
	analyzeService     string
	analyzeOutputs     string
	analyzeMaxAttempts int
	analyzeTimeout     time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <clip.webm> [more clips...]",
	Short: "Upload clips for emotion analysis and aggregate session stats",
	Long: `Analyze uploads each clip to the inference service in order, retrying
while the backend cold-starts, and folds every result into the rolling
session window. Outputs land in a per-session directory: one JSON bundle
per clip, the running session state, and a YAML report.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeQuick, "quick", false, "use the quick-clip budget (30s timeout, 10MB cap)")
	analyzeCmd.Flags().BoolVar(&analyzeDashboard, "dashboard", false, "show a live terminal dashboard")
	analyzeCmd.Flags().StringVar(&analyzeService, "service", "", "inference service URL (overrides config)")
	analyzeCmd.Flags().StringVar(&analyzeOutputs, "outputs", "", "outputs directory (overrides config)")
	analyzeCmd.Flags().IntVar(&analyzeMaxAttempts, "max-attempts", 0, "upload attempt budget (overrides config)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "per-attempt request timeout (overrides config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Pipeline.LogLvl)

	if analyzeService != "" {
		cfg.Services.Inference.URL = analyzeService
	}
	if analyzeOutputs != "" {
		cfg.Paths.Outputs = analyzeOutputs
	}

	opts := uploader.Options{
		ServiceURL:     cfg.Services.Inference.URL,
		MaxAttempts:    cfg.Upload.MaxAttempts,
		Backoff:        cfg.Upload.Backoff,
		AttemptTimeout: cfg.Upload.AttemptTimeout,
		MaxClipBytes:   cfg.Upload.MaxClipBytes(),
	}
	if analyzeQuick {
		quick := uploader.QuickOptions(cfg.Services.Inference.URL)
		opts.AttemptTimeout = quick.AttemptTimeout
		opts.MaxClipBytes = quick.MaxClipBytes
	}
	if analyzeMaxAttempts > 0 {
		opts.MaxAttempts = analyzeMaxAttempts
	}
	if analyzeTimeout > 0 {
		opts.AttemptTimeout = analyzeTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := orchestrator.NewPipeline(cfg, opts, log)

	if analyzeDashboard {
		return runWithDashboard(ctx, p, args)
	}

	if err := p.Run(ctx, args...); err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), p)
	return nil
}

func runWithDashboard(ctx context.Context, p *orchestrator.Pipeline, clips []string) error {
	// Logs would tear the dashboard apart; keep them out of the terminal.
	log.SetOutput(io.Discard)

	prog := tea.NewProgram(tui.New())
	p.OnProgress(func(pr uploader.Progress) { prog.Send(tui.ProgressMsg(pr)) })
	p.OnSnapshot(func(s session.Snapshot) { prog.Send(tui.SnapshotMsg(s)) })

	done := make(chan error, 1)
	go func() {
		err := p.Run(ctx, clips...)
		prog.Send(tui.DoneMsg{Err: err})
		done <- err
	}()

	if _, err := prog.Run(); err != nil {
		return err
	}
	return <-done
}

func printStats(w io.Writer, p *orchestrator.Pipeline) {
	s := p.Stats()
	fmt.Fprintf(w, "Primary emotion:     %s\n", s.PrimaryEmotion)
	fmt.Fprintf(w, "Avg confidence:      %.1f%%\n", s.AvgConfidence)
	fmt.Fprintf(w, "Avg anxiety:         %.1f%%\n", s.AvgAnxiety)
	fmt.Fprintf(w, "Avg stress:          %.1f%%\n", s.AvgStress)
	fmt.Fprintf(w, "Peak stress:         %.1f%%\n", s.PeakStress)
	fmt.Fprintf(w, "Emotional stability: %.1f%%\n", s.EmotionalStability)
}
