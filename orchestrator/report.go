package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moodydev/evolvisense-pipeline/session"
)

// Report is the human-readable session summary, written as report.yaml
// next to the JSON bundles.
type Report struct {
	SessionID   string    `yaml:"session_id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Clips       int       `yaml:"clips_analyzed"`

	Summary struct {
		PrimaryEmotion     string  `yaml:"primary_emotion"`
		AvgConfidence      float64 `yaml:"avg_confidence"`
		AvgAnxiety         float64 `yaml:"avg_anxiety"`
		AvgStress          float64 `yaml:"avg_stress"`
		PeakStress         float64 `yaml:"peak_stress"`
		EmotionalStability float64 `yaml:"emotional_stability"`
	} `yaml:"summary"`

	ClipScores []ReportClip `yaml:"clip_scores"`
}

type ReportClip struct {
	CapturedAt time.Time `yaml:"captured_at"`
	Stress     float64   `yaml:"stress"`
	Anxiety    float64   `yaml:"anxiety"`
	Confidence float64   `yaml:"confidence"`
}

func buildReport(sid string, history []session.ClipScore, stats session.Stats) Report {
	r := Report{
		SessionID:   sid,
		GeneratedAt: time.Now(),
		Clips:       len(history),
	}
	r.Summary.PrimaryEmotion = stats.PrimaryEmotion
	r.Summary.AvgConfidence = stats.AvgConfidence
	r.Summary.AvgAnxiety = stats.AvgAnxiety
	r.Summary.AvgStress = stats.AvgStress
	r.Summary.PeakStress = stats.PeakStress
	r.Summary.EmotionalStability = stats.EmotionalStability

	for _, c := range history {
		r.ClipScores = append(r.ClipScores, ReportClip{
			CapturedAt: c.CapturedAt,
			Stress:     c.Stress,
			Anxiety:    c.Anxiety,
			Confidence: c.Confidence,
		})
	}
	return r
}

func writeReport(outDir string, r Report) (string, error) {
	path := filepath.Join(outDir, "report.yaml")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(r); err != nil {
		enc.Close()
		f.Close()
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
