package session

import (
	"math"
	"testing"
	"time"

	"github.com/moodydev/evolvisense-pipeline/clients"
)

func result(stress, anxiety, confidence float64) *clients.AnalyzeResult {
	return &clients.AnalyzeResult{
		MentalHealth: clients.MentalHealth{
			Stress:     stress,
			Anxiety:    anxiety,
			Confidence: confidence,
		},
	}
}

func newTestTracker(window int) *Tracker {
	trk := NewTracker(Config{Window: window, SampleRate: DefaultSampleRate})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n := 0
	trk.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return trk
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWindowEviction(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	for i := 1; i <= 16; i++ {
		if _, err := trk.Record(result(float64(i), 0, 0)); err != nil {
			t.Fatalf("record clip %d: %v", i, err)
		}
		if trk.Len() > 15 {
			t.Fatalf("history length %d exceeds window after clip %d", trk.Len(), i)
		}
	}

	hist := trk.History()
	if len(hist) != 15 {
		t.Fatalf("history length = %d, want 15", len(hist))
	}
	for i, c := range hist {
		if want := float64(i + 2); c.Stress != want {
			t.Fatalf("history[%d].Stress = %v, want %v", i, c.Stress, want)
		}
	}

	stats := trk.Stats()
	if !almostEqual(stats.AvgStress, 9.0) {
		t.Errorf("AvgStress = %v, want 9.0", stats.AvgStress)
	}
	if stats.PeakStress != 16 {
		t.Errorf("PeakStress = %v, want 16", stats.PeakStress)
	}
}

func TestStatsAreMeansOverHistory(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	trk.Record(result(10, 20, 30))
	trk.Record(result(20, 40, 50))

	stats := trk.Stats()
	if !almostEqual(stats.AvgStress, 15) {
		t.Errorf("AvgStress = %v, want 15", stats.AvgStress)
	}
	if !almostEqual(stats.AvgAnxiety, 30) {
		t.Errorf("AvgAnxiety = %v, want 30", stats.AvgAnxiety)
	}
	if !almostEqual(stats.AvgConfidence, 40) {
		t.Errorf("AvgConfidence = %v, want 40", stats.AvgConfidence)
	}
	if stats.PeakStress != 20 {
		t.Errorf("PeakStress = %v, want 20", stats.PeakStress)
	}
	// 100 - (15+30)/2
	if !almostEqual(stats.EmotionalStability, 77.5) {
		t.Errorf("EmotionalStability = %v, want 77.5", stats.EmotionalStability)
	}
}

func TestEmptyTrackerDefaults(t *testing.T) {
	t.Parallel()

	trk := NewTracker(DefaultConfig())
	stats := trk.Stats()
	if stats.AvgStress != 0 || stats.AvgAnxiety != 0 || stats.AvgConfidence != 0 || stats.PeakStress != 0 {
		t.Errorf("empty tracker stats not zero: %+v", stats)
	}
	if stats.PrimaryEmotion != NeutralEmotion {
		t.Errorf("PrimaryEmotion = %q, want %q", stats.PrimaryEmotion, NeutralEmotion)
	}
	if trk.Len() != 0 {
		t.Errorf("Len = %d, want 0", trk.Len())
	}
}

func TestResetClearsEverything(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	res := result(50, 60, 70)
	res.Emotions = map[string][]float64{"happy": {1, 2, 3}}
	trk.Record(res)

	trk.Reset()

	if trk.Len() != 0 {
		t.Errorf("Len after reset = %d, want 0", trk.Len())
	}
	if got := trk.Stats(); got != (Stats{PrimaryEmotion: NeutralEmotion}) {
		t.Errorf("stats after reset = %+v", got)
	}
	if frames := trk.Frames(); len(frames) != 0 {
		t.Errorf("frames after reset = %d samples, want 0", len(frames))
	}
}

func TestRecordNilDoesNotMutate(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	trk.Record(result(10, 10, 10))
	before := trk.Stats()

	if _, err := trk.Record(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
	if trk.Len() != 1 {
		t.Errorf("Len = %d, want 1", trk.Len())
	}
	if trk.Stats() != before {
		t.Errorf("stats mutated by failed record: %+v", trk.Stats())
	}
}

func TestPrimaryEmotionLongestList(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	res := result(0, 0, 0)
	res.Emotions = map[string][]float64{
		"happy": {10, 20},
		"sad":   {90},
	}
	snap, err := trk.Record(res)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.PrimaryEmotion != "happy" {
		t.Errorf("PrimaryEmotion = %q, want happy", snap.Stats.PrimaryEmotion)
	}
}

func TestPrimaryEmotionTieBreaksAlphabetically(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	res := result(0, 0, 0)
	res.Emotions = map[string][]float64{
		"surprise": {1},
		"anger":    {2},
	}
	snap, err := trk.Record(res)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Stats.PrimaryEmotion != "anger" {
		t.Errorf("PrimaryEmotion = %q, want anger (alphabetical tie-break)", snap.Stats.PrimaryEmotion)
	}
}

func TestEmotionalStabilityClamped(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	// Out-of-contract inputs must not push stability below zero.
	trk.Record(result(300, 300, 0))
	if got := trk.Stats().EmotionalStability; got != 0 {
		t.Errorf("EmotionalStability = %v, want 0 (clamped)", got)
	}

	trk.Reset()
	trk.Record(result(0, 0, 100))
	if got := trk.Stats().EmotionalStability; got != 100 {
		t.Errorf("EmotionalStability = %v, want 100", got)
	}
}

func TestMissingMentalHealthDefaultsToZero(t *testing.T) {
	t.Parallel()

	trk := newTestTracker(15)
	snap, err := trk.Record(&clients.AnalyzeResult{})
	if err != nil {
		t.Fatal(err)
	}
	c := snap.History[0]
	if c.Stress != 0 || c.Anxiety != 0 || c.Confidence != 0 {
		t.Errorf("missing mental_health should default to zero, got %+v", c)
	}
}
