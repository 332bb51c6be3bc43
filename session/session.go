// Package session owns the per-session rolling history of clip scores
// and the summary statistics derived from it. A Tracker is not
// goroutine-safe: the capture flow allows one clip in flight at a time,
// and callers must serialize Record calls the same way.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/moodydev/evolvisense-pipeline/clients"
)

const (
	// DefaultWindow is how many recent clips feed the summary stats.
	DefaultWindow = 15
	// DefaultSampleRate is the assumed emotion sampling rate (samples/s)
	// when the service supplies neither frame timestamps nor a usable
	// clip duration.
	DefaultSampleRate = 30.0
	// NeutralEmotion is the primary emotion of an empty session.
	NeutralEmotion = "neutral"
)

type Config struct {
	Window     int
	SampleRate float64
}

func DefaultConfig() Config {
	return Config{Window: DefaultWindow, SampleRate: DefaultSampleRate}
}

// ClipScore is one inference result reduced to its mental-health triple,
// stamped with the time the result arrived. Values are percentages in
// [0,100]. Immutable once appended.
type ClipScore struct {
	Stress     float64   `json:"stress"`
	Anxiety    float64   `json:"anxiety"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
}

// Stats is recomputed from scratch on every append, so it is always a
// pure function of the current history plus the latest clip's emotion
// map. EmotionalStability is 100-(avgStress+avgAnxiety)/2 clamped to
// [0,100]; the service contract bounds inputs to [0,100] but nothing
// upstream enforces it.
type Stats struct {
	AvgConfidence      float64 `json:"avg_confidence"`
	AvgAnxiety         float64 `json:"avg_anxiety"`
	AvgStress          float64 `json:"avg_stress"`
	PeakStress         float64 `json:"peak_stress"`
	EmotionalStability float64 `json:"emotional_stability"`
	PrimaryEmotion     string  `json:"primary_emotion"`
}

func zeroStats() Stats {
	return Stats{PrimaryEmotion: NeutralEmotion}
}

// Snapshot is what one Record call hands back to the presentation side.
type Snapshot struct {
	History []ClipScore          `json:"history"`
	Stats   Stats                `json:"stats"`
	Frames  []FrameEmotionSample `json:"frames"`
}

type Tracker struct {
	cfg     Config
	history []ClipScore
	stats   Stats
	frames  []FrameEmotionSample
	now     func() time.Time
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	return &Tracker{cfg: cfg, stats: zeroStats(), now: time.Now}
}

var errNoResult = errors.New("record: nil analysis result")

// Record appends one inference result to the session: builds a ClipScore
// from the mental-health triple, evicts the oldest entry once the window
// is over capacity, recomputes the stats over the full remaining history
// and flattens the per-emotion samples into a chronological timeline. A
// nil result mutates nothing.
func (t *Tracker) Record(res *clients.AnalyzeResult) (Snapshot, error) {
	if res == nil {
		return Snapshot{}, errNoResult
	}

	t.history = append(t.history, ClipScore{
		Stress:     res.MentalHealth.Stress,
		Anxiety:    res.MentalHealth.Anxiety,
		Confidence: res.MentalHealth.Confidence,
		CapturedAt: t.now(),
	})
	if over := len(t.history) - t.cfg.Window; over > 0 {
		t.history = append(t.history[:0], t.history[over:]...)
	}

	t.stats = computeStats(t.history, res.Emotions)
	t.frames = Flatten(res.Emotions, res.FrameData, res.VideoDuration, t.cfg.SampleRate)

	return t.snapshot(), nil
}

// Reset clears the session back to its empty defaults. There is no
// partial reset.
func (t *Tracker) Reset() {
	t.history = nil
	t.frames = nil
	t.stats = zeroStats()
}

func (t *Tracker) Len() int { return len(t.history) }

func (t *Tracker) Stats() Stats { return t.stats }

// History returns a copy of the current window, oldest first.
func (t *Tracker) History() []ClipScore {
	out := make([]ClipScore, len(t.history))
	copy(out, t.history)
	return out
}

// Frames returns the latest clip's flattened emotion timeline.
func (t *Tracker) Frames() []FrameEmotionSample {
	out := make([]FrameEmotionSample, len(t.frames))
	copy(out, t.frames)
	return out
}

func (t *Tracker) snapshot() Snapshot {
	return Snapshot{History: t.History(), Stats: t.stats, Frames: t.Frames()}
}

func computeStats(history []ClipScore, emotions map[string][]float64) Stats {
	s := zeroStats()
	if len(history) == 0 {
		s.PrimaryEmotion = primaryEmotion(emotions)
		return s
	}

	var sumC, sumA, sumS, peak float64
	for _, c := range history {
		sumC += c.Confidence
		sumA += c.Anxiety
		sumS += c.Stress
		if c.Stress > peak {
			peak = c.Stress
		}
	}
	n := float64(len(history))
	s.AvgConfidence = sumC / n
	s.AvgAnxiety = sumA / n
	s.AvgStress = sumS / n
	s.PeakStress = peak
	s.EmotionalStability = clamp(100-(s.AvgStress+s.AvgAnxiety)/2, 0, 100)
	s.PrimaryEmotion = primaryEmotion(emotions)
	return s
}

// primaryEmotion picks the label with the most samples in the latest
// clip. Ties break alphabetically so the result does not depend on map
// iteration order.
func primaryEmotion(emotions map[string][]float64) string {
	if len(emotions) == 0 {
		return NeutralEmotion
	}
	labels := make([]string, 0, len(emotions))
	for label := range emotions {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := NeutralEmotion
	bestLen := -1
	for _, label := range labels {
		if n := len(emotions[label]); n > bestLen {
			best = label
			bestLen = n
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
