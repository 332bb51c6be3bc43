package session

import (
	"math"
	"sort"

	"github.com/moodydev/evolvisense-pipeline/clients"
)

// FrameEmotionSample is one (time, label, confidence) point on the
// frame-by-frame emotion chart.
type FrameEmotionSample struct {
	Time       float64 `json:"time"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Flatten turns the service's per-emotion sample lists into a single
// chronological sequence. A running index across all labels (labels
// visited alphabetically) maps each sample to a frame: the frame's own
// timestamp when the service supplied one, otherwise an evenly spaced
// position derived from the clip duration, and as a last resort the
// fixed sampling-rate assumption. The result is sorted by time, then
// label, so downstream interpolation sees an ordered timeline rather
// than label-grouped runs.
func Flatten(emotions map[string][]float64, frameData []clients.FramePoint, duration, sampleRate float64) []FrameEmotionSample {
	if len(emotions) == 0 {
		return nil
	}

	total := 0
	labels := make([]string, 0, len(emotions))
	for label, samples := range emotions {
		labels = append(labels, label)
		total += len(samples)
	}
	sort.Strings(labels)
	if total == 0 {
		return nil
	}

	spacing := 0.0
	switch {
	case duration > 0:
		spacing = duration / float64(total)
	case sampleRate > 0:
		spacing = 1 / sampleRate
	}

	out := make([]FrameEmotionSample, 0, total)
	idx := 0
	for _, label := range labels {
		for _, confidence := range emotions[label] {
			var t float64
			if idx < len(frameData) {
				t = frameData[idx].Time
			} else {
				t = float64(idx) * spacing
			}
			out = append(out, FrameEmotionSample{
				Time:       math.Round(t*10) / 10,
				Emotion:    label,
				Confidence: confidence,
			})
			idx++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Emotion < out[j].Emotion
	})
	return out
}

// Interpolate resamples a sparse frame-emotion timeline onto
// floor(duration*pointsPerSecond) evenly spaced target times. Confidence
// is linearly interpolated between the two samples bracketing each
// target; the label comes from whichever bracketing sample is closer in
// time, ties resolved toward the earlier one. Targets outside the input
// range clip to the first or last sample. Deterministic for identical
// inputs.
func Interpolate(frames []FrameEmotionSample, duration, pointsPerSecond float64) []FrameEmotionSample {
	if len(frames) == 0 || duration <= 0 || pointsPerSecond <= 0 {
		return nil
	}
	total := int(math.Floor(duration * pointsPerSecond))
	if total <= 0 {
		return nil
	}

	step := 0.0
	if total > 1 {
		step = duration / float64(total-1)
	}

	out := make([]FrameEmotionSample, 0, total)
	for i := 0; i < total; i++ {
		target := float64(i) * step

		prev := frames[0]
		next := frames[len(frames)-1]
		found := false
		for j := 0; j < len(frames)-1; j++ {
			if frames[j].Time <= target && frames[j+1].Time >= target {
				prev = frames[j]
				next = frames[j+1]
				found = true
				break
			}
		}
		if !found {
			if target < frames[0].Time {
				prev = frames[0]
				next = frames[0]
			} else {
				prev = frames[len(frames)-1]
				next = frames[len(frames)-1]
			}
		}

		span := next.Time - prev.Time
		weight := 0.0
		if span > 0 {
			weight = (target - prev.Time) / span
		}
		confidence := prev.Confidence + (next.Confidence-prev.Confidence)*weight

		label := next.Emotion
		if target-prev.Time <= next.Time-target {
			label = prev.Emotion
		}

		out = append(out, FrameEmotionSample{
			Time:       target,
			Emotion:    label,
			Confidence: confidence,
		})
	}
	return out
}
