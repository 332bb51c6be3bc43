package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	cfg "github.com/moodydev/evolvisense-pipeline/config"
	"github.com/moodydev/evolvisense-pipeline/session"
	"github.com/moodydev/evolvisense-pipeline/uploader"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T, inferenceURL string) *cfg.Root {
	t.Helper()
	c, err := cfg.Load("")
	if err != nil {
		t.Fatal(err)
	}
	c.Services.Inference.URL = inferenceURL
	c.Paths.Outputs = t.TempDir()
	return c
}

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(path, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func analyzeHandler(stress float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"mental_health":  map[string]float64{"stress": stress, "anxiety": 10, "confidence": 60},
			"emotions":       map[string][]float64{"happy": {70, 75}, "neutral": {50}},
			"peak_stress":    stress + 5,
			"video_duration": 2.0,
			"frame_data": []map[string]float64{
				{"time": 0, "stress": stress, "anxiety": 10, "confidence": 60},
				{"time": 1, "stress": stress, "anxiety": 10, "confidence": 60},
			},
		})
	}
}

func TestRunPersistsSessionArtifacts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(analyzeHandler(30))
	defer srv.Close()

	c := testConfig(t, srv.URL)
	p := NewPipeline(c, uploader.QuickOptions(srv.URL), quietLogger())

	var snaps []session.Snapshot
	p.OnSnapshot(func(s session.Snapshot) { snaps = append(snaps, s) })

	if err := p.Run(context.Background(), writeClip(t), writeClip(t)); err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}

	dirs, err := os.ReadDir(c.Paths.Outputs)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 {
		t.Fatalf("session dirs = %d, want 1", len(dirs))
	}
	outDir := filepath.Join(c.Paths.Outputs, dirs[0].Name())

	var bundle SessionBundle
	readJSON(t, filepath.Join(outDir, "session.json"), &bundle)
	if bundle.Clips != 2 || len(bundle.History) != 2 {
		t.Errorf("session bundle = %+v, want 2 clips", bundle)
	}
	if bundle.Stats.PrimaryEmotion != "happy" {
		t.Errorf("PrimaryEmotion = %q, want happy", bundle.Stats.PrimaryEmotion)
	}

	var clip ClipBundle
	readJSON(t, filepath.Join(outDir, "clip_01.json"), &clip)
	if clip.Result == nil || clip.Result.VideoDuration != 2.0 {
		t.Errorf("clip bundle result = %+v", clip.Result)
	}
	if len(clip.Frames) != 3 {
		t.Errorf("flattened frames = %d, want 3", len(clip.Frames))
	}
	if want := 20; len(clip.Interpolated) != want { // floor(2.0s * 10pps)
		t.Errorf("interpolated points = %d, want %d", len(clip.Interpolated), want)
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "report.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var report Report
	if err := yaml.Unmarshal(raw, &report); err != nil {
		t.Fatal(err)
	}
	if report.Clips != 2 {
		t.Errorf("report clips = %d, want 2", report.Clips)
	}
	if report.Summary.AvgStress != 30 {
		t.Errorf("report avg stress = %v, want 30", report.Summary.AvgStress)
	}
}

func TestRunFailsWithoutServiceURL(t *testing.T) {
	t.Parallel()

	c := testConfig(t, "")
	p := NewPipeline(c, uploader.Options{}, quietLogger())
	if err := p.Run(context.Background(), "clip.webm"); err == nil {
		t.Fatal("expected error with no inference URL")
	}
}

func TestRunAbortsOnFailedClip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":"no face detected"}`)
	}))
	defer srv.Close()

	c := testConfig(t, srv.URL)
	p := NewPipeline(c, uploader.QuickOptions(srv.URL), quietLogger())

	if err := p.Run(context.Background(), writeClip(t)); err == nil {
		t.Fatal("expected error")
	}
	if p.Stats() != (session.Stats{PrimaryEmotion: session.NeutralEmotion}) {
		t.Errorf("failed clip mutated session state: %+v", p.Stats())
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := writeJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	// Overwrite in place.
	if err := writeJSON(path, map[string]int{"a": 2}); err != nil {
		t.Fatal(err)
	}

	var got map[string]int
	readJSON(t, path, &got)
	if got["a"] != 2 {
		t.Errorf("got %v, want a=2", got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := []session.ClipScore{
		{Stress: 10, Anxiety: 20, Confidence: 30, CapturedAt: now},
	}
	stats := session.Stats{AvgStress: 10, AvgAnxiety: 20, AvgConfidence: 30, PeakStress: 10, EmotionalStability: 85, PrimaryEmotion: "happy"}

	r := buildReport("session_x", history, stats)
	if r.SessionID != "session_x" || r.Clips != 1 {
		t.Errorf("report header = %+v", r)
	}
	if len(r.ClipScores) != 1 || r.ClipScores[0].Stress != 10 {
		t.Errorf("clip scores = %+v", r.ClipScores)
	}
	if r.Summary.PrimaryEmotion != "happy" || r.Summary.EmotionalStability != 85 {
		t.Errorf("summary = %+v", r.Summary)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
}
