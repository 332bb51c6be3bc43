package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moodydev/evolvisense-pipeline/clients"
	"github.com/moodydev/evolvisense-pipeline/session"
)

// ClipBundle is everything one clip produced, written as
// clip_<NN>.json inside the session directory.
type ClipBundle struct {
	Clip          string                       `json:"clip"`
	AnalyzedAt    time.Time                    `json:"analyzed_at"`
	Result        *clients.AnalyzeResult       `json:"result"`
	Frames        []session.FrameEmotionSample `json:"frames"`
	Interpolated  []session.FrameEmotionSample `json:"interpolated"`
	VideoDuration float64                      `json:"video_duration"`
}

// SessionBundle mirrors the tracker after the latest clip; rewritten as
// session.json after every append so a crash never loses more than the
// in-flight clip.
type SessionBundle struct {
	SessionID   string              `json:"session_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Clips       int                 `json:"clips"`
	History     []session.ClipScore `json:"history"`
	Stats       session.Stats       `json:"stats"`
}

func mkSessionDir(outputsRoot string) (string, string, error) {
	ts := time.Now().Format("20060102-150405")
	sid := "session_" + ts
	dir := filepath.Join(outputsRoot, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("make session dir: %w", err)
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func persistClip(outDir string, index int, bundle ClipBundle) (string, error) {
	path := filepath.Join(outDir, fmt.Sprintf("clip_%02d.json", index))
	if err := writeJSON(path, bundle); err != nil {
		return "", err
	}
	return path, nil
}

func persistSession(outDir string, bundle SessionBundle) (string, error) {
	path := filepath.Join(outDir, "session.json")
	if err := writeJSON(path, bundle); err != nil {
		return "", err
	}
	return path, nil
}
