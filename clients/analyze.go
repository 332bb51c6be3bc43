package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"strings"
)

// --- Emotion inference (/analyze-video/) ---

type MentalHealth struct {
	Stress     float64 `json:"stress"`
	Anxiety    float64 `json:"anxiety"`
	Confidence float64 `json:"confidence"`
}

type FramePoint struct {
	Time       float64 `json:"time"`
	Stress     float64 `json:"stress"`
	Anxiety    float64 `json:"anxiety"`
	Confidence float64 `json:"confidence"`
}

type AnalyzeResult struct {
	MentalHealth  MentalHealth         `json:"mental_health"`
	Emotions      map[string][]float64 `json:"emotions"`
	PeakStress    float64              `json:"peak_stress"`
	VideoDuration float64              `json:"video_duration"`
	FrameData     []FramePoint         `json:"frame_data,omitempty"`
}

// Hosted inference backends respond with this plain-text fragment while
// they cold-start.
const sleepingMarker = "Your space"

const maxBodyBytes = 16 << 20

// Analyze performs one upload attempt. The clip is sent as multipart form
// data under the "file" field; the service expects the fixed filename
// "video.webm". Retrying is the caller's job: every failure comes back as
// an *Error whose Kind states whether another attempt makes sense.
func (h *HTTP) Analyze(ctx context.Context, url, clipPath string) (*AnalyzeResult, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "video.webm")
	if err != nil {
		return nil, WrapError(KindDeviceError, "create form file", err)
	}
	fd, err := os.Open(clipPath)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, WrapError(KindPermissionDenied, "open clip", err)
		}
		return nil, WrapError(KindDeviceError, fmt.Sprintf("open %s", clipPath), err)
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, WrapError(KindDeviceError, "copy clip", err)
	}
	if err = w.Close(); err != nil {
		return nil, WrapError(KindDeviceError, "close multipart", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/analyze-video/", &b)
	if err != nil {
		return nil, WrapError(KindProtocolError, "build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		text := strings.TrimSpace(string(body))
		if strings.Contains(text, sleepingMarker) {
			return nil, NewError(KindServiceUnavailable, "analysis service is waking up")
		}
		return nil, NewError(KindProtocolError,
			fmt.Sprintf("unexpected response from analysis service: %s", truncate(text, 100)))
	}

	var env struct {
		Error string `json:"error"`
		AnalyzeResult
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, WrapError(KindProtocolError, "decode analysis response", err)
	}
	if env.Error != "" {
		return nil, NewError(KindAnalysisError, env.Error)
	}

	out := env.AnalyzeResult
	return &out, nil
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapError(KindTimeout, "request timed out or was aborted", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return WrapError(KindTimeout, "request timed out", err)
	}
	return WrapError(KindServiceUnavailable, "analysis service unreachable", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
