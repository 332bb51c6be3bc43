// Package uploader is the single retry wrapper around the inference
// service: every screen-level upload path goes through it instead of
// re-implementing its own backoff loop.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moodydev/evolvisense-pipeline/clients"
)

// State tracks one clip through the upload lifecycle.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tune one upload path. Timeout and size budgets are per-caller
// because clip lengths vary by feature: quick emotion checks send short
// clips, interview sessions send several minutes of video.
type Options struct {
	ServiceURL     string
	MaxAttempts    int           // total attempts, network calls never exceed this
	Backoff        time.Duration // fixed wait between retryable attempts
	AttemptTimeout time.Duration // request deadline per attempt
	MaxClipBytes   int64         // checked before any network call
}

// QuickOptions is the budget for short ad hoc clips.
func QuickOptions(serviceURL string) Options {
	return Options{
		ServiceURL:     serviceURL,
		MaxAttempts:    3,
		Backoff:        5 * time.Second,
		AttemptTimeout: 30 * time.Second,
		MaxClipBytes:   10 << 20,
	}
}

// InterviewOptions is the budget for full interview recordings.
func InterviewOptions(serviceURL string) Options {
	return Options{
		ServiceURL:     serviceURL,
		MaxAttempts:    3,
		Backoff:        5 * time.Second,
		AttemptTimeout: 300 * time.Second,
		MaxClipBytes:   100 << 20,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 5 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 300 * time.Second
	}
	if o.MaxClipBytes <= 0 {
		o.MaxClipBytes = 100 << 20
	}
	return o
}

// Progress is emitted on every state change so retry attempts are
// visible to the user instead of looking like a hang.
type Progress struct {
	Clip        string
	Attempt     int
	MaxAttempts int
	State       State
	Err         error
}

type Uploader struct {
	http       *clients.HTTP
	opts       Options
	state      State
	log        *logrus.Entry
	onProgress func(Progress)

	// sleep is swapped out in tests so retries do not wait for real time.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(h *clients.HTTP, opts Options, log *logrus.Entry) *Uploader {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Uploader{
		http:  h,
		opts:  opts.withDefaults(),
		state: StateIdle,
		log:   log,
		sleep: sleepCtx,
	}
}

// OnProgress registers a single observer for state changes.
func (u *Uploader) OnProgress(fn func(Progress)) { u.onProgress = fn }

func (u *Uploader) State() State { return u.state }

// UploadAndAnalyze sends one recorded clip to the inference service,
// retrying transient failures up to the attempt budget. It never mutates
// session state; on success the caller hands the result to the session
// tracker. Aborting the context leaves the uploader in StateFailed, never
// stuck in StateUploading.
func (u *Uploader) UploadAndAnalyze(ctx context.Context, clipPath string) (*clients.AnalyzeResult, error) {
	st, err := os.Stat(clipPath)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return u.fail(clipPath, 0, clients.WrapError(clients.KindPermissionDenied, "stat clip", err))
		}
		return u.fail(clipPath, 0, clients.WrapError(clients.KindDeviceError, fmt.Sprintf("stat %s", clipPath), err))
	}
	if st.Size() == 0 {
		return u.fail(clipPath, 0, clients.NewError(clients.KindDeviceError, "recorded clip is empty"))
	}
	if st.Size() > u.opts.MaxClipBytes {
		return u.fail(clipPath, 0, clients.NewError(clients.KindSizeLimitExceeded,
			fmt.Sprintf("clip is %d bytes, limit is %d", st.Size(), u.opts.MaxClipBytes)))
	}

	var lastErr error
	for attempt := 1; attempt <= u.opts.MaxAttempts; attempt++ {
		u.setState(Progress{Clip: clipPath, Attempt: attempt, MaxAttempts: u.opts.MaxAttempts, State: StateUploading})
		u.log.WithFields(logrus.Fields{
			"clip":    clipPath,
			"attempt": attempt,
			"max":     u.opts.MaxAttempts,
		}).Info("uploading clip for analysis")

		attemptCtx, cancel := context.WithTimeout(ctx, u.opts.AttemptTimeout)
		res, err := u.http.Analyze(attemptCtx, u.opts.ServiceURL, clipPath)
		cancel()

		if err == nil {
			u.setState(Progress{Clip: clipPath, Attempt: attempt, MaxAttempts: u.opts.MaxAttempts, State: StateSucceeded})
			return res, nil
		}
		lastErr = err

		kind := clients.KindOf(err)
		if ctx.Err() != nil {
			return u.fail(clipPath, attempt, fmt.Errorf("upload aborted: %w", err))
		}
		if !kind.Retryable() || attempt == u.opts.MaxAttempts {
			return u.fail(clipPath, attempt, err)
		}

		u.setState(Progress{Clip: clipPath, Attempt: attempt, MaxAttempts: u.opts.MaxAttempts, State: StateRetrying, Err: err})
		u.log.WithFields(logrus.Fields{
			"clip":    clipPath,
			"attempt": attempt,
			"max":     u.opts.MaxAttempts,
			"kind":    kind.String(),
			"backoff": u.opts.Backoff,
		}).Warn("transient upload failure, retrying")

		if err := u.sleep(ctx, u.opts.Backoff); err != nil {
			return u.fail(clipPath, attempt, fmt.Errorf("upload aborted: %w", lastErr))
		}
	}

	// Unreachable: the loop always returns.
	return u.fail(clipPath, u.opts.MaxAttempts, lastErr)
}

func (u *Uploader) fail(clip string, attempt int, err error) (*clients.AnalyzeResult, error) {
	u.setState(Progress{Clip: clip, Attempt: attempt, MaxAttempts: u.opts.MaxAttempts, State: StateFailed, Err: err})
	u.log.WithFields(logrus.Fields{
		"clip": clip,
		"kind": clients.KindOf(err).String(),
	}).WithError(err).Error("upload failed")
	return nil, err
}

func (u *Uploader) setState(p Progress) {
	u.state = p.State
	if u.onProgress != nil {
		u.onProgress(p)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
