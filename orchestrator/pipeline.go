package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	cfg "github.com/moodydev/evolvisense-pipeline/config"
	"github.com/moodydev/evolvisense-pipeline/clients"
	"github.com/moodydev/evolvisense-pipeline/session"
	"github.com/moodydev/evolvisense-pipeline/uploader"
)

// Pipeline runs clips through upload, session aggregation, persistence
// and visualization. One Pipeline owns one session; clips are processed
// strictly in order because the tracker is single-flight by contract.
type Pipeline struct {
	cfg  *cfg.Root
	http *clients.HTTP
	up   *uploader.Uploader
	trk  *session.Tracker
	log  *logrus.Entry

	onSnapshot func(session.Snapshot)
}

func NewPipeline(c *cfg.Root, opts uploader.Options, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "pipeline")
	h := clients.NewHTTP()
	return &Pipeline{
		cfg:  c,
		http: h,
		up:   uploader.New(h, opts, log.WithField("component", "uploader")),
		trk: session.NewTracker(session.Config{
			Window:     c.Session.Window,
			SampleRate: c.Session.SampleRate,
		}),
		log: entry,
	}
}

// OnProgress forwards uploader state changes (attempt counts, retries)
// to an observer such as the dashboard.
func (p *Pipeline) OnProgress(fn func(uploader.Progress)) { p.up.OnProgress(fn) }

// OnSnapshot is called after every successfully recorded clip.
func (p *Pipeline) OnSnapshot(fn func(session.Snapshot)) { p.onSnapshot = fn }

// Stats exposes the tracker's current summary.
func (p *Pipeline) Stats() session.Stats { return p.trk.Stats() }

// Reset clears the session history and stats.
func (p *Pipeline) Reset() { p.trk.Reset() }

var errNoServiceURL = errors.New("inference service URL not configured")

// Run processes the given clips in order. A failed clip aborts the run:
// its error carries the final classified kind after the uploader's retry
// budget is spent, and the session state is exactly what the previous
// clips left behind.
func (p *Pipeline) Run(ctx context.Context, clipPaths ...string) error {
	if p.cfg.Services.Inference.URL == "" {
		return errNoServiceURL
	}

	sid, outDir, err := mkSessionDir(p.cfg.Paths.Outputs)
	if err != nil {
		return err
	}
	p.log.WithField("session", sid).Info("session started")

	for i, clip := range clipPaths {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := p.up.UploadAndAnalyze(ctx, clip)
		if err != nil {
			return err
		}

		snap, err := p.trk.Record(res)
		if err != nil {
			return err
		}
		if p.onSnapshot != nil {
			p.onSnapshot(snap)
		}

		interp := session.Interpolate(snap.Frames, res.VideoDuration, p.cfg.Session.PointsPerSecond)

		clipPath, err := persistClip(outDir, i+1, ClipBundle{
			Clip:          clip,
			AnalyzedAt:    time.Now(),
			Result:        res,
			Frames:        snap.Frames,
			Interpolated:  interp,
			VideoDuration: res.VideoDuration,
		})
		if err != nil {
			return err
		}
		if _, err := persistSession(outDir, SessionBundle{
			SessionID:   sid,
			GeneratedAt: time.Now(),
			Clips:       i + 1,
			History:     snap.History,
			Stats:       snap.Stats,
		}); err != nil {
			return err
		}
		p.log.WithFields(logrus.Fields{
			"clip":            clip,
			"bundle":          clipPath,
			"primary_emotion": snap.Stats.PrimaryEmotion,
			"avg_stress":      snap.Stats.AvgStress,
			"peak_stress":     snap.Stats.PeakStress,
		}).Info("clip analyzed")

		p.visualize(ctx, outDir, res, snap)
	}

	report := buildReport(sid, p.trk.History(), p.trk.Stats())
	reportPath, err := writeReport(outDir, report)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"session": sid,
		"report":  reportPath,
	}).Info("session complete")
	return nil
}

// visualize posts chart requests for the latest clip. Chart failures are
// logged, not fatal: the analysis already succeeded and is persisted.
func (p *Pipeline) visualize(ctx context.Context, outDir string, res *clients.AnalyzeResult, snap session.Snapshot) {
	url := p.cfg.Services.Visualization.URL
	if url == "" {
		return
	}

	if len(res.FrameData) > 0 {
		req := clients.TimelineReq{
			Times:      make([]float64, len(res.FrameData)),
			Stress:     make([]float64, len(res.FrameData)),
			Anxiety:    make([]float64, len(res.FrameData)),
			Confidence: make([]float64, len(res.FrameData)),
			PeakStress: snap.Stats.PeakStress,
			OutputDir:  outDir,
		}
		for i, f := range res.FrameData {
			req.Times[i] = f.Time
			req.Stress[i] = f.Stress
			req.Anxiety[i] = f.Anxiety
			req.Confidence[i] = f.Confidence
		}
		if _, err := p.http.GenerateTimeline(ctx, url, req); err != nil {
			p.log.WithError(err).Warn("timeline viz error")
		}
	}

	radar := clients.RadarReq{
		Categories: []string{"confidence", "anxiety", "stress", "peak_stress", "stability"},
		Values: []float64{
			snap.Stats.AvgConfidence,
			snap.Stats.AvgAnxiety,
			snap.Stats.AvgStress,
			snap.Stats.PeakStress,
			snap.Stats.EmotionalStability,
		},
		SessionName: "EvolviSense Session",
		OutputDir:   outDir,
	}
	if _, err := p.http.GenerateRadar(ctx, url, radar); err != nil {
		p.log.WithError(err).Warn("radar viz error")
	}
}
