// Package pipeline wires the voice-coaching analysis end to end: owner and
// quota resolution, audio fetch, segmentation, sequential model calls,
// aggregation, and the race-safe write. It is the only component with side
// effects on external state besides the analyzer's outbound calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"voicecoach-go/internal/grading"
	"voicecoach-go/internal/logger"
	"voicecoach-go/internal/metrics"
	"voicecoach-go/internal/quota"
	"voicecoach-go/internal/segment"
	"voicecoach-go/internal/storage"
	"voicecoach-go/internal/types"
)

// Fallback byte rate for duration estimation when the transcript carries no
// timestamps: 128 kbit/s, the common telephony-recording export rate.
const fallbackBytesPerSecond = 16000.0

var (
	ErrAudioTooLarge = errors.New("audio exceeds size ceiling")
	ErrBadRequest    = errors.New("malformed analyze request")
)

type OwnerResolver interface {
	Resolve(ctx context.Context, transcriptID string) (types.OwnerRef, error)
}

type QuotaGate interface {
	Check(ctx context.Context, userID, teamID string) (quota.Decision, error)
	Reserve(ctx context.Context, userID, teamID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

type BlobStore interface {
	Size(ctx context.Context, key string) (int64, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

type ModelClient interface {
	AnalyzeSegment(ctx context.Context, seg types.Segment, audio []byte, format string) (types.SegmentAnalysis, error)
	Summarize(ctx context.Context, m types.VoiceMetrics, grade string, segments int) (string, error)
}

type ResultWriter interface {
	SaveVoiceAnalysis(ctx context.Context, ownerID, userID string, result types.VoiceAnalysisResult) error
}

type Orchestrator struct {
	owners OwnerResolver
	quotas QuotaGate
	blobs  BlobStore
	model  ModelClient
	writer ResultWriter
	sink   *metrics.Sink

	maxAudioBytes int64
	log           *logger.Logger
}

func New(owners OwnerResolver, quotas QuotaGate, blobs BlobStore, model ModelClient, writer ResultWriter, sink *metrics.Sink, maxAudioBytes int64) *Orchestrator {
	return &Orchestrator{
		owners:        owners,
		quotas:        quotas,
		blobs:         blobs,
		model:         model,
		writer:        writer,
		sink:          sink,
		maxAudioBytes: maxAudioBytes,
		log:           logger.New(),
	}
}

// Validate rejects request-shape errors before any background work starts.
func Validate(req types.AnalyzeRequest) error {
	if req.TranscriptID == "" || req.AudioPath == "" || req.TranscriptText == "" {
		return fmt.Errorf("%w: transcriptId, audioPath and transcriptText are required", ErrBadRequest)
	}
	switch req.Pipeline {
	case "full_cycle", "sdr":
	default:
		return fmt.Errorf("%w: unknown pipeline %q", ErrBadRequest, req.Pipeline)
	}
	return nil
}

// Run executes one analysis job. Nothing here surfaces to the caller; every
// terminal state lands in the metrics stream, and failure is visible to
// users only as the absence of a report.
func (o *Orchestrator) Run(ctx context.Context, req types.AnalyzeRequest) {
	start := time.Now()
	log := o.log.WithJob(req.TranscriptID, req.Pipeline)

	status, result := o.run(ctx, req, log)
	o.sink.Emit("voice_analysis_run", time.Since(start), status, map[string]any{
		"transcript_id": req.TranscriptID,
		"pipeline":      req.Pipeline,
	})
	if result != nil {
		log.WithFields(logrus.Fields{
			"grade":    result.Grade,
			"segments": result.SegmentsAnalyzed,
		}).Info("voice analysis stored")
	}
}

func (o *Orchestrator) run(ctx context.Context, req types.AnalyzeRequest, log *logrus.Entry) (string, *types.VoiceAnalysisResult) {
	if err := Validate(req); err != nil {
		log.WithError(err).Warn("invalid analyze request reached the pipeline")
		return "bad_request", nil
	}

	ref, err := o.owners.Resolve(ctx, req.TranscriptID)
	if err != nil {
		log.WithError(err).Error("owner lookup failed, cannot attribute quota")
		return "owner_lookup_failed", nil
	}
	log = log.WithField("user_id", ref.UserID)

	decision, err := o.quotas.Check(ctx, ref.UserID, ref.TeamID)
	if err != nil {
		// Fail closed: unmetered model spend is worse than a denied run.
		log.WithError(err).Error("quota check failed, denying run")
		return "quota_error", nil
	}
	if !decision.Allowed {
		log.WithFields(logrus.Fields{"used": decision.Used, "limit": decision.Limit}).
			Info("monthly quota exhausted, skipping analysis")
		return "quota_exceeded", nil
	}

	// Reserve before spending; a failed run after this point has paid for a
	// slot, which beats ever racing past the limit.
	reserved, err := o.quotas.Reserve(ctx, ref.UserID, ref.TeamID)
	if err != nil {
		log.WithError(err).Error("quota reservation failed, denying run")
		return "quota_error", nil
	}
	if !reserved {
		return "quota_exceeded", nil
	}

	audio, totalBytes, status := o.fetchAudio(ctx, req, ref, log)
	if status != "" {
		return status, nil
	}

	duration := o.estimateDuration(req, totalBytes, log)
	keyMoment, hasKeyMoment := segment.FindKeyMoment(req.TranscriptText, duration)
	segments := segment.Plan(totalBytes, duration, keyMoment, hasKeyMoment)
	format := storage.CodecHint(req.AudioPath)

	// Sequential on purpose: one base64 payload in flight bounds both memory
	// and outbound concurrency to the model.
	analyses := make([]types.SegmentAnalysis, 0, len(segments))
	for _, seg := range segments {
		segStart := time.Now()
		analysis, err := o.model.AnalyzeSegment(ctx, seg, sliceAudio(audio, seg), format)
		o.sink.ModelCall(time.Since(segStart))
		if err != nil {
			log.WithField("segment", string(seg.Label)).WithError(err).
				Warn("segment analysis dropped")
			o.sink.SegmentDropped()
			continue
		}
		o.sink.SegmentAnalyzed()
		analyses = append(analyses, analysis)
	}

	result, err := grading.BuildResult(analyses, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("every segment failed, no result written")
		return "no_segments", nil
	}

	result.Summary = o.summarize(ctx, result, log)

	ownerID := req.CallID
	if ownerID == "" {
		ownerID = req.TranscriptID
	}
	if err := o.writer.SaveVoiceAnalysis(ctx, ownerID, ref.UserID, result); err != nil {
		// Logged, not retried; the next run overwrites wholesale anyway.
		log.WithError(err).Error("persisting voice analysis failed")
		return "persist_failed", nil
	}

	return "completed", &result
}

// fetchAudio runs the size guard and download. A non-empty status string is
// terminal; the reservation is returned since no model call was made yet.
func (o *Orchestrator) fetchAudio(ctx context.Context, req types.AnalyzeRequest, ref types.OwnerRef, log *logrus.Entry) ([]byte, int64, string) {
	size, err := o.blobs.Size(ctx, req.AudioPath)
	if err != nil {
		log.WithError(err).Error("audio size probe failed")
		o.release(ctx, ref.UserID, log)
		return nil, 0, "audio_unavailable"
	}
	if size > o.maxAudioBytes {
		log.WithFields(logrus.Fields{"size": size, "ceiling": o.maxAudioBytes}).
			Error("audio exceeds size ceiling, run rejected")
		o.release(ctx, ref.UserID, log)
		return nil, 0, "audio_too_large"
	}

	audio, err := o.blobs.Download(ctx, req.AudioPath)
	if err != nil {
		log.WithError(err).Error("audio download failed")
		o.release(ctx, ref.UserID, log)
		return nil, 0, "download_failed"
	}
	return audio, int64(len(audio)), ""
}

func (o *Orchestrator) release(ctx context.Context, userID string, log *logrus.Entry) {
	if err := o.quotas.Release(ctx, userID); err != nil {
		log.WithError(err).Warn("could not return quota reservation")
	}
}

func (o *Orchestrator) summarize(ctx context.Context, result types.VoiceAnalysisResult, log *logrus.Entry) string {
	summary, err := o.model.Summarize(ctx, result.Metrics, result.Grade, result.SegmentsAnalyzed)
	if err != nil {
		log.WithError(err).Warn("summary model failed, using template")
		return grading.FallbackSummary(result.Metrics, result.Grade, result.SegmentsAnalyzed)
	}
	return summary
}

// estimateDuration prefers transcript timestamps and falls back to a byte
// heuristic. The segmentation only needs a rough figure.
func (o *Orchestrator) estimateDuration(req types.AnalyzeRequest, totalBytes int64, log *logrus.Entry) float64 {
	if d, ok := segment.EstimateDurationFromTranscript(req.TranscriptText); ok && d > 0 {
		return d
	}
	d := float64(totalBytes) / fallbackBytesPerSecond
	log.WithField("estimated_seconds", d).Debug("no transcript timestamps, estimating duration from size")
	return d
}

func sliceAudio(audio []byte, seg types.Segment) []byte {
	start, end := seg.StartByte, seg.EndByte
	if start < 0 {
		start = 0
	}
	if end > int64(len(audio)) {
		end = int64(len(audio))
	}
	if start >= end {
		return nil
	}
	return audio[start:end]
}
