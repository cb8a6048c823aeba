package types

import "time"

// --------------------------------------------
// Inbound service-to-service request/ack
// --------------------------------------------

type AnalyzeRequest struct {
	TranscriptID   string `json:"transcriptId"`
	CallID         string `json:"callId,omitempty"`
	AudioPath      string `json:"audioPath"`
	Pipeline       string `json:"pipeline"` // full_cycle | sdr
	TranscriptText string `json:"transcriptText"`
}

type AnalyzeAck struct {
	Status       string `json:"status"`
	TranscriptID string `json:"transcriptId"`
	Pipeline     string `json:"pipeline"`
}

// OwnerRef identifies the user (and optionally team) a transcript belongs to,
// for quota attribution.
type OwnerRef struct {
	UserID string `json:"userId"`
	TeamID string `json:"teamId,omitempty"`
}

// --------------------------------------------
// Segmentation
// --------------------------------------------

type SegmentLabel string

const (
	SegmentOpener    SegmentLabel = "opener"
	SegmentKeyMoment SegmentLabel = "key_moment"
	SegmentClose     SegmentLabel = "close"
)

// Segment is a bounded time/byte window of the recording. Byte offsets are a
// linear approximation from the average byte rate, not codec frame boundaries.
type Segment struct {
	Label        SegmentLabel `json:"label"`
	StartSeconds float64      `json:"start_seconds"`
	EndSeconds   float64      `json:"end_seconds"`
	StartByte    int64        `json:"start_byte"`
	EndByte      int64        `json:"end_byte"`
	ContextNote  string       `json:"context_note,omitempty"`
}

// --------------------------------------------
// Per-segment model output
// --------------------------------------------

type MomentTag string

const (
	MomentStrength    MomentTag = "strength"
	MomentImprovement MomentTag = "improvement"
)

type NotableMoment struct {
	Tag         MomentTag `json:"tag"`
	Description string    `json:"description"`
	CoachingTip string    `json:"coaching_tip"`
}

type ToneScores struct {
	Confidence float64 `json:"confidence"` // 0-100
	Energy     float64 `json:"energy"`     // 0-100
	Warmth     float64 `json:"warmth"`     // 0-100
	Clarity    float64 `json:"clarity"`    // 0-100
}

type FillerWords struct {
	Count     int      `json:"count"`
	Examples  []string `json:"examples"`
	PerMinute float64  `json:"per_minute"`
}

type PauseHandling struct {
	AppropriatePauses int `json:"appropriate_pauses"`
	RushedResponses   int `json:"rushed_responses"`
}

type SegmentAnalysis struct {
	Segment           SegmentLabel    `json:"segment"`
	EstimatedWPM      float64         `json:"estimated_wpm"`
	FillerWords       FillerWords     `json:"filler_words"`
	Tone              ToneScores      `json:"tone"`
	Pace              string          `json:"pace"` // too_slow | good | too_fast
	NotableMoments    []NotableMoment `json:"notable_moments"`
	InterruptionCount int             `json:"interruption_count"`
	PauseHandling     PauseHandling   `json:"pause_handling"`
}

// --------------------------------------------
// Merged report
// --------------------------------------------

type VoiceMetrics struct {
	AvgWPM              float64    `json:"avg_wpm"`
	TotalFillerWords    int        `json:"total_filler_words"`
	FillerWordsPerMin   float64    `json:"filler_words_per_min"`
	Tone                ToneScores `json:"tone"`
	TotalInterruptions  int        `json:"total_interruptions"`
	PauseRatioPct       float64    `json:"pause_ratio_pct"`
	CompositeScore      float64    `json:"composite_score"`
}

type CoachingTip struct {
	Category string `json:"category"` // pace | filler | energy | silence | tone | engagement
	Tip      string `json:"tip"`
}

// VoiceAnalysisResult is the durable artifact of one pipeline run. It is
// overwritten wholesale by the next run; no history is kept.
type VoiceAnalysisResult struct {
	AnalyzedAt       time.Time         `json:"analyzed_at"`
	SegmentsAnalyzed int               `json:"segments_analyzed"`
	SecondsCovered   float64           `json:"seconds_covered"`
	Grade            string            `json:"grade"`
	Summary          string            `json:"summary"`
	TopStrengths     []string          `json:"top_strengths"`
	TopImprovements  []string          `json:"top_improvements"`
	Metrics          VoiceMetrics      `json:"metrics"`
	Segments         []SegmentAnalysis `json:"segments"`
	CoachingTips     []CoachingTip     `json:"coaching_tips"`
}
