// Package grading merges per-segment analyses into one report: unified
// metrics, a weighted letter grade, coaching tips and fallback text. All of
// it is pure arithmetic; given the same segment analyses the grade is
// deterministic.
package grading

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"voicecoach-go/internal/segment"
	"voicecoach-go/internal/types"
)

// ErrNoSegments is returned when zero segments survived analysis.
var ErrNoSegments = errors.New("no segments to aggregate")

// Composite weights. They must sum to 1.
const (
	weightTone          = 0.40
	weightWPM           = 0.20
	weightFiller        = 0.20
	weightInterruptions = 0.10
	weightPauses        = 0.10
)

const (
	idealWPMLow   = 130.0
	idealWPMHigh  = 160.0
	extremeWPMLow = 100.0
	extremeWPMHi  = 190.0

	fillerFreePerMin  = 2.0
	fillerPenaltyRate = 12.5

	interruptionPenalty = 15.0

	defaultPauseRatioPct = 75.0
)

// Merge computes unified metrics across 1-3 segment analyses.
func Merge(analyses []types.SegmentAnalysis) (types.VoiceMetrics, error) {
	if len(analyses) == 0 {
		return types.VoiceMetrics{}, ErrNoSegments
	}

	n := float64(len(analyses))
	var m types.VoiceMetrics
	var appropriate, rushed int

	for _, a := range analyses {
		m.AvgWPM += a.EstimatedWPM
		m.Tone.Confidence += a.Tone.Confidence
		m.Tone.Energy += a.Tone.Energy
		m.Tone.Warmth += a.Tone.Warmth
		m.Tone.Clarity += a.Tone.Clarity
		m.TotalFillerWords += a.FillerWords.Count
		m.TotalInterruptions += a.InterruptionCount
		appropriate += a.PauseHandling.AppropriatePauses
		rushed += a.PauseHandling.RushedResponses
	}

	m.AvgWPM /= n
	m.Tone.Confidence /= n
	m.Tone.Energy /= n
	m.Tone.Warmth /= n
	m.Tone.Clarity /= n
	m.FillerWordsPerMin = float64(m.TotalFillerWords) / (n * segment.WindowSeconds / 60)

	if appropriate+rushed > 0 {
		m.PauseRatioPct = 100 * float64(appropriate) / float64(appropriate+rushed)
	} else {
		m.PauseRatioPct = defaultPauseRatioPct
	}

	m.CompositeScore = composite(m)
	return m, nil
}

func composite(m types.VoiceMetrics) float64 {
	tone := (m.Tone.Confidence + m.Tone.Energy + m.Tone.Warmth + m.Tone.Clarity) / 4
	return weightTone*tone +
		weightWPM*wpmScore(m.AvgWPM) +
		weightFiller*fillerScore(m.FillerWordsPerMin) +
		weightInterruptions*interruptionScore(m.TotalInterruptions) +
		weightPauses*m.PauseRatioPct
}

// wpmScore is 100 inside the ideal band, drops 1 point per wpm out to the
// 100/190 extremes and 2 points per wpm beyond them.
func wpmScore(wpm float64) float64 {
	switch {
	case wpm >= idealWPMLow && wpm <= idealWPMHigh:
		return 100
	case wpm < idealWPMLow && wpm >= extremeWPMLow:
		return 100 - (idealWPMLow - wpm)
	case wpm < extremeWPMLow:
		return clamp(100 - (idealWPMLow - extremeWPMLow) - 2*(extremeWPMLow-wpm))
	case wpm <= extremeWPMHi:
		return 100 - (wpm - idealWPMHigh)
	default:
		return clamp(100 - (extremeWPMHi - idealWPMHigh) - 2*(wpm-extremeWPMHi))
	}
}

func fillerScore(perMin float64) float64 {
	if perMin <= fillerFreePerMin {
		return 100
	}
	return clamp(100 - fillerPenaltyRate*(perMin-fillerFreePerMin))
}

func interruptionScore(count int) float64 {
	return clamp(100 - interruptionPenalty*float64(count))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Letter maps a composite score onto the 13-step A+..F scale.
func Letter(score float64) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 67:
		return "D+"
	case score >= 63:
		return "D"
	case score >= 60:
		return "D-"
	default:
		return "F"
	}
}

// BuildResult assembles the full durable report from the surviving segment
// analyses. Summary is left empty; the orchestrator fills it in (model call
// or FallbackSummary).
func BuildResult(analyses []types.SegmentAnalysis, analyzedAt time.Time) (types.VoiceAnalysisResult, error) {
	metrics, err := Merge(analyses)
	if err != nil {
		return types.VoiceAnalysisResult{}, err
	}

	strengths, improvements := topMoments(analyses, metrics)

	return types.VoiceAnalysisResult{
		AnalyzedAt:       analyzedAt,
		SegmentsAnalyzed: len(analyses),
		SecondsCovered:   float64(len(analyses)) * segment.WindowSeconds,
		Grade:            Letter(metrics.CompositeScore),
		TopStrengths:     strengths,
		TopImprovements:  improvements,
		Metrics:          metrics,
		Segments:         analyses,
		CoachingTips:     Tips(analyses),
	}, nil
}

// FallbackSummary builds a deterministic template sentence from the merged
// metrics, used when the summary model call fails.
func FallbackSummary(m types.VoiceMetrics, grade string, segments int) string {
	toneAvg := (m.Tone.Confidence + m.Tone.Energy + m.Tone.Warmth + m.Tone.Clarity) / 4
	return fmt.Sprintf(
		"Across %d analyzed segment(s) you averaged %.0f words per minute with %.1f filler words per minute and an overall tone score of %.0f/100, earning a %s. Review the coaching tips below for the fastest wins.",
		segments, m.AvgWPM, m.FillerWordsPerMin, toneAvg, grade)
}

func topMoments(analyses []types.SegmentAnalysis, m types.VoiceMetrics) (strengths, improvements []string) {
	for _, a := range analyses {
		for _, mo := range a.NotableMoments {
			switch mo.Tag {
			case types.MomentStrength:
				if len(strengths) < 3 {
					strengths = append(strengths, mo.Description)
				}
			case types.MomentImprovement:
				if len(improvements) < 3 {
					improvements = append(improvements, mo.Description)
				}
			}
		}
	}

	// The report is never empty-handed: derive a line from the metrics when
	// the model surfaced nothing.
	if len(strengths) == 0 {
		strengths = append(strengths, metricStrength(m))
	}
	if len(improvements) == 0 {
		improvements = append(improvements, metricImprovement(m))
	}
	return strengths, improvements
}

func metricStrength(m types.VoiceMetrics) string {
	switch {
	case m.AvgWPM >= idealWPMLow && m.AvgWPM <= idealWPMHigh:
		return fmt.Sprintf("Talk speed stayed in the ideal range at %.0f words per minute.", m.AvgWPM)
	case m.FillerWordsPerMin <= fillerFreePerMin:
		return fmt.Sprintf("Filler words stayed low at %.1f per minute.", m.FillerWordsPerMin)
	case m.TotalInterruptions == 0:
		return "No interruptions; the prospect was always allowed to finish."
	default:
		return fmt.Sprintf("Overall tone held steady around %.0f/100.", (m.Tone.Confidence+m.Tone.Energy+m.Tone.Warmth+m.Tone.Clarity)/4)
	}
}

func metricImprovement(m types.VoiceMetrics) string {
	switch {
	case m.FillerWordsPerMin > fillerFreePerMin:
		return fmt.Sprintf("Cut filler words; %.1f per minute is above the %.0f/min target.", m.FillerWordsPerMin, fillerFreePerMin)
	case m.AvgWPM < idealWPMLow:
		return fmt.Sprintf("Pick up the pace; %.0f words per minute reads as hesitant.", m.AvgWPM)
	case m.AvgWPM > idealWPMHigh:
		return fmt.Sprintf("Slow down; %.0f words per minute is hard to follow.", m.AvgWPM)
	case m.TotalInterruptions > 0:
		return "Let the prospect finish before responding."
	default:
		return "Add deliberate pauses after key questions to invite longer answers."
	}
}

// Tips flattens every notable moment into a categorized coaching tip and adds
// synthetic tips for segments with off-target pace, heavy filler use, or
// repeated rushed responses.
func Tips(analyses []types.SegmentAnalysis) []types.CoachingTip {
	tips := []types.CoachingTip{}

	for _, a := range analyses {
		for _, mo := range a.NotableMoments {
			text := mo.CoachingTip
			if text == "" {
				text = mo.Description
			}
			tips = append(tips, types.CoachingTip{
				Category: inferCategory(mo.Description),
				Tip:      text,
			})
		}

		if a.Pace == "too_fast" {
			tips = append(tips, types.CoachingTip{
				Category: "pace",
				Tip:      fmt.Sprintf("The %s segment ran fast; aim for 130-160 words per minute.", a.Segment),
			})
		}
		if a.Pace == "too_slow" {
			tips = append(tips, types.CoachingTip{
				Category: "pace",
				Tip:      fmt.Sprintf("The %s segment dragged; aim for 130-160 words per minute.", a.Segment),
			})
		}
		if a.FillerWords.PerMinute > 4 {
			tips = append(tips, types.CoachingTip{
				Category: "filler",
				Tip:      fmt.Sprintf("Filler words hit %.1f/min in the %s segment; pause silently instead.", a.FillerWords.PerMinute, a.Segment),
			})
		}
		if a.PauseHandling.RushedResponses > 2 {
			tips = append(tips, types.CoachingTip{
				Category: "silence",
				Tip:      fmt.Sprintf("You rushed %d responses in the %s segment; breathe before answering.", a.PauseHandling.RushedResponses, a.Segment),
			})
		}
	}
	return tips
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"pace", []string{"pace", "fast", "slow", "speed", "wpm", "words per minute"}},
	{"filler", []string{"filler", "um", "uh", "you know", "like"}},
	{"energy", []string{"energy", "flat", "monotone", "enthusias", "tired"}},
	{"silence", []string{"pause", "silence", "dead air", "rush"}},
	{"tone", []string{"tone", "confiden", "warm", "clarity", "mumbl"}},
}

func inferCategory(description string) string {
	lower := strings.ToLower(description)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return "engagement"
}
