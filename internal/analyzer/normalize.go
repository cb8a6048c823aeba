package analyzer

import (
	"encoding/json"

	"voicecoach-go/internal/types"
)

const neutralScore = 50

// rawAnalysis mirrors SegmentAnalysis with pointer fields so missing keys can
// be told apart from zero values.
type rawAnalysis struct {
	EstimatedWPM *float64 `json:"estimated_wpm"`
	FillerWords  *struct {
		Count     *int      `json:"count"`
		Examples  []string  `json:"examples"`
		PerMinute *float64  `json:"per_minute"`
	} `json:"filler_words"`
	Tone *struct {
		Confidence *float64 `json:"confidence"`
		Energy     *float64 `json:"energy"`
		Warmth     *float64 `json:"warmth"`
		Clarity    *float64 `json:"clarity"`
	} `json:"tone"`
	Pace           *string `json:"pace"`
	NotableMoments []struct {
		Tag         string `json:"tag"`
		Description string `json:"description"`
		CoachingTip string `json:"coaching_tip"`
	} `json:"notable_moments"`
	InterruptionCount *int `json:"interruption_count"`
	PauseHandling     *struct {
		AppropriatePauses *int `json:"appropriate_pauses"`
		RushedResponses   *int `json:"rushed_responses"`
	} `json:"pause_handling"`
}

// Normalize turns whatever the model returned into a structurally complete
// SegmentAnalysis. Missing sub-fields get neutral defaults (score 50, empty
// slices, zero counts); unparsable input yields an all-defaults analysis.
// Field values degrade, the segment never fails here.
func Normalize(label types.SegmentLabel, raw string) types.SegmentAnalysis {
	var r rawAnalysis
	_ = json.Unmarshal([]byte(raw), &r)

	out := types.SegmentAnalysis{
		Segment: label,
		Tone: types.ToneScores{
			Confidence: neutralScore,
			Energy:     neutralScore,
			Warmth:     neutralScore,
			Clarity:    neutralScore,
		},
		Pace: "good",
		FillerWords: types.FillerWords{
			Examples: []string{},
		},
		NotableMoments: []types.NotableMoment{},
	}

	if r.EstimatedWPM != nil {
		out.EstimatedWPM = *r.EstimatedWPM
	}
	if r.FillerWords != nil {
		if r.FillerWords.Count != nil {
			out.FillerWords.Count = *r.FillerWords.Count
		}
		if r.FillerWords.Examples != nil {
			out.FillerWords.Examples = r.FillerWords.Examples
		}
		if r.FillerWords.PerMinute != nil {
			out.FillerWords.PerMinute = *r.FillerWords.PerMinute
		}
	}
	if r.Tone != nil {
		if r.Tone.Confidence != nil {
			out.Tone.Confidence = clampScore(*r.Tone.Confidence)
		}
		if r.Tone.Energy != nil {
			out.Tone.Energy = clampScore(*r.Tone.Energy)
		}
		if r.Tone.Warmth != nil {
			out.Tone.Warmth = clampScore(*r.Tone.Warmth)
		}
		if r.Tone.Clarity != nil {
			out.Tone.Clarity = clampScore(*r.Tone.Clarity)
		}
	}
	if r.Pace != nil {
		switch *r.Pace {
		case "too_slow", "good", "too_fast":
			out.Pace = *r.Pace
		}
	}
	for _, m := range r.NotableMoments {
		tag := types.MomentTag(m.Tag)
		if tag != types.MomentStrength && tag != types.MomentImprovement {
			tag = types.MomentImprovement
		}
		if m.Description == "" {
			continue
		}
		out.NotableMoments = append(out.NotableMoments, types.NotableMoment{
			Tag:         tag,
			Description: m.Description,
			CoachingTip: m.CoachingTip,
		})
	}
	if r.InterruptionCount != nil && *r.InterruptionCount > 0 {
		out.InterruptionCount = *r.InterruptionCount
	}
	if r.PauseHandling != nil {
		if r.PauseHandling.AppropriatePauses != nil {
			out.PauseHandling.AppropriatePauses = *r.PauseHandling.AppropriatePauses
		}
		if r.PauseHandling.RushedResponses != nil {
			out.PauseHandling.RushedResponses = *r.PauseHandling.RushedResponses
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
