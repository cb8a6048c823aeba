package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"voicecoach-go/internal/types"
)

const summaryPrompt = `You are a sales coach writing the one-paragraph summary at the top of a vocal delivery report. Write 2-3 plain sentences, direct and encouraging, addressed to the rep. No bullet points, no headers.

Return ONLY a JSON object: {"summary": ""}

Metrics for this call:
%s`

// Summarize asks the text model for a short natural-language report summary.
// Best effort: callers fall back to FallbackSummary when this errors.
func (c *Client) Summarize(ctx context.Context, metrics types.VoiceMetrics, grade string, segments int) (string, error) {
	facts, _ := json.Marshal(map[string]any{
		"grade":                grade,
		"segments_analyzed":    segments,
		"avg_wpm":              metrics.AvgWPM,
		"filler_words_per_min": metrics.FillerWordsPerMin,
		"tone":                 metrics.Tone,
		"interruptions":        metrics.TotalInterruptions,
		"pause_ratio_pct":      metrics.PauseRatioPct,
	})

	payload := map[string]any{
		"model": c.cfg.TextModel,
		"messages": []map[string]any{
			{"role": "user", "content": fmt.Sprintf(summaryPrompt, string(facts))},
		},
		"response_format": map[string]string{"type": "json_object"},
		"max_tokens":      300,
		"temperature":     0.4,
	}

	raw, err := c.callGateway(ctx, c.cfg.TextModelURL, payload, c.log.WithField("call", "summary"))
	if err != nil {
		return "", err
	}

	var parsed struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Summary == "" {
		return "", fmt.Errorf("summary model returned no usable text")
	}
	return parsed.Summary, nil
}
