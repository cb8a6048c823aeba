// Package analyzer talks to the external model gateway. One call per
// segment, audio attached as base64; the model is asked for a strict JSON
// coaching assessment which is normalized into a complete SegmentAnalysis.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"voicecoach-go/internal/logger"
	"voicecoach-go/internal/types"
)

const (
	defaultTimeout      = 2 * time.Minute
	defaultMaxRetryTime = 5 * time.Minute
	maxResponseTokens   = 1200
)

type Config struct {
	AudioModelURL string
	AudioModel    string
	TextModelURL  string
	TextModel     string
	APIKey        string

	// Timeout bounds each HTTP attempt; MaxRetryTime bounds the whole
	// retry schedule for one segment.
	Timeout      time.Duration
	MaxRetryTime time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = defaultMaxRetryTime
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.Component("analyzer"),
	}
}

const coachingRubric = `You are a sales call voice coach. You will hear one clip of a recorded sales call. Assess only the rep's vocal delivery, not the deal content.

Return ONLY a JSON object with exactly these keys:
{
  "estimated_wpm": 0,
  "filler_words": {"count": 0, "examples": [], "per_minute": 0.0},
  "tone": {"confidence": 0, "energy": 0, "warmth": 0, "clarity": 0},
  "pace": "too_slow|good|too_fast",
  "notable_moments": [{"tag": "strength|improvement", "description": "", "coaching_tip": ""}],
  "interruption_count": 0,
  "pause_handling": {"appropriate_pauses": 0, "rushed_responses": 0}
}

Tone scores are 0-100. Do not invent numbers you cannot hear evidence for; use your best estimate. DO NOT wrap the JSON in backticks or add commentary.`

func roleInstruction(label types.SegmentLabel) string {
	switch label {
	case types.SegmentKeyMoment:
		return "This clip is from the middle of the call, around a likely pricing or objection discussion. Pay attention to composure under pushback, pausing before answers, and whether the rep rushes responses."
	case types.SegmentClose:
		return "This clip is from the end of the call. Pay attention to energy level versus the opening, clarity of next steps, and whether the rep trails off."
	default:
		return "This clip is from the opening of the call. Pay attention to first-impression energy, talk speed while building rapport, and filler words under small-talk pressure."
	}
}

// AnalyzeSegment sends one segment's raw bytes to the audio model and returns
// a structurally complete analysis. Retries transient failures; a 4xx from
// the gateway is permanent.
func (c *Client) AnalyzeSegment(ctx context.Context, seg types.Segment, audio []byte, format string) (types.SegmentAnalysis, error) {
	log := c.log.WithField("segment", string(seg.Label))

	instruction := roleInstruction(seg.Label)
	if seg.ContextNote != "" {
		instruction = seg.ContextNote + " " + instruction
	}

	payload := map[string]any{
		"model": c.cfg.AudioModel,
		"messages": []map[string]any{
			{"role": "system", "content": coachingRubric},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": instruction},
					{
						"type": "input_audio",
						"input_audio": map[string]string{
							"data":   base64.StdEncoding.EncodeToString(audio),
							"format": format,
						},
					},
				},
			},
		},
		"response_format": map[string]string{"type": "json_object"},
		"max_tokens":      maxResponseTokens,
		"temperature":     0.0,
	}

	raw, err := c.callGateway(ctx, c.cfg.AudioModelURL, payload, log)
	if err != nil {
		return types.SegmentAnalysis{}, err
	}
	return Normalize(seg.Label, raw), nil
}

// callGateway posts payload to the model gateway with exponential backoff and
// returns the salvaged JSON content of the first choice.
func (c *Client) callGateway(ctx context.Context, url string, payload map[string]any, log *logrus.Entry) (string, error) {
	if url == "" || c.cfg.APIKey == "" {
		return "", fmt.Errorf("model gateway not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gateway payload: %w", err)
	}

	var content string
	var lastErr error

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("model request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		log.WithField("http_status", resp.StatusCode).Debug("model response received")

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			lastErr = fmt.Errorf("model gateway rejected request: status=%d", resp.StatusCode)
			return backoff.Permanent(lastErr)
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("model gateway error: status=%d", resp.StatusCode)
			return lastErr
		}

		if inner := extractContentFromChoices(body); inner != "" {
			content = inner
			lastErr = nil
			return nil
		}
		if fallback := extractJSON(string(body)); fallback != "" {
			content = fallback
			lastErr = nil
			return nil
		}

		lastErr = fmt.Errorf("no JSON found in model output")
		return lastErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.MaxRetryTime

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr != nil {
			return "", fmt.Errorf("model call failed: %w", lastErr)
		}
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return content, nil
}
