package segment

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Vocabulary that marks the pricing/objection stretch of a sales call. A line
// scores one point per matched keyword; the highest-scoring line inside the
// middle region wins.
var keyMomentKeywords = []string{
	"price", "pricing", "cost", "expensive", "budget", "discount",
	"competitor", "alternative", "objection", "concern", "concerned",
	"worried", "hesitant", "not sure", "too much", "contract", "compare",
}

var timestampRe = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})\]\s*(.*)`)

// FindKeyMoment scans timestamped transcript lines for the most
// objection-dense moment strictly inside the middle of the call (excluding
// the opener and close windows). Returns the timestamp in seconds of the
// first line reaching the top score, or false when nothing scores above zero.
func FindKeyMoment(transcript string, totalSeconds float64) (float64, bool) {
	var (
		bestScore int
		bestAt    float64
		found     bool
	)

	scanner := bufio.NewScanner(strings.NewReader(transcript))
	for scanner.Scan() {
		m := timestampRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		at := float64(mins*60 + secs)
		if at <= WindowSeconds || at >= totalSeconds-WindowSeconds {
			continue
		}

		score := scoreLine(m[3])
		if score > bestScore {
			bestScore = score
			bestAt = at
			found = true
		}
	}
	return bestAt, found
}

func scoreLine(line string) int {
	lower := strings.ToLower(line)
	score := 0
	for _, kw := range keyMomentKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	return score
}

// EstimateDurationFromTranscript returns the last [MM:SS] marker seen, as a
// duration estimate for recordings with no declared length. Second return is
// false when the transcript carries no markers.
func EstimateDurationFromTranscript(transcript string) (float64, bool) {
	var (
		last  float64
		found bool
	)
	scanner := bufio.NewScanner(strings.NewReader(transcript))
	for scanner.Scan() {
		m := timestampRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		if at := float64(mins*60 + secs); at > last {
			last = at
			found = true
		}
	}
	return last, found
}
