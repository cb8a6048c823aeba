// Package segment plans which slices of a call recording get analyzed. The
// planner never decodes audio: byte offsets are a linear approximation from
// the average byte rate, and the analysis model is expected to tolerate
// windows that do not start on a codec frame boundary.
package segment

import (
	"voicecoach-go/internal/types"
)

const (
	// WindowSeconds is the length of each analyzed window.
	WindowSeconds = 180.0

	// ShortCallSeconds is the threshold below which the whole call is
	// analyzed as one window instead of three.
	ShortCallSeconds = 420.0
)

const shortCallNote = "This is a short call. Treat the clip as a complete " +
	"call review rather than an isolated opener."

// Plan converts size, duration and an optional key-moment timestamp into up
// to three non-overlapping byte ranges: opener, key_moment, close. Calls
// under ShortCallSeconds yield a single full-file segment.
func Plan(totalBytes int64, totalSeconds float64, keyMoment float64, hasKeyMoment bool) []types.Segment {
	if totalSeconds <= 0 || totalBytes <= 0 {
		return nil
	}

	if totalSeconds < ShortCallSeconds {
		return []types.Segment{{
			Label:        types.SegmentOpener,
			StartSeconds: 0,
			EndSeconds:   totalSeconds,
			StartByte:    0,
			EndByte:      totalBytes,
			ContextNote:  shortCallNote,
		}}
	}

	bytesPerSecond := float64(totalBytes) / totalSeconds

	opener := types.Segment{
		Label:        types.SegmentOpener,
		StartSeconds: 0,
		EndSeconds:   WindowSeconds,
		StartByte:    0,
		EndByte:      int64(WindowSeconds * bytesPerSecond),
	}

	center := totalSeconds / 2
	if hasKeyMoment {
		center = keyMoment
	}
	kmStart := center - WindowSeconds/2
	kmEnd := center + WindowSeconds/2
	if kmStart < WindowSeconds {
		kmStart = WindowSeconds
		kmEnd = kmStart + WindowSeconds
	}
	if kmEnd > totalSeconds-WindowSeconds {
		kmEnd = totalSeconds - WindowSeconds
		kmStart = kmEnd - WindowSeconds
	}
	if kmStart < WindowSeconds {
		// Middle region shorter than one window; shrink instead of
		// overlapping the opener.
		kmStart = WindowSeconds
	}
	key := types.Segment{
		Label:        types.SegmentKeyMoment,
		StartSeconds: kmStart,
		EndSeconds:   kmEnd,
		StartByte:    int64(kmStart * bytesPerSecond),
		EndByte:      int64(kmEnd * bytesPerSecond),
	}

	closeSeg := types.Segment{
		Label:        types.SegmentClose,
		StartSeconds: totalSeconds - WindowSeconds,
		EndSeconds:   totalSeconds,
		StartByte:    int64((totalSeconds - WindowSeconds) * bytesPerSecond),
		EndByte:      totalBytes,
	}

	return []types.Segment{opener, key, closeSeg}
}
