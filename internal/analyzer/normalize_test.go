package analyzer

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"voicecoach-go/internal/types"
)

func TestNormalize(t *testing.T) {
	Convey("Given a fully-formed model response", t, func() {
		raw := `{
			"estimated_wpm": 152,
			"filler_words": {"count": 4, "examples": ["um", "like"], "per_minute": 1.3},
			"tone": {"confidence": 80, "energy": 75, "warmth": 70, "clarity": 85},
			"pace": "good",
			"notable_moments": [
				{"tag": "strength", "description": "Calm under the pricing pushback", "coaching_tip": "Keep pausing before you answer"}
			],
			"interruption_count": 1,
			"pause_handling": {"appropriate_pauses": 5, "rushed_responses": 1}
		}`
		a := Normalize(types.SegmentKeyMoment, raw)

		Convey("Then every field carries through", func() {
			So(a.Segment, ShouldEqual, types.SegmentKeyMoment)
			So(a.EstimatedWPM, ShouldEqual, 152)
			So(a.FillerWords.Count, ShouldEqual, 4)
			So(a.Tone.Clarity, ShouldEqual, 85)
			So(a.NotableMoments, ShouldHaveLength, 1)
			So(a.NotableMoments[0].Tag, ShouldEqual, types.MomentStrength)
			So(a.InterruptionCount, ShouldEqual, 1)
			So(a.PauseHandling.AppropriatePauses, ShouldEqual, 5)
		})
	})

	Convey("Given a partially-formed response", t, func() {
		a := Normalize(types.SegmentOpener, `{"estimated_wpm": 140, "tone": {"confidence": 90}}`)

		Convey("Then missing sub-fields get neutral defaults", func() {
			So(a.EstimatedWPM, ShouldEqual, 140)
			So(a.Tone.Confidence, ShouldEqual, 90)
			So(a.Tone.Energy, ShouldEqual, 50)
			So(a.Tone.Warmth, ShouldEqual, 50)
			So(a.FillerWords.Count, ShouldEqual, 0)
			So(a.FillerWords.Examples, ShouldNotBeNil)
			So(a.NotableMoments, ShouldNotBeNil)
			So(a.Pace, ShouldEqual, "good")
		})
	})

	Convey("Given garbage input", t, func() {
		a := Normalize(types.SegmentClose, "not json at all")

		Convey("Then a complete all-defaults analysis comes back", func() {
			So(a.Segment, ShouldEqual, types.SegmentClose)
			So(a.Tone.Confidence, ShouldEqual, 50)
			So(a.Pace, ShouldEqual, "good")
			So(a.NotableMoments, ShouldBeEmpty)
		})
	})

	Convey("Given out-of-range and malformed values", t, func() {
		raw := `{
			"tone": {"confidence": 140, "energy": -5},
			"pace": "sideways",
			"interruption_count": -3,
			"notable_moments": [{"tag": "whatever", "description": "spoke over the prospect twice"}, {"tag": "strength", "description": ""}]
		}`
		a := Normalize(types.SegmentOpener, raw)

		Convey("Then values are clamped and unknown enums defaulted", func() {
			So(a.Tone.Confidence, ShouldEqual, 100)
			So(a.Tone.Energy, ShouldEqual, 0)
			So(a.Pace, ShouldEqual, "good")
			So(a.InterruptionCount, ShouldEqual, 0)
			So(a.NotableMoments, ShouldHaveLength, 1)
			So(a.NotableMoments[0].Tag, ShouldEqual, types.MomentImprovement)
		})
	})
}

func TestExtractJSON(t *testing.T) {
	Convey("Given model output wrapped in markdown fences", t, func() {
		s := "Here you go:\n```json\n{\"estimated_wpm\": 150}\n```"
		So(extractJSON(s), ShouldEqual, `{"estimated_wpm": 150}`)
	})

	Convey("Given an openai-style envelope", t, func() {
		body := []byte(`{"choices":[{"message":{"content":"{\"estimated_wpm\": 150}"}}]}`)
		So(extractContentFromChoices(body), ShouldEqual, `{"estimated_wpm": 150}`)
	})

	Convey("Given output with no object", t, func() {
		So(extractJSON("nothing here"), ShouldEqual, "")
		So(extractContentFromChoices([]byte(`{"choices":[]}`)), ShouldEqual, "")
	})
}
