package segment_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"voicecoach-go/internal/segment"
)

const sampleTranscript = `[00:10] Hi, thanks for taking the time today.
[02:30] Let me walk you through what the product does.
[05:00] So about the pricing, the budget we have is a concern.
[08:20] Honestly we were also looking at a competitor.
[13:40] Great, let's set up the follow-up for Thursday.
[14:50] Thanks, bye.`

func TestFindKeyMoment(t *testing.T) {
	Convey("Given a transcript with objection vocabulary mid-call", t, func() {
		at, ok := segment.FindKeyMoment(sampleTranscript, 900)

		Convey("Then the densest line inside the middle region wins", func() {
			So(ok, ShouldBeTrue)
			// [05:00] scores pricing+budget+concern, beating [08:20].
			So(at, ShouldEqual, 300)
		})
	})

	Convey("Given lines that only score inside the excluded edges", t, func() {
		edge := "[00:30] What does it cost?\n[14:00] pricing recap"
		_, ok := segment.FindKeyMoment(edge, 900)

		Convey("Then no key moment is reported", func() {
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a transcript with no keyword hits", t, func() {
		_, ok := segment.FindKeyMoment("[05:00] just chatting about the weather", 900)
		So(ok, ShouldBeFalse)
	})

	Convey("Given two lines with the same score", t, func() {
		tied := "[04:00] the price though\n[06:00] the price though"
		at, ok := segment.FindKeyMoment(tied, 900)

		Convey("Then the first one wins", func() {
			So(ok, ShouldBeTrue)
			So(at, ShouldEqual, 240)
		})
	})
}

func TestEstimateDurationFromTranscript(t *testing.T) {
	Convey("Given a transcript with timestamp markers", t, func() {
		d, ok := segment.EstimateDurationFromTranscript(sampleTranscript)
		So(ok, ShouldBeTrue)
		So(d, ShouldEqual, 890)
	})

	Convey("Given a transcript without markers", t, func() {
		_, ok := segment.EstimateDurationFromTranscript("no markers here")
		So(ok, ShouldBeFalse)
	})
}
