package storage

import "testing"

func TestCodecHint(t *testing.T) {
	cases := map[string]string{
		"recordings/call-1.mp3":   "mp3",
		"recordings/call-1.WAV":   "wav",
		"recordings/call-1.m4a":   "m4a",
		"recordings/call-1.mp4":   "m4a",
		"recordings/call-1.ogg":   "ogg",
		"recordings/call-1.opus":  "ogg",
		"recordings/call-1.flac":  "flac",
		"recordings/no-extension": "mp3",
	}
	for key, want := range cases {
		if got := CodecHint(key); got != want {
			t.Errorf("CodecHint(%q) = %q, want %q", key, got, want)
		}
	}
}
