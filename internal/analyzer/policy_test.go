package analyzer

import (
	"testing"

	"vocalis/internal/config"
)

func testPolicy() config.Policy {
	return config.Default().Policy
}

func TestRateFluency(t *testing.T) {
	keywords := testPolicy().FluencyKeywords
	if got := RateFluency("I tend to stutter when nervous", keywords); got != "Not Fluent" {
		t.Fatalf("RateFluency = %q", got)
	}
	if got := RateFluency("A clean confident delivery", keywords); got != "Fluent" {
		t.Fatalf("RateFluency = %q", got)
	}
}

func TestRatePaceBands(t *testing.T) {
	cases := []struct {
		wps  float64
		want string
	}{
		{0.9, "Slow pace"},
		{2.0, "Moderate pace"},
		{3.1, "Fast pace"},
		{1.5, "Moderate pace"},
		{2.5, "Moderate pace"},
	}
	for _, tc := range cases {
		if got := RatePace(tc.wps, 1.5, 2.5); got != tc.want {
			t.Fatalf("RatePace(%v) = %q, want %q", tc.wps, got, tc.want)
		}
	}
}

func TestRatePitch(t *testing.T) {
	if got := RatePitch(62, 50); got != "High variations" {
		t.Fatalf("RatePitch = %q", got)
	}
	if got := RatePitch(31, 50); got != "Low variations" {
		t.Fatalf("RatePitch = %q", got)
	}
}

func TestRateToneBands(t *testing.T) {
	if got := RateTone(0.7); got != "Positive tone" {
		t.Fatalf("RateTone = %q", got)
	}
	if got := RateTone(-0.6); got != "Negative tone" {
		t.Fatalf("RateTone = %q", got)
	}
	if got := RateTone(0.1); got != "Neutral tone" {
		t.Fatalf("RateTone = %q", got)
	}
}

func TestGestureRatingClamps(t *testing.T) {
	if got := GestureRating(300, 100); got != 10 {
		t.Fatalf("GestureRating = %v, want 10", got)
	}
	if got := GestureRating(50, 100); got != 5 {
		t.Fatalf("GestureRating = %v, want 5", got)
	}
	if got := GestureRating(5, 0); got != 0 {
		t.Fatalf("GestureRating with no frames = %v, want 0", got)
	}
}

func TestRateVideo(t *testing.T) {
	features := RateVideo(VideoMeasurements{
		SampledFrames:    100,
		GestureFrames:    80,
		FacialConfidence: 0.93,
	}, testPolicy())

	if features.FacialExpressionPct != 93 {
		t.Fatalf("facial pct = %d", features.FacialExpressionPct)
	}
	if features.PostureRating != "Good" {
		t.Fatalf("posture = %q", features.PostureRating)
	}
	if features.GestureRating != 8 {
		t.Fatalf("gesture rating = %v", features.GestureRating)
	}
	if features.OverallReport != "Your overall performance is excellent. Keep up the good work!" {
		t.Fatalf("overall = %q", features.OverallReport)
	}
}

func TestRateAudioUsesTranscript(t *testing.T) {
	transcript := &Transcript{
		Text:            "This is an important point about public speaking delivered with care",
		DurationSeconds: 6,
	}
	features := RateAudio(AudioMeasurements{
		DurationSeconds:   6,
		LongestSilenceSec: 0.9,
		PitchStdDevHz:     64,
		SentimentScore:    0.6,
		ClarityScore:      0.85,
		MeanEnergy:        0.05,
	}, transcript, testPolicy())

	// 11 words in 6 seconds: 110 wpm, 1.83 wps.
	if features.SpeechRateWPM < 109 || features.SpeechRateWPM > 111 {
		t.Fatalf("speech rate = %v", features.SpeechRateWPM)
	}
	if features.Pace != "Moderate pace" {
		t.Fatalf("pace = %q", features.Pace)
	}
	if features.WordEmphasis != "Effective emphasis" {
		t.Fatalf("emphasis = %q", features.WordEmphasis)
	}
	if features.Tone != "Positive tone" {
		t.Fatalf("tone = %q", features.Tone)
	}
	if features.PitchAndTone != "High variations" {
		t.Fatalf("pitch = %q", features.PitchAndTone)
	}
	if features.Clarity != "High clarity" {
		t.Fatalf("clarity = %q", features.Clarity)
	}
	if features.LongestPauseSec != 0.9 {
		t.Fatalf("pause = %v", features.LongestPauseSec)
	}
}

func TestWordCount(t *testing.T) {
	var nilTranscript *Transcript
	if got := nilTranscript.WordCount(); got != 0 {
		t.Fatalf("nil WordCount = %d", got)
	}
	transcript := &Transcript{Text: "  one  two\nthree\tfour "}
	if got := transcript.WordCount(); got != 4 {
		t.Fatalf("WordCount = %d", got)
	}
}
