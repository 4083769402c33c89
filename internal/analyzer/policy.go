package analyzer

import (
	"fmt"
	"strings"

	"vocalis/internal/config"
)

var emphasisKeywords = []string{"important", "crucial", "significant"}

// RateFluency reports "Fluent" unless a disfluency keyword appears in the
// transcript.
func RateFluency(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return "Not Fluent"
		}
	}
	return "Fluent"
}

// RatePace classifies words-per-second against the slow and fast bounds.
func RatePace(wordsPerSecond, slow, fast float64) string {
	switch {
	case wordsPerSecond > fast:
		return "Fast pace"
	case wordsPerSecond < slow:
		return "Slow pace"
	default:
		return "Moderate pace"
	}
}

// RatePitch classifies pitch variation against the threshold.
func RatePitch(stddevHz, threshold float64) string {
	if stddevHz > threshold {
		return "High variations"
	}
	return "Low variations"
}

// RateEmphasis reports whether the transcript carries emphasis keywords.
func RateEmphasis(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range emphasisKeywords {
		if strings.Contains(lower, keyword) {
			return "Effective emphasis"
		}
	}
	return "Lacks emphasis"
}

// RateTone classifies a compound sentiment score in [-1, 1].
func RateTone(score float64) string {
	switch {
	case score >= 0.5:
		return "Positive tone"
	case score <= -0.5:
		return "Negative tone"
	default:
		return "Neutral tone"
	}
}

// RateClarity classifies a recognition confidence score in [0, 1].
func RateClarity(score float64) string {
	switch {
	case score > 0.8:
		return "High clarity"
	case score > 0.6:
		return "Moderate clarity"
	default:
		return "Low clarity"
	}
}

// RateVolumeEnergy classifies mean RMS energy.
func RateVolumeEnergy(meanEnergy float64) string {
	switch {
	case meanEnergy > 0.1:
		return "High volume and energy"
	case meanEnergy > 0.02:
		return "Moderate volume and energy"
	default:
		return "Low volume and energy"
	}
}

// RatePosture classifies the facial-expression percentage into a posture
// label using the configured bands.
func RatePosture(facialPct, goodPct, averagePct float64) string {
	switch {
	case facialPct >= goodPct:
		return "Good"
	case facialPct >= averagePct:
		return "Average"
	default:
		return "Bad"
	}
}

// GestureRating scales gesture frequency onto a 0-10 scale.
func GestureRating(gestureFrames, sampledFrames int) float64 {
	if sampledFrames <= 0 {
		return 0
	}
	rating := float64(gestureFrames) / float64(sampledFrames) * 10
	if rating > 10 {
		return 10
	}
	return rating
}

// OverallReport summarizes the video metrics into a performance blurb.
func OverallReport(facialPct float64, gestureRating float64, posture string) string {
	switch {
	case facialPct >= 90 && gestureRating >= 7 && posture == "Good":
		return "Your overall performance is excellent. Keep up the good work!"
	case facialPct >= 75 && gestureRating >= 4 && posture != "Bad":
		return "You are doing well overall. Focus on maintaining consistency."
	case facialPct >= 50 && gestureRating >= 2 && posture != "Bad":
		return "You have potential. Work on refining your expressions, gestures, and posture."
	default:
		return "There are areas for improvement. Focus on enhancing expressions, gestures, and posture."
	}
}

// RateAudio applies the policy to raw audio measurements and the transcript.
func RateAudio(measurements AudioMeasurements, transcript *Transcript, policy config.Policy) AudioFeatures {
	words := transcript.WordCount()
	duration := measurements.DurationSeconds
	if duration <= 0 && transcript != nil {
		duration = transcript.DurationSeconds
	}

	var wordsPerSecond, wpm float64
	if duration > 0 {
		wordsPerSecond = float64(words) / duration
		wpm = float64(words) / (duration / 60)
	}

	text := ""
	if transcript != nil {
		text = transcript.Text
	}

	return AudioFeatures{
		SpeechRateWPM:   wpm,
		Fluency:         RateFluency(text, policy.FluencyKeywords),
		LongestPauseSec: measurements.LongestSilenceSec,
		PitchAndTone:    RatePitch(measurements.PitchStdDevHz, policy.PitchVariationHz),
		WordEmphasis:    RateEmphasis(text),
		Tone:            RateTone(measurements.SentimentScore),
		Pace:            RatePace(wordsPerSecond, policy.PaceSlowWPS, policy.PaceFastWPS),
		Clarity:         RateClarity(measurements.ClarityScore),
		VolumeEnergy:    RateVolumeEnergy(measurements.MeanEnergy),
	}
}

// RateVideo applies the policy to raw video measurements.
func RateVideo(measurements VideoMeasurements, policy config.Policy) VideoFeatures {
	facialPct := measurements.FacialConfidence * 100
	gesture := GestureRating(measurements.GestureFrames, measurements.SampledFrames)
	posture := RatePosture(facialPct, policy.PostureGoodPct, policy.PostureAveragePct)

	return VideoFeatures{
		FacialExpressionPct: int(facialPct),
		GestureRating:       gesture,
		PostureRating:       posture,
		OverallReport:       OverallReport(facialPct, gesture, posture),
	}
}

// FormatSpeechRate renders the words-per-minute value the way reports print it.
func FormatSpeechRate(wpm float64) string {
	return fmt.Sprintf("%.2f", wpm)
}
