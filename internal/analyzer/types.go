package analyzer

// Transcript is the recognized speech of an audio track.
type Transcript struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	Confidence      float64 `json:"confidence"`
}

// WordCount returns the number of whitespace-separated words.
func (t *Transcript) WordCount() int {
	if t == nil {
		return 0
	}
	count := 0
	inWord := false
	for _, r := range t.Text {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				count++
			}
			inWord = true
		}
	}
	return count
}

// AudioMeasurements is the raw output of the audio analyzer tool.
type AudioMeasurements struct {
	DurationSeconds   float64 `json:"duration_seconds"`
	LongestSilenceSec float64 `json:"longest_silence_seconds"`
	PitchStdDevHz     float64 `json:"pitch_stddev_hz"`
	SentimentScore    float64 `json:"sentiment_score"`
	ClarityScore      float64 `json:"clarity_score"`
	MeanEnergy        float64 `json:"mean_energy"`
}

// AudioFeatures is the rated audio report section.
type AudioFeatures struct {
	SpeechRateWPM   float64 `json:"speech_rate_wpm"`
	Fluency         string  `json:"fluency"`
	LongestPauseSec float64 `json:"longest_pause_seconds"`
	PitchAndTone    string  `json:"pitch_and_tone"`
	WordEmphasis    string  `json:"word_emphasis"`
	Tone            string  `json:"tone"`
	Pace            string  `json:"pace"`
	Clarity         string  `json:"clarity"`
	VolumeEnergy    string  `json:"volume_energy"`
}

// VideoMeasurements is the raw output of the video analyzer tool.
type VideoMeasurements struct {
	SampledFrames    int     `json:"sampled_frames"`
	GestureFrames    int     `json:"gesture_frames"`
	FacialConfidence float64 `json:"facial_confidence"`
}

// VideoFeatures is the rated video report section.
type VideoFeatures struct {
	FacialExpressionPct int     `json:"facial_expression_pct"`
	GestureRating       float64 `json:"gesture_rating"`
	PostureRating       string  `json:"posture_rating"`
	OverallReport       string  `json:"overall_report"`
}
