package pipeline

import (
	"time"

	"vocalis/internal/analyzer"
)

// NoSpeechNarrative is the feedback used when the recording carries no
// recognizable speech.
const NoSpeechNarrative = "No recognizable speech was detected in the recording, so no content feedback could be generated."

// Result is the aggregated output of the three analysis branches.
type Result struct {
	ReportID         string                  `json:"report_id"`
	Activity         string                  `json:"activity"`
	GeneratedAt      time.Time               `json:"generated_at"`
	SpeechRecognized bool                    `json:"speech_recognized"`
	Transcript       string                  `json:"transcript,omitempty"`
	Video            *analyzer.VideoFeatures `json:"video,omitempty"`
	Audio            *analyzer.AudioFeatures `json:"audio,omitempty"`
	Narrative        string                  `json:"narrative,omitempty"`
}
