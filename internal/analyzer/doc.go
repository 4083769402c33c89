// Package analyzer wraps the external media analysis tools and turns their
// raw measurements into rated speech metrics.
//
// The external binaries (ffmpeg, the transcriber, and the audio/video
// analyzers) do the signal processing and emit JSON measurements; this
// package owns the rating policy that maps measurements to the labels that
// appear in reports. A transcription that recognizes no speech yields a nil
// transcript, not an error.
package analyzer
