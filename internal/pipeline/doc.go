// Package pipeline implements the analysis stages the workflow manager
// drives: fetching the source video and running the fan-out analysis.
//
// The analysis stage runs three branches concurrently. Video analysis is
// independent; audio analysis and narrative generation both wait on the
// transcript. The stage completes only when all three branches have
// finished, and a failed branch never cancels its siblings mid-flight.
package pipeline
