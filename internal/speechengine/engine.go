// Package speechengine wraps the external streaming speech-recognition
// engines behind a narrow, event-driven boundary. The orchestrator in
// internal/transcription only ever sees the Transcriber interface and the
// canonical event types defined here; the vendor SDKs stay inside this
// package.
package speechengine

import "time"

// TicksPerSecond is the engine's native clock resolution: 100-nanosecond
// ticks, as reported in the detailed recognition JSON.
const TicksPerSecond = int64(time.Second / (100 * time.Nanosecond))

// DefaultAutoDetectLanguages is the fixed candidate set used when no
// target language is requested. Continuous language identification picks
// among these per utterance.
var DefaultAutoDetectLanguages = []string{"de-CH", "fr-FR", "en-US", "it-CH"}

// Fixed engine tuning shared by all sessions. These govern liveness: no
// wall-clock cap is imposed on a session beyond the engine's own silence
// handling.
const (
	InitialSilenceTimeoutMs      = "5000"
	EndSilenceTimeoutMs          = "500"
	SegmentationSilenceTimeoutMs = "1000"
	SegmentationStrategy         = "Semantic"
)

// SessionOptions configures one transcription session.
type SessionOptions struct {
	// Language is the fixed recognition language (e.g. "de-CH"). Empty
	// means auto-detection over DefaultAutoDetectLanguages.
	Language string
}

// AutoDetect reports whether the session runs in language auto-detection
// mode.
func (o SessionOptions) AutoDetect() bool { return o.Language == "" }

// Event is one recognized-speech event. Offsets and durations are in
// engine ticks (100 ns), taken verbatim from the engine's logical clock;
// they are not wall-clock values and are not guaranteed globally sorted.
type Event struct {
	// SpeakerID is the engine's opaque speaker identifier, possibly
	// "Unknown" when diarization could not attribute the utterance.
	SpeakerID string
	// Offset is the utterance start on the engine clock, in ticks.
	Offset int64
	// Duration is the utterance length, in ticks.
	Duration int64
	// Detail is the engine's detailed recognition result as JSON
	// (NBest candidates, per-word timings, detected language).
	Detail string
}

// CancellationEvent is delivered when the engine aborts the session with
// an error. End-of-stream cancellations are filtered out by the adapters
// and never reach the orchestrator.
type CancellationEvent struct {
	ErrorDetails string
}

// Transcriber is the lifecycle of one engine session. Handlers must be
// registered before Start; they may be invoked from the engine's own
// callback goroutines, concurrently with the caller.
type Transcriber interface {
	// Transcribed registers the handler for recognized-speech events.
	Transcribed(handler func(Event))
	// Canceled registers the handler for fatal cancellation events.
	Canceled(handler func(CancellationEvent))
	// SessionStopped registers the handler for the terminal
	// session-stopped signal.
	SessionStopped(handler func())
	// Start begins the session, returning once the engine acknowledges
	// the start. Events are delivered until a terminal signal fires.
	Start() error
	// Stop requests the engine to stop delivering events. Safe to call
	// after a terminal signal.
	Stop() error
	// Close releases the engine session's resources.
	Close()
}
