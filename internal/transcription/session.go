package transcription

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"polyglot-transcriber/backend/internal/config"
	"polyglot-transcriber/backend/internal/speechengine"
)

// Injection points for tests; production wiring uses the speechengine
// package directly.
var (
	prepareAudioSource = speechengine.PrepareAudioSource
	newTranscriber     = speechengine.NewTranscriber
)

type outcome struct {
	result *Result
	err    error
}

// Session owns one transcription attempt end to end: audio ingestion,
// the engine event stream, and the aggregated result. It lives for the
// duration of one upload request.
//
// The engine delivers events from its own callback goroutines, possibly
// concurrent with each other and with Run; every mutation of the segment
// list, speaker map, and flags is serialized under mu, and the terminal
// outcome is resolved exactly once regardless of event ordering.
type Session struct {
	cfg  *config.Config
	opts speechengine.SessionOptions

	mu        sync.Mutex
	segments  []Segment
	speakers  *SpeakerMap
	hasSpeech bool

	resolveOnce sync.Once
	done        chan outcome
}

// NewSession creates a session for one uploaded file. language may be
// empty to request auto-detection over the fixed candidate set.
func NewSession(cfg *config.Config, language string) *Session {
	return &Session{
		cfg:      cfg,
		opts:     speechengine.SessionOptions{Language: language},
		speakers: NewSpeakerMap(),
		done:     make(chan outcome, 1),
	}
}

// Run executes the session against the audio file at audioPath and
// blocks until the engine reports a terminal signal. The audio source
// and the engine session are released on every exit path.
func (s *Session) Run(audioPath string) (*Result, error) {
	source, err := prepareAudioSource(s.cfg.FFmpegPath, audioPath)
	if err != nil {
		return nil, WrapError(KindAudioPreparation, "failed to prepare audio source", err)
	}
	defer source.Close()

	transcriber, err := newTranscriber(s.cfg, s.opts, source)
	if err != nil {
		return nil, WrapError(KindEngineConfiguration, "failed to create recognition engine session", err)
	}
	defer transcriber.Close()

	transcriber.Transcribed(s.handleTranscribed)
	transcriber.Canceled(s.handleCanceled)
	transcriber.SessionStopped(s.handleSessionStopped)

	log.Info().Str("file", audioPath).Msg("Starting transcription")
	if err := transcriber.Start(); err != nil {
		return nil, WrapError(KindEngineConfiguration, "failed to start transcription session", err)
	}

	out := <-s.done

	if err := transcriber.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop engine session cleanly")
	}
	return out.result, out.err
}

// handleTranscribed processes one recognized-speech event: allocate the
// speaker label, build the segment, append. A malformed payload is
// logged and dropped without touching the session outcome.
func (s *Session) handleTranscribed(event speechengine.Event) {
	label := s.speakers.LabelFor(event.SpeakerID)

	segment, err := BuildSegment(event, label)
	if err != nil {
		log.Error().Err(err).Str("speaker", label).Msg("Dropping unparseable recognition result")
		return
	}

	s.mu.Lock()
	s.segments = append(s.segments, segment)
	s.hasSpeech = true
	s.mu.Unlock()

	log.Info().
		Str("speaker", segment.Speaker).
		Str("language", segment.Language).
		Str("languageConfidence", segment.LanguageConfidence).
		Int64("startTime", segment.StartTime).
		Int64("endTime", segment.EndTime).
		Str("text", segment.Text).
		Msg("Speech recognized")
}

// handleCanceled resolves the session as failed. Events arriving after
// this point are ignored by the exactly-once resolution.
func (s *Session) handleCanceled(event speechengine.CancellationEvent) {
	log.Error().Str("details", event.ErrorDetails).Msg("Transcription canceled with error")
	s.resolve(outcome{err: NewError(KindEngineCanceled, event.ErrorDetails)})
}

// handleSessionStopped resolves the session as succeeded, synthesizing
// the no-speech placeholder when nothing was recognized.
func (s *Session) handleSessionStopped() {
	log.Info().Msg("Transcription session stopped")

	s.mu.Lock()
	segments := s.segments
	hasSpeech := s.hasSpeech
	s.mu.Unlock()

	speakerCount := s.speakers.Count()
	if len(segments) == 0 {
		segments = []Segment{{
			Speaker:            "No speech detected",
			Text:               "No speech was detected in the audio file.",
			Language:           unknownValue,
			LanguageConfidence: unknownValue,
			Confidence:         1.0,
			Words:              []Word{},
		}}
		speakerCount = 0
	}

	s.resolve(outcome{result: &Result{
		Transcription: segments,
		SpeakerCount:  speakerCount,
		Message:       summaryMessage(hasSpeech, speakerCount),
	}})
}

func (s *Session) resolve(out outcome) {
	s.resolveOnce.Do(func() {
		s.done <- out
	})
}

// summaryMessage selects the human-readable summary: no speech at all,
// speech without diarization, or a speaker count.
func summaryMessage(hasSpeech bool, speakerCount int) string {
	switch {
	case !hasSpeech:
		return "No speech detected in the audio file"
	case speakerCount > 0:
		return fmt.Sprintf("Detected %d speakers", speakerCount)
	default:
		return "Transcription completed (speaker detection not available)"
	}
}
