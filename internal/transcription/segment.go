package transcription

import (
	"encoding/json"

	"polyglot-transcriber/backend/internal/speechengine"
)

// Word is one recognized token with its timing on the engine clock
// (100 ns ticks). Immutable once built.
type Word struct {
	Text     string `json:"text"`
	Offset   int64  `json:"offset"`
	Duration int64  `json:"duration"`
}

// Segment is one speaker-attributed utterance. Start and end times are
// the engine's reported offset and offset+duration, verbatim: logical
// engine-clock values, not wall-clock, and not normalized across
// segments.
type Segment struct {
	Speaker            string  `json:"speaker"`
	Text               string  `json:"text"`
	Language           string  `json:"language"`
	LanguageConfidence string  `json:"languageConfidence"`
	Confidence         float64 `json:"confidence"`
	Words              []Word  `json:"words"`
	StartTime          int64   `json:"startTime"`
	EndTime            int64   `json:"endTime"`
}

// Result is the final payload of one session.
type Result struct {
	Transcription []Segment `json:"transcription"`
	SpeakerCount  int       `json:"speakerCount"`
	Message       string    `json:"message"`
	AudioFile     string    `json:"audioFile"`
}

const unknownValue = "unknown"

// detailedResult mirrors the engine's detailed recognition JSON: the
// ranked candidate list plus the per-utterance detected language.
type detailedResult struct {
	PrimaryLanguage *struct {
		Language   string `json:"Language"`
		Confidence string `json:"Confidence"`
	} `json:"PrimaryLanguage"`
	NBest []struct {
		Confidence *float64 `json:"Confidence"`
		Display    string   `json:"Display"`
		Words      []struct {
			Word     string `json:"Word"`
			Offset   int64  `json:"Offset"`
			Duration int64  `json:"Duration"`
		} `json:"Words"`
	} `json:"NBest"`
}

// BuildSegment converts one recognized-speech event into a Segment
// attributed to speakerLabel. It fails with a MALFORMED_RESULT error when
// the event's detail payload is not valid recognition JSON or carries no
// recognition candidate; such events are dropped by the caller, never
// fatal to the session.
func BuildSegment(event speechengine.Event, speakerLabel string) (Segment, error) {
	var raw detailedResult
	if err := json.Unmarshal([]byte(event.Detail), &raw); err != nil {
		return Segment{}, WrapError(KindMalformedResult, "failed to parse recognition result", err)
	}
	if len(raw.NBest) == 0 {
		return Segment{}, NewError(KindMalformedResult, "recognition result carries no candidates")
	}

	best := raw.NBest[0]

	segment := Segment{
		Speaker:            speakerLabel,
		Text:               best.Display,
		Language:           unknownValue,
		LanguageConfidence: unknownValue,
		Confidence:         1.0,
		Words:              []Word{},
		StartTime:          event.Offset,
		EndTime:            event.Offset + event.Duration,
	}

	// Auto-detection may not resolve a language for every segment.
	if raw.PrimaryLanguage != nil {
		if raw.PrimaryLanguage.Language != "" {
			segment.Language = raw.PrimaryLanguage.Language
		}
		if raw.PrimaryLanguage.Confidence != "" {
			segment.LanguageConfidence = raw.PrimaryLanguage.Confidence
		}
	}
	if best.Confidence != nil {
		segment.Confidence = *best.Confidence
	}

	for _, word := range best.Words {
		segment.Words = append(segment.Words, Word{
			Text:     word.Word,
			Offset:   word.Offset,
			Duration: word.Duration,
		})
	}

	return segment, nil
}
