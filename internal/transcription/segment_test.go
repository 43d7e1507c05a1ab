package transcription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"polyglot-transcriber/backend/internal/speechengine"
)

const fullDetailPayload = `{
	"NBest": [{
		"Confidence": 0.93,
		"Display": "Grüezi mitenand.",
		"Words": [
			{"Word": "Grüezi", "Offset": 1200000, "Duration": 4000000},
			{"Word": "mitenand.", "Offset": 5300000, "Duration": 6000000}
		]
	}],
	"PrimaryLanguage": {"Language": "de-CH", "Confidence": "0.87"}
}`

func TestBuildSegmentFullPayload(t *testing.T) {
	t.Parallel()

	event := speechengine.Event{
		SpeakerID: "guest-1",
		Offset:    1200000,
		Duration:  10100000,
		Detail:    fullDetailPayload,
	}

	segment, err := BuildSegment(event, "Speaker 1")
	require.NoError(t, err)

	require.Equal(t, "Speaker 1", segment.Speaker)
	require.Equal(t, "Grüezi mitenand.", segment.Text)
	require.Equal(t, "de-CH", segment.Language)
	require.Equal(t, "0.87", segment.LanguageConfidence)
	require.Equal(t, 0.93, segment.Confidence)
	require.Equal(t, int64(1200000), segment.StartTime)
	require.Equal(t, int64(11300000), segment.EndTime)

	require.Len(t, segment.Words, 2)
	require.Equal(t, Word{Text: "Grüezi", Offset: 1200000, Duration: 4000000}, segment.Words[0])
	require.Equal(t, Word{Text: "mitenand.", Offset: 5300000, Duration: 6000000}, segment.Words[1])
}

func TestBuildSegmentDefaults(t *testing.T) {
	t.Parallel()

	// No confidence, no language, no words: every optional field falls
	// back rather than failing.
	event := speechengine.Event{
		SpeakerID: "guest-2",
		Offset:    500,
		Duration:  700,
		Detail:    `{"NBest": [{"Display": "hello"}]}`,
	}

	segment, err := BuildSegment(event, "Speaker 2")
	require.NoError(t, err)

	require.Equal(t, "hello", segment.Text)
	require.Equal(t, 1.0, segment.Confidence)
	require.Equal(t, "unknown", segment.Language)
	require.Equal(t, "unknown", segment.LanguageConfidence)
	require.NotNil(t, segment.Words)
	require.Empty(t, segment.Words)
	require.Equal(t, int64(500), segment.StartTime)
	require.Equal(t, int64(1200), segment.EndTime)
}

func TestBuildSegmentExplicitZeroConfidence(t *testing.T) {
	t.Parallel()

	event := speechengine.Event{Detail: `{"NBest": [{"Confidence": 0, "Display": "x"}]}`}

	segment, err := BuildSegment(event, "Speaker 1")
	require.NoError(t, err)
	require.Equal(t, 0.0, segment.Confidence)
}

func TestBuildSegmentMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := BuildSegment(speechengine.Event{Detail: "not json"}, "Speaker 1")
	require.Error(t, err)

	var te *Error
	require.True(t, errors.As(err, &te))
	require.Equal(t, KindMalformedResult, te.Kind)
}

func TestBuildSegmentNoCandidates(t *testing.T) {
	t.Parallel()

	for _, detail := range []string{`{}`, `{"NBest": []}`} {
		_, err := BuildSegment(speechengine.Event{Detail: detail}, "Speaker 1")
		require.Error(t, err)

		var te *Error
		require.True(t, errors.As(err, &te))
		require.Equal(t, KindMalformedResult, te.Kind)
	}
}
