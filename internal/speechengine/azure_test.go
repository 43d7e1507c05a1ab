package speechengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpeakerIDFromDetail(t *testing.T) {
	t.Parallel()

	detail := `{"SpeakerId": "Guest-1", "NBest": [{"Display": "hello"}]}`
	require.Equal(t, "Guest-1", speakerIDFromDetail(detail))
}

func TestSpeakerIDFromDetailMissingOrMalformed(t *testing.T) {
	t.Parallel()

	// Diarization may not attribute every utterance; the payload may
	// also be absent or unparseable. All of these map to "Unknown".
	for _, detail := range []string{
		`{"NBest": [{"Display": "hello"}]}`,
		`{"SpeakerId": ""}`,
		"",
		"not json",
	} {
		require.Equal(t, "Unknown", speakerIDFromDetail(detail))
	}
}
