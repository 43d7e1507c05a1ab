package speechengine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"github.com/rs/zerolog/log"
)

// azureTranscriber adapts the Azure SpeechRecognizer to the Transcriber
// boundary: continuous recognition with diarization requested through
// the service property bag, word-level timestamps, and continuous
// language identification. The speaker identity travels inside the
// detailed recognition JSON, not on the result struct, so it is lifted
// from there.
type azureTranscriber struct {
	speechConfig *speech.SpeechConfig
	langConfig   *speech.AutoDetectSourceLanguageConfig
	audioConfig  *audio.AudioConfig
	pushStream   *audio.PushAudioInputStream
	recognizer   *speech.SpeechRecognizer
	source       *AudioSource

	onTranscribed    func(Event)
	onCanceled       func(CancellationEvent)
	onSessionStopped func()
}

// newAzureTranscriber builds the engine session for the given audio
// source: speech config with the diarization/segmentation properties of
// the service contract, audio config from either the WAV file or a push
// stream fed by the transcoder.
func newAzureTranscriber(key, region string, opts SessionOptions, source *AudioSource) (*azureTranscriber, error) {
	speechConfig, err := speech.NewSpeechConfigFromSubscription(key, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure SpeechConfig: %w", err)
	}

	t := &azureTranscriber{speechConfig: speechConfig, source: source}

	if err := t.configure(opts); err != nil {
		t.Close()
		return nil, err
	}

	switch source.Kind {
	case SourceDirectFile:
		t.audioConfig, err = audio.NewAudioConfigFromWavFileInput(source.Path)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("failed to create Azure AudioConfig from WAV file: %w", err)
		}
	case SourceStreamedTranscoded:
		// Default push stream format matches the transcoder output:
		// 16 kHz, 16-bit, mono PCM.
		t.pushStream, err = audio.CreatePushAudioInputStream()
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("failed to create push audio input stream: %w", err)
		}
		t.audioConfig, err = audio.NewAudioConfigFromStreamInput(t.pushStream)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("failed to create Azure AudioConfig from stream: %w", err)
		}
	}

	if opts.AutoDetect() {
		t.langConfig, err = speech.NewAutoDetectSourceLanguageConfigFromLanguages(DefaultAutoDetectLanguages)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("failed to create auto-detect language config: %w", err)
		}
		// sic: the SDK ships the constructor under this name.
		t.recognizer, err = speech.NewSpeechRecognizerFomAutoDetectSourceLangConfig(speechConfig, t.langConfig, t.audioConfig)
	} else {
		t.recognizer, err = speech.NewSpeechRecognizerFromConfig(speechConfig, t.audioConfig)
	}
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to create Azure SpeechRecognizer: %w", err)
	}

	return t, nil
}

func (t *azureTranscriber) configure(opts SessionOptions) error {
	if !opts.AutoDetect() {
		if err := t.speechConfig.SetSpeechRecognitionLanguage(opts.Language); err != nil {
			return fmt.Errorf("failed to set recognition language %q: %w", opts.Language, err)
		}
		log.Info().Str("language", opts.Language).Msg("Using specific language")
	} else {
		if err := t.speechConfig.SetPropertyByString("SpeechServiceConnection_LanguageIdMode", "Continuous"); err != nil {
			return fmt.Errorf("failed to enable continuous language identification: %w", err)
		}
		log.Info().Strs("candidates", DefaultAutoDetectLanguages).Msg("Using language auto-detection")
	}

	type property struct {
		id    common.PropertyID
		value string
	}
	for _, p := range []property{
		{common.SpeechServiceConnectionInitialSilenceTimeoutMs, InitialSilenceTimeoutMs},
		{common.SpeechServiceConnectionEndSilenceTimeoutMs, EndSilenceTimeoutMs},
		{common.SpeechServiceResponseRequestDetailedResultTrueFalse, "true"},
	} {
		if err := t.speechConfig.SetProperty(p.id, p.value); err != nil {
			return fmt.Errorf("failed to set engine property %v: %w", p.id, err)
		}
	}
	for name, value := range map[string]string{
		"SpeechServiceResponse_RequestWordLevelTimestamps": "true",
		"SpeechServiceResponse_RequestWordBoundary":        "true",
		"SpeechServiceResponse_RequestPunctuationBoundary": "true",
		"SpeechServiceResponse_DiarizeIntermediateResults": "true",
		"Speech_SegmentationSilenceTimeoutMs":              SegmentationSilenceTimeoutMs,
		"Speech_SegmentationStrategy":                      SegmentationStrategy,
	} {
		if err := t.speechConfig.SetPropertyByString(name, value); err != nil {
			return fmt.Errorf("failed to set engine property %s: %w", name, err)
		}
	}
	return nil
}

// speakerIDFromDetail extracts the diarization speaker from the detailed
// recognition JSON. The recognizer's result struct carries no speaker
// field; the service reports it only inside the JSON payload, and only
// when diarization resolved one.
func speakerIDFromDetail(detail string) string {
	var payload struct {
		SpeakerID string `json:"SpeakerId"`
	}
	if err := json.Unmarshal([]byte(detail), &payload); err != nil || payload.SpeakerID == "" {
		return "Unknown"
	}
	return payload.SpeakerID
}

func (t *azureTranscriber) Transcribed(handler func(Event)) {
	t.onTranscribed = handler
	t.recognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()
		result := event.Result
		if result.Reason != common.RecognizedSpeech {
			return
		}
		detail := result.Properties.GetProperty(common.SpeechServiceResponseJSONResult, "")
		t.onTranscribed(Event{
			SpeakerID: speakerIDFromDetail(detail),
			Offset:    result.Offset.Nanoseconds() / 100,
			Duration:  result.Duration.Nanoseconds() / 100,
			Detail:    detail,
		})
	})
}

func (t *azureTranscriber) Canceled(handler func(CancellationEvent)) {
	t.onCanceled = handler
	t.recognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		if event.Reason != common.Error {
			// End-of-stream cancellation precedes the session-stopped
			// signal on every finite input; not an error.
			log.Debug().Int("reason", int(event.Reason)).Msg("Recognition canceled without error")
			return
		}
		t.onCanceled(CancellationEvent{ErrorDetails: event.ErrorDetails})
	})
}

func (t *azureTranscriber) SessionStopped(handler func()) {
	t.onSessionStopped = handler
	t.recognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		t.onSessionStopped()
	})
}

// Start begins continuous recognition. For a transcoded source it also
// starts the pump that forwards transcoder output into the push stream
// as it arrives, closing the stream when the process completes so the
// engine observes end-of-stream.
func (t *azureTranscriber) Start() error {
	if t.source.Kind == SourceStreamedTranscoded {
		go t.pump()
	}
	if err := <-t.recognizer.StartContinuousRecognitionAsync(); err != nil {
		return fmt.Errorf("failed to start Azure recognition: %w", err)
	}
	return nil
}

func (t *azureTranscriber) pump() {
	defer t.pushStream.CloseStream()
	buffer := make([]byte, 4096)
	for {
		n, err := t.source.Stream.Read(buffer)
		if n > 0 {
			if writeErr := t.pushStream.Write(buffer[:n]); writeErr != nil {
				log.Error().Err(writeErr).Msg("Failed to write audio data to push stream")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("Transcoder stream read failed")
			}
			return
		}
	}
}

func (t *azureTranscriber) Stop() error {
	if err := <-t.recognizer.StopContinuousRecognitionAsync(); err != nil {
		return fmt.Errorf("failed to stop Azure recognition: %w", err)
	}
	return nil
}

func (t *azureTranscriber) Close() {
	if t.recognizer != nil {
		t.recognizer.Close()
	}
	if t.langConfig != nil {
		t.langConfig.Close()
	}
	if t.pushStream != nil {
		t.pushStream.Close()
	}
	if t.audioConfig != nil {
		t.audioConfig.Close()
	}
	if t.speechConfig != nil {
		t.speechConfig.Close()
	}
}
