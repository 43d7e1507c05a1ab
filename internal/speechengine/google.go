package speechengine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	speechv1 "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const googleStreamChunkSize = 8 * 1024

// googleTranscriber adapts Google Cloud Speech-to-Text streaming
// recognition to the Transcriber boundary. Final streaming results are
// rendered into the canonical detailed-result JSON so the rest of the
// pipeline is engine-agnostic.
type googleTranscriber struct {
	client *speechv1.Client
	source *AudioSource
	opts   SessionOptions

	ctx    context.Context
	cancel context.CancelFunc

	onTranscribed    func(Event)
	onCanceled       func(CancellationEvent)
	onSessionStopped func()
}

func newGoogleTranscriber(credentialsPath string, opts SessionOptions, source *AudioSource) (*googleTranscriber, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var clientOpts []option.ClientOption
	if credentialsPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := speechv1.NewClient(ctx, clientOpts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}

	return &googleTranscriber{
		client: client,
		source: source,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (t *googleTranscriber) Transcribed(handler func(Event)) { t.onTranscribed = handler }

func (t *googleTranscriber) Canceled(handler func(CancellationEvent)) { t.onCanceled = handler }

func (t *googleTranscriber) SessionStopped(handler func()) { t.onSessionStopped = handler }

func (t *googleTranscriber) recognitionConfig() *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
		DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          1,
			MaxSpeakerCount:          6,
		},
	}
	if t.opts.AutoDetect() {
		cfg.LanguageCode = DefaultAutoDetectLanguages[0]
		cfg.AlternativeLanguageCodes = DefaultAutoDetectLanguages[1:]
	} else {
		cfg.LanguageCode = t.opts.Language
	}
	if t.source.Kind == SourceStreamedTranscoded {
		// Transcoder output is WAV-wrapped LINEAR16 at 16 kHz mono.
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = 16000
		cfg.AudioChannelCount = 1
	}
	return cfg
}

// Start opens the streaming call, sends the configuration, and launches
// the sender and receiver loops. It returns once the stream is
// established, which is the engine's start acknowledgment.
func (t *googleTranscriber) Start() error {
	stream, err := t.client.StreamingRecognize(t.ctx)
	if err != nil {
		return fmt.Errorf("failed to open Google streaming recognition: %w", err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         t.recognitionConfig(),
				InterimResults: false,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send Google streaming config: %w", err)
	}

	go t.send(stream)
	go t.receive(stream)
	return nil
}

// send forwards audio bytes to the stream until the source is drained.
func (t *googleTranscriber) send(stream speechpb.Speech_StreamingRecognizeClient) {
	defer func() {
		if err := stream.CloseSend(); err != nil {
			log.Error().Err(err).Msg("Failed to close Google streaming send side")
		}
	}()

	var reader io.Reader
	if t.source.Kind == SourceDirectFile {
		file, err := os.Open(t.source.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open audio file for Google streaming")
			return
		}
		defer file.Close()
		reader = file
	} else {
		reader = t.source.Stream
	}

	buffer := make([]byte, googleStreamChunkSize)
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			sendErr := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buffer[:n],
				},
			})
			if sendErr != nil {
				log.Error().Err(sendErr).Msg("Failed to send audio chunk to Google streaming")
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Msg("Audio source read failed during Google streaming")
			}
			return
		}
	}
}

// receive drains recognition responses, converting each final result into
// a canonical recognized-speech event. Stream exhaustion maps to the
// session-stopped signal; any other stream error maps to a cancellation.
func (t *googleTranscriber) receive(stream speechpb.Speech_StreamingRecognizeClient) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			t.onSessionStopped()
			return
		}
		if err != nil {
			if t.ctx.Err() != nil {
				// Stop() tore the stream down after resolution.
				t.onSessionStopped()
				return
			}
			t.onCanceled(CancellationEvent{ErrorDetails: err.Error()})
			return
		}
		for _, result := range resp.Results {
			if !result.IsFinal || len(result.Alternatives) == 0 {
				continue
			}
			t.onTranscribed(t.toEvent(result))
		}
	}
}

// Canonical detailed-result shape shared with the segment builder.
type detailWord struct {
	Word     string `json:"Word"`
	Offset   int64  `json:"Offset"`
	Duration int64  `json:"Duration"`
}

type detailCandidate struct {
	Confidence float64      `json:"Confidence"`
	Display    string       `json:"Display"`
	Words      []detailWord `json:"Words,omitempty"`
}

type detailLanguage struct {
	Language   string `json:"Language"`
	Confidence string `json:"Confidence,omitempty"`
}

type detailResult struct {
	NBest           []detailCandidate `json:"NBest"`
	PrimaryLanguage *detailLanguage   `json:"PrimaryLanguage,omitempty"`
}

// toEvent converts one final streaming result into the canonical event,
// deriving the speaker from the word-level speaker tags and the segment
// interval from the first/last word offsets.
func (t *googleTranscriber) toEvent(result *speechpb.StreamingRecognitionResult) Event {
	alt := result.Alternatives[0]

	detail := detailResult{
		NBest: []detailCandidate{{
			Confidence: float64(alt.Confidence),
			Display:    alt.Transcript,
		}},
	}
	if result.LanguageCode != "" {
		detail.PrimaryLanguage = &detailLanguage{Language: result.LanguageCode}
	}

	speakerID := "Unknown"
	var offset, end int64
	for i, word := range alt.Words {
		start := word.StartTime.AsDuration().Nanoseconds() / 100
		stop := word.EndTime.AsDuration().Nanoseconds() / 100
		if i == 0 {
			offset = start
			if word.SpeakerTag != 0 {
				speakerID = fmt.Sprintf("guest-%d", word.SpeakerTag)
			}
		}
		if stop > end {
			end = stop
		}
		detail.NBest[0].Words = append(detail.NBest[0].Words, detailWord{
			Word:     word.Word,
			Offset:   start,
			Duration: stop - start,
		})
	}
	if end == 0 {
		end = result.ResultEndTime.AsDuration().Nanoseconds() / 100
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		// Marshalling a plain struct cannot realistically fail; keep the
		// event flowing with an empty detail so it is dropped downstream.
		log.Error().Err(err).Msg("Failed to marshal Google recognition detail")
		payload = nil
	}

	return Event{
		SpeakerID: speakerID,
		Offset:    offset,
		Duration:  end - offset,
		Detail:    string(payload),
	}
}

func (t *googleTranscriber) Stop() error {
	t.cancel()
	return nil
}

func (t *googleTranscriber) Close() {
	t.cancel()
	if err := t.client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Google Speech client")
	}
}
