package speechengine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"polyglot-transcriber/backend/internal/config"
)

// NewTranscriber selects and constructs the engine session for the
// configured vendor, bound to the prepared audio source.
func NewTranscriber(cfg *config.Config, opts SessionOptions, source *AudioSource) (Transcriber, error) {
	switch cfg.Engine {
	case config.EngineAzure:
		log.Debug().Msg("Selected Azure conversation transcription engine")
		return newAzureTranscriber(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, opts, source)
	case config.EngineGoogle:
		log.Debug().Msg("Selected Google streaming recognition engine")
		return newGoogleTranscriber(cfg.GoogleCredentials, opts, source)
	default:
		return nil, fmt.Errorf("no speech engine available for vendor %q", cfg.Engine)
	}
}
