package speechengine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// SourceKind discriminates the two ways audio reaches the engine.
type SourceKind int

const (
	// SourceDirectFile feeds the engine the uploaded WAV file as-is: a
	// finite, seekable input with no external process involved.
	SourceDirectFile SourceKind = iota
	// SourceStreamedTranscoded feeds the engine a live PCM byte stream
	// produced by the external transcoding process.
	SourceStreamedTranscoded
)

// AudioSource is the audio input of one session, selected once at session
// start. Exactly one AudioSource is produced per session and it is closed
// exactly once, on every exit path.
type AudioSource struct {
	Kind SourceKind

	// Path is the local audio file path (SourceDirectFile).
	Path string
	// Stream is the transcoder's stdout: raw mono 16 kHz PCM WAV bytes
	// (SourceStreamedTranscoded). It reaches EOF when the process exits.
	Stream io.ReadCloser

	cmd       *exec.Cmd
	closeOnce sync.Once
}

// transcodeArgs is the fixed transcoding contract: band-pass filter
// (drop sub-200 Hz and above-3000 Hz content), downmix to mono, resample
// to 16 kHz, emit uncompressed PCM WAV on stdout.
func transcodeArgs(inputPath string) []string {
	return []string{
		"-i", inputPath,
		"-af", "highpass=f=200,lowpass=f=3000",
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"pipe:1",
	}
}

// PrepareAudioSource decides between the two input paths for the given
// file: ".wav" uploads go straight into the engine, everything else is
// piped through the transcoding process. A transcoder that fails to
// launch is surfaced as an error, never as a silent empty source.
func PrepareAudioSource(ffmpegPath, filePath string) (*AudioSource, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("audio file %s is not readable: %w", filePath, err)
	}

	if strings.EqualFold(filepath.Ext(filePath), ".wav") {
		log.Info().Str("file", filePath).Msg("Using direct WAV input for transcription")
		return &AudioSource{Kind: SourceDirectFile, Path: filePath}, nil
	}

	log.Info().Str("file", filePath).Msg("Transcoding and filtering audio with FFmpeg")
	cmd := exec.Command(ffmpegPath, transcodeArgs(filePath)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open transcoder stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open transcoder stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start transcoder %s: %w", ffmpegPath, err)
	}

	// Diagnostic channel is logged, never parsed for control flow.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Debug().Str("component", "ffmpeg").Msg(scanner.Text())
		}
	}()

	return &AudioSource{
		Kind:   SourceStreamedTranscoded,
		Path:   filePath,
		Stream: stdout,
		cmd:    cmd,
	}, nil
}

// Close releases the source. For a transcoded source it closes the output
// stream and reaps the process; an early close makes the transcoder exit
// on its next write. Idempotent.
func (s *AudioSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.Stream != nil {
			err = s.Stream.Close()
		}
		if s.cmd != nil {
			waitErr := s.cmd.Wait()
			if waitErr != nil {
				log.Warn().Err(waitErr).Msg("FFmpeg exited with error")
			} else {
				log.Debug().Msg("FFmpeg exited cleanly")
			}
		}
	})
	return err
}
