package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"polyglot-transcriber/backend/internal/config"
	"polyglot-transcriber/backend/internal/objectstore"
	"polyglot-transcriber/backend/internal/speechengine"
)

// setupHandlers wires the package handlers to a throwaway local store
// and returns a router exposing the transcription routes.
func setupHandlers(t *testing.T, cfg *config.Config) (*gin.Engine, objectstore.Store) {
	t.Helper()

	cfg.UploadDir = t.TempDir()
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 50 << 20
	}

	store, err := objectstore.NewLocalStore(cfg.UploadDir)
	require.NoError(t, err)

	InitHandlers(cfg, store)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/upload", UploadHandler)
	router.GET("/audio/:filename", AudioFileHandler)
	return router, store
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerSuccess(t *testing.T) {
	fake := &fakeTranscriber{script: func(f *fakeTranscriber) {
		f.transcribed(speechengine.Event{SpeakerID: "guest-1", Offset: 0, Duration: 100, Detail: detailPayload("hello there")})
		f.sessionStopped()
	}}
	installFakeEngine(t, fake)

	router, _ := setupHandlers(t, sessionConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "meeting.wav", []byte("RIFF fake wav"), map[string]string{"language": "en-US"}))

	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Transcription, 1)
	require.Equal(t, "hello there", result.Transcription[0].Text)
	require.Equal(t, "Speaker 1", result.Transcription[0].Speaker)
	require.Equal(t, 1, result.SpeakerCount)
	require.Equal(t, "Detected 1 speakers", result.Message)
	require.NotEmpty(t, result.AudioFile)
	require.Regexp(t, `\.wav$`, result.AudioFile)
}

func TestUploadHandlerStoresArtifact(t *testing.T) {
	fake := &fakeTranscriber{script: func(f *fakeTranscriber) {
		f.sessionStopped()
	}}
	installFakeEngine(t, fake)

	router, store := setupHandlers(t, sessionConfig())

	content := []byte("RIFF fake wav bytes")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "call.wav", content, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	reader, size, _, err := store.Get(context.Background(), result.AudioFile)
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, int64(len(content)), size)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	router, _ := setupHandlers(t, sessionConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "", nil, map[string]string{"language": "de-CH"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error": "No file uploaded"}`, rec.Body.String())
}

func TestUploadHandlerOversizedFile(t *testing.T) {
	cfg := sessionConfig()
	cfg.MaxUploadBytes = 8

	router, _ := setupHandlers(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "big.wav", bytes.Repeat([]byte("a"), 64), nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "upload limit")
}

func TestUploadHandlerEngineFailure(t *testing.T) {
	fake := &fakeTranscriber{script: func(f *fakeTranscriber) {
		f.canceled(speechengine.CancellationEvent{ErrorDetails: "invalid subscription key"})
	}}
	installFakeEngine(t, fake)

	cfg := sessionConfig()
	cfg.Env = "production"
	router, _ := setupHandlers(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "call.wav", []byte("RIFF"), nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ENGINE_CANCELED", body["error"])
	require.Contains(t, body["details"], "invalid subscription key")
	require.NotContains(t, body, "trace")
}

func TestUploadHandlerFailureRemovesArtifact(t *testing.T) {
	fake := &fakeTranscriber{script: func(f *fakeTranscriber) {
		f.canceled(speechengine.CancellationEvent{ErrorDetails: "service unreachable"})
	}}
	installFakeEngine(t, fake)

	cfg := sessionConfig()
	router, _ := setupHandlers(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "call.wav", []byte("RIFF"), nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	entries, err := os.ReadDir(cfg.UploadDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUploadHandlerDevelopmentTrace(t *testing.T) {
	fake := &fakeTranscriber{script: func(f *fakeTranscriber) {
		f.canceled(speechengine.CancellationEvent{ErrorDetails: "invalid subscription key"})
	}}
	installFakeEngine(t, fake)

	cfg := sessionConfig()
	cfg.Env = "development"
	router, _ := setupHandlers(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "call.wav", []byte("RIFF"), nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "trace")
	require.Contains(t, body["trace"], "ENGINE_CANCELED")
}

func TestAudioFileHandlerServesStoredObject(t *testing.T) {
	router, store := setupHandlers(t, sessionConfig())

	content := []byte("stored audio bytes")
	objectName, err := store.Put(context.Background(), "clip.wav", bytes.NewReader(content), int64(len(content)), "audio/wav")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audio/"+objectName, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, content, rec.Body.Bytes())
}

func TestAudioFileHandlerNotFound(t *testing.T) {
	router, _ := setupHandlers(t, sessionConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audio/nope.wav", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
