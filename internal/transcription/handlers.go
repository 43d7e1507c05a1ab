package transcription

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"polyglot-transcriber/backend/internal/config"
	"polyglot-transcriber/backend/internal/objectstore"
)

var (
	handlerConfig *config.Config
	handlerStore  objectstore.Store
)

// InitHandlers wires the package handlers to the process configuration
// and the artifact store. Must be called once at startup, before the
// router is set up.
func InitHandlers(cfg *config.Config, store objectstore.Store) {
	handlerConfig = cfg
	handlerStore = store
}

// autoDetectLanguage is the request value selecting auto-detection; it is
// also the default when the language field is absent.
const autoDetectLanguage = "auto-detect"

// UploadHandler accepts one audio file plus an optional language field,
// runs a transcription session against it, and responds with the
// aggregated result.
func UploadHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Size > handlerConfig.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Audio file exceeds the %d MB upload limit", handlerConfig.MaxUploadBytes>>20),
		})
		return
	}

	language := c.PostForm("language")
	if language == autoDetectLanguage {
		language = ""
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, WrapError(KindUnexpected, "failed to open uploaded file", err))
		return
	}
	defer file.Close()

	ctx := c.Request.Context()

	objectName, err := handlerStore.Put(ctx, fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, WrapError(KindUnexpected, "failed to store uploaded file", err))
		return
	}

	audioPath, cleanup, err := handlerStore.Materialize(ctx, objectName)
	if err != nil {
		respondError(c, WrapError(KindAudioPreparation, "failed to access uploaded file", err))
		return
	}
	defer cleanup()

	log.Info().Str("object", objectName).Str("language", c.DefaultPostForm("language", autoDetectLanguage)).Msg("Processing upload")

	result, err := NewSession(handlerConfig, language).Run(audioPath)
	if err != nil {
		// A failed session produces no transcript referencing the
		// artifact, so the stored copy is not kept either.
		if delErr := handlerStore.Delete(ctx, objectName); delErr != nil {
			log.Warn().Err(delErr).Str("object", objectName).Msg("Failed to remove artifact of failed transcription")
		}
		respondError(c, err)
		return
	}

	result.AudioFile = objectName
	c.JSON(http.StatusOK, result)
}

// AudioFileHandler streams a stored audio artifact back to the caller.
func AudioFileHandler(c *gin.Context) {
	objectName := c.Param("filename")

	reader, size, contentType, err := handlerStore.Get(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audio file not found"})
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}

// respondError renders the classified error. The diagnostic trace (the
// full cause chain) is only included outside production deployments.
func respondError(c *gin.Context, err error) {
	te := AsError(err)
	log.Error().Err(te).Str("kind", string(te.Kind)).Msg("Transcription request failed")

	body := gin.H{
		"error":   string(te.Kind),
		"details": te.Message,
	}
	if handlerConfig.IsDevelopment() {
		body["trace"] = te.Error()
	}
	c.JSON(te.HTTPStatus(), body)
}
