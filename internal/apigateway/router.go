package apigateway

import (
	"github.com/gin-gonic/gin"

	"polyglot-transcriber/backend/internal/config"
	"polyglot-transcriber/backend/internal/transcription"
)

// SetupRouter initializes the main Gin router for the API gateway.
// Handler packages must be initialized (transcription.InitHandlers)
// before the router is set up.
func SetupRouter(cfg *config.Config) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestLogger(), gin.Recovery(), CORS())
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// Health check
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "message": "Server is running"})
	})

	// Transcription routes
	router.POST("/upload", transcription.UploadHandler)
	router.GET("/audio/:filename", transcription.AudioFileHandler)

	return router
}
