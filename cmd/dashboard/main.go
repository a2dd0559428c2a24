// Serves the artifact directory over HTTP: metrics JSON plus the rendered
// charts. Read-only; training and inference stay in cmd/pipeline.
package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"clinsev/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	artDir := os.Getenv("ARTIFACT_DIR")
	if artDir == "" {
		artDir = "artifacts"
	}

	r := gin.Default()
	r.Static("/charts", filepath.Join(artDir, "charts"))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", func(c *gin.Context) {
		path := filepath.Join(artDir, "metrics.json")
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no metrics yet; run cmd/pipeline"})
			return
		}
		c.File(path)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
