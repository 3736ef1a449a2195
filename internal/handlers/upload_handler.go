package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 5 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// UploadFile handles POST /v1/admin/uploads
// It saves the image to the upload folder and returns its public URL.
func (h *Handlers) UploadFile(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded", "kind": "validation"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only jpg, png, webp and gif images are allowed", "kind": "validation"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is larger than 5 MB", "kind": "validation"})
		return
	}

	// 2. Create the upload directory if it doesn't exist
	if err := os.MkdirAll(h.Config.UploadDir, 0o755); err != nil {
		h.Log.Error("failed to create upload dir", zap.String("dir", h.Config.UploadDir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file", "kind": "internal"})
		return
	}

	// 3. Generate a safe unique filename (uuid + extension)
	newFilename := uuid.New().String() + ext
	savePath := filepath.Join(h.Config.UploadDir, newFilename)

	// 4. Save the file
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		h.Log.Error("failed to save upload", zap.String("path", savePath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file", "kind": "internal"})
		return
	}

	// 5. Return the public URL
	c.JSON(http.StatusCreated, gin.H{
		"url": fmt.Sprintf("%s/uploads/%s", h.Config.BaseURL, newFilename),
	})
}
