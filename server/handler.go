package server

import (
	"crypto/subtle"
	"errors"
	"image"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/nekomi/avatarguard/classifier"
	"github.com/nekomi/avatarguard/config"
)

var errUnauthorized = errors.New("unauthorized")

func authenticate(c *gin.Context) error {
	auth := c.GetHeader("Authorization")

	expectedToken := config.C().Token
	if expectedToken == "" {
		return nil
	}
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(expectedToken)) != 1 {
		return errUnauthorized
	}

	return nil
}

type classifyRequest struct {
	URL string `json:"url" binding:"required"`
}

// ClassifyHandler classifies the avatar at the given URL. 204 means the
// pipeline produced no signal (disabled, unreachable image, model down).
func ClassifyHandler(c *gin.Context) {
	if err := authenticate(c); err != nil {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return
	}

	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "missing url"})
		return
	}

	result, err := cls.Classify(c.Request.Context(), req.URL, classifier.Options{
		TraceID: c.GetHeader("X-Trace-Id"),
	})
	if err != nil {
		slog.Error("Classification failed", slog.String("error", err.Error()))
		c.JSON(500, gin.H{"error": "classification failed"})
		return
	}
	if result == nil {
		c.Status(204)
		return
	}

	c.JSON(200, result)
}

// PredictHandler classifies an uploaded image directly, bypassing fetch and
// cache. Useful for tuning thresholds against known samples.
func PredictHandler(c *gin.Context) {
	if err := authenticate(c); err != nil {
		c.JSON(401, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(400, gin.H{"error": "no file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(400, gin.H{"error": "cannot open uploaded file"})
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		c.JSON(400, gin.H{"error": "cannot decode image"})
		return
	}

	result, err := cls.ClassifyImage(c.Request.Context(), img)
	if err != nil {
		slog.Error("Prediction failed", slog.String("error", err.Error()))
		c.JSON(500, gin.H{"error": "prediction failed"})
		return
	}
	if result == nil {
		c.Status(204)
		return
	}

	c.JSON(200, result)
}

func HealthHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy"})
}
