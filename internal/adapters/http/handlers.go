package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/alpr"
	"github.com/therealtin05/SmartParking/internal/domain"
	"github.com/therealtin05/SmartParking/internal/store"
)

type apiHandlers struct {
	bridge *alpr.Bridge
	store  store.RecordStore
}

// workerStatus maps a bridge failure to an HTTP status. A launch failure is
// an upstream problem (502); everything else worker-side is a plain 500.
func workerStatus(err error) int {
	var launchErr *alpr.LaunchError
	if errors.As(err, &launchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *apiHandlers) plateDetect(c *gin.Context) {
	var req struct {
		ImageData string `json:"imageData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "imageData is required"})
		return
	}

	log.Info().Str("module", "adapters.http").Int("image_len", len(req.ImageData)).Msg("plate detection request")

	result, err := h.bridge.DetectPlates(c.Request.Context(), req.ImageData)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("plate detection failed")
		c.JSON(workerStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	if h.store != nil && len(result.Plates) > 0 {
		rec := &domain.DetectionRecord{Plates: result.Plates}
		if err := h.store.SaveDetection(c.Request.Context(), rec); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("failed to persist detection")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"plates":         result.Plates,
		"annotatedImage": result.AnnotatedImage,
	})
}

func (h *apiHandlers) objectTracking(c *gin.Context) {
	opts := alpr.DefaultTrackOptions()
	req := struct {
		VideoData string `json:"videoData"`
		alpr.TrackOptions
	}{TrackOptions: opts}
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "videoData is required"})
		return
	}

	result, err := h.bridge.TrackObjects(c.Request.Context(), req.VideoData, req.TrackOptions)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("object tracking failed")
		c.JSON(workerStatus(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"unique_tracks":    result.UniqueTracks,
		"frames_processed": result.FramesProcessed,
		"annotatedVideo":   result.AnnotatedVideo,
	})
}

func (h *apiHandlers) listDetections(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "record store not configured"})
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	plates, err := h.store.ListDetections(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plates": plates})
}

func (h *apiHandlers) listSessions(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "record store not configured"})
		return
	}
	owner := c.GetString("owner_token")
	records, err := h.store.ListSessionsByOwner(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": records})
}

func (h *apiHandlers) createSession(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "record store not configured"})
		return
	}
	var req struct {
		LotID    string `json:"lotId"`
		CameraID string `json:"cameraId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.LotID == "" || req.CameraID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "lotId and cameraId are required"})
		return
	}
	owner := c.GetString("owner_token")
	rec, err := h.store.CreateSession(c.Request.Context(), owner, domain.ComposeRoomID(req.LotID, req.CameraID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": rec})
}
