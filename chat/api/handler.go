package api

import (
	"net/http"
	"strconv"

	"github.com/juicy-forest/server/chat/service"
	apperrors "github.com/juicy-forest/server/pkg/errors"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes the channel directory over REST
type Handler struct {
	channels *service.ChannelService
	log      *logger.Logger
}

func NewHandler(channels *service.ChannelService, log *logger.Logger) *Handler {
	return &Handler{
		channels: channels,
		log:      log,
	}
}

type createChannelRequest struct {
	Name     string `json:"name" binding:"required"`
	GardenID uint   `json:"gardenId" binding:"required"`
}

// Liveness reports the service is up
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Chat is running"})
}

// ListChannels returns the formatted channel list for a garden
func (h *Handler) ListChannels(c *gin.Context) {
	gardenID, err := gardenIDFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	channels, err := h.channels.FormattedByGarden(gardenID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, channels)
}

// CreateChannel adds a channel to a garden's directory. Duplicate names
// within a garden come back as a conflict.
func (h *Handler) CreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "Channel name and garden are required").WithDetails(err.Error()))
		return
	}

	channel, err := h.channels.Create(req.Name, req.GardenID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, service.FormatChannel(channel))
}

func gardenIDFromQuery(c *gin.Context) (uint, error) {
	raw := c.Query("gardenId")
	if raw == "" {
		return 0, apperrors.NewBadRequestError("INVALID_REQUEST", "gardenId query parameter is required")
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewBadRequestError("INVALID_REQUEST", "gardenId must be a positive integer")
	}
	return uint(id), nil
}
