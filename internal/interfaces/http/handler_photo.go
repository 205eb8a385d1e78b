package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"coach_report_bot/internal/logger"
	"coach_report_bot/internal/repository"
)

// PhotoFetcher downloads an image by URL
type PhotoFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// PhotoHandler serves the user photos used as inline query thumbnails.
// Telegram fetches them without credentials, so the route is public.
type PhotoHandler struct {
	users  UserGetter
	photos PhotoFetcher
}

func NewPhotoHandler(users UserGetter, photos PhotoFetcher) *PhotoHandler {
	return &PhotoHandler{users: users, photos: photos}
}

func (h *PhotoHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/message/user-photo/:id", h.GetUserPhoto)
}

// GetUserPhoto proxies the stored Telegram photo of a user. The ".webp"
// suffix of the id is accepted for link compatibility.
func (h *PhotoHandler) GetUserPhoto(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(strings.TrimSuffix(c.Param("id"), ".webp"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if user.PhotoURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "User has no photo"})
		return
	}

	body, contentType, err := h.photos.Fetch(c.Request.Context(), user.PhotoURL)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("Photo fetch failed", "user_id", id.Hex(), "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch photo"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType, body)
}
