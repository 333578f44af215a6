package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/service"
	apperrors "github.com/juicy-forest/server/pkg/errors"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeChannelRepo struct {
	channels map[uint]models.Channel
	nextID   uint
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: make(map[uint]models.Channel)}
}

func (r *fakeChannelRepo) Create(channel *models.Channel) error {
	for _, existing := range r.channels {
		if existing.GardenID == channel.GardenID && existing.Name == channel.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	channel.ID = r.nextID
	channel.CreatedAt = time.Now()
	r.channels[channel.ID] = *channel
	return nil
}

func (r *fakeChannelRepo) GetByID(id uint) (*models.Channel, error) {
	channel, ok := r.channels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &channel, nil
}

func (r *fakeChannelRepo) ListByGarden(gardenID uint) ([]models.Channel, error) {
	var out []models.Channel
	for _, channel := range r.channels {
		if channel.GardenID == gardenID {
			out = append(out, channel)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.ChannelService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	channels := service.NewChannelService(newFakeChannelRepo(), nil)
	handler := NewHandler(channels, log)

	router := gin.New()
	router.Use(apperrors.ErrorHandler())
	router.GET("/", handler.Liveness)
	router.GET("/channel", handler.ListChannels)
	router.POST("/channel", handler.CreateChannel)

	return router, channels
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestLiveness(t *testing.T) {
	router, _ := newTestRouter(t)

	w := perform(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "Chat is running"}`, w.Body.String())
}

func TestCreateChannel(t *testing.T) {
	t.Run("creates and returns the wire projection", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodPost, "/channel", `{"name": "tomatoes", "gardenId": 1}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var view service.ChannelView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.NotZero(t, view.ID)
		assert.Equal(t, "tomatoes", view.Name)
	})

	t.Run("missing fields", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodPost, "/channel", `{"name": "tomatoes"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))
	})

	t.Run("blank name", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodPost, "/channel", `{"name": "   ", "gardenId": 1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("duplicate within a garden conflicts", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodPost, "/channel", `{"name": "tomatoes", "gardenId": 1}`)
		require.Equal(t, http.StatusCreated, w.Code)

		w = perform(router, http.MethodPost, "/channel", `{"name": "tomatoes", "gardenId": 1}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_CHANNEL", errorCode(t, w))
	})
}

func TestListChannels(t *testing.T) {
	t.Run("returns the garden's channels", func(t *testing.T) {
		router, channels := newTestRouter(t)

		_, err := channels.Create("tomatoes", 1)
		require.NoError(t, err)
		_, err = channels.Create("herbs", 2)
		require.NoError(t, err)

		w := perform(router, http.MethodGet, "/channel?gardenId=1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var views []service.ChannelView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		require.Len(t, views, 1)
		assert.Equal(t, "tomatoes", views[0].Name)
	})

	t.Run("missing gardenId", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodGet, "/channel", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-numeric gardenId", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := perform(router, http.MethodGet, "/channel?gardenId=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
