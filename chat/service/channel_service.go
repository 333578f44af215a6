package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/repository"
	"github.com/juicy-forest/server/pkg/cache"
	apperrors "github.com/juicy-forest/server/pkg/errors"

	"gorm.io/gorm"
)

// ChannelView is the wire projection of a channel: internal-only fields
// (garden id, timestamps) are stripped before transmission.
type ChannelView struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

// FormatChannel projects a channel for the wire
func FormatChannel(channel *models.Channel) ChannelView {
	return ChannelView{
		ID:   channel.ID,
		Name: channel.Name,
	}
}

// ChannelService manages named channels scoped by garden
type ChannelService struct {
	repo  repository.ChannelRepository
	cache *cache.Cache
}

// NewChannelService creates a channel service. The cache is optional and
// holds formatted channel lists keyed per garden.
func NewChannelService(repo repository.ChannelRepository, listCache *cache.Cache) *ChannelService {
	return &ChannelService{
		repo:  repo,
		cache: listCache,
	}
}

// Create persists a new channel. The (gardenID, name) pair is unique;
// a duplicate fails with ErrDuplicateChannel.
func (s *ChannelService) Create(name string, gardenID uint) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: channel name is required", apperrors.ErrValidation)
	}
	if gardenID == 0 {
		return nil, fmt.Errorf("%w: garden id is required", apperrors.ErrValidation)
	}

	channel := &models.Channel{
		Name:     name,
		GardenID: gardenID,
	}

	if err := s.repo.Create(channel); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %q in garden %d", apperrors.ErrDuplicateChannel, name, gardenID)
		}
		return nil, err
	}

	s.invalidate(gardenID)

	return channel, nil
}

// ListByGarden returns all channels for a garden
func (s *ChannelService) ListByGarden(gardenID uint) ([]models.Channel, error) {
	return s.repo.ListByGarden(gardenID)
}

// FormattedByGarden returns the wire projections of a garden's channels,
// served from the list cache when possible
func (s *ChannelService) FormattedByGarden(gardenID uint) ([]ChannelView, error) {
	key := s.cacheKey(gardenID)

	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			if views, ok := cached.([]ChannelView); ok {
				return views, nil
			}
		}
	}

	channels, err := s.repo.ListByGarden(gardenID)
	if err != nil {
		return nil, err
	}

	views := make([]ChannelView, 0, len(channels))
	for i := range channels {
		views = append(views, FormatChannel(&channels[i]))
	}

	if s.cache != nil {
		s.cache.Set(key, views)
	}

	return views, nil
}

func (s *ChannelService) invalidate(gardenID uint) {
	if s.cache != nil {
		s.cache.Delete(s.cacheKey(gardenID))
	}
}

func (s *ChannelService) cacheKey(gardenID uint) string {
	return fmt.Sprintf("channels:garden:%d", gardenID)
}
