package repository

import (
	"github.com/juicy-forest/server/chat/models"

	"gorm.io/gorm"
)

type ChannelRepository interface {
	Create(channel *models.Channel) error
	GetByID(id uint) (*models.Channel, error)
	ListByGarden(gardenID uint) ([]models.Channel, error)
}

type GormChannelRepository struct {
	db *gorm.DB
}

func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) Create(channel *models.Channel) error {
	return r.db.Create(channel).Error
}

func (r *GormChannelRepository) GetByID(id uint) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.First(&channel, id).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *GormChannelRepository) ListByGarden(gardenID uint) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.Where("garden_id = ?", gardenID).Find(&channels).Error
	return channels, err
}
