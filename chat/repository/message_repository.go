package repository

import (
	"github.com/juicy-forest/server/chat/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *models.Message) error
	GetByID(id uint) (*models.Message, error)
	GetByIDWithChannel(id uint) (*models.Message, error)
	Update(message *models.Message) error
	Delete(message *models.Message) error
	ListByGarden(gardenID uint) ([]models.Message, error)
	ListByChannel(channelID uint) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *GormMessageRepository) GetByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *GormMessageRepository) GetByIDWithChannel(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Channel").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *GormMessageRepository) Update(message *models.Message) error {
	return r.db.Save(message).Error
}

func (r *GormMessageRepository) Delete(message *models.Message) error {
	return r.db.Delete(message).Error
}

func (r *GormMessageRepository) ListByGarden(gardenID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Channel").
		Where("garden_id = ?", gardenID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) ListByChannel(channelID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("channel_id = ?", channelID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
