package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/repository"
	apperrors "github.com/juicy-forest/server/pkg/errors"

	"gorm.io/gorm"
)

// MessageService persists and retrieves chat messages with the author
// snapshot denormalized onto each row. Edits and deletes are restricted
// to the message's author.
type MessageService struct {
	repo    repository.MessageRepository
	history *HistoryCache
	maxLen  int
}

// NewMessageService creates a message service. The history cache is optional.
func NewMessageService(repo repository.MessageRepository, history *HistoryCache, maxLen int) *MessageService {
	if maxLen <= 0 {
		maxLen = models.MaxContentLength
	}
	return &MessageService{
		repo:    repo,
		history: history,
		maxLen:  maxLen,
	}
}

// Save persists a new message with the author snapshot and returns it with
// the channel resolved for display
func (s *MessageService) Save(ctx context.Context, authorID uint, username, avatarColor, content string, channelID, gardenID uint) (*models.Message, error) {
	content, err := s.validateContent(content)
	if err != nil {
		return nil, err
	}
	if channelID == 0 {
		return nil, fmt.Errorf("%w: channel id is required", apperrors.ErrValidation)
	}

	message := &models.Message{
		Content:           content,
		AuthorID:          authorID,
		AuthorUsername:    username,
		AuthorAvatarColor: avatarColor,
		ChannelID:         channelID,
		GardenID:          gardenID,
	}

	if err := s.repo.Create(message); err != nil {
		return nil, err
	}

	s.history.Invalidate(ctx, gardenID)

	// Resolve the channel so broadcasts can carry its name
	return s.repo.GetByIDWithChannel(message.ID)
}

// Edit replaces a message's content and bumps its updated timestamp.
// Only the author may edit; anyone else gets ErrForbidden.
func (s *MessageService) Edit(ctx context.Context, messageID uint, newContent string, requesterID uint) (*models.Message, error) {
	newContent, err := s.validateContent(newContent)
	if err != nil {
		return nil, err
	}

	message, err := s.repo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", apperrors.ErrNotFound, messageID)
		}
		return nil, err
	}

	if message.AuthorID != requesterID {
		return nil, fmt.Errorf("%w: you can only edit your own messages", apperrors.ErrForbidden)
	}

	message.Content = newContent
	message.UpdatedAt = time.Now()

	if err := s.repo.Update(message); err != nil {
		return nil, err
	}

	s.history.Invalidate(ctx, message.GardenID)

	return message, nil
}

// Delete removes a message and returns the pre-deletion snapshot so the
// broadcaster can announce which id was removed. Author-only, like Edit.
func (s *MessageService) Delete(ctx context.Context, messageID uint, requesterID uint) (*models.Message, error) {
	message, err := s.repo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %d", apperrors.ErrNotFound, messageID)
		}
		return nil, err
	}

	if message.AuthorID != requesterID {
		return nil, fmt.Errorf("%w: you can only delete your own messages", apperrors.ErrForbidden)
	}

	if err := s.repo.Delete(message); err != nil {
		return nil, err
	}

	s.history.Invalidate(ctx, message.GardenID)

	return message, nil
}

// ListByGarden returns a garden's messages ordered by creation time
// ascending, each with its channel resolved
func (s *MessageService) ListByGarden(ctx context.Context, gardenID uint) ([]models.Message, error) {
	if cached, found := s.history.Get(ctx, gardenID); found {
		return cached, nil
	}

	messages, err := s.repo.ListByGarden(gardenID)
	if err != nil {
		return nil, err
	}

	s.history.Set(ctx, gardenID, messages)

	return messages, nil
}

// ListByChannel returns a channel's messages in creation order
func (s *MessageService) ListByChannel(ctx context.Context, channelID uint) ([]models.Message, error) {
	return s.repo.ListByChannel(channelID)
}

func (s *MessageService) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: message content is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return "", fmt.Errorf("%w: message content exceeds %d characters", apperrors.ErrValidation, s.maxLen)
	}
	return content, nil
}
