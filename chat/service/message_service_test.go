package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juicy-forest/server/chat/models"
	apperrors "github.com/juicy-forest/server/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMessageRepo struct {
	messages map[uint]models.Message
	nextID   uint
	updates  int
	deletes  int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uint]models.Message)}
}

func (r *fakeMessageRepo) Create(message *models.Message) error {
	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = time.Now()
	message.UpdatedAt = message.CreatedAt
	r.messages[message.ID] = *message
	return nil
}

func (r *fakeMessageRepo) GetByID(id uint) (*models.Message, error) {
	message, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &message, nil
}

func (r *fakeMessageRepo) GetByIDWithChannel(id uint) (*models.Message, error) {
	message, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	message.Channel = models.Channel{ID: message.ChannelID, Name: "general"}
	return message, nil
}

func (r *fakeMessageRepo) Update(message *models.Message) error {
	if _, ok := r.messages[message.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.updates++
	r.messages[message.ID] = *message
	return nil
}

func (r *fakeMessageRepo) Delete(message *models.Message) error {
	if _, ok := r.messages[message.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.deletes++
	delete(r.messages, message.ID)
	return nil
}

// Both list methods walk ids ascending, mirroring the store's created_at
// ordering since ids are assigned in insertion order.

func (r *fakeMessageRepo) ListByGarden(gardenID uint) ([]models.Message, error) {
	var out []models.Message
	for id := uint(1); id <= r.nextID; id++ {
		if message, ok := r.messages[id]; ok && message.GardenID == gardenID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListByChannel(channelID uint) ([]models.Message, error) {
	var out []models.Message
	for id := uint(1); id <= r.nextID; id++ {
		if message, ok := r.messages[id]; ok && message.ChannelID == channelID {
			out = append(out, message)
		}
	}
	return out, nil
}

func TestMessageServiceSave(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, nil, 0)
	ctx := context.Background()

	t.Run("persists with author snapshot", func(t *testing.T) {
		saved, err := svc.Save(ctx, 7, "rose", "#ff0000", "hello garden", 3, 1)
		require.NoError(t, err)

		assert.NotZero(t, saved.ID)
		assert.Equal(t, "hello garden", saved.Content)
		assert.Equal(t, uint(7), saved.AuthorID)
		assert.Equal(t, "rose", saved.AuthorUsername)
		assert.Equal(t, "#ff0000", saved.AuthorAvatarColor)
		assert.Equal(t, uint(3), saved.ChannelID)
		assert.Equal(t, uint(1), saved.GardenID)
		assert.Equal(t, "general", saved.Channel.Name)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		saved, err := svc.Save(ctx, 7, "rose", "#ff0000", "  trimmed  \n", 3, 1)
		require.NoError(t, err)
		assert.Equal(t, "trimmed", saved.Content)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := svc.Save(ctx, 7, "rose", "#ff0000", "   ", 3, 1)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects content over the length limit", func(t *testing.T) {
		_, err := svc.Save(ctx, 7, "rose", "#ff0000", strings.Repeat("a", models.MaxContentLength+1), 3, 1)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("accepts content exactly at the limit", func(t *testing.T) {
		saved, err := svc.Save(ctx, 7, "rose", "#ff0000", strings.Repeat("a", models.MaxContentLength), 3, 1)
		require.NoError(t, err)
		assert.Len(t, saved.Content, models.MaxContentLength)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		// 3000 multibyte runes exceed 3000 bytes but are still in bounds
		_, err := svc.Save(ctx, 7, "rose", "#ff0000", strings.Repeat("ü", models.MaxContentLength), 3, 1)
		assert.NoError(t, err)
	})

	t.Run("rejects missing channel", func(t *testing.T) {
		_, err := svc.Save(ctx, 7, "rose", "#ff0000", "hello", 0, 1)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestMessageServiceEdit(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeMessageRepo, *MessageService, *models.Message) {
		repo := newFakeMessageRepo()
		svc := NewMessageService(repo, nil, 0)
		saved, err := svc.Save(ctx, 7, "rose", "#ff0000", "original", 3, 1)
		require.NoError(t, err)
		return repo, svc, saved
	}

	t.Run("author can edit", func(t *testing.T) {
		_, svc, saved := setup(t)

		edited, err := svc.Edit(ctx, saved.ID, "updated", 7)
		require.NoError(t, err)
		assert.Equal(t, "updated", edited.Content)
		assert.True(t, edited.UpdatedAt.After(saved.CreatedAt) || edited.UpdatedAt.Equal(saved.CreatedAt))
	})

	t.Run("non-author is rejected without mutation", func(t *testing.T) {
		repo, svc, saved := setup(t)

		_, err := svc.Edit(ctx, saved.ID, "hijacked", 99)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Zero(t, repo.updates)

		current, getErr := repo.GetByID(saved.ID)
		require.NoError(t, getErr)
		assert.Equal(t, "original", current.Content)
	})

	t.Run("unknown message id", func(t *testing.T) {
		_, svc, _ := setup(t)

		_, err := svc.Edit(ctx, 12345, "updated", 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("invalid replacement content fails before lookup", func(t *testing.T) {
		_, svc, saved := setup(t)

		_, err := svc.Edit(ctx, saved.ID, "  ", 7)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestMessageServiceDelete(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeMessageRepo, *MessageService, *models.Message) {
		repo := newFakeMessageRepo()
		svc := NewMessageService(repo, nil, 0)
		saved, err := svc.Save(ctx, 7, "rose", "#ff0000", "doomed", 3, 1)
		require.NoError(t, err)
		return repo, svc, saved
	}

	t.Run("author can delete and gets the snapshot back", func(t *testing.T) {
		repo, svc, saved := setup(t)

		deleted, err := svc.Delete(ctx, saved.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, deleted.ID)
		assert.Equal(t, "doomed", deleted.Content)

		_, getErr := repo.GetByID(saved.ID)
		assert.ErrorIs(t, getErr, gorm.ErrRecordNotFound)
	})

	t.Run("non-author is rejected without mutation", func(t *testing.T) {
		repo, svc, saved := setup(t)

		_, err := svc.Delete(ctx, saved.ID, 99)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Zero(t, repo.deletes)

		_, getErr := repo.GetByID(saved.ID)
		assert.NoError(t, getErr)
	})

	t.Run("unknown message id", func(t *testing.T) {
		_, svc, _ := setup(t)

		_, err := svc.Delete(ctx, 12345, 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMessageServiceListByGarden(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, nil, 0)
	ctx := context.Background()

	_, err := svc.Save(ctx, 7, "rose", "#ff0000", "first", 3, 1)
	require.NoError(t, err)
	_, err = svc.Save(ctx, 8, "fern", "#00ff00", "in garden two", 4, 2)
	require.NoError(t, err)
	_, err = svc.Save(ctx, 7, "rose", "#ff0000", "second", 3, 1)
	require.NoError(t, err)
	_, err = svc.Save(ctx, 7, "rose", "#ff0000", "third", 3, 1)
	require.NoError(t, err)

	messages, err := svc.ListByGarden(ctx, 1)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	// Oldest first, other gardens excluded
	got := make([]string, 0, len(messages))
	for _, message := range messages {
		got = append(got, message.Content)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestMessageServiceListByChannel(t *testing.T) {
	repo := newFakeMessageRepo()
	svc := NewMessageService(repo, nil, 0)
	ctx := context.Background()

	kept, err := svc.Save(ctx, 7, "rose", "#ff0000", "keep me", 3, 1)
	require.NoError(t, err)
	doomed, err := svc.Save(ctx, 7, "rose", "#ff0000", "remove me", 3, 1)
	require.NoError(t, err)
	_, err = svc.Save(ctx, 8, "fern", "#00ff00", "other channel", 4, 1)
	require.NoError(t, err)

	messages, err := svc.ListByChannel(ctx, 3)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "keep me", messages[0].Content)
	assert.Equal(t, "remove me", messages[1].Content)

	_, err = svc.Delete(ctx, doomed.ID, 7)
	require.NoError(t, err)

	messages, err = svc.ListByChannel(ctx, 3)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, kept.ID, messages[0].ID)
	assert.Equal(t, "keep me", messages[0].Content)
}
