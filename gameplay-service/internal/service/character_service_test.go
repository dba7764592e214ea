package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"adventure-server/gameplay-service/internal/builds"
	messagingMocks "adventure-server/gameplay-service/internal/messaging/mocks"
	"adventure-server/gameplay-service/internal/service"
	"adventure-server/shared/interfaces/mocks"
	sharedMessaging "adventure-server/shared/messaging"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const placeholderAvatar = "/static/avatar-placeholder.png"

func newCharacterService(t *testing.T) (service.CharacterService, *mocks.CharacterRepository, *messagingMocks.Publisher) {
	t.Helper()
	resolver, err := builds.NewDefault(zap.NewNop())
	require.NoError(t, err)
	repo := new(mocks.CharacterRepository)
	publisher := new(messagingMocks.Publisher)
	svc := service.NewCharacterService(nil, repo, resolver, publisher, placeholderAvatar, zap.NewNop())
	return svc, repo, publisher
}

func TestCharacterService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("stores the character and requests an avatar", func(t *testing.T) {
		svc, repo, publisher := newCharacterService(t)
		var created *models.Character
		repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(c *models.Character) bool {
			created = c
			return c.UserID == userID && c.Name == "Aria" && c.Level == 1 && c.AvatarRef == placeholderAvatar
		})).Return(nil).Once()
		publisher.On("Publish", mock.Anything, mock.MatchedBy(func(p sharedMessaging.AvatarTaskPayload) bool {
			return p.CharacterID == created.ID && p.UserID == userID && p.Prompt != ""
		}), mock.AnythingOfType("string")).Return(nil).Once()

		c, err := svc.Create(ctx, actor, service.CreateCharacterRequest{Name: "  Aria ", Class: "Wizard", Race: "Elf", Gender: "Female"})
		require.NoError(t, err)
		assert.Equal(t, "Aria", c.Name)
		assert.Equal(t, placeholderAvatar, c.AvatarRef)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("avatar request failure does not fail creation", func(t *testing.T) {
		svc, repo, publisher := newCharacterService(t)
		repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker gone")).Once()

		c, err := svc.Create(ctx, actor, service.CreateCharacterRequest{Name: "Bram", Class: "Fighter", Race: "Dwarf", Gender: "Male"})
		require.NoError(t, err)
		assert.Equal(t, placeholderAvatar, c.AvatarRef)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, repo, publisher := newCharacterService(t)

		_, err := svc.Create(ctx, actor, service.CreateCharacterRequest{Name: "   ", Class: "Wizard", Race: "Elf", Gender: "Female"})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo, publisher := newCharacterService(t)
		repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()

		_, err := svc.Create(ctx, actor, service.CreateCharacterRequest{Name: "Aria", Class: "Wizard", Race: "Elf", Gender: "Female"})
		assert.ErrorIs(t, err, models.ErrInternalServer)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous actor", func(t *testing.T) {
		svc, _, _ := newCharacterService(t)
		_, err := svc.Create(ctx, models.Actor{}, service.CreateCharacterRequest{Name: "Aria", Class: "Wizard", Race: "Elf", Gender: "Female"})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestCharacterService_Export(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("stored build wins", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		stored := models.NewBuildExport(&models.Build{Name: "Aria", Class: "Wizard", Level: 2})
		c := newCharacter(userID, "Wizard", "Elf")
		c.CharacterData = stored
		repo.On("GetByIDForUser", mock.Anything, mock.Anything, c.ID, userID).Return(c, nil).Once()

		got, err := svc.Export(ctx, actor, c.ID)
		require.NoError(t, err)
		assert.Same(t, stored, got)
	})

	t.Run("falls back to a lookup", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		c := newCharacter(userID, "Rogue", "Halfling")
		repo.On("GetByIDForUser", mock.Anything, mock.Anything, c.ID, userID).Return(c, nil).Once()

		got, err := svc.Export(ctx, actor, c.ID)
		require.NoError(t, err)
		assert.True(t, got.Success)
		assert.Equal(t, "Aria", got.Build.Name)
		assert.Equal(t, 1, got.Build.Level)
	})

	t.Run("no build for the combination", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		c := newCharacter(userID, "Bard", "Human")
		repo.On("GetByIDForUser", mock.Anything, mock.Anything, c.ID, userID).Return(c, nil).Once()

		_, err := svc.Export(ctx, actor, c.ID)
		assert.ErrorIs(t, err, service.ErrNoBuildAvailable)
	})

	t.Run("foreign character", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		id := uuid.New()
		repo.On("GetByIDForUser", mock.Anything, mock.Anything, id, userID).Return(nil, models.ErrNotFound).Once()

		_, err := svc.Export(ctx, actor, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("pdf is rendered even without a build", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		c := newCharacter(userID, "Bard", "Human")
		repo.On("GetByIDForUser", mock.Anything, mock.Anything, c.ID, userID).Return(c, nil).Once()

		pdf, got, err := svc.ExportPDF(ctx, actor, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	})
}

func TestCharacterService_ApplyAvatarResult(t *testing.T) {
	ctx := context.Background()
	characterID := uuid.New()

	t.Run("stores a successful result", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		repo.On("UpdateAvatarRef", mock.Anything, mock.Anything, characterID, "avatars/aria.png").Return(nil).Once()

		err := svc.ApplyAvatarResult(ctx, sharedMessaging.AvatarResultPayload{
			TaskID: "t1", CharacterID: characterID, Success: true, AvatarRef: "avatars/aria.png",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("failed generation keeps the placeholder", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		reason := "content policy"

		err := svc.ApplyAvatarResult(ctx, sharedMessaging.AvatarResultPayload{
			TaskID: "t2", CharacterID: characterID, ErrorMessage: &reason,
		})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateAvatarRef", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("character deleted meanwhile", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		repo.On("UpdateAvatarRef", mock.Anything, mock.Anything, characterID, "x.png").Return(models.ErrNotFound).Once()

		err := svc.ApplyAvatarResult(ctx, sharedMessaging.AvatarResultPayload{CharacterID: characterID, Success: true, AvatarRef: "x.png"})
		assert.NoError(t, err)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		svc, repo, _ := newCharacterService(t)
		repo.On("UpdateAvatarRef", mock.Anything, mock.Anything, characterID, "x.png").Return(errors.New("timeout")).Once()

		err := svc.ApplyAvatarResult(ctx, sharedMessaging.AvatarResultPayload{CharacterID: characterID, Success: true, AvatarRef: "x.png"})
		assert.Error(t, err)
	})
}

func TestAvatarPrompt(t *testing.T) {
	c := &models.Character{Name: "Aria", Class: "Wizard", Race: "Elf", Gender: "Female"}
	assert.Equal(t,
		"Fantasy character portrait of Aria, a female elf wizard, head and shoulders, painterly style, neutral background",
		service.AvatarPrompt(c))
}
