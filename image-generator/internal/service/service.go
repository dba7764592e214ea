package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"adventure-server/image-generator/internal/storage"
	sharedMessaging "adventure-server/shared/messaging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrImageGenerationFailed = errors.New("image generation failed")
	ErrImageSaveFailed       = errors.New("image save failed")
	ErrInvalidTask           = errors.New("invalid avatar task")
)

// AvatarService generates a portrait for a task and stores it.
type AvatarService interface {
	GenerateAndStore(ctx context.Context, task sharedMessaging.AvatarTaskPayload) (string, error)
}

type avatarService struct {
	generator   ImageGenerator
	store       storage.BlobStore
	styleSuffix string
	logger      *zap.Logger
}

func NewAvatarService(generator ImageGenerator, store storage.BlobStore, styleSuffix string, logger *zap.Logger) AvatarService {
	return &avatarService{
		generator:   generator,
		store:       store,
		styleSuffix: styleSuffix,
		logger:      logger.Named("AvatarService"),
	}
}

// GenerateAndStore returns the stored avatar reference. Errors wrap
// ErrInvalidTask, ErrImageGenerationFailed or ErrImageSaveFailed.
func (s *avatarService) GenerateAndStore(ctx context.Context, task sharedMessaging.AvatarTaskPayload) (string, error) {
	if task.CharacterID == uuid.Nil || strings.TrimSpace(task.Prompt) == "" {
		return "", fmt.Errorf("%w: character id and prompt are required", ErrInvalidTask)
	}
	log := s.logger.With(zap.String("task_id", task.TaskID), zap.Stringer("character_id", task.CharacterID))

	prompt := task.Prompt + s.styleSuffix
	log.Info("Generating avatar", zap.String("prompt_hash", uuid.NewSHA1(uuid.NameSpaceOID, []byte(prompt)).String()))

	data, err := s.generator.Generate(ctx, prompt, task.Size)
	if err != nil {
		log.Error("Image generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrImageGenerationFailed)
	}

	contentType := http.DetectContentType(data)
	key := "avatars/" + task.CharacterID.String() + storage.ExtensionFor(contentType)
	ref, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		log.Error("Failed to store avatar", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}
	log.Info("Avatar stored", zap.String("avatar_ref", ref), zap.Int("size_bytes", len(data)))
	return ref, nil
}
