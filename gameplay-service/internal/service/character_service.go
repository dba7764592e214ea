package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adventure-server/gameplay-service/internal/builds"
	"adventure-server/gameplay-service/internal/export"
	"adventure-server/shared/interfaces"
	sharedMessaging "adventure-server/shared/messaging"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCharacterRequest is the validated input of CharacterService.Create.
type CreateCharacterRequest struct {
	Name   string
	Class  string
	Race   string
	Gender string
}

// CharacterService manages the characters of the acting user.
type CharacterService interface {
	// Create stores the character with a placeholder avatar and requests a
	// generated one. A failed avatar request never fails the creation.
	Create(ctx context.Context, actor models.Actor, req CreateCharacterRequest) (*models.Character, error)
	List(ctx context.Context, actor models.Actor) ([]*models.Character, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Character, error)
	// Delete cascades to adventures, scenarios, progress and decisions.
	Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error
	// Export returns the stored build of a finished character, or a fresh
	// lookup when the character has not completed an adventure yet.
	Export(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.BuildExport, error)
	ExportPDF(ctx context.Context, actor models.Actor, id uuid.UUID) ([]byte, *models.Character, error)
	// ApplyAvatarResult is called by the avatar result consumer.
	ApplyAvatarResult(ctx context.Context, result sharedMessaging.AvatarResultPayload) error
}

type characterServiceImpl struct {
	db                interfaces.DBTX
	repo              interfaces.CharacterRepository
	resolver          BuildResolver
	avatarPublisher   sharedMessaging.Publisher
	placeholderAvatar string
	logger            *zap.Logger
}

func NewCharacterService(
	db interfaces.DBTX,
	repo interfaces.CharacterRepository,
	resolver BuildResolver,
	avatarPublisher sharedMessaging.Publisher,
	placeholderAvatar string,
	logger *zap.Logger,
) CharacterService {
	return &characterServiceImpl{
		db:                db,
		repo:              repo,
		resolver:          resolver,
		avatarPublisher:   avatarPublisher,
		placeholderAvatar: placeholderAvatar,
		logger:            logger.Named("CharacterService"),
	}
}

func (s *characterServiceImpl) Create(ctx context.Context, actor models.Actor, req CreateCharacterRequest) (*models.Character, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Class = strings.TrimSpace(req.Class)
	req.Race = strings.TrimSpace(req.Race)
	req.Gender = strings.TrimSpace(req.Gender)
	if req.Name == "" || req.Class == "" || req.Race == "" || req.Gender == "" {
		return nil, fmt.Errorf("%w: name, class, race and gender are required", models.ErrInvalidInput)
	}

	character := &models.Character{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		Name:      req.Name,
		Class:     req.Class,
		Race:      req.Race,
		Gender:    req.Gender,
		Level:     1,
		AvatarRef: s.placeholderAvatar,
	}
	if err := s.repo.Create(ctx, s.db, character); err != nil {
		return nil, fmt.Errorf("%w: create character: %w", models.ErrInternalServer, err)
	}
	s.logger.Info("Character created",
		zap.Stringer("characterID", character.ID),
		zap.Stringer("userID", actor.UserID),
		zap.String("class", character.Class),
		zap.String("race", character.Race))

	s.requestAvatar(ctx, character)
	return character, nil
}

func (s *characterServiceImpl) requestAvatar(ctx context.Context, c *models.Character) {
	if s.avatarPublisher == nil {
		return
	}
	task := sharedMessaging.AvatarTaskPayload{
		TaskID:      uuid.New().String(),
		UserID:      c.UserID,
		CharacterID: c.ID,
		Prompt:      AvatarPrompt(c),
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.avatarPublisher.Publish(pubCtx, task, task.TaskID); err != nil {
		avatarTasksPublished.WithLabelValues("error").Inc()
		s.logger.Warn("Failed to request avatar, keeping placeholder",
			zap.Stringer("characterID", c.ID), zap.String("taskID", task.TaskID), zap.Error(err))
		return
	}
	avatarTasksPublished.WithLabelValues("published").Inc()
}

// AvatarPrompt is the natural-language prompt sent to the image generator.
func AvatarPrompt(c *models.Character) string {
	return fmt.Sprintf(
		"Fantasy character portrait of %s, a %s %s %s, head and shoulders, painterly style, neutral background",
		c.Name, strings.ToLower(c.Gender), strings.ToLower(c.Race), strings.ToLower(c.Class))
}

func (s *characterServiceImpl) List(ctx context.Context, actor models.Actor) ([]*models.Character, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	characters, err := s.repo.ListByUserID(ctx, s.db, actor.UserID)
	if err != nil {
		return nil, loadError("characters", err)
	}
	return characters, nil
}

func (s *characterServiceImpl) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Character, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	c, err := s.repo.GetByIDForUser(ctx, s.db, id, actor.UserID)
	if err != nil {
		return nil, loadError("character", err)
	}
	return c, nil
}

func (s *characterServiceImpl) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return models.ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, s.db, id, actor.UserID); err != nil {
		return loadError("character", err)
	}
	s.logger.Info("Character deleted", zap.Stringer("characterID", id), zap.Stringer("userID", actor.UserID))
	return nil
}

func (s *characterServiceImpl) Export(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.BuildExport, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.exportOf(c)
}

func (s *characterServiceImpl) exportOf(c *models.Character) (*models.BuildExport, error) {
	if c.CharacterData != nil && c.CharacterData.Success && c.CharacterData.Build != nil {
		return c.CharacterData, nil
	}
	build, ok := s.resolver.Resolve(c.Class, c.Race)
	if !ok {
		return nil, ErrNoBuildAvailable
	}
	builds.ApplyFlourish(build, builds.Flourish{Name: c.Name, Gender: c.Gender, Level: c.Level})
	return models.NewBuildExport(build), nil
}

func (s *characterServiceImpl) ExportPDF(ctx context.Context, actor models.Actor, id uuid.UUID) ([]byte, *models.Character, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	var build *models.Build
	exp, err := s.exportOf(c)
	switch {
	case err == nil:
		build = exp.Build
	case !errors.Is(err, ErrNoBuildAvailable):
		return nil, nil, err
	}
	pdf, err := export.CharacterSheetPDF(c, build)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", models.ErrInternalServer, err)
	}
	return pdf, c, nil
}

func (s *characterServiceImpl) ApplyAvatarResult(ctx context.Context, result sharedMessaging.AvatarResultPayload) error {
	log := s.logger.With(zap.String("taskID", result.TaskID), zap.Stringer("characterID", result.CharacterID))
	if !result.Success || result.AvatarRef == "" {
		reason := "empty avatar reference"
		if result.ErrorMessage != nil {
			reason = *result.ErrorMessage
		}
		log.Warn("Avatar generation failed, placeholder stays", zap.String("reason", reason))
		return nil
	}
	if err := s.repo.UpdateAvatarRef(ctx, s.db, result.CharacterID, result.AvatarRef); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Info("Character deleted before avatar arrived")
			return nil
		}
		return fmt.Errorf("failed to store avatar for character %s: %w", result.CharacterID, err)
	}
	log.Info("Avatar stored", zap.String("avatarRef", result.AvatarRef))
	return nil
}
