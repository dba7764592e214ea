package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adventure-server/gameplay-service/internal/builds"
	"adventure-server/gameplay-service/internal/scenarios"
	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildResolver maps a (class, race) pair to a copy of a pre-authored build.
type BuildResolver interface {
	Resolve(class, race string) (*models.Build, bool)
}

// ProgressionService drives adventures from start to completion. Every call
// carries the acting user explicitly; ownership is checked on each read.
type ProgressionService interface {
	// Initialize starts an adventure for a character or resumes an existing
	// one, recreating a missing progress record from the adventure's stage.
	Initialize(ctx context.Context, actor models.Actor, req InitializeRequest) (*AdventureSession, error)
	// RenderCurrentNode is read-only; repeated calls return the same node.
	RenderCurrentNode(ctx context.Context, actor models.Actor, adventureID uuid.UUID) (*RenderedNode, error)
	// Choose applies a choice atomically: decision, progress, stage and, at the
	// end of content, completion are written in one transaction.
	Choose(ctx context.Context, actor models.Actor, req ChooseRequest) (*ChoiceOutcome, error)

	GetAdventure(ctx context.Context, actor models.Actor, adventureID uuid.UUID) (*AdventureSession, error)
	ListAdventures(ctx context.Context, actor models.Actor, characterID uuid.UUID) ([]*models.Adventure, error)
	DeleteAdventure(ctx context.Context, actor models.Actor, adventureID uuid.UUID) error
	ListDecisions(ctx context.Context, actor models.Actor, adventureID uuid.UUID) ([]*models.Decision, error)
}

// Repositories groups the stores the progression engine works with.
type Repositories struct {
	Characters interfaces.CharacterRepository
	Adventures interfaces.AdventureRepository
	Scenarios  interfaces.ScenarioRepository
	Progress   interfaces.ProgressRepository
	Decisions  interfaces.DecisionRepository
}

type progressionServiceImpl struct {
	db           interfaces.DBTX
	tx           interfaces.TxManager
	repos        Repositories
	catalog      *scenarios.Catalog
	resolver     BuildResolver
	displayDelay time.Duration
	logger       *zap.Logger
}

// NewProgressionService wires the engine. displayDelay is only reported to
// clients; the server never waits.
func NewProgressionService(
	db interfaces.DBTX,
	tx interfaces.TxManager,
	repos Repositories,
	catalog *scenarios.Catalog,
	resolver BuildResolver,
	displayDelay time.Duration,
	logger *zap.Logger,
) ProgressionService {
	return &progressionServiceImpl{
		db:           db,
		tx:           tx,
		repos:        repos,
		catalog:      catalog,
		resolver:     resolver,
		displayDelay: displayDelay,
		logger:       logger.Named("ProgressionService"),
	}
}

func (s *progressionServiceImpl) Initialize(ctx context.Context, actor models.Actor, req InitializeRequest) (*AdventureSession, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	switch {
	case req.AdventureID != nil:
		return s.resume(ctx, actor, *req.AdventureID)
	case req.CharacterID != nil:
		return s.start(ctx, actor, *req.CharacterID, req.TemplateSlug)
	default:
		return nil, fmt.Errorf("%w: characterId or adventureId is required", models.ErrBadRequest)
	}
}

// start creates a new adventure unless the character already has one in
// progress for the template, in which case that one is resumed.
func (s *progressionServiceImpl) start(ctx context.Context, actor models.Actor, characterID uuid.UUID, slug string) (*AdventureSession, error) {
	log := s.logger.With(zap.Stringer("userID", actor.UserID), zap.Stringer("characterID", characterID))

	character, err := s.repos.Characters.GetByIDForUser(ctx, s.db, characterID, actor.UserID)
	if err != nil {
		return nil, loadError("character", err)
	}
	tmpl, err := s.catalog.Get(slug)
	if err != nil {
		return nil, err
	}

	existing, err := s.repos.Adventures.FindInProgress(ctx, s.db, characterID, tmpl.Slug)
	switch {
	case err == nil:
		log.Info("Resuming in-progress adventure", zap.Stringer("adventureID", existing.ID))
		return s.resume(ctx, actor, existing.ID)
	case !errors.Is(err, models.ErrNotFound):
		return nil, loadError("adventure", err)
	}

	adventure := &models.Adventure{
		ID:           uuid.New(),
		CharacterID:  character.ID,
		TemplateSlug: tmpl.Slug,
		Status:       models.AdventureStatusInProgress,
		CurrentStage: tmpl.Start,
		TotalStages:  tmpl.TotalStages(),
	}
	nodes := tmpl.Instantiate(adventure.ID)
	start := tmpl.Start
	progress := &models.ProgressRecord{
		AdventureID:     adventure.ID,
		CharacterID:     character.ID,
		CurrentSequence: &start,
		Stats:           character.BaseStats(),
		Version:         1,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.repos.Adventures.Create(ctx, tx, adventure); err != nil {
			return err
		}
		if err := s.repos.Scenarios.CreateBatch(ctx, tx, nodes); err != nil {
			return err
		}
		return s.repos.Progress.Create(ctx, tx, progress)
	})
	if errors.Is(err, models.ErrAdventureInProgress) {
		// Lost a race against a concurrent Initialize for the same template.
		existing, findErr := s.repos.Adventures.FindInProgress(ctx, s.db, characterID, tmpl.Slug)
		if findErr != nil {
			return nil, loadError("adventure", findErr)
		}
		return s.resume(ctx, actor, existing.ID)
	}
	if err != nil {
		log.Error("Failed to create adventure", zap.Error(err))
		return nil, fmt.Errorf("%w: create adventure: %w", models.ErrInternalServer, err)
	}
	adventuresStarted.WithLabelValues(tmpl.Slug).Inc()
	log.Info("Adventure started", zap.Stringer("adventureID", adventure.ID), zap.String("template", tmpl.Slug))

	var first *models.ScenarioNode
	for _, n := range nodes {
		if n.Sequence == start {
			first = n
			break
		}
	}
	return &AdventureSession{
		Adventure: adventure,
		Character: character,
		Progress:  progress,
		Node:      RenderNode(first, character.Name, progress.Stats),
	}, nil
}

func (s *progressionServiceImpl) resume(ctx context.Context, actor models.Actor, adventureID uuid.UUID) (*AdventureSession, error) {
	return s.loadSession(ctx, actor, adventureID, true)
}

// loadSession loads adventure, character, progress and the current node. With
// recoverProgress set, a missing progress record is recreated at the adventure's
// recorded stage; that is the only recovery path.
func (s *progressionServiceImpl) loadSession(ctx context.Context, actor models.Actor, adventureID uuid.UUID, recoverProgress bool) (*AdventureSession, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	log := s.logger.With(zap.Stringer("userID", actor.UserID), zap.Stringer("adventureID", adventureID))

	adventure, err := s.repos.Adventures.GetByIDForUser(ctx, s.db, adventureID, actor.UserID)
	if err != nil {
		return nil, loadError("adventure", err)
	}
	character, err := s.repos.Characters.GetByIDForUser(ctx, s.db, adventure.CharacterID, actor.UserID)
	if err != nil {
		return nil, loadError("character", err)
	}
	session := &AdventureSession{Adventure: adventure, Character: character}

	progress, err := s.repos.Progress.Get(ctx, s.db, adventure.ID)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound) && recoverProgress:
		progress, err = s.recreateProgress(ctx, adventure, character)
		if err != nil {
			log.Error("Failed to recreate progress record", zap.Error(err))
			return nil, fmt.Errorf("%w: recreate progress: %w", models.ErrInternalServer, err)
		}
	case errors.Is(err, models.ErrNotFound):
		return session, nil
	default:
		log.Error("Failed to load progress record", zap.Error(err))
		return nil, fmt.Errorf("%w: load progress: %w", models.ErrInternalServer, err)
	}
	session.Progress = progress

	if adventure.IsCompleted() || progress.CurrentSequence == nil {
		return session, nil
	}
	node, err := s.repos.Scenarios.GetBySequence(ctx, s.db, adventure.ID, *progress.CurrentSequence)
	if err != nil {
		return nil, loadError("scenario", err)
	}
	session.Node = RenderNode(node, character.Name, progress.Stats)
	return session, nil
}

func (s *progressionServiceImpl) recreateProgress(ctx context.Context, adventure *models.Adventure, character *models.Character) (*models.ProgressRecord, error) {
	progress := &models.ProgressRecord{
		AdventureID: adventure.ID,
		CharacterID: character.ID,
		Stats:       character.BaseStats(),
		Version:     1,
	}
	if !adventure.IsCompleted() {
		stage := adventure.CurrentStage
		progress.CurrentSequence = &stage
	}
	if err := s.repos.Progress.Create(ctx, s.db, progress); err != nil {
		// A concurrent Initialize may have recreated it first.
		if existing, getErr := s.repos.Progress.Get(ctx, s.db, adventure.ID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	progressRecovered.Inc()
	s.logger.Warn("Progress record recreated from adventure stage",
		zap.Stringer("adventureID", adventure.ID),
		zap.Int("stage", adventure.CurrentStage))
	return progress, nil
}

func (s *progressionServiceImpl) RenderCurrentNode(ctx context.Context, actor models.Actor, adventureID uuid.UUID) (*RenderedNode, error) {
	session, err := s.loadSession(ctx, actor, adventureID, false)
	if err != nil {
		return nil, err
	}
	if session.Adventure.IsCompleted() {
		return nil, models.ErrAdventureCompleted
	}
	if session.Progress == nil {
		return nil, ErrProgressMissing
	}
	if session.Node == nil {
		return nil, models.ErrAdventureCompleted
	}
	return session.Node, nil
}

func (s *progressionServiceImpl) Choose(ctx context.Context, actor models.Actor, req ChooseRequest) (*ChoiceOutcome, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	if !req.Slot.Valid() {
		choicesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: slot %d", models.ErrInvalidChoice, int(req.Slot))
	}
	log := s.logger.With(
		zap.Stringer("userID", actor.UserID),
		zap.Stringer("adventureID", req.AdventureID),
		zap.Stringer("slot", req.Slot))

	var outcome *ChoiceOutcome
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		var err error
		outcome, err = s.choose(ctx, tx, actor, req, log)
		return err
	})
	if err != nil {
		choicesTotal.WithLabelValues(outcomeLabel(err)).Inc()
		if isClientError(err) {
			log.Info("Choice rejected", zap.Error(err))
			return nil, err
		}
		log.Error("Choice failed", zap.Error(err))
		return nil, fmt.Errorf("%w: choose: %w", models.ErrInternalServer, err)
	}

	if outcome.Completed {
		choicesTotal.WithLabelValues("completed").Inc()
		label := "missing"
		if outcome.Export != nil && outcome.Export.Success {
			label = "attached"
		}
		adventuresCompleted.WithLabelValues(label).Inc()
		log.Info("Adventure completed", zap.Bool("build", label == "attached"))
	} else {
		choicesTotal.WithLabelValues("advanced").Inc()
	}
	return outcome, nil
}

// choose runs inside the transaction. Nothing is written before the choice is
// known to be valid, so a rejected choice rolls back an empty transaction.
func (s *progressionServiceImpl) choose(ctx context.Context, tx interfaces.DBTX, actor models.Actor, req ChooseRequest, log *zap.Logger) (*ChoiceOutcome, error) {
	adventure, err := s.repos.Adventures.GetByIDForUser(ctx, tx, req.AdventureID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if adventure.IsCompleted() {
		return nil, models.ErrAdventureCompleted
	}
	character, err := s.repos.Characters.GetByIDForUser(ctx, tx, adventure.CharacterID, actor.UserID)
	if err != nil {
		return nil, err
	}

	progress, err := s.repos.Progress.GetForUpdate(ctx, tx, adventure.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrProgressMissing
	}
	if err != nil {
		return nil, err
	}
	if progress.CurrentSequence == nil {
		return nil, models.ErrAdventureCompleted
	}
	current := *progress.CurrentSequence
	if req.ExpectedSequence != nil && *req.ExpectedSequence != current {
		return nil, fmt.Errorf("%w: expected sequence %d, current is %d", models.ErrStaleChoice, *req.ExpectedSequence, current)
	}

	node, err := s.repos.Scenarios.GetBySequence(ctx, tx, adventure.ID, current)
	if err != nil {
		return nil, err
	}
	choice, ok := node.Choice(req.Slot)
	if !ok {
		return nil, fmt.Errorf("%w: no choice at %s", models.ErrInvalidChoice, req.Slot)
	}

	before := progress.Stats
	after := choice.Delta.Apply(before)
	decision := &models.Decision{
		ID:          uuid.New(),
		AdventureID: adventure.ID,
		CharacterID: character.ID,
		ScenarioID:  node.ID,
		ChoiceIndex: int(req.Slot),
		StatsBefore: before,
		StatsAfter:  after,
	}
	if err := s.repos.Decisions.Create(ctx, tx, decision); err != nil {
		return nil, err
	}

	outcome := &ChoiceOutcome{
		AdventureID:    adventure.ID,
		Slot:           req.Slot.String(),
		ResultText:     substituteName(choice.ResultText, character.Name),
		StatsBefore:    before,
		StatsAfter:     after,
		Decision:       decision,
		DisplayDelay:   s.displayDelay,
		DisplayDelayMs: s.displayDelay.Milliseconds(),
	}

	var next *models.ScenarioNode
	if choice.NextSequence != nil {
		next, err = s.repos.Scenarios.GetBySequence(ctx, tx, adventure.ID, *choice.NextSequence)
		if errors.Is(err, models.ErrNotFound) {
			log.Info("Next scenario does not exist, concluding adventure", zap.Int("next", *choice.NextSequence))
			next, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	progress.Stats = after
	if next != nil {
		seq := next.Sequence
		progress.CurrentSequence = &seq
		if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
			return nil, err
		}
		if err := s.repos.Adventures.UpdateStage(ctx, tx, adventure.ID, seq); err != nil {
			return nil, err
		}
		outcome.Next = RenderNode(next, character.Name, after)
		return outcome, nil
	}

	progress.CurrentSequence = nil
	if err := s.repos.Progress.Update(ctx, tx, progress); err != nil {
		return nil, err
	}
	export := s.resolveExport(adventure, character, after)
	if err := s.repos.Adventures.MarkCompleted(ctx, tx, adventure.ID, current, export); err != nil {
		return nil, err
	}
	if err := s.repos.Characters.IncrementLevel(ctx, tx, character.ID); err != nil {
		return nil, err
	}
	if export.Success {
		if err := s.repos.Characters.UpdateCharacterData(ctx, tx, character.ID, export); err != nil {
			return nil, err
		}
	}
	outcome.Completed = true
	outcome.Export = export
	return outcome, nil
}

// resolveExport looks up the character's build and personalises it with the
// adventure's rewards. A missing build yields success=false, not an error.
func (s *progressionServiceImpl) resolveExport(adventure *models.Adventure, character *models.Character, final models.Stats) *models.BuildExport {
	build, ok := s.resolver.Resolve(character.Class, character.Race)
	if !ok {
		return models.NewBuildExport(nil)
	}
	flourish := builds.Flourish{
		Name:   character.Name,
		Gender: character.Gender,
		Level:  character.Level + 1,
		Gold:   final.Gold,
	}
	if tmpl, err := s.catalog.Get(adventure.TemplateSlug); err == nil {
		flourish.Gold += tmpl.Rewards.Gold
		flourish.Equipment = tmpl.Rewards.Equipment
	} else {
		s.logger.Warn("Template of completed adventure is no longer available, skipping rewards",
			zap.Stringer("adventureID", adventure.ID), zap.String("template", adventure.TemplateSlug))
	}
	builds.ApplyFlourish(build, flourish)
	return models.NewBuildExport(build)
}

func (s *progressionServiceImpl) GetAdventure(ctx context.Context, actor models.Actor, adventureID uuid.UUID) (*AdventureSession, error) {
	return s.loadSession(ctx, actor, adventureID, false)
}

func (s *progressionServiceImpl) ListAdventures(ctx context.Context, actor models.Actor, characterID uuid.UUID) ([]*models.Adventure, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	if _, err := s.repos.Characters.GetByIDForUser(ctx, s.db, characterID, actor.UserID); err != nil {
		return nil, loadError("character", err)
	}
	adventures, err := s.repos.Adventures.ListByCharacterID(ctx, s.db, characterID)
	if err != nil {
		return nil, loadError("adventures", err)
	}
	return adventures, nil
}

func (s *progressionServiceImpl) DeleteAdventure(ctx context.Context, actor models.Actor, adventureID uuid.UUID) error {
	if !actor.Authenticated() {
		return models.ErrUnauthorized
	}
	if _, err := s.repos.Adventures.GetByIDForUser(ctx, s.db, adventureID, actor.UserID); err != nil {
		return loadError("adventure", err)
	}
	if err := s.repos.Adventures.Delete(ctx, s.db, adventureID); err != nil {
		return loadError("adventure", err)
	}
	s.logger.Info("Adventure deleted", zap.Stringer("adventureID", adventureID), zap.Stringer("userID", actor.UserID))
	return nil
}

func (s *progressionServiceImpl) ListDecisions(ctx context.Context, actor models.Actor, adventureID uuid.UUID) ([]*models.Decision, error) {
	if !actor.Authenticated() {
		return nil, models.ErrUnauthorized
	}
	if _, err := s.repos.Adventures.GetByIDForUser(ctx, s.db, adventureID, actor.UserID); err != nil {
		return nil, loadError("adventure", err)
	}
	decisions, err := s.repos.Decisions.ListByAdventureID(ctx, s.db, adventureID)
	if err != nil {
		return nil, loadError("decisions", err)
	}
	return decisions, nil
}

// loadError keeps not-found as is and marks everything else internal.
func loadError(what string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: load %s: %w", models.ErrInternalServer, what, err)
}

func isClientError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrInvalidChoice) ||
		errors.Is(err, models.ErrStaleChoice) ||
		errors.Is(err, models.ErrAdventureCompleted) ||
		errors.Is(err, ErrProgressMissing)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidChoice):
		return "invalid"
	case errors.Is(err, models.ErrStaleChoice):
		return "stale"
	case errors.Is(err, models.ErrAdventureCompleted):
		return "already_completed"
	case errors.Is(err, models.ErrNotFound), errors.Is(err, ErrProgressMissing):
		return "not_found"
	}
	return "error"
}
