package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"adventure-server/gameplay-service/internal/builds"
	"adventure-server/gameplay-service/internal/scenarios"
	"adventure-server/gameplay-service/internal/service"
	"adventure-server/shared/interfaces/mocks"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type progressionFixture struct {
	characters *mocks.CharacterRepository
	adventures *mocks.AdventureRepository
	scenarios  *mocks.ScenarioRepository
	progress   *mocks.ProgressRepository
	decisions  *mocks.DecisionRepository
	tx         *mocks.TxManager
	catalog    *scenarios.Catalog
	resolver   *builds.Lookup
	svc        service.ProgressionService
}

func newProgressionFixture(t *testing.T) *progressionFixture {
	t.Helper()
	logger := zap.NewNop()
	catalog, err := scenarios.LoadCatalog("", logger)
	require.NoError(t, err)
	resolver, err := builds.NewDefault(logger)
	require.NoError(t, err)

	f := &progressionFixture{
		characters: new(mocks.CharacterRepository),
		adventures: new(mocks.AdventureRepository),
		scenarios:  new(mocks.ScenarioRepository),
		progress:   new(mocks.ProgressRepository),
		decisions:  new(mocks.DecisionRepository),
		tx:         new(mocks.TxManager),
		catalog:    catalog,
		resolver:   resolver,
	}
	f.svc = service.NewProgressionService(nil, f.tx, service.Repositories{
		Characters: f.characters,
		Adventures: f.adventures,
		Scenarios:  f.scenarios,
		Progress:   f.progress,
		Decisions:  f.decisions,
	}, catalog, resolver, 1500*time.Millisecond, logger)
	return f
}

func (f *progressionFixture) assertExpectations(t *testing.T) {
	f.characters.AssertExpectations(t)
	f.adventures.AssertExpectations(t)
	f.scenarios.AssertExpectations(t)
	f.progress.AssertExpectations(t)
	f.decisions.AssertExpectations(t)
	f.tx.AssertExpectations(t)
}

// crypt returns the scenario rows of the default template for adventureID, keyed by sequence.
func (f *progressionFixture) crypt(t *testing.T, adventureID uuid.UUID) map[int]*models.ScenarioNode {
	t.Helper()
	tmpl, err := f.catalog.Get(scenarios.DefaultTemplateSlug)
	require.NoError(t, err)
	out := make(map[int]*models.ScenarioNode)
	for _, n := range tmpl.Instantiate(adventureID) {
		out[n.Sequence] = n
	}
	return out
}

func intPtr(v int) *int { return &v }

func newCharacter(userID uuid.UUID, class, race string) *models.Character {
	return &models.Character{
		ID:     uuid.New(),
		UserID: userID,
		Name:   "Aria",
		Class:  class,
		Race:   race,
		Gender: "Female",
		Level:  1,
	}
}

func newAdventure(characterID uuid.UUID, stage int) *models.Adventure {
	return &models.Adventure{
		ID:           uuid.New(),
		CharacterID:  characterID,
		TemplateSlug: scenarios.DefaultTemplateSlug,
		Status:       models.AdventureStatusInProgress,
		CurrentStage: stage,
		TotalStages:  4,
	}
}

func TestProgressionService_Initialize(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("anonymous actor", func(t *testing.T) {
		f := newProgressionFixture(t)
		characterID := uuid.New()

		_, err := f.svc.Initialize(ctx, models.Actor{}, service.InitializeRequest{CharacterID: &characterID})
		assert.ErrorIs(t, err, models.ErrUnauthorized)
		f.assertExpectations(t)
	})

	t.Run("neither character nor adventure", func(t *testing.T) {
		f := newProgressionFixture(t)

		_, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("starts a new adventure and renders the first node", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")

		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.adventures.On("FindInProgress", mock.Anything, mock.Anything, character.ID, scenarios.DefaultTemplateSlug).Return(nil, models.ErrNotFound).Once()
		f.tx.On("WithTransaction", mock.Anything).Return(nil).Once()
		f.adventures.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(a *models.Adventure) bool {
			return a.CharacterID == character.ID && a.CurrentStage == 1 && a.TotalStages == 4 &&
				a.Status == models.AdventureStatusInProgress
		})).Return(nil).Once()
		f.scenarios.On("CreateBatch", mock.Anything, mock.Anything, mock.MatchedBy(func(nodes []*models.ScenarioNode) bool {
			return len(nodes) == 4
		})).Return(nil).Once()
		f.progress.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.ProgressRecord) bool {
			return p.CurrentSequence != nil && *p.CurrentSequence == 1 && p.Version == 1 &&
				p.Stats == models.BaseStatsFor("Aria", "Wizard")
		})).Return(nil).Once()

		session, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{CharacterID: &character.ID})
		require.NoError(t, err)
		require.NotNil(t, session.Node)
		assert.Equal(t, "You see a light. Do you approach, Aria?", session.Node.Prompt)
		assert.Equal(t, 1, session.Node.Sequence)
		require.Len(t, session.Node.Options, 3)
		assert.Equal(t, "top-left", session.Node.Options[0].Slot)
		assert.Equal(t, "bottom-left", session.Node.Options[1].Slot)
		assert.Equal(t, "top-right", session.Node.Options[2].Slot)
		assert.Equal(t, session.Adventure.ID, session.Progress.AdventureID)
		f.assertExpectations(t)
	})

	t.Run("unknown template", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()

		_, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{CharacterID: &character.ID, TemplateSlug: "no-such-place"})
		assert.ErrorIs(t, err, models.ErrTemplateNotFound)
		f.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
	})

	t.Run("resumes the in-progress adventure of the character", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Rogue", "Halfling")
		adventure := newAdventure(character.ID, 2)
		nodes := f.crypt(t, adventure.ID)

		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil)
		f.adventures.On("FindInProgress", mock.Anything, mock.Anything, character.ID, scenarios.DefaultTemplateSlug).Return(adventure, nil).Once()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(&models.ProgressRecord{
			AdventureID: adventure.ID, CharacterID: character.ID, CurrentSequence: intPtr(2), Version: 3,
		}, nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 2).Return(nodes[2], nil).Once()

		session, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{CharacterID: &character.ID})
		require.NoError(t, err)
		assert.Equal(t, adventure.ID, session.Adventure.ID)
		assert.Equal(t, 2, session.Node.Sequence)
		assert.Contains(t, session.Node.Prompt, "louder, Aria.")
		f.adventures.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("recreates a missing progress record at the recorded stage", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Fighter", "Dwarf")
		adventure := newAdventure(character.ID, 3)
		nodes := f.crypt(t, adventure.ID)

		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(nil, models.ErrNotFound).Once()
		f.progress.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.ProgressRecord) bool {
			return p.CurrentSequence != nil && *p.CurrentSequence == 3 && p.AdventureID == adventure.ID
		})).Return(nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 3).Return(nodes[3], nil).Once()

		session, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{AdventureID: &adventure.ID})
		require.NoError(t, err)
		require.NotNil(t, session.Progress.CurrentSequence)
		assert.Equal(t, 3, *session.Progress.CurrentSequence)
		assert.Equal(t, 3, session.Node.Sequence)
		f.assertExpectations(t)
	})

	t.Run("adventure of another user", func(t *testing.T) {
		f := newProgressionFixture(t)
		adventureID := uuid.New()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventureID, userID).Return(nil, models.ErrNotFound).Once()

		_, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{AdventureID: &adventureID})
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.progress.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("progress store failure is internal", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Fighter", "Human")
		adventure := newAdventure(character.ID, 1)

		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(nil, errors.New("connection reset")).Once()

		_, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{AdventureID: &adventure.ID})
		assert.ErrorIs(t, err, models.ErrInternalServer)
		assert.NotErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("lost race against a concurrent start resumes the winner", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Cleric", "Human")
		winner := newAdventure(character.ID, 1)
		nodes := f.crypt(t, winner.ID)

		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil)
		f.adventures.On("FindInProgress", mock.Anything, mock.Anything, character.ID, scenarios.DefaultTemplateSlug).Return(nil, models.ErrNotFound).Once()
		f.tx.On("WithTransaction", mock.Anything).Return(models.ErrAdventureInProgress).Once()
		f.adventures.On("FindInProgress", mock.Anything, mock.Anything, character.ID, scenarios.DefaultTemplateSlug).Return(winner, nil).Once()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, winner.ID, userID).Return(winner, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, winner.ID).Return(&models.ProgressRecord{
			AdventureID: winner.ID, CurrentSequence: intPtr(1), Version: 1,
		}, nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, winner.ID, 1).Return(nodes[1], nil).Once()

		session, err := f.svc.Initialize(ctx, actor, service.InitializeRequest{CharacterID: &character.ID})
		require.NoError(t, err)
		assert.Equal(t, winner.ID, session.Adventure.ID)
		f.assertExpectations(t)
	})
}

func TestProgressionService_RenderCurrentNode(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("repeated renders return the same node and write nothing", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Ranger", "Elf")
		adventure := newAdventure(character.ID, 1)
		nodes := f.crypt(t, adventure.ID)
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(1), Stats: character.BaseStats(), Version: 1}

		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Twice()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Twice()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(progress, nil).Twice()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(nodes[1], nil).Twice()

		first, err := f.svc.RenderCurrentNode(ctx, actor, adventure.ID)
		require.NoError(t, err)
		second, err := f.svc.RenderCurrentNode(ctx, actor, adventure.ID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		f.progress.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		f.progress.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.decisions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("completed adventure", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Ranger", "Elf")
		adventure := newAdventure(character.ID, 4)
		adventure.Status = models.AdventureStatusCompleted

		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(&models.ProgressRecord{AdventureID: adventure.ID}, nil).Once()

		_, err := f.svc.RenderCurrentNode(ctx, actor, adventure.ID)
		assert.ErrorIs(t, err, models.ErrAdventureCompleted)
	})

	t.Run("missing progress is not recreated on render", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Ranger", "Elf")
		adventure := newAdventure(character.ID, 2)

		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.progress.On("Get", mock.Anything, mock.Anything, adventure.ID).Return(nil, models.ErrNotFound).Once()

		_, err := f.svc.RenderCurrentNode(ctx, actor, adventure.ID)
		assert.ErrorIs(t, err, service.ErrProgressMissing)
		f.progress.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

// expectChooseLoad sets up the reads Choose performs before touching the node.
func (f *progressionFixture) expectChooseLoad(adventure *models.Adventure, character *models.Character, progress *models.ProgressRecord) {
	f.tx.On("WithTransaction", mock.Anything).Return(nil).Once()
	f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, character.UserID).Return(adventure, nil).Once()
	f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, character.UserID).Return(character, nil).Once()
	f.progress.On("GetForUpdate", mock.Anything, mock.Anything, adventure.ID).Return(progress, nil).Once()
}

func TestProgressionService_Choose(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("out of range slot is rejected before any read", func(t *testing.T) {
		f := newProgressionFixture(t)
		for _, slot := range []models.ChoiceSlot{0, 5, -1} {
			_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: uuid.New(), Slot: slot})
			assert.ErrorIs(t, err, models.ErrInvalidChoice)
		}
		f.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
	})

	t.Run("undefined slot leaves progress untouched", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 1)
		nodes := f.crypt(t, adventure.ID)
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(1), Stats: character.BaseStats(), Version: 1}
		before := progress.Stats

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(nodes[1], nil).Once()

		_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotBottomRight})
		assert.ErrorIs(t, err, models.ErrInvalidChoice)
		assert.NotErrorIs(t, err, models.ErrInternalServer)
		assert.Equal(t, before, progress.Stats)
		assert.Equal(t, 1, *progress.CurrentSequence)
		f.decisions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		f.progress.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		f.adventures.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("applies the delta and advances", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 1)
		drink := &models.ScenarioNode{
			ID: uuid.New(), AdventureID: adventure.ID, Sequence: 1, Prompt: "A vial glows.",
		}
		drink.Choices[0] = models.ScenarioChoice{
			Label:        "Drink",
			ResultText:   "{character.name} feels drained.",
			Delta:        models.StatDelta{{Stat: models.StatMana, Op: models.OpAdd, Value: -10}},
			NextSequence: intPtr(2),
		}
		next := &models.ScenarioNode{ID: uuid.New(), AdventureID: adventure.ID, Sequence: 2, Prompt: "Onward, {character.name}."}
		next.Choices[2] = models.ScenarioChoice{Label: "Rest"}
		progress := &models.ProgressRecord{
			AdventureID: adventure.ID, CurrentSequence: intPtr(1), Version: 1,
			Stats: models.Stats{Name: "Aria", Health: 100, Mana: 50},
		}

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(drink, nil).Once()
		f.decisions.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(d *models.Decision) bool {
			return d.ScenarioID == drink.ID && d.ChoiceIndex == 1 &&
				d.StatsBefore.Mana == 50 && d.StatsAfter.Mana == 40 && d.StatsAfter.Health == 100
		})).Return(nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 2).Return(next, nil).Once()
		f.progress.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.ProgressRecord) bool {
			return p.CurrentSequence != nil && *p.CurrentSequence == 2 && p.Stats.Mana == 40
		})).Return(nil).Once()
		f.adventures.On("UpdateStage", mock.Anything, mock.Anything, adventure.ID, 2).Return(nil).Once()

		outcome, err := f.svc.Choose(ctx, actor, service.ChooseRequest{
			AdventureID: adventure.ID, Slot: models.SlotTopLeft, ExpectedSequence: intPtr(1),
		})
		require.NoError(t, err)
		assert.Equal(t, models.Stats{Name: "Aria", Health: 100, Mana: 40}, outcome.StatsAfter)
		assert.Equal(t, 50, outcome.StatsBefore.Mana)
		assert.Equal(t, "Aria feels drained.", outcome.ResultText)
		assert.Equal(t, "top-left", outcome.Slot)
		assert.Equal(t, int64(1500), outcome.DisplayDelayMs)
		assert.False(t, outcome.Completed)
		assert.Nil(t, outcome.Export)
		require.NotNil(t, outcome.Next)
		assert.Equal(t, 2, outcome.Next.Sequence)
		assert.Equal(t, "Onward, Aria.", outcome.Next.Prompt)
		assert.Equal(t, 40, outcome.Next.Stats.Mana)
		f.assertExpectations(t)
	})

	t.Run("terminal choice completes with a build and freezes the adventure", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 4)
		nodes := f.crypt(t, adventure.ID)
		stats := character.BaseStats()
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(4), Stats: stats, Version: 5}
		base, ok := f.resolver.Resolve("Wizard", "Elf")
		require.True(t, ok)
		wantGold := base.Money.GP + stats.Gold + 15

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 4).Return(nodes[4], nil).Once()
		f.decisions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		f.progress.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.ProgressRecord) bool {
			return p.CurrentSequence == nil && p.Stats.Experience == 50
		})).Return(nil).Once()
		isBuild := mock.MatchedBy(func(e *models.BuildExport) bool {
			return e.Success && e.Build != nil && e.Build.Name == "Aria" && e.Build.Level == 2 &&
				e.Build.Gender == "Female" && e.Build.Money.GP == wantGold
		})
		f.adventures.On("MarkCompleted", mock.Anything, mock.Anything, adventure.ID, 4, isBuild).Return(nil).Once()
		f.characters.On("IncrementLevel", mock.Anything, mock.Anything, character.ID).Return(nil).Once()
		f.characters.On("UpdateCharacterData", mock.Anything, mock.Anything, character.ID, isBuild).Return(nil).Once()

		outcome, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotTopLeft})
		require.NoError(t, err)
		assert.True(t, outcome.Completed)
		assert.Nil(t, outcome.Next)
		require.NotNil(t, outcome.Export)
		assert.True(t, outcome.Export.Success)
		var hasKey bool
		for _, item := range outcome.Export.Build.Equipment {
			if item.Name == "Silver Key" {
				hasKey = true
			}
		}
		assert.True(t, hasKey, "template reward should be in the equipment list")
		f.adventures.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)

		completed := *adventure
		completed.Status = models.AdventureStatusCompleted
		f.tx.On("WithTransaction", mock.Anything).Return(nil).Once()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(&completed, nil).Once()

		_, err = f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotTopLeft})
		assert.ErrorIs(t, err, models.ErrAdventureCompleted)
		f.decisions.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("next node missing completes without a build", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Bard", "Human")
		adventure := newAdventure(character.ID, 1)
		node := &models.ScenarioNode{ID: uuid.New(), AdventureID: adventure.ID, Sequence: 1, Prompt: "A song."}
		node.Choices[1] = models.ScenarioChoice{Label: "Sing", ResultText: "Applause.", NextSequence: intPtr(9)}
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(1), Stats: character.BaseStats(), Version: 1}

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(node, nil).Once()
		f.decisions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 9).Return(nil, models.ErrNotFound).Once()
		f.progress.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.ProgressRecord) bool {
			return p.CurrentSequence == nil
		})).Return(nil).Once()
		f.adventures.On("MarkCompleted", mock.Anything, mock.Anything, adventure.ID, 1, mock.MatchedBy(func(e *models.BuildExport) bool {
			return !e.Success && e.Build == nil
		})).Return(nil).Once()
		f.characters.On("IncrementLevel", mock.Anything, mock.Anything, character.ID).Return(nil).Once()

		outcome, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotBottomLeft})
		require.NoError(t, err)
		assert.True(t, outcome.Completed)
		require.NotNil(t, outcome.Export)
		assert.False(t, outcome.Export.Success)
		assert.Nil(t, outcome.Export.Build)
		f.characters.AssertNotCalled(t, "UpdateCharacterData", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("stale expected sequence", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 2)
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(2), Version: 2}

		f.expectChooseLoad(adventure, character, progress)

		_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{
			AdventureID: adventure.ID, Slot: models.SlotTopLeft, ExpectedSequence: intPtr(1),
		})
		assert.ErrorIs(t, err, models.ErrStaleChoice)
		f.scenarios.AssertNotCalled(t, "GetBySequence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.decisions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("version conflict on update is stale, not internal", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 1)
		nodes := f.crypt(t, adventure.ID)
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(1), Stats: character.BaseStats(), Version: 1}

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(nodes[1], nil).Once()
		f.decisions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 2).Return(nodes[2], nil).Once()
		f.progress.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(models.ErrStaleChoice).Once()

		_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotTopLeft})
		assert.ErrorIs(t, err, models.ErrStaleChoice)
		assert.NotErrorIs(t, err, models.ErrInternalServer)
		f.adventures.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("decision write failure is internal", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 1)
		nodes := f.crypt(t, adventure.ID)
		progress := &models.ProgressRecord{AdventureID: adventure.ID, CurrentSequence: intPtr(1), Stats: character.BaseStats(), Version: 1}

		f.expectChooseLoad(adventure, character, progress)
		f.scenarios.On("GetBySequence", mock.Anything, mock.Anything, adventure.ID, 1).Return(nodes[1], nil).Once()
		f.decisions.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotTopLeft})
		assert.ErrorIs(t, err, models.ErrInternalServer)
		f.progress.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing progress row", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Wizard", "Elf")
		adventure := newAdventure(character.ID, 1)

		f.tx.On("WithTransaction", mock.Anything).Return(nil).Once()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.progress.On("GetForUpdate", mock.Anything, mock.Anything, adventure.ID).Return(nil, models.ErrNotFound).Once()

		_, err := f.svc.Choose(ctx, actor, service.ChooseRequest{AdventureID: adventure.ID, Slot: models.SlotTopLeft})
		assert.ErrorIs(t, err, service.ErrProgressMissing)
	})
}

func TestProgressionService_Lists(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	actor := models.NewActor(userID)

	t.Run("decisions of a foreign adventure", func(t *testing.T) {
		f := newProgressionFixture(t)
		adventureID := uuid.New()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventureID, userID).Return(nil, models.ErrNotFound).Once()

		_, err := f.svc.ListDecisions(ctx, actor, adventureID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.decisions.AssertNotCalled(t, "ListByAdventureID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("decisions in order", func(t *testing.T) {
		f := newProgressionFixture(t)
		adventure := newAdventure(uuid.New(), 2)
		want := []*models.Decision{{ID: uuid.New(), ChoiceIndex: 1}, {ID: uuid.New(), ChoiceIndex: 3}}
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventure.ID, userID).Return(adventure, nil).Once()
		f.decisions.On("ListByAdventureID", mock.Anything, mock.Anything, adventure.ID).Return(want, nil).Once()

		got, err := f.svc.ListDecisions(ctx, actor, adventure.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("adventures of a character", func(t *testing.T) {
		f := newProgressionFixture(t)
		character := newCharacter(userID, "Rogue", "Human")
		want := []*models.Adventure{newAdventure(character.ID, 1)}
		f.characters.On("GetByIDForUser", mock.Anything, mock.Anything, character.ID, userID).Return(character, nil).Once()
		f.adventures.On("ListByCharacterID", mock.Anything, mock.Anything, character.ID).Return(want, nil).Once()

		got, err := f.svc.ListAdventures(ctx, actor, character.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("delete checks ownership first", func(t *testing.T) {
		f := newProgressionFixture(t)
		adventureID := uuid.New()
		f.adventures.On("GetByIDForUser", mock.Anything, mock.Anything, adventureID, userID).Return(nil, models.ErrNotFound).Once()

		err := f.svc.DeleteAdventure(ctx, actor, adventureID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		f.adventures.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}
