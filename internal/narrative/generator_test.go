package narrative_test

import (
	"context"
	"errors"
	"testing"

	"gamebook-server/internal/mocks"
	"gamebook-server/internal/narrative"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validScene = `{
  "story_continues": "The beast lowers its horns as the river roars.",
  "scene_name": "Beast At The Ford",
  "logical_choice": "Seek the elder",
  "prudent_choice": "Hide in the brush",
  "reckless_choice": "Charge the beast"
}`

func TestParseNextScene(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		scene, err := narrative.ParseNextScene(validScene)
		require.NoError(t, err)
		assert.Equal(t, "Beast At The Ford", scene.Title)
		assert.Equal(t, "Charge the beast", scene.Choices[2])
	})

	t.Run("Code fence", func(t *testing.T) {
		_, err := narrative.ParseNextScene("```json\n" + validScene + "\n```")
		assert.NoError(t, err)
	})

	t.Run("Missing fields", func(t *testing.T) {
		_, err := narrative.ParseNextScene(`{"story_continues":"x","scene_name":" ","logical_choice":"a"}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, narrative.ErrInvalidModelOutput)
		assert.NotErrorIs(t, err, narrative.ErrAIGenerationFailed)

		var verr *narrative.SceneValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{"scene_name", "prudent_choice", "reckless_choice"}, verr.Missing)
	})

	t.Run("Not JSON", func(t *testing.T) {
		_, err := narrative.ParseNextScene("Once upon a time")
		var verr *narrative.SceneValidationError
		require.True(t, errors.As(err, &verr))
		assert.Error(t, verr.ParseErr)
	})

	t.Run("Duplicate choices", func(t *testing.T) {
		_, err := narrative.ParseNextScene(`{"story_continues":"x","scene_name":"y","logical_choice":"a","prudent_choice":"a","reckless_choice":"b"}`)
		var verr *narrative.SceneValidationError
		require.True(t, errors.As(err, &verr))
		assert.True(t, verr.Duplicates)
	})
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Consequence", func(t *testing.T) {
		ai := mocks.NewMockAIClient(t)
		g := narrative.NewGenerator(ai, "Toly", 0.7, zap.NewNop())

		ai.On("GenerateText", mock.Anything, "reader-1", mock.AnythingOfType("string"), mock.MatchedBy(func(user string) bool {
			return assert.Contains(t, user, "'A beast blocks the ford.'") && assert.Contains(t, user, "'Charge the beast'")
		}), mock.MatchedBy(func(p narrative.GenerationParams) bool {
			return p.Temperature != nil && *p.Temperature == 0.7 && !p.JSONOutput
		})).Return("  The beast stumbles.  ", narrative.UsageInfo{}, nil).Once()

		text, err := g.Consequence(ctx, "reader-1", "A beast blocks the ford.", "Charge the beast")
		require.NoError(t, err)
		assert.Equal(t, "The beast stumbles.", text)
	})

	t.Run("NextScene requests JSON", func(t *testing.T) {
		ai := mocks.NewMockAIClient(t)
		g := narrative.NewGenerator(ai, "Toly", 0.7, zap.NewNop())

		ai.On("GenerateText", mock.Anything, "reader-1", mock.AnythingOfType("string"), mock.AnythingOfType("string"),
			mock.MatchedBy(func(p narrative.GenerationParams) bool { return p.JSONOutput })).
			Return(validScene, narrative.UsageInfo{TotalTokens: 10}, nil).Once()

		scene, err := g.NextScene(ctx, "reader-1", "story")
		require.NoError(t, err)
		assert.Equal(t, "Seek the elder", scene.Choices[0])
	})

	t.Run("Upstream failure is distinct from bad content", func(t *testing.T) {
		ai := mocks.NewMockAIClient(t)
		g := narrative.NewGenerator(ai, "Toly", 0.7, zap.NewNop())

		ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", narrative.UsageInfo{}, narrative.ErrAIGenerationFailed).Once()

		_, err := g.NextScene(ctx, "reader-1", "story")
		assert.ErrorIs(t, err, narrative.ErrAIGenerationFailed)
		assert.NotErrorIs(t, err, narrative.ErrInvalidModelOutput)
	})
}
