package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-dark-forest", Slug("The Dark  Forest"))
	assert.Equal(t, "river", Slug("  River\t"))
	assert.Equal(t, "a-b-c", Slug("A\nB c"))

	assert.Equal(t, "friend-foe-at-the-gate", Slug("Friend/Foe at the Gate"))
	assert.Equal(t, "etc-x", Slug("../../../etc/x"))
	assert.Equal(t, "c-drive", Slug(`C:\\drive`))
	assert.Equal(t, "toly-s-return", Slug("Toly's Return!"))
	assert.Empty(t, Slug("../.."))
}

func TestScene_Validate(t *testing.T) {
	ok := Scene{Description: "x", Choices: [ChoiceCount]string{"a", "b", "c"}}
	assert.NoError(t, ok.Validate())

	dup := ok
	dup.Choices[2] = "a"
	assert.ErrorIs(t, dup.Validate(), ErrInvalidScene)

	empty := ok
	empty.Choices[1] = " "
	assert.ErrorIs(t, empty.Validate(), ErrInvalidScene)

	noText := ok
	noText.Description = ""
	assert.ErrorIs(t, noText.Validate(), ErrInvalidScene)
}

func TestSceneMetadata_RoundTrip(t *testing.T) {
	scene := Scene{
		Title:       "beast-at-the-ford",
		Description: "A beast blocks the ford.",
		Choices:     [ChoiceCount]string{"Seek the elder", "Hide in the brush", "Charge the beast"},
	}
	meta := NewSceneMetadata(scene, "https://cdn/img.png", "image/png")

	assert.Equal(t, SceneSymbol, meta.Symbol)
	assert.Equal(t, "https://cdn/img.png", meta.Image)
	assert.Equal(t, "https://cdn/img.png", meta.ImageURI)
	require.Len(t, meta.Attributes, ChoiceCount)
	assert.Equal(t, "Reckless Choice", meta.Attributes[2].TraitType)
	assert.Equal(t, "image", meta.Properties.Category)

	back, err := meta.Scene()
	require.NoError(t, err)
	scene.ImageURI = "https://cdn/img.png"
	assert.Equal(t, scene, back)
	assert.True(t, back.HasChoice("Charge the beast"))
	assert.False(t, back.HasChoice("Run away"))
}

func TestSceneMetadata_Scene_PositionalAttributes(t *testing.T) {
	// Документы первых версий содержали только value без trait_type
	meta := SceneMetadata{
		Description: "text",
		Image:       "https://cdn/a.png",
		Attributes:  []Attribute{{Value: "one"}, {Value: "two"}, {Value: "three"}},
	}
	scene, err := meta.Scene()
	require.NoError(t, err)
	assert.Equal(t, [ChoiceCount]string{"one", "two", "three"}, scene.Choices)
	assert.Equal(t, "https://cdn/a.png", scene.ImageURI)

	meta.Attributes = meta.Attributes[:2]
	_, err = meta.Scene()
	assert.ErrorIs(t, err, ErrInvalidScene)
}
