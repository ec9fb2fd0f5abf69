package model

import (
	"fmt"
)

// SceneSymbol - символ коллекции в метаданных ассета.
const SceneSymbol = "GAMEBOOK"

// Attribute - элемент attributes в документе метаданных.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// MetadataFile описывает файл в properties.files.
type MetadataFile struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// MetadataProperties - блок properties документа метаданных.
type MetadataProperties struct {
	Files    []MetadataFile `json:"files"`
	Category string         `json:"category"`
}

// SceneMetadata - JSON-документ, на который ссылается ассет сцены.
// imageURI дублирует image: старые клиенты читают именно его.
type SceneMetadata struct {
	Name        string             `json:"name"`
	Symbol      string             `json:"symbol"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	ImageURI    string             `json:"imageURI"`
	Attributes  []Attribute        `json:"attributes"`
	Properties  MetadataProperties `json:"properties"`
}

// NewSceneMetadata собирает документ метаданных сцены.
func NewSceneMetadata(scene Scene, imageURI, imageContentType string) SceneMetadata {
	attrs := make([]Attribute, 0, ChoiceCount)
	for i, c := range scene.Choices {
		attrs = append(attrs, Attribute{TraitType: ChoiceTraitTypes[i], Value: c})
	}
	return SceneMetadata{
		Name:        scene.Title,
		Symbol:      SceneSymbol,
		Description: scene.Description,
		Image:       imageURI,
		ImageURI:    imageURI,
		Attributes:  attrs,
		Properties: MetadataProperties{
			Files:    []MetadataFile{{URI: imageURI, Type: imageContentType}},
			Category: "image",
		},
	}
}

// Scene восстанавливает сцену из документа метаданных.
// Варианты ищутся по trait_type; если их нет, берутся первые три значения по порядку.
func (m SceneMetadata) Scene() (Scene, error) {
	scene := Scene{
		Title:       m.Name,
		Description: m.Description,
		ImageURI:    m.ImageURI,
	}
	if scene.ImageURI == "" {
		scene.ImageURI = m.Image
	}

	found := 0
	for i, trait := range ChoiceTraitTypes {
		for _, a := range m.Attributes {
			if a.TraitType == trait {
				scene.Choices[i] = a.Value
				found++
				break
			}
		}
	}
	if found != ChoiceCount {
		if len(m.Attributes) < ChoiceCount {
			return Scene{}, fmt.Errorf("%w: metadata has %d attributes, need %d", ErrInvalidScene, len(m.Attributes), ChoiceCount)
		}
		for i := 0; i < ChoiceCount; i++ {
			scene.Choices[i] = m.Attributes[i].Value
		}
	}

	if err := scene.Validate(); err != nil {
		return Scene{}, err
	}
	return scene, nil
}
