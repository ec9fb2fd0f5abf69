package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Индексы вариантов выбора. Порядок значим: он задает подписи ссылок.
const (
	ChoiceLogical = iota
	ChoicePrudent
	ChoiceReckless
	ChoiceCount
)

// Названия атрибутов в метаданных ассета, в порядке индексов выше.
var ChoiceTraitTypes = [ChoiceCount]string{"Logical Choice", "Prudent Choice", "Reckless Choice"}

var (
	ErrInvalidAccount = errors.New("invalid reader account")
	ErrUnknownChoice  = errors.New("choice is not offered by the current scene")
	ErrUnknownScene   = errors.New("scene is not offered")
	ErrInvalidScene   = errors.New("invalid scene")
)

// Scene - неизменяемая единица истории.
type Scene struct {
	Title       string
	Description string
	Choices     [ChoiceCount]string
	ImageURI    string
}

// Validate проверяет, что у сцены есть текст и три различных непустых варианта.
func (s Scene) Validate() error {
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrInvalidScene)
	}
	seen := make(map[string]struct{}, ChoiceCount)
	for i, c := range s.Choices {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: empty choice #%d", ErrInvalidScene, i)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate choice %q", ErrInvalidScene, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// HasChoice сообщает, предлагает ли сцена вариант choice.
func (s Scene) HasChoice(choice string) bool {
	for _, c := range s.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeRun     = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Slug нормализует название сцены для имени файла: пробелы -> дефис, нижний регистр.
// Остаются только [a-z0-9-], так что результат не содержит разделителей пути.
func Slug(title string) string {
	slug := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "-"))
	slug = unsafeRun.ReplaceAllString(slug, "-")
	slug = hyphenRun.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
