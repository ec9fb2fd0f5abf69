package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gamebook-server/internal/model"

	"go.uber.org/zap"
)

// ErrInvalidModelOutput - модель ответила, но ответ не проходит проверку.
var ErrInvalidModelOutput = errors.New("invalid model output")

// SceneValidationError описывает, что не так с ответом next scene.
type SceneValidationError struct {
	Missing    []string
	Duplicates bool
	ParseErr   error
	Raw        string
}

func (e *SceneValidationError) Error() string {
	switch {
	case e.ParseErr != nil:
		return fmt.Sprintf("%v: not a JSON object: %v", ErrInvalidModelOutput, e.ParseErr)
	case len(e.Missing) > 0:
		return fmt.Sprintf("%v: missing fields: %s", ErrInvalidModelOutput, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("%v: choices are not distinct", ErrInvalidModelOutput)
	}
}

func (e *SceneValidationError) Unwrap() error { return ErrInvalidModelOutput }

// NextScene - провалидированный ответ модели.
type NextScene struct {
	Text    string
	Title   string
	Choices [model.ChoiceCount]string
}

type sceneResponse struct {
	StoryContinues string `json:"story_continues"`
	SceneName      string `json:"scene_name"`
	LogicalChoice  string `json:"logical_choice"`
	PrudentChoice  string `json:"prudent_choice"`
	RecklessChoice string `json:"reckless_choice"`
}

// ParseNextScene разбирает и проверяет JSON ответа. Ответ может быть обернут в ```json.
func ParseNextScene(raw string) (NextScene, error) {
	body := stripCodeFence(raw)

	var resp sceneResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return NextScene{}, &SceneValidationError{ParseErr: err, Raw: raw}
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"story_continues", &resp.StoryContinues},
		{"scene_name", &resp.SceneName},
		{"logical_choice", &resp.LogicalChoice},
		{"prudent_choice", &resp.PrudentChoice},
		{"reckless_choice", &resp.RecklessChoice},
	}
	var missing []string
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return NextScene{}, &SceneValidationError{Missing: missing, Raw: raw}
	}

	scene := NextScene{
		Text:    resp.StoryContinues,
		Title:   resp.SceneName,
		Choices: [model.ChoiceCount]string{resp.LogicalChoice, resp.PrudentChoice, resp.RecklessChoice},
	}
	if scene.Choices[0] == scene.Choices[1] || scene.Choices[1] == scene.Choices[2] || scene.Choices[0] == scene.Choices[2] {
		return NextScene{}, &SceneValidationError{Duplicates: true, Raw: raw}
	}
	return scene, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Generator выполняет два последовательных вызова модели без повторов.
type Generator struct {
	client      AIClient
	protagonist string
	temperature float64
	logger      *zap.Logger
}

func NewGenerator(client AIClient, protagonist string, temperature float64, logger *zap.Logger) *Generator {
	return &Generator{
		client:      client,
		protagonist: protagonist,
		temperature: temperature,
		logger:      logger.Named("NarrativeGenerator"),
	}
}

// Consequence - одно предложение о последствиях выбора.
func (g *Generator) Consequence(ctx context.Context, reader, priorText, choice string) (string, error) {
	system, user := consequencePrompts(g.protagonist, priorText, choice)
	temp := g.temperature
	text, _, err := g.client.GenerateText(ctx, reader, system, user, GenerationParams{Temperature: &temp})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty consequence", ErrAIGenerationFailed)
	}
	g.logger.Debug("Consequence generated", zap.String("reader", reader), zap.Int("length", len(text)))
	return text, nil
}

// NextScene запрашивает следующую сцену в JSON и проверяет все пять полей.
func (g *Generator) NextScene(ctx context.Context, reader, storySoFar string) (NextScene, error) {
	system, user := scenePrompts(g.protagonist, storySoFar)
	temp := g.temperature
	raw, _, err := g.client.GenerateText(ctx, reader, system, user, GenerationParams{Temperature: &temp, JSONOutput: true})
	if err != nil {
		return NextScene{}, err
	}

	scene, err := ParseNextScene(raw)
	if err != nil {
		narrativeParseFailures.Inc()
		g.logger.Warn("Model returned invalid scene", zap.String("reader", reader), zap.Error(err), zap.String("raw", raw))
		return NextScene{}, err
	}
	g.logger.Info("Next scene generated", zap.String("reader", reader), zap.String("title", scene.Title))
	return scene, nil
}
