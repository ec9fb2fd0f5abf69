package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrImageGenerationFailed - ошибка при генерации изображения.
var ErrImageGenerationFailed = errors.New("image generation failed")

// Image - результат рендера.
type Image struct {
	Data        []byte
	ContentType string
}

// Extension возвращает расширение файла по типу содержимого.
func (i Image) Extension() string {
	switch i.ContentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Renderer превращает текст сцены в картинку.
type Renderer interface {
	Render(ctx context.Context, sceneDescription string) (Image, error)
}

const promptTemplate = `Create a medieval fantasy scene depicting: %s
The protagonist wears a red metallic helmet that masks his head, body type could be male or female.
The image should capture the essence of the scene without showing text or specific choices.
IMPORTANT: DO NOT GENERATE TEXT.
Style: Watercolor.`

// ScenePrompt накладывает фиксированный стиль на текст сцены.
func ScenePrompt(sceneDescription string) string {
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(sceneDescription))
}

func detectContentType(data []byte, declared string) string {
	if strings.HasPrefix(declared, "image/") {
		return strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	}
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/png"
}
