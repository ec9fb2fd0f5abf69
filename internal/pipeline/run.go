package pipeline

import (
	"fmt"

	"gamebook-server/internal/model"

	"github.com/gagliardetto/solana-go"
)

// Stage - последний успешно завершенный этап прогона.
type Stage int

const (
	StagePending Stage = iota
	StageStaged
	StageUploaded
	StageMinted
	StageTransferred
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageStaged:
		return "staged"
	case StageUploaded:
		return "uploaded"
	case StageMinted:
		return "minted"
	case StageTransferred:
		return "transferred"
	case StageCompleted:
		return "completed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Run - запись одного прогона: данные сцены и все артефакты, полученные по пути.
// Заполненное поле артефакта означает, что шаг уже выполнен и при повторе пропускается.
type Run struct {
	ID     string
	Reader string
	Scene  model.Scene
	// Owner - аккаунт прогресса; nil - ассет остается у минтера.
	Owner *solana.PublicKey

	Stage       Stage
	StagedPath  string
	ContentType string
	ImageURI    string
	MetadataURI string
	Asset       solana.PublicKey
}

// NewRun создает прогон для новой сцены.
func NewRun(id, reader string, scene model.Scene, owner *solana.PublicKey) *Run {
	return &Run{ID: id, Reader: reader, Scene: scene, Owner: owner}
}

// Slug - имя файла изображения без расширения.
func (r *Run) Slug() string {
	slug := model.Slug(r.Scene.Title)
	if slug == "" {
		slug = "scene"
	}
	if len(r.ID) >= 8 {
		return slug + "-" + r.ID[:8]
	}
	return slug
}

// StageError - прогон остановился на шаге Step. Reached - последний завершенный этап,
// по нему видно, какие артефакты остались без владельца.
type StageError struct {
	Step    string
	Reached Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline step %s failed (reached %s): %v", e.Step, e.Reached, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
