package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"gamebook-server/internal/ledger"
	"gamebook-server/internal/messaging"
	"gamebook-server/internal/model"
	"gamebook-server/internal/pipeline"
	"gamebook-server/internal/story"
	"gamebook-server/internal/watcher"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var gatedRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamebook_gated_runs_total",
		Help: "Background runs started by choice requests, by outcome.",
	},
	[]string{"outcome"}, // not_observed, duplicate_signature, stale_head, narrative_failed, pipeline_failed, advanced
)

// Options - параметры ответов action-протокола.
type Options struct {
	Title   string
	Label   string
	Message string
	// BaseURL - внешний адрес сервера для ссылок выбора.
	BaseURL string
	// IncrementChapter включает увеличение счетчика глав после передачи ассета.
	IncrementChapter bool
}

// Deps - внешние зависимости ActionService.
type Deps struct {
	Store    *story.Store
	Tags     *story.TagRegistry
	Scenes   SceneResolver
	Fees     FeeOracle
	Builder  TransactionBuilder
	Progress ProgressAccounts
	Watcher  watcher.Watcher
	Narrator Narrator
	Pipeline AssetPipeline
	Notifier messaging.Notifier
}

// ActionService отвечает на GET/POST action-протокола и запускает фоновые прогоны,
// которые ждут оплату и генерируют следующую сцену.
type ActionService struct {
	deps   Deps
	opts   Options
	logger *zap.Logger

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

func NewActionService(deps Deps, opts Options, logger *zap.Logger) *ActionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ActionService{
		deps:      deps,
		opts:      opts,
		logger:    logger.Named("ActionService"),
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Describe описывает текущую сцену. С account - сцену этого читателя,
// без него - последнюю сцену, до которой дошел кто-либо.
func (s *ActionService) Describe(ctx context.Context, account string) (model.ActionGetResponse, error) {
	head := s.deps.Store.Latest()
	if account != "" {
		reader, err := ledger.ParseAddress(account)
		if err != nil {
			return model.ActionGetResponse{}, err
		}
		head = s.deps.Store.Head(reader.String())
	}

	scene, err := s.deps.Scenes.Resolve(ctx, head)
	if err != nil {
		return model.ActionGetResponse{}, fmt.Errorf("failed to resolve current scene: %w", err)
	}

	links := make([]model.ActionLink, 0, model.ChoiceCount)
	for _, choice := range scene.Choices {
		links = append(links, model.ActionLink{Label: choice, Href: s.choiceHref(head, choice)})
	}
	return model.ActionGetResponse{
		Icon:        scene.ImageURI,
		Label:       s.opts.Label,
		Title:       s.opts.Title,
		Description: scene.Description,
		Links:       model.ActionLinks{Actions: links},
	}, nil
}

// choiceHref ссылается на показанную сцену и выбор. Выбор кодируется
// как encodeURIComponent: пробел -> %20.
func (s *ActionService) choiceHref(scene solana.PublicKey, choice string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(choice), "+", "%20")
	return strings.TrimRight(s.opts.BaseURL, "/") + "/post_action?scene=" + scene.String() + "&choice=" + escaped
}

// gatedRun - все, что фоновый прогон знает о запросе выбора.
type gatedRun struct {
	reader solana.PublicKey
	// head - голова читателя на момент запроса, from - сцена, которую продолжает выбор.
	head      solana.PublicKey
	from      solana.PublicKey
	scene     model.Scene
	choice    string
	tag       string
	progress  solana.PublicKey
	createdAt time.Time
}

// Choose строит неподписанную транзакцию для выбора и сразу возвращает ее.
// sceneAddr - сцена из ссылки GET; пустая строка означает текущую сцену читателя.
// Ожидание оплаты и генерация идут в фоне и на ответ не влияют.
func (s *ActionService) Choose(ctx context.Context, account, sceneAddr, choice string) (model.ActionPostResponse, error) {
	reader, err := ledger.ParseAddress(account)
	if err != nil {
		return model.ActionPostResponse{}, err
	}
	readerKey := reader.String()
	log := s.logger.With(zap.String("reader", readerKey))

	head := s.deps.Store.Head(readerKey)
	from := head
	if sceneAddr != "" {
		addr, err := solana.PublicKeyFromBase58(strings.TrimSpace(sceneAddr))
		if err != nil || !s.deps.Store.Offered(addr) {
			return model.ActionPostResponse{}, fmt.Errorf("%w: %q", model.ErrUnknownScene, sceneAddr)
		}
		from = addr
	}
	scene, err := s.deps.Scenes.Resolve(ctx, from)
	if err != nil {
		return model.ActionPostResponse{}, fmt.Errorf("failed to resolve current scene: %w", err)
	}
	if !scene.HasChoice(choice) {
		return model.ActionPostResponse{}, fmt.Errorf("%w: %q", model.ErrUnknownChoice, choice)
	}

	progress, created, err := s.deps.Progress.Ensure(ctx, reader)
	if err != nil {
		return model.ActionPostResponse{}, fmt.Errorf("failed to ensure progress account: %w", err)
	}
	if created {
		log.Info("Progress account created", zap.String("progress", progress.String()))
	}

	lamports := s.deps.Fees.ComputeFee(ctx)
	tag := s.deps.Tags.Issue()

	tx, err := s.deps.Builder.Build(ctx, reader, lamports, tag)
	if err != nil {
		return model.ActionPostResponse{}, fmt.Errorf("failed to build transaction: %w", err)
	}
	encoded, err := ledger.EncodeUnsigned(tx)
	if err != nil {
		return model.ActionPostResponse{}, fmt.Errorf("failed to encode transaction: %w", err)
	}

	log.Info("Choice transaction built",
		zap.String("choice", choice),
		zap.String("tag", tag),
		zap.Uint64("lamports", lamports),
		zap.String("head", head.String()),
		zap.String("from", from.String()),
	)

	s.launch(gatedRun{
		reader:    reader,
		head:      head,
		from:      from,
		scene:     scene,
		choice:    choice,
		tag:       tag,
		progress:  progress,
		createdAt: time.Now(),
	})

	return model.ActionPostResponse{Transaction: encoded, Message: s.opts.Message}, nil
}

func (s *ActionService) launch(run gatedRun) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		outcome := s.runGated(s.runCtx, run)
		gatedRuns.WithLabelValues(outcome).Inc()
	}()
}

// runGated ждет оплату и, если она найдена, генерирует и минтит следующую сцену.
// Возвращает метку исхода для метрики.
func (s *ActionService) runGated(ctx context.Context, g gatedRun) string {
	readerKey := g.reader.String()
	log := s.logger.With(zap.String("reader", readerKey), zap.String("tag", g.tag))

	match := s.deps.Watcher.Await(ctx, g.reader, g.tag)
	s.deps.Tags.Release(g.tag)
	if !match.Found {
		log.Info("Payment not observed, story unchanged", zap.Int("checks", match.Checks))
		return "not_observed"
	}
	log = log.With(zap.String("signature", match.Signature))

	if !s.deps.Store.ClaimSignature(match.Signature) {
		log.Warn("Signature already used by another run")
		return "duplicate_signature"
	}

	unlock := s.deps.Store.Lock(readerKey)
	defer unlock()

	if current := s.deps.Store.Head(readerKey); !current.Equals(g.head) {
		log.Info("Story head moved while waiting, run abandoned",
			zap.String("expected", g.head.String()),
			zap.String("current", current.String()),
		)
		return "stale_head"
	}

	consequence, err := s.deps.Narrator.Consequence(ctx, readerKey, g.scene.Description, g.choice)
	if err != nil {
		log.Error("Consequence generation failed", zap.Error(err))
		return "narrative_failed"
	}
	next, err := s.deps.Narrator.NextScene(ctx, readerKey, g.scene.Description+"\n\n"+consequence)
	if err != nil {
		log.Error("Next scene generation failed", zap.Error(err))
		return "narrative_failed"
	}

	scene := model.Scene{
		Title:       next.Title,
		Description: consequence + " " + next.Text,
		Choices:     next.Choices,
	}
	if err := scene.Validate(); err != nil {
		log.Error("Generated scene rejected", zap.Error(err))
		return "narrative_failed"
	}

	progress := g.progress
	run := pipeline.NewRun(uuid.NewString(), readerKey, scene, &progress)
	if err := s.deps.Pipeline.Execute(ctx, run); err != nil {
		var serr *pipeline.StageError
		if errors.As(err, &serr) {
			log.Error("Asset pipeline failed", zap.String("run_id", run.ID), zap.String("step", serr.Step), zap.Stringer("reached", serr.Reached), zap.Error(serr.Err))
		} else {
			log.Error("Asset pipeline failed", zap.String("run_id", run.ID), zap.Error(err))
		}
		return "pipeline_failed"
	}

	s.deps.Store.Remember(run.Asset, run.Scene)
	if err := s.deps.Store.Advance(readerKey, g.head, run.Asset); err != nil {
		// Под блокировкой читателя не ожидается
		log.Error("Story head not advanced", zap.String("asset", run.Asset.String()), zap.Error(err))
		return "stale_head"
	}
	log.Info("Story advanced",
		zap.String("previous", g.head.String()),
		zap.String("from", g.from.String()),
		zap.String("scene", run.Asset.String()),
		zap.Duration("elapsed", time.Since(g.createdAt)),
	)

	if s.opts.IncrementChapter {
		if err := s.deps.Progress.IncrementChapter(ctx, g.reader); err != nil {
			log.Warn("Failed to increment chapter", zap.Error(err))
		}
	}

	event := messaging.SceneAdvanced{
		Reader:      readerKey,
		Previous:    g.from.String(),
		Scene:       run.Asset.String(),
		Title:       run.Scene.Title,
		MetadataURI: run.MetadataURI,
		Signature:   match.Signature,
		At:          time.Now().UTC(),
	}
	if err := s.deps.Notifier.NotifySceneAdvanced(ctx, event); err != nil {
		log.Warn("Failed to publish scene event", zap.Error(err))
	}
	return "advanced"
}

// Shutdown ждет завершения фоновых прогонов. Если ctx истекает раньше,
// прогоны отменяются и возвращается ошибка контекста.
func (s *ActionService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelRun()
		return nil
	case <-ctx.Done():
		s.logger.Warn("Shutdown deadline reached, cancelling background runs")
		s.cancelRun()
		<-done
		return ctx.Err()
	}
}
