package watcher

import (
	"context"
	"time"

	"gamebook-server/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// SignatureHistory - часть ledger.Chain, нужная поллеру.
type SignatureHistory interface {
	RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]ledger.SignatureInfo, error)
}

// Poller проверяет историю подписей плательщика не более maxChecks раз с паузой delay.
type Poller struct {
	history   SignatureHistory
	maxChecks int
	limit     int
	delay     time.Duration
	logger    *zap.Logger
}

func NewPoller(history SignatureHistory, maxChecks, limit int, delay time.Duration, logger *zap.Logger) *Poller {
	if maxChecks < 1 {
		maxChecks = 1
	}
	if limit < 1 {
		limit = 1
	}
	return &Poller{
		history:   history,
		maxChecks: maxChecks,
		limit:     limit,
		delay:     delay,
		logger:    logger.Named("Poller"),
	}
}

func (p *Poller) Await(ctx context.Context, payer solana.PublicKey, tag string) Match {
	m := p.awaitChecks(ctx, payer, tag, p.maxChecks)
	watcherOutcomes.WithLabelValues("polling", outcome(m)).Inc()
	return m
}

// awaitChecks выполняет до n проверок. Ошибка RPC расходует проверку.
func (p *Poller) awaitChecks(ctx context.Context, payer solana.PublicKey, tag string, n int) Match {
	log := p.logger.With(zap.String("payer", payer.String()), zap.String("tag", tag))
	for check := 1; check <= n; check++ {
		if sig, ok := p.check(ctx, log, payer, tag); ok {
			log.Info("Correlated transaction found", zap.String("signature", sig), zap.Int("check", check))
			return Match{Found: true, Signature: sig, Checks: check}
		}
		if check == n {
			break
		}
		select {
		case <-ctx.Done():
			log.Info("Polling cancelled", zap.Int("checks", check), zap.Error(ctx.Err()))
			return Match{Checks: check}
		case <-time.After(p.delay):
		}
	}
	log.Info("Correlated transaction not found", zap.Int("checks", n))
	return Match{Checks: n}
}

// check - одна проверка истории подписей.
func (p *Poller) check(ctx context.Context, log *zap.Logger, payer solana.PublicKey, tag string) (string, bool) {
	sigs, err := p.history.RecentSignatures(ctx, payer, p.limit)
	if err != nil {
		log.Warn("Failed to fetch signatures", zap.Error(err))
		watcherChecks.WithLabelValues("rpc_error").Inc()
		return "", false
	}
	for _, s := range sigs {
		if s.Failed {
			continue
		}
		if ledger.MemoContains(s.Memo, tag) {
			watcherChecks.WithLabelValues("match").Inc()
			return s.Signature, true
		}
	}
	watcherChecks.WithLabelValues("miss").Inc()
	return "", false
}

var _ Watcher = (*Poller)(nil)
