package watcher

import (
	"context"
	"errors"
	"time"

	"gamebook-server/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Subscriber ждет тег через logsSubscribe. Бюджет времени тот же, что у поллера: maxChecks * delay.
// Если подписка не открылась или оборвалась, остаток бюджета дорабатывает поллер.
type Subscriber struct {
	logs   ledger.LogSubscriber
	poller *Poller
	logger *zap.Logger
}

func NewSubscriber(logs ledger.LogSubscriber, poller *Poller, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		logs:   logs,
		poller: poller,
		logger: logger.Named("Subscriber"),
	}
}

func (s *Subscriber) budget() time.Duration {
	return time.Duration(s.poller.maxChecks) * s.poller.delay
}

func (s *Subscriber) Await(ctx context.Context, payer solana.PublicKey, tag string) Match {
	m, strategy := s.await(ctx, payer, tag)
	watcherOutcomes.WithLabelValues(strategy, outcome(m)).Inc()
	return m
}

func (s *Subscriber) await(ctx context.Context, payer solana.PublicKey, tag string) (Match, string) {
	log := s.logger.With(zap.String("payer", payer.String()), zap.String("tag", tag))
	start := time.Now()
	deadline := start.Add(s.budget())

	sub, err := s.logs.SubscribeMentions(ctx, payer)
	if err != nil {
		log.Warn("Subscription unavailable, falling back to polling", zap.Error(err))
		return s.poller.awaitChecks(ctx, payer, tag, s.poller.maxChecks), "polling_fallback"
	}
	defer sub.Close()

	// Транзакция могла попасть в леджер до открытия подписки
	if sig, ok := s.poller.check(ctx, log, payer, tag); ok {
		log.Info("Correlated transaction found before subscription", zap.String("signature", sig))
		return Match{Found: true, Signature: sig, Checks: 1}, "subscription"
	}

	subCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	events := 0
	for {
		ev, err := sub.Recv(subCtx)
		if err != nil {
			if errors.Is(subCtx.Err(), context.DeadlineExceeded) || ctx.Err() != nil {
				log.Info("Correlated transaction not observed", zap.Int("events", events), zap.Duration("waited", time.Since(start)))
				return Match{Checks: 1}, "subscription"
			}
			remaining := s.remainingChecks(deadline)
			log.Warn("Subscription stream failed, falling back to polling", zap.Error(err), zap.Int("remaining_checks", remaining))
			if remaining == 0 {
				return Match{Checks: 1}, "polling_fallback"
			}
			m := s.poller.awaitChecks(ctx, payer, tag, remaining)
			m.Checks++
			return m, "polling_fallback"
		}
		events++
		if ev.Failed {
			continue
		}
		for _, memo := range ledger.MemoFromLogs(ev.Logs) {
			if memo == tag {
				log.Info("Correlated transaction observed", zap.String("signature", ev.Signature), zap.Int("events", events))
				return Match{Found: true, Signature: ev.Signature, Checks: 1}, "subscription"
			}
		}
	}
}

// remainingChecks переводит оставшееся время в число проверок поллера.
func (s *Subscriber) remainingChecks(deadline time.Time) int {
	left := time.Until(deadline)
	if left <= 0 {
		return 0
	}
	if s.poller.delay <= 0 {
		return s.poller.maxChecks
	}
	n := int(left / s.poller.delay)
	if left%s.poller.delay != 0 {
		n++
	}
	if n > s.poller.maxChecks {
		n = s.poller.maxChecks
	}
	return n
}

var _ Watcher = (*Subscriber)(nil)
