package watcher

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Match - результат ожидания. Found=false означает "оплата не замечена", это не ошибка.
type Match struct {
	Found     bool
	Signature string
	Checks    int
}

// Watcher ждет транзакцию плательщика с заданным тегом в memo.
type Watcher interface {
	Await(ctx context.Context, payer solana.PublicKey, tag string) Match
}

var (
	watcherChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebook_watcher_checks_total",
			Help: "Signature history checks by result.",
		},
		[]string{"result"}, // match, miss, rpc_error
	)
	watcherOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebook_watcher_outcomes_total",
			Help: "Correlation outcomes by strategy.",
		},
		[]string{"strategy", "outcome"},
	)
)

func outcome(m Match) string {
	if m.Found {
		return "matched"
	}
	return "exhausted"
}
