package fee

import (
	"context"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// LamportsPerSOL - число минимальных единиц в одном SOL.
const LamportsPerSOL = 1_000_000_000

var feeComputations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gamebook_fee_computations_total",
		Help: "Fee computations by source (feed or fallback).",
	},
	[]string{"source"},
)

// Oracle переводит целевую сумму в фиате в лампорты.
type Oracle struct {
	source    PriceSource
	targetUSD float64
	fallback  uint64
	logger    *zap.Logger
}

func NewOracle(source PriceSource, targetUSD float64, fallbackLamports uint64, logger *zap.Logger) *Oracle {
	return &Oracle{
		source:    source,
		targetUSD: targetUSD,
		fallback:  fallbackLamports,
		logger:    logger.Named("FeeOracle"),
	}
}

// ComputeFee никогда не возвращает ошибку: любой сбой фида дает фиксированную сумму.
func (o *Oracle) ComputeFee(ctx context.Context) uint64 {
	rate, err := o.source.Price(ctx)
	if err != nil {
		o.logger.Warn("Price feed failed, using fallback fee", zap.Error(err), zap.Uint64("lamports", o.fallback))
		feeComputations.WithLabelValues("fallback").Inc()
		return o.fallback
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		o.logger.Warn("Price feed returned unusable rate, using fallback fee", zap.Float64("rate", rate), zap.Uint64("lamports", o.fallback))
		feeComputations.WithLabelValues("fallback").Inc()
		return o.fallback
	}

	lamports := math.Round(o.targetUSD / rate * LamportsPerSOL)
	if lamports <= 0 || lamports > math.MaxUint64 {
		o.logger.Warn("Computed fee out of range, using fallback fee", zap.Float64("lamports", lamports))
		feeComputations.WithLabelValues("fallback").Inc()
		return o.fallback
	}

	feeComputations.WithLabelValues("feed").Inc()
	o.logger.Debug("Fee computed", zap.Float64("rate", rate), zap.Float64("target_usd", o.targetUSD), zap.Uint64("lamports", uint64(lamports)))
	return uint64(lamports)
}
