package narrative

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebook_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebook_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiPromptTokensEstimated = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebook_ai_prompt_tokens_estimated",
			Help:    "Prompt size in tokens estimated locally before the request.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	narrativeParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamebook_narrative_invalid_output_total",
			Help: "Next-scene responses rejected by validation.",
		},
	)
)

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

// encodingFor кеширует tokenizer по модели; для незнакомых моделей берется cl100k_base.
func encodingFor(model string) *tiktoken.Tiktoken {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()
	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			enc = nil
		}
	}
	encodings[model] = enc
	return enc
}

// EstimateTokens оценивает число токенов промта. 0, если tokenizer недоступен.
func EstimateTokens(model string, texts ...string) int {
	enc := encodingFor(model)
	if enc == nil {
		return 0
	}
	n := 0
	for _, t := range texts {
		n += len(enc.Encode(t, nil, nil))
	}
	return n
}

// tokenEstimation выключается в тестах: tiktoken скачивает словари при первом обращении.
var tokenEstimation = true

func observePromptTokens(model, systemPrompt, userInput string) {
	if !tokenEstimation {
		return
	}
	if n := EstimateTokens(model, systemPrompt, userInput); n > 0 {
		aiPromptTokensEstimated.With(prometheus.Labels{"model": model}).Observe(float64(n))
	}
}
