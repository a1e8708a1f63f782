package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/lexcorpus-backend/internal/platform/envutil"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	ingestDocuments *CounterVec
	ingestChunks    *CounterVec
	ingestLatency   *HistogramVec

	retrievalLatency *HistogramVec
	askOutcomes      *CounterVec
	embedCache       *CounterVec
	ocrPages         *Counter

	vectorOps       *CounterVec
	vectorLatency   *HistogramVec
	vectorProvider  *GaugeVec
	vectorBootstrap *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("lex_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("lex_api_request_duration_seconds", "API request latency in seconds.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("lex_api_inflight_requests", "In-flight API requests."),

		llmRequests: NewCounterVec("lex_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("lex_llm_request_duration_seconds", "LLM request latency in seconds.", []string{"model", "endpoint", "status"}, latency),
		llmTokens:   NewCounterVec("lex_llm_tokens_total", "LLM tokens by model/kind.", []string{"model", "kind"}),

		ingestDocuments: NewCounterVec("lex_ingest_documents_total", "Ingested documents by final status.", []string{"status"}),
		ingestChunks:    NewCounterVec("lex_ingest_chunks_total", "Chunks by ingestion outcome.", []string{"outcome"}),
		ingestLatency:   NewHistogramVec("lex_ingest_duration_seconds", "Document ingestion latency in seconds.", []string{"status"}, []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}),

		retrievalLatency: NewHistogramVec("lex_retrieval_duration_seconds", "Retrieval latency in seconds.", []string{"status"}, latency),
		askOutcomes:      NewCounterVec("lex_ask_total", "Answered questions by path.", []string{"path"}),
		embedCache:       NewCounterVec("lex_embedding_cache_total", "Embedding cache lookups by result.", []string{"result"}),
		ocrPages:         NewCounter("lex_ocr_pages_total", "PDF pages whose text came from OCR."),

		vectorOps:       NewCounterVec("lex_vector_store_operations_total", "Vector store operations by provider/operation/status.", []string{"provider", "operation", "status"}),
		vectorLatency:   NewHistogramVec("lex_vector_store_operation_duration_seconds", "Vector store operation latency in seconds.", []string{"provider", "operation", "status"}, latency),
		vectorProvider:  NewGaugeVec("lex_vector_store_provider_active", "Active vector store provider (1 active).", []string{"provider"}),
		vectorBootstrap: NewCounterVec("lex_vector_store_bootstrap_total", "Vector store bootstrap attempts by provider/status/code.", []string{"provider", "status", "code"}),

		dbStats:   NewGaugeVec("lex_db_pool", "Database connection pool stats.", []string{"stat"}),
		redisUp:   NewGauge("lex_redis_up", "Redis availability (1 up, 0 down)."),
		redisPing: NewGauge("lex_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.ingestDocuments, m.ingestChunks, m.ingestLatency,
		m.retrievalLatency, m.askOutcomes, m.embedCache, m.ocrPages,
		m.vectorOps, m.vectorLatency, m.vectorProvider, m.vectorBootstrap,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "0"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveIngest records one finished ingestion with its per-chunk outcome counts.
func (m *Metrics) ObserveIngest(status string, stored, skipped int, dur time.Duration) {
	if m == nil {
		return
	}
	status = orUnknown(status)
	m.ingestDocuments.Inc(status)
	m.ingestLatency.Observe(dur.Seconds(), status)
	if stored > 0 {
		m.ingestChunks.Add(float64(stored), "stored")
	}
	if skipped > 0 {
		m.ingestChunks.Add(float64(skipped), "skipped")
	}
}

func (m *Metrics) ObserveRetrieval(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.retrievalLatency.Observe(dur.Seconds(), orUnknown(status))
}

// IncAsk counts answers by path: completed, guarded or fallback.
func (m *Metrics) IncAsk(path string) {
	if m == nil {
		return
	}
	m.askOutcomes.Inc(orUnknown(path))
}

func (m *Metrics) IncEmbeddingCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.embedCache.Inc("hit")
		return
	}
	m.embedCache.Inc("miss")
}

func (m *Metrics) AddOCRPages(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ocrPages.Add(float64(n))
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider, operation, status = orUnknown(provider), orUnknown(operation), orUnknown(status)
	m.vectorOps.Inc(provider, operation, status)
	m.vectorLatency.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) SetVectorStoreProviderActive(provider string) {
	if m == nil {
		return
	}
	m.vectorProvider.Set(1, orUnknown(provider))
}

func (m *Metrics) ObserveVectorStoreBootstrap(provider, status, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.Inc(orUnknown(provider), orUnknown(status), orUnknown(code))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
