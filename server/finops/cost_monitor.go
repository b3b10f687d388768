package finops

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hrygo/jobmatch/internal/profile"
)

// Operations tracked by the cost monitor.
const (
	OperationBackfillJobs  = "backfill_jobs"
	OperationBackfillUsers = "backfill_users"
	OperationMatchAnalysis = "match_analysis"
	OperationRecommend     = "recommend"
)

// Pricing holds the assumptions behind every cost estimate.
// Estimates are approximations, never billed figures.
type Pricing struct {
	EmbeddingTokensPerItem    int
	EmbeddingPerMillionTokens float64
	LLMTokensPerCall          int
	LLMPerMillionTokens       float64
}

// DefaultPricing matches text-embedding-3-small and a small chat model.
func DefaultPricing() Pricing {
	return Pricing{
		EmbeddingTokensPerItem:    300,
		EmbeddingPerMillionTokens: 0.02,
		LLMTokensPerCall:          800,
		LLMPerMillionTokens:       1.0,
	}
}

// PricingFromProfile overrides the embedding assumptions with configured values.
func PricingFromProfile(p *profile.Profile) Pricing {
	pricing := DefaultPricing()
	if p.CostTokensPerItem > 0 {
		pricing.EmbeddingTokensPerItem = p.CostTokensPerItem
	}
	if p.CostPerMillionTokens > 0 {
		pricing.EmbeddingPerMillionTokens = p.CostPerMillionTokens
	}
	return pricing
}

// EstimateEmbeddingCost estimates the cost of embedding items texts.
func (p Pricing) EstimateEmbeddingCost(items int) float64 {
	if items <= 0 {
		return 0
	}
	tokens := float64(items * p.EmbeddingTokensPerItem)
	return tokens / 1_000_000 * p.EmbeddingPerMillionTokens
}

// EstimateLLMCost estimates the cost of calls chat completions.
func (p Pricing) EstimateLLMCost(calls int) float64 {
	if calls <= 0 {
		return 0
	}
	tokens := float64(calls * p.LLMTokensPerCall)
	return tokens / 1_000_000 * p.LLMPerMillionTokens
}

// CostRecord is one priced operation.
type CostRecord struct {
	Timestamp time.Time
	Operation string

	EmbeddingItems int
	LLMCalls       int
	// LLMCallsAvoided counts verdicts served from cache.
	LLMCallsAvoided int

	EmbeddingCost float64
	LLMCost       float64
	TotalCost     float64

	LatencyMs int64
}

// OperationStats aggregates records of one operation.
type OperationStats struct {
	Operation       string
	Count           int64
	EmbeddingItems  int64
	LLMCalls        int64
	LLMCallsAvoided int64
	Cost            float64
	AvgLatency      float64
	LastUpdated     time.Time
}

// CostReport is a snapshot of everything recorded so far.
type CostReport struct {
	TotalCost   float64
	ByOperation map[string]*OperationStats
	TopCosts    []CostRecord
}

const topCostsSize = 10

// CostMonitor keeps per-operation cost totals in memory.
type CostMonitor struct {
	logger  *slog.Logger
	pricing Pricing

	mu        sync.RWMutex
	total     float64
	stats     map[string]*OperationStats
	topCosts  []CostRecord
	latencies map[string]int64
}

// NewCostMonitor creates a cost monitor pricing records with pricing.
func NewCostMonitor(pricing Pricing) *CostMonitor {
	return &CostMonitor{
		logger:    slog.Default(),
		pricing:   pricing,
		stats:     make(map[string]*OperationStats),
		latencies: make(map[string]int64),
	}
}

// Pricing returns the assumptions this monitor prices with.
func (m *CostMonitor) Pricing() Pricing {
	return m.pricing
}

// NewCostRecord prices an operation from its item and call counts.
func (m *CostMonitor) NewCostRecord(operation string, embeddingItems, llmCalls, llmCallsAvoided int, latency time.Duration) *CostRecord {
	embeddingCost := m.pricing.EstimateEmbeddingCost(embeddingItems)
	llmCost := m.pricing.EstimateLLMCost(llmCalls)
	return &CostRecord{
		Timestamp:       time.Now(),
		Operation:       operation,
		EmbeddingItems:  embeddingItems,
		LLMCalls:        llmCalls,
		LLMCallsAvoided: llmCallsAvoided,
		EmbeddingCost:   embeddingCost,
		LLMCost:         llmCost,
		TotalCost:       CalculateTotalCost(embeddingCost, llmCost),
		LatencyMs:       latency.Milliseconds(),
	}
}

// Record adds record to the running totals.
func (m *CostMonitor) Record(ctx context.Context, record *CostRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.Operation == "" {
		m.logger.WarnContext(ctx, "empty operation in cost record")
		return fmt.Errorf("operation cannot be empty")
	}
	if record.TotalCost < 0 {
		m.logger.WarnContext(ctx, "negative total cost in cost record",
			"operation", record.Operation,
			"total_cost", record.TotalCost,
		)
		return fmt.Errorf("total cost cannot be negative")
	}
	if record.LatencyMs < 0 {
		m.logger.WarnContext(ctx, "negative latency in cost record",
			"operation", record.Operation,
			"latency_ms", record.LatencyMs,
		)
		return fmt.Errorf("latency cannot be negative")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	m.mu.Lock()
	stats, ok := m.stats[record.Operation]
	if !ok {
		stats = &OperationStats{Operation: record.Operation}
		m.stats[record.Operation] = stats
	}
	stats.Count++
	stats.EmbeddingItems += int64(record.EmbeddingItems)
	stats.LLMCalls += int64(record.LLMCalls)
	stats.LLMCallsAvoided += int64(record.LLMCallsAvoided)
	stats.Cost += record.TotalCost
	m.latencies[record.Operation] += record.LatencyMs
	stats.AvgLatency = float64(m.latencies[record.Operation]) / float64(stats.Count)
	stats.LastUpdated = record.Timestamp
	m.total += record.TotalCost
	m.addTopCost(*record)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "recorded operation cost",
		"operation", record.Operation,
		"embedding_items", record.EmbeddingItems,
		"llm_calls", record.LLMCalls,
		"llm_calls_avoided", record.LLMCallsAvoided,
		"total_cost", record.TotalCost,
		"latency_ms", record.LatencyMs,
	)
	return nil
}

// addTopCost keeps the most expensive records, highest first. Caller holds mu.
func (m *CostMonitor) addTopCost(record CostRecord) {
	m.topCosts = append(m.topCosts, record)
	sort.SliceStable(m.topCosts, func(i, j int) bool {
		return m.topCosts[i].TotalCost > m.topCosts[j].TotalCost
	})
	if len(m.topCosts) > topCostsSize {
		m.topCosts = m.topCosts[:topCostsSize]
	}
}

// Report returns a copy of the current totals.
func (m *CostMonitor) Report() *CostReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byOperation := make(map[string]*OperationStats, len(m.stats))
	for op, stats := range m.stats {
		copied := *stats
		byOperation[op] = &copied
	}
	return &CostReport{
		TotalCost:   m.total,
		ByOperation: byOperation,
		TopCosts:    append([]CostRecord(nil), m.topCosts...),
	}
}

// CalculateTotalCost sums the cost components.
func CalculateTotalCost(embeddingCost, llmCost float64) float64 {
	return embeddingCost + llmCost
}
