package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики операций с транзакциями и планами
	LedgerOperations    map[string]int64
	LastLedgerOperation time.Time

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

// Операции, которые учитываются в LedgerOperations
const (
	OpTransactionAdded   = "transaction_added"
	OpTransactionDeleted = "transaction_deleted"
	OpPlanningAdded      = "planning_added"
	OpPlanningDeleted    = "planning_deleted"
)

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		LedgerOperations: make(map[string]int64),
		ErrorTypes:       make(map[string]int64),
	}
}

// GetMetrics возвращает общий экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики запроса; errorType пуст для успешных запросов
func (m *Metrics) RecordRequest(duration time.Duration, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if errorType != "" {
		m.FailedRequests++
		m.recordErrorLocked(errorType)
	}
}

// RecordLedgerOperation записывает успешную операцию с транзакцией или планом
func (m *Metrics) RecordLedgerOperation(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LedgerOperations[operation]++
	m.LastLedgerOperation = time.Now()
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordErrorLocked(errorType)
}

func (m *Metrics) recordErrorLocked(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.ErrorCount++
	m.LastErrorTime = time.Now()
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make(map[string]int64, len(m.LedgerOperations))
	for k, v := range m.LedgerOperations {
		operations[k] = v
	}
	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":     m.TotalRequests,
		"failed_requests":    m.FailedRequests,
		"average_latency_ms": m.AverageLatency.Milliseconds(),
		"ledger_operations":  operations,
		"error_count":        m.ErrorCount,
		"last_error_time":    m.LastErrorTime,
		"error_types":        errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.LedgerOperations = make(map[string]int64)
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
