package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesCrawled     int64
	SourcesFailed      int64
	CandidatesFound    int64
	DuplicatesFiltered int64
	GateDrops          int64
	AIRequests         int64
	ArticlesPublished  int64
	PersistFailures    int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementSourcesCrawled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesCrawled++
}

func (m *Metrics) IncrementSourcesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFailed++
}

func (m *Metrics) AddCandidatesFound(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesFound += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementGateDrops() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GateDrops++
}

func (m *Metrics) IncrementAIRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AIRequests++
}

func (m *Metrics) IncrementArticlesPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPublished++
}

func (m *Metrics) IncrementPersistFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistFailures++
}

func (m *Metrics) SetLastRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.LastRunDuration = duration
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_crawled":      m.SourcesCrawled,
		"sources_failed":       m.SourcesFailed,
		"candidates_found":     m.CandidatesFound,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"gate_drops":           m.GateDrops,
		"ai_requests":          m.AIRequests,
		"articles_published":   m.ArticlesPublished,
		"persist_failures":     m.PersistFailures,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
