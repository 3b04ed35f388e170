package ai

import (
	"fmt"
	"sync"

	"github.com/danibustillo97/rpa-news/internal/metrics"
)

// Budget caps external generation calls within one run. Zero limits mean
// unlimited. The publish quota bounds saves; this bounds fan-out to the
// rate-sensitive generation service for candidates that never get saved.
type Budget struct {
	mu          sync.Mutex
	rewrites    int
	generations int
	total       int
	maxRewrite  int
	maxGenerate int
	maxTotal    int
}

func NewBudget(maxRewrite, maxGenerate, maxTotal int) *Budget {
	return &Budget{
		maxRewrite:  maxRewrite,
		maxGenerate: maxGenerate,
		maxTotal:    maxTotal,
	}
}

// UseRewrite claims one rewrite call.
func (b *Budget) UseRewrite() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxRewrite > 0 && b.rewrites >= b.maxRewrite {
		return fmt.Errorf("rewrite budget exhausted (%d/%d)", b.rewrites, b.maxRewrite)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total AI budget exhausted (%d/%d)", b.total, b.maxTotal)
	}

	b.rewrites++
	b.total++
	metrics.Global.IncrementAIRequests()
	return nil
}

// UseGenerate claims one content-generation call.
func (b *Budget) UseGenerate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxGenerate > 0 && b.generations >= b.maxGenerate {
		return fmt.Errorf("generation budget exhausted (%d/%d)", b.generations, b.maxGenerate)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total AI budget exhausted (%d/%d)", b.total, b.maxTotal)
	}

	b.generations++
	b.total++
	metrics.Global.IncrementAIRequests()
	return nil
}

// Stats reports current usage.
func (b *Budget) Stats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]int{
		"rewrites":    b.rewrites,
		"generations": b.generations,
		"total":       b.total,
	}
}
