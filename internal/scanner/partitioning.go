package scanner

import (
	"fmt"
	"hash/fnv"
)

// Partition selects the share of the symbol universe one scanner instance
// analyzes when several run side by side
type Partition struct {
	workerID     int
	totalWorkers int
}

// NewPartition creates a partition for worker workerID of totalWorkers
func NewPartition(workerID, totalWorkers int) (*Partition, error) {
	if workerID < 0 {
		return nil, fmt.Errorf("worker ID must be non-negative, got %d", workerID)
	}
	if totalWorkers <= 0 {
		return nil, fmt.Errorf("total workers must be positive, got %d", totalWorkers)
	}
	if workerID >= totalWorkers {
		return nil, fmt.Errorf("worker ID %d must be less than total workers %d", workerID, totalWorkers)
	}
	return &Partition{workerID: workerID, totalWorkers: totalWorkers}, nil
}

// WorkerFor returns the worker owning symbol: fnv32a(symbol) mod totalWorkers
func (p *Partition) WorkerFor(symbol string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return int(h.Sum32() % uint32(p.totalWorkers))
}

// Owns reports whether this worker analyzes symbol
func (p *Partition) Owns(symbol string) bool {
	return symbol != "" && p.WorkerFor(symbol) == p.workerID
}

// Filter returns the owned symbols, preserving order
func (p *Partition) Filter(symbols []string) []string {
	owned := make([]string, 0, len(symbols)/p.totalWorkers+1)
	for _, s := range symbols {
		if p.Owns(s) {
			owned = append(owned, s)
		}
	}
	return owned
}
