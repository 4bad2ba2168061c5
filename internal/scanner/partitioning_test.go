package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartition(t *testing.T) {
	_, err := NewPartition(0, 1)
	assert.NoError(t, err)

	_, err = NewPartition(-1, 2)
	assert.Error(t, err)

	_, err = NewPartition(0, 0)
	assert.Error(t, err)

	_, err = NewPartition(2, 2)
	assert.Error(t, err)
}

func TestPartition_FilterCoversUniverseOnce(t *testing.T) {
	symbols := []string{"TQQQ", "SQQQ", "SPY", "QQQ", "IWM", "DIA", "XLF", "XLE", "GLD", "TLT"}
	const workers = 3

	seen := make(map[string]int)
	for id := 0; id < workers; id++ {
		p, err := NewPartition(id, workers)
		require.NoError(t, err)
		for _, s := range p.Filter(symbols) {
			seen[s]++
			assert.Equal(t, id, p.WorkerFor(s))
		}
	}

	assert.Len(t, seen, len(symbols))
	for s, count := range seen {
		assert.Equal(t, 1, count, "symbol %s owned by exactly one worker", s)
	}
}

func TestPartition_SingleWorkerOwnsAll(t *testing.T) {
	p, err := NewPartition(0, 1)
	require.NoError(t, err)

	symbols := []string{"SPY", "QQQ", "IWM"}
	assert.Equal(t, symbols, p.Filter(symbols))
	assert.False(t, p.Owns(""))
}

func TestPartition_Stable(t *testing.T) {
	a, _ := NewPartition(0, 4)
	b, _ := NewPartition(1, 4)
	assert.Equal(t, a.WorkerFor("SPY"), b.WorkerFor("SPY"))
}
