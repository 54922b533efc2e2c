package counter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceStartsAfterSeed(t *testing.T) {
	seq := NewSequence(1)

	assert.Equal(t, int64(1), seq.Current())
	assert.Equal(t, int64(2), seq.Next())
	assert.Equal(t, int64(3), seq.Next())
	assert.Equal(t, int64(3), seq.Current())
}

func TestSequenceConcurrentValuesAreDistinct(t *testing.T) {
	seq := NewSequence(1)

	const workers = 7
	values := make([]int64, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i] = seq.Next()
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, v := range values {
		assert.False(t, seen[v], "value %d issued twice", v)
		assert.GreaterOrEqual(t, v, int64(2))
		assert.LessOrEqual(t, v, int64(workers+1))
		seen[v] = true
	}
	assert.Equal(t, int64(workers+1), seq.Current())
}
