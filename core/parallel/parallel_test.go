package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeWorkers_CoversEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		seen := make([]int32, 100)
		ParallelizeWorkers(len(seen), workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "workers=%d index=%d", workers, i)
		}
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls)

	calls = 0
	ParallelizeWithThreshold(0, 100, func(start, end int) { atomic.AddInt32(&calls, 1) })
	assert.Equal(t, int32(0), calls)
}

func TestSplit(t *testing.T) {
	assert.Nil(t, Split(0, 4))
	assert.Equal(t, []Span{{0, 4}, {4, 8}, {8, 10}}, Split(10, 3))
	assert.Equal(t, []Span{{0, 1}, {1, 2}}, Split(2, 8))
	assert.Equal(t, []Span{{0, 5}}, Split(5, 1))
}
