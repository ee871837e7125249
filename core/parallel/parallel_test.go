package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 100, 1001} {
		counts := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&counts[i], 1)
			}
		})
		for i, c := range counts {
			assert.Equal(t, int32(1), c, "items=%d index=%d", items, i)
		}
	}
}

func TestForEachReturnsFirstErrorByIndex(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	err := ForEach(20, 4, func(i int) error {
		switch i {
		case 5:
			return errA
		case 15:
			return errB
		}
		return nil
	})
	assert.Equal(t, errA, err)

	assert.NoError(t, ForEach(5, 0, func(int) error { return nil }))
}

func TestForEachRecoversPanics(t *testing.T) {
	err := ForEach(8, 2, func(i int) error {
		if i == 3 {
			var tree []int
			_ = tree[i]
		}
		return nil
	})

	var pe *personaErrors.PanicError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "parallel.ForEach[3]", pe.Operation)
}
