package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func never(int) bool { return false }

func TestSelectCandidatePureRotation(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for start := 0; start < n; start++ {
			for _, dir := range []int{+1, -1} {
				visits := make(map[int]int)
				idx := start
				returned := 0
				for i := 0; i < n; i++ {
					var fellBack bool
					idx, fellBack = SelectCandidate(n, idx, dir, never)
					assert.False(t, fellBack)
					visits[idx]++
					if idx == start {
						returned++
					}
				}

				assert.Equal(t, start, idx, "n=%d start=%d dir=%d", n, start, dir)
				assert.Equal(t, 1, returned)
				assert.Len(t, visits, n)
				for i, v := range visits {
					assert.Equal(t, 1, v, "index %d visited %d times", i, v)
				}
			}
		}
	}
}

func TestSelectCandidateSkips(t *testing.T) {
	cooling := map[int]bool{1: true, 2: true}
	skip := func(i int) bool { return cooling[i] }

	idx, fellBack := SelectCandidate(5, 0, +1, skip)
	assert.Equal(t, 3, idx)
	assert.False(t, fellBack)

	idx, fellBack = SelectCandidate(5, 3, -1, skip)
	assert.Equal(t, 0, idx)
	assert.False(t, fellBack)
}

func TestSelectCandidateFallsBack(t *testing.T) {
	all := func(int) bool { return true }

	idx, fellBack := SelectCandidate(3, 2, +1, all)
	assert.Equal(t, 0, idx)
	assert.True(t, fellBack)

	idx, fellBack = SelectCandidate(3, 0, -1, all)
	assert.Equal(t, 2, idx)
	assert.True(t, fellBack)

	idx, fellBack = SelectCandidate(1, 0, +1, all)
	assert.Equal(t, 0, idx)
	assert.False(t, fellBack)

	idx, _ = SelectCandidate(0, 0, +1, all)
	assert.Equal(t, -1, idx)
}
