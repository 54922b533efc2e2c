package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSizes(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		rootLen   int
		workerLen int
	}{
		{name: "exact multiple", length: 800, rootLen: 100, workerLen: 100},
		{name: "remainder folded into root", length: 803, rootLen: 103, workerLen: 100},
		{name: "smaller than pool", length: 5, rootLen: 5, workerLen: 0},
		{name: "single element", length: 1, rootLen: 1, workerLen: 0},
		{name: "sixteen", length: 16, rootLen: 2, workerLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := Plan(tt.length, Workers)
			require.NoError(t, err)

			assert.Equal(t, 0, layout.Root.Start)
			assert.Equal(t, tt.rootLen, layout.Root.Len())
			require.Len(t, layout.Workers, Workers-1)
			for i, seg := range layout.Workers {
				assert.Equal(t, i+1, seg.Index)
				assert.Equal(t, tt.workerLen, seg.Len())
			}
		})
	}
}

func TestPlanCoversWithoutGapsOrOverlap(t *testing.T) {
	for length := 1; length <= 300; length++ {
		layout, err := Plan(length, Workers)
		require.NoError(t, err)

		owners := make([]int, length)
		for i := range owners {
			owners[i] = -1
		}

		total := 0
		next := 0
		for _, seg := range layout.Segments() {
			require.Equal(t, next, seg.Start, "L=%d: gap or overlap before %s", length, seg)
			for i := seg.Start; i < seg.End; i++ {
				require.Equal(t, -1, owners[i], "L=%d: index %d owned twice", length, i)
				owners[i] = seg.Index
			}
			total += seg.Len()
			next = seg.End
		}

		assert.Equal(t, length, total)
		assert.Equal(t, length, next)
	}
}

func TestPlanDeterministic(t *testing.T) {
	a, err := Plan(12345, Workers)
	require.NoError(t, err)
	b, err := Plan(12345, Workers)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPlanErrors(t *testing.T) {
	_, err := Plan(0, Workers)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Plan(-4, Workers)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Plan(100, 4)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestSegmentHelpers(t *testing.T) {
	seg := Segment{Index: 2, Start: 4, End: 8}
	array := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	assert.True(t, seg.Contains(4))
	assert.True(t, seg.Contains(7))
	assert.False(t, seg.Contains(8))
	assert.Equal(t, []int{4, 5, 6, 7}, seg.Slice(array))
	assert.Equal(t, 4, cap(seg.Slice(array)))
	assert.Equal(t, "#2[4,8)", seg.String())
}
