package input

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Value ranges of a generated array.
const (
	MaxValue  = 50
	MinHidden = -60
)

var ErrInvalidSize = errors.New("invalid array size")

// Generate builds an array of length values in [0, MaxValue] with hidden
// markers in [MinHidden, -1] at exactly hidden distinct positions. The same
// seed always yields the same array.
func Generate(length, hidden int, seed int64) ([]int, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be positive, got %d", ErrInvalidSize, length)
	}
	if hidden < 0 || hidden > length {
		return nil, fmt.Errorf("%w: hidden must be in [0, %d], got %d", ErrInvalidSize, length, hidden)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	array := make([]int, length)
	for i := range array {
		array[i] = rng.IntN(MaxValue + 1)
	}

	for _, pos := range pickPositions(rng, length, hidden) {
		array[pos] = -(rng.IntN(-MinHidden) + 1)
	}
	return array, nil
}

// pickPositions draws n distinct indices in [0, length).
func pickPositions(rng *rand.Rand, length, n int) []int {
	if n*2 > length {
		return rng.Perm(length)[:n]
	}
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		p := rng.IntN(length)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CountHidden returns the number of hidden markers in array.
func CountHidden(array []int) int {
	n := 0
	for _, v := range array {
		if v < 0 {
			n++
		}
	}
	return n
}
