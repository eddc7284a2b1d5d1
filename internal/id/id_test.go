package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortedAndUnique(t *testing.T) {
	const n = 100

	seen := make(map[string]struct{}, n)
	var prev string
	for i := 0; i < n; i++ {
		v := New()
		require.Len(t, v, 26)
		assert.Greater(t, v, prev)
		seen[v] = struct{}{}
		prev = v
	}
	assert.Len(t, seen, n)
}
