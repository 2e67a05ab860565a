package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFragments(t *testing.T) {
	t.Run("keeps short paragraphs together", func(t *testing.T) {
		fragments := splitFragments("uno\n\ndos\n\ntres", 100)
		require.Len(t, fragments, 1)
		assert.Equal(t, "uno\n\ndos\n\ntres", fragments[0])
	})

	t.Run("splits when limit exceeded", func(t *testing.T) {
		a := strings.Repeat("a", 50)
		b := strings.Repeat("b", 50)
		c := strings.Repeat("c", 50)
		fragments := splitFragments(a+"\n\n"+b+"\n\n"+c, 80)
		require.Len(t, fragments, 3)
		assert.Equal(t, a, fragments[0])
		assert.Equal(t, b, fragments[1])
		assert.Equal(t, c, fragments[2])
	})

	t.Run("oversized paragraph falls back to lines", func(t *testing.T) {
		long := strings.Repeat("x", 60) + "\n" + strings.Repeat("y", 60)
		fragments := splitFragments(long, 80)
		require.Len(t, fragments, 2)
		assert.Equal(t, strings.Repeat("x", 60), fragments[0])
		assert.Equal(t, strings.Repeat("y", 60), fragments[1])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, splitFragments("", 100))
		assert.Empty(t, splitFragments("\n\n  \n\n", 100))
	})
}
