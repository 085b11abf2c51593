package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("short text is a single chunk", func(t *testing.T) {
		chunks, err := SplitText("short", 1400, 136)
		require.NoError(t, err)
		assert.Equal(t, []string{"short"}, chunks)
	})

	t.Run("long text is split with bounded chunk size", func(t *testing.T) {
		text := strings.Repeat("word and more filler text here ", 200)
		chunks, err := SplitText(text, 100, 20)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 100)
		}
	})

	t.Run("splitting is deterministic", func(t *testing.T) {
		text := strings.Repeat("legislative record text ", 300)
		a, err := SplitText(text, 200, 40)
		require.NoError(t, err)
		b, err := SplitText(text, 200, 40)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestMeanVector(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, MeanVector(nil))
		assert.Nil(t, MeanVector([][]float32{}))
	})

	t.Run("single vector is returned unchanged", func(t *testing.T) {
		v := []float32{1, 2, 3}
		assert.InDeltaSlice(t, v, MeanVector([][]float32{v}), 1e-6)
	})

	t.Run("element-wise mean", func(t *testing.T) {
		got := MeanVector([][]float32{
			{1, 0, 4},
			{3, 2, 0},
		})
		assert.InDeltaSlice(t, []float32{2, 1, 2}, got, 1e-6)
	})

	t.Run("mismatched dimensionality", func(t *testing.T) {
		assert.Nil(t, MeanVector([][]float32{{1, 2}, {1, 2, 3}}))
	})

	t.Run("averaging is deterministic", func(t *testing.T) {
		vs := [][]float32{{0.25, 0.5}, {0.75, 0.1}, {0.33, 0.9}}
		assert.Equal(t, MeanVector(vs), MeanVector(vs))
	})
}
