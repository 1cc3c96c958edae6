package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess_NormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, "go channels are fun", preprocess("  Go   Channels\nAre\tFun  "))
}

func TestPreprocess_TruncatesOverlongText(t *testing.T) {
	long := make([]byte, maxEmbeddingTextLength+100)
	for i := range long {
		long[i] = 'a'
	}
	result := preprocess(string(long))
	assert.LessOrEqual(t, len(result), maxEmbeddingTextLength)
}

func TestL2Normalize_ProducesUnitVector(t *testing.T) {
	v := l2Normalize([]float32{3, 4})

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-6)
}

func TestL2Normalize_ZeroVectorUnchanged(t *testing.T) {
	v := l2Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}
