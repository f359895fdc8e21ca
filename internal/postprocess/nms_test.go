package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaccardOverlap(t *testing.T) {
	a := [4]float32{0, 0, 0.5, 0.5}

	assert.InDelta(t, 1.0, jaccardOverlap(a, a), 1e-6)
	assert.Zero(t, jaccardOverlap(a, [4]float32{0.5, 0.5, 1, 1}), "disjoint boxes")

	// Half of a overlaps a same-sized box shifted by half its width:
	// inter = 0.125, union = 0.375.
	b := [4]float32{0.25, 0, 0.75, 0.5}
	assert.InDelta(t, 1.0/3.0, jaccardOverlap(a, b), 1e-6)
}

func TestNonMaxSuppression(t *testing.T) {
	cands := []candidate{
		{box: [4]float32{0, 0, 0.5, 0.5}, score: 0.9},
		{box: [4]float32{0.01, 0.01, 0.5, 0.5}, score: 0.8}, // near-duplicate
		{box: [4]float32{0.6, 0.6, 1, 1}, score: 0.7},
	}

	kept := nonMaxSuppression(cands, 0.3, 0)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].score, 1e-6)
	assert.InDelta(t, 0.7, kept[1].score, 1e-6)
}

func TestNonMaxSuppressionTopK(t *testing.T) {
	cands := []candidate{
		{box: [4]float32{0, 0, 0.1, 0.1}, score: 0.5},
		{box: [4]float32{0.2, 0.2, 0.3, 0.3}, score: 0.9},
		{box: [4]float32{0.4, 0.4, 0.5, 0.5}, score: 0.7},
	}

	// topK=1 truncates after ranking, before suppression.
	kept := nonMaxSuppression(cands, 0.3, 1)
	require.Len(t, kept, 1)
	assert.InDelta(t, 0.9, kept[0].score, 1e-6)
}
