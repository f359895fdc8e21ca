package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDequantize(t *testing.T) {
	loc := dequantize([]uint8{0, 51, 255})

	assert.Len(t, loc, 3)
	assert.InDelta(t, 0.0, loc[0], 1e-6)
	assert.InDelta(t, 0.2, loc[1], 1e-6)
	assert.InDelta(t, 1.0, loc[2], 1e-6)
}

func TestDequantizeEmpty(t *testing.T) {
	assert.Empty(t, dequantize(nil))
}
