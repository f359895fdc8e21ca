package vision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("background\nperson\ncar\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "person", "car"}, labels)
}

func TestLoadLabelsMissingFile(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	labels := []string{"background", "person"}

	assert.Equal(t, "person", Label(labels, 1))
	assert.Equal(t, "unknown", Label(labels, 5))
	assert.Equal(t, "unknown", Label(labels, -1))
	assert.Equal(t, "unknown", Label(nil, 0))
}
