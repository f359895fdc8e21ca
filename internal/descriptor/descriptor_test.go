package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYML = `description: test model
task_type: detection
files:
  - name: model.tar.gz
    size: 1024
    sha256: a3f5d1e2b4c6a8f0d2e4b6c8a0f2d4e6b8c0a2f4d6e8b0c2a4f6d8e0b2c4a6f8
    source: https://example.com/model.tar.gz
postprocessing:
  - $type: unpack_archive
    format: gztar
    file: model.tar.gz
model_optimizer_args:
  - --reverse_input_channels
  - --mean_values=data[124.516,116.736,103.936]
  - --scale_values=data[58.624,57.344,57.6]
  - --input_shape=[1,3,224,224]
  - --input=data
  - --output=prob
framework: tf
license: https://example.com/LICENSE
`

func writeDescriptor(t *testing.T, name, content string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "model.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeDescriptor(t, "test-model", sampleYML)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-model", m.Name)
	assert.Equal(t, "detection", m.TaskType)
	assert.Equal(t, "tf", m.Framework)
	require.Len(t, m.Files, 1)
	assert.Equal(t, int64(1024), m.Files[0].Size)
	assert.Equal(t, "https://example.com/model.tar.gz", m.Files[0].Source)
	require.Len(t, m.Postprocessing, 1)
	assert.Equal(t, PostprocessUnpack, m.Postprocessing[0].Type)
	assert.Equal(t, "gztar", m.Postprocessing[0].Format)
	assert.Equal(t, "https://example.com/LICENSE", m.License)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"model-a", "model-b"} {
		sub := filepath.Join(dir, "public", name)
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "model.yml"), []byte(sampleYML), 0o644))
	}

	models, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "model-a", models[0].Name)
	assert.Equal(t, "model-b", models[1].Name)
}

func TestValidate(t *testing.T) {
	base := func() *Model {
		return &Model{
			TaskType:  "detection",
			Framework: "tf",
			Files: []File{{
				Name:   "weights.bin",
				Size:   10,
				SHA256: "a3f5d1e2b4c6a8f0d2e4b6c8a0f2d4e6b8c0a2f4d6e8b0c2a4f6d8e0b2c4a6f8",
				Source: "https://example.com/weights.bin",
			}},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("no files", func(t *testing.T) {
		m := base()
		m.Files = nil
		assert.ErrorIs(t, m.Validate(), ErrNoFiles)
	})

	t.Run("duplicate file", func(t *testing.T) {
		m := base()
		m.Files = append(m.Files, m.Files[0])
		assert.ErrorIs(t, m.Validate(), ErrDuplicateFile)
	})

	t.Run("bad checksum", func(t *testing.T) {
		m := base()
		m.Files[0].SHA256 = "not-hex"
		assert.ErrorIs(t, m.Validate(), ErrBadChecksum)
	})

	t.Run("bad size", func(t *testing.T) {
		m := base()
		m.Files[0].Size = 0
		assert.ErrorIs(t, m.Validate(), ErrBadSize)
	})

	t.Run("missing source", func(t *testing.T) {
		m := base()
		m.Files[0].Source = ""
		assert.ErrorIs(t, m.Validate(), ErrMissingSource)
	})

	t.Run("unknown postprocessing", func(t *testing.T) {
		m := base()
		m.Postprocessing = []Postprocessing{{Type: "regex_replace"}}
		assert.ErrorIs(t, m.Validate(), ErrUnknownPostprocess)
	})

	t.Run("unsupported archive format", func(t *testing.T) {
		m := base()
		m.Postprocessing = []Postprocessing{{Type: PostprocessUnpack, Format: "7z", File: "weights.bin"}}
		assert.ErrorIs(t, m.Validate(), ErrUnsupportedArchive)
	})

	t.Run("undeclared archive file", func(t *testing.T) {
		m := base()
		m.Postprocessing = []Postprocessing{{Type: PostprocessUnpack, Format: "gztar", File: "other.tar.gz"}}
		assert.ErrorIs(t, m.Validate(), ErrUnknownArchiveFile)
	})

	t.Run("unknown task type", func(t *testing.T) {
		m := base()
		m.TaskType = "pose"
		assert.ErrorIs(t, m.Validate(), ErrUnknownTaskType)
	})

	t.Run("unknown framework", func(t *testing.T) {
		m := base()
		m.Framework = "torch7"
		assert.ErrorIs(t, m.Validate(), ErrUnknownFramework)
	})
}

func TestOptimizerArg(t *testing.T) {
	path := writeDescriptor(t, "args-model", sampleYML)
	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data", m.OptimizerArg("input"))
	assert.Equal(t, "prob", m.OptimizerArg("output"))
	assert.Equal(t, "", m.OptimizerArg("reverse_input_channels"))
	assert.Equal(t, "", m.OptimizerArg("no_such_flag"))
}

func TestInputShape(t *testing.T) {
	path := writeDescriptor(t, "shape-model", sampleYML)
	m, err := Load(path)
	require.NoError(t, err)

	shape, err := m.InputShape()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 224, 224}, shape)
}

func TestInputShapeMissing(t *testing.T) {
	m := &Model{}
	_, err := m.InputShape()
	assert.Error(t, err)
}
