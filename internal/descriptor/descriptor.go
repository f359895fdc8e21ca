package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors reported by descriptor validation.
var (
	ErrNoFiles            = errors.New("descriptor declares no files")
	ErrDuplicateFile      = errors.New("duplicate file name in descriptor")
	ErrBadChecksum        = errors.New("sha256 must be 64 hexadecimal characters")
	ErrBadSize            = errors.New("file size must be positive")
	ErrMissingSource      = errors.New("file source URL is required")
	ErrUnknownPostprocess = errors.New("unknown postprocessing step type")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrUnknownArchiveFile = errors.New("postprocessing references an undeclared file")
	ErrUnknownTaskType    = errors.New("unknown task_type")
	ErrUnknownFramework   = errors.New("unknown framework")
)

// PostprocessUnpack is the only postprocessing step type the packaging
// descriptor supports: unpack a downloaded archive in place.
const PostprocessUnpack = "unpack_archive"

var taskTypes = map[string]bool{
	"classification":   true,
	"detection":        true,
	"segmentation":     true,
	"face_recognition": true,
}

var frameworks = map[string]bool{
	"caffe":  true,
	"dldt":   true,
	"mxnet":  true,
	"tf":     true,
	"tflite": true,
}

var archiveFormats = map[string]bool{
	"gztar": true,
	"zip":   true,
}

// File is one downloadable entry of a model package.
type File struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
	Source string `yaml:"source"`
}

// Postprocessing is a fixed step applied after download.
type Postprocessing struct {
	Type   string `yaml:"$type"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Model is a parsed model.yml packaging descriptor. The model name is taken
// from the directory holding the descriptor, matching the zoo layout
// models/<collection>/<name>/model.yml.
type Model struct {
	Name               string           `yaml:"-"`
	Description        string           `yaml:"description"`
	TaskType           string           `yaml:"task_type"`
	Files              []File           `yaml:"files"`
	Postprocessing     []Postprocessing `yaml:"postprocessing"`
	ModelOptimizerArgs []string         `yaml:"model_optimizer_args"`
	Framework          string           `yaml:"framework"`
	License            string           `yaml:"license"`
}

// Load parses and validates a single model.yml.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}

	var m Model
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	m.Name = filepath.Base(filepath.Dir(path))

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor %s: %w", path, err)
	}
	return &m, nil
}

// LoadAll walks modelsDir and parses every model.yml underneath it.
func LoadAll(modelsDir string) ([]*Model, error) {
	var models []*Model
	err := filepath.Walk(modelsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != "model.yml" {
			return nil
		}
		m, err := Load(path)
		if err != nil {
			return err
		}
		models = append(models, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// Validate checks the descriptor against the packaging schema.
func (m *Model) Validate() error {
	if m.TaskType != "" && !taskTypes[m.TaskType] {
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, m.TaskType)
	}
	if m.Framework != "" && !frameworks[m.Framework] {
		return fmt.Errorf("%w: %q", ErrUnknownFramework, m.Framework)
	}
	if len(m.Files) == 0 {
		return ErrNoFiles
	}

	seen := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		if f.Name == "" {
			return errors.New("file name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateFile, f.Name)
		}
		seen[f.Name] = true
		if f.Size <= 0 {
			return fmt.Errorf("%w: %q", ErrBadSize, f.Name)
		}
		if !validSHA256(f.SHA256) {
			return fmt.Errorf("%w: %q", ErrBadChecksum, f.Name)
		}
		if f.Source == "" {
			return fmt.Errorf("%w: %q", ErrMissingSource, f.Name)
		}
	}

	for _, p := range m.Postprocessing {
		if p.Type != PostprocessUnpack {
			return fmt.Errorf("%w: %q", ErrUnknownPostprocess, p.Type)
		}
		if !archiveFormats[p.Format] {
			return fmt.Errorf("%w: %q", ErrUnsupportedArchive, p.Format)
		}
		if !seen[p.File] {
			return fmt.Errorf("%w: %q", ErrUnknownArchiveFile, p.File)
		}
	}
	return nil
}

// OptimizerArg returns the value of a --name=value converter argument,
// or "" when the flag is absent or value-less.
func (m *Model) OptimizerArg(name string) string {
	prefix := "--" + name + "="
	for _, a := range m.ModelOptimizerArgs {
		if strings.HasPrefix(a, prefix) {
			return strings.TrimPrefix(a, prefix)
		}
	}
	return ""
}

// InputShape parses the fixed --input_shape converter argument,
// e.g. "[1,3,224,224]".
func (m *Model) InputShape() ([]int, error) {
	v := m.OptimizerArg("input_shape")
	if v == "" {
		return nil, errors.New("descriptor has no --input_shape argument")
	}
	v = strings.TrimPrefix(strings.TrimSuffix(v, "]"), "[")
	parts := strings.Split(v, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad input_shape element %q: %w", p, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

func validSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
