// Package engine wraps the TensorFlow Lite interpreter behind the small
// surface the detection demo needs: device selection, named tensor lookup
// and a timed inference loop.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates/edgetpu"
	log "github.com/sirupsen/logrus"
)

var (
	ErrLoadModel      = errors.New("cannot load model")
	ErrInterpreter    = errors.New("cannot create interpreter")
	ErrAllocate       = errors.New("tensor allocation failed")
	ErrUnknownDevice  = errors.New("unknown device target")
	ErrNoDevice       = errors.New("no device of the requested type found")
	ErrTensorNotFound = errors.New("output tensor not found")
	ErrInvoke         = errors.New("inference invocation failed")
	ErrTensorType     = errors.New("unsupported tensor type")
)

// Config selects the model file and execution target.
type Config struct {
	ModelPath string
	Device    string // "CPU" or "TPU"
	Threads   int
}

// Engine owns one loaded model and its interpreter.
type Engine struct {
	model  *tflite.Model
	interp *tflite.Interpreter
}

// New loads the model and builds an interpreter for the requested device.
func New(cfg Config) (*Engine, error) {
	model := tflite.NewModelFromFile(cfg.ModelPath)
	if model == nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadModel, cfg.ModelPath)
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()

	threads := cfg.Threads
	if threads <= 0 {
		threads = 4
	}
	options.SetNumThread(threads)

	switch strings.ToUpper(cfg.Device) {
	case "", "CPU":
	case "TPU":
		devices, err := edgetpu.DeviceList()
		if err != nil {
			model.Delete()
			return nil, fmt.Errorf("list edge TPU devices: %w", err)
		}
		if len(devices) == 0 {
			model.Delete()
			return nil, fmt.Errorf("%w: TPU", ErrNoDevice)
		}
		options.AddDelegate(edgetpu.New(devices[0]))
		log.WithField("device", devices[0].Path).Info("edge TPU delegate attached")
	default:
		model.Delete()
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, cfg.Device)
	}

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		model.Delete()
		return nil, ErrInterpreter
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		model.Delete()
		return nil, ErrAllocate
	}
	return &Engine{model: model, interp: interp}, nil
}

func (e *Engine) Close() {
	e.interp.Delete()
	e.model.Delete()
}

// Input returns the image input tensor.
func (e *Engine) Input() *tflite.Tensor {
	return e.interp.GetInputTensor(0)
}

// OutputByName resolves one of the demo's required output tensors. A miss
// reports the names that do exist so a wrong flag is easy to spot.
func (e *Engine) OutputByName(name string) (*tflite.Tensor, error) {
	var names []string
	for idx := 0; idx < e.interp.GetOutputTensorCount(); idx++ {
		t := e.interp.GetOutputTensor(idx)
		if t.Name() == name {
			return t, nil
		}
		names = append(names, t.Name())
	}
	return nil, fmt.Errorf("%w: %q (have: %s)", ErrTensorNotFound, name, strings.Join(names, ", "))
}

func (e *Engine) Invoke() error {
	if status := e.interp.Invoke(); status != tflite.OK {
		return ErrInvoke
	}
	return nil
}

// Run invokes inference the requested number of times, returning the
// accumulated wall-clock duration.
func (e *Engine) Run(iterations int) (time.Duration, error) {
	var total time.Duration
	for i := 0; i < iterations; i++ {
		t0 := time.Now()
		if err := e.Invoke(); err != nil {
			return total, err
		}
		total += time.Since(t0)
	}
	return total, nil
}

// Shape returns a tensor's dimensions.
func Shape(t *tflite.Tensor) []int {
	shape := make([]int, 0, t.NumDims())
	for idx := 0; idx < t.NumDims(); idx++ {
		shape = append(shape, t.Dim(idx))
	}
	return shape
}

// Floats copies a tensor's data out as float32, dequantizing uint8 tensors.
func Floats(t *tflite.Tensor) ([]float32, error) {
	switch t.Type() {
	case tflite.UInt8:
		return dequantize(t.UInt8s()), nil
	case tflite.Float32:
		f := t.Float32s()
		loc := make([]float32, len(f))
		copy(loc, f)
		return loc, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrTensorType, t.Type())
	}
}

func dequantize(f []uint8) []float32 {
	loc := make([]float32, len(f))
	for i, v := range f {
		loc[i] = float32(v) / 255
	}
	return loc
}
