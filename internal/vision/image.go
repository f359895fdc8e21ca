// Package vision handles image reading, input tensor filling and the
// annotated bitmap output of the detection demo.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mattn/go-tflite"
	"gocv.io/x/gocv"

	"github.com/dguevar1/open-model-zoo/internal/postprocess"
)

var (
	ErrUnreadableImage = errors.New("image cannot be read")
	ErrBadInputType    = errors.New("unsupported input tensor type")
	ErrWriteFailed     = errors.New("cannot create output file")
)

var boxColor = color.RGBA{R: 0, G: 220, B: 0, A: 0}

// ReadImage decodes one image file into a BGR Mat.
func ReadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return img, fmt.Errorf("%w: %s", ErrUnreadableImage, path)
	}
	return img, nil
}

// FillInput resizes img to the input tensor's spatial dimensions and copies
// the pixel data into the given batch slot, converting to the tensor's
// element type. Batched networks get one call per image.
func FillInput(input *tflite.Tensor, img gocv.Mat, batchID int) error {
	shape := make([]int, 0, input.NumDims())
	for idx := 0; idx < input.NumDims(); idx++ {
		shape = append(shape, input.Dim(idx))
	}
	start, end, err := batchRange(shape, batchID)
	if err != nil {
		return err
	}
	wantedHeight := shape[1]
	wantedWidth := shape[2]

	resized := gocv.NewMat()
	defer resized.Close()

	switch input.Type() {
	case tflite.UInt8:
		gocv.Resize(img, &resized, image.Pt(wantedWidth, wantedHeight), 0, 0, gocv.InterpolationDefault)
		v, err := resized.DataPtrUint8()
		if err != nil {
			return err
		}
		copy(input.UInt8s()[start:end], v)
	case tflite.Float32:
		img.ConvertTo(&resized, gocv.MatTypeCV32F)
		gocv.Resize(resized, &resized, image.Pt(wantedWidth, wantedHeight), 0, 0, gocv.InterpolationDefault)
		v, err := resized.DataPtrFloat32()
		if err != nil {
			return err
		}
		dst := input.Float32s()[start:end]
		for i := 0; i < len(v) && i < len(dst); i++ {
			dst[i] = v[i] / 255
		}
	default:
		return fmt.Errorf("%w: %v", ErrBadInputType, input.Type())
	}
	return nil
}

// batchRange returns the [start, end) element range of one batch slot in a
// flat NHWC input buffer.
func batchRange(shape []int, batchID int) (int, int, error) {
	if len(shape) != 4 {
		return 0, 0, fmt.Errorf("input tensor must be 4D, got %d dims", len(shape))
	}
	if batchID < 0 || batchID >= shape[0] {
		return 0, 0, fmt.Errorf("batch id %d outside input batch of %d", batchID, shape[0])
	}
	imageSize := shape[1] * shape[2] * shape[3]
	return batchID * imageSize, (batchID + 1) * imageSize, nil
}

// DrawDetections overlays labeled rectangles for every detection belonging
// to the given batch id.
func DrawDetections(img *gocv.Mat, dets []postprocess.Detection, labels []string, imageID int) {
	for _, d := range dets {
		if d.ImageID != imageID {
			continue
		}
		gocv.Rectangle(img, d.Box, boxColor, 2)
		caption := fmt.Sprintf("%s %.2f", Label(labels, d.Label), d.Confidence)
		gocv.PutText(img, caption, image.Pt(d.Box.Min.X, d.Box.Min.Y-5),
			gocv.FontHersheySimplex, 0.5, boxColor, 1)
	}
}

// WriteBMP writes the annotated image as out_<batch_id>.bmp style output.
func WriteBMP(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("%w: %s", ErrWriteFailed, path)
	}
	return nil
}
