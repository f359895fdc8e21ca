package postprocess

import "image"

// Detection is one decoded box in pixel coordinates of its source image.
type Detection struct {
	ImageID    int
	Label      int
	Confidence float32
	Box        image.Rectangle
}

// Decode converts the flat DetectionOutput buffer into pixel-space
// detections, scaling each normalized tuple by the dimensions of the image
// its image_id refers to. Tuples with a negative image_id or a confidence
// at or below the threshold are dropped.
func Decode(raw []float32, widths, heights []int, threshold float32) []Detection {
	var dets []Detection
	for i := 0; i+DetectionSize <= len(raw); i += DetectionSize {
		imageID := int(raw[i])
		if imageID < 0 || imageID >= len(widths) {
			continue
		}
		confidence := raw[i+2]
		if confidence <= threshold {
			continue
		}

		w := float32(widths[imageID])
		h := float32(heights[imageID])
		xmin, ymin := raw[i+3], raw[i+4]
		xmax, ymax := raw[i+5], raw[i+6]

		x := int(xmin * w)
		y := int(ymin * h)
		bw := int((xmax - xmin) * w)
		bh := int((ymax - ymin) * h)

		dets = append(dets, Detection{
			ImageID:    imageID,
			Label:      int(raw[i+1]),
			Confidence: confidence,
			Box:        image.Rect(x, y, x+bw, y+bh),
		})
	}
	return dets
}
