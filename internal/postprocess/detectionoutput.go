// Package postprocess implements the DetectionOutput layer that the demo
// grafts onto a region-proposal network's raw outputs: it turns the bbox
// regression, class probability and proposal tensors into a ranked list of
// bounding boxes, the same format an SSD topology produces natively.
package postprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DetectionSize is the length of one output tuple:
// (image_id, label, confidence, xmin, ymin, xmax, ymax).
const DetectionSize = 7

// Non-normalized proposals carry a batch index ahead of the four corners.
const priorSize = 5

var (
	ErrClassCount  = errors.New("cannot derive number of classes from output dims")
	ErrProposalDim = errors.New("proposal tensor length is not a multiple of the prior size")
	ErrProbDim     = errors.New("probability tensor length does not match priors and classes")
)

// Params are the fixed hyperparameters of the grafted layer. Boxes are
// decoded with the CENTER_SIZE code type and variances encoded in the
// regression targets; locations are per class (no sharing).
type Params struct {
	InputWidth  int
	InputHeight int

	NMSThreshold        float32
	ConfidenceThreshold float32
	TopK                int
	KeepTopK            int
	BackgroundLabel     int
}

// DefaultParams returns the hand-set hyperparameters used by the demo.
func DefaultParams(inputWidth, inputHeight int) Params {
	return Params{
		InputWidth:          inputWidth,
		InputHeight:         inputHeight,
		NMSThreshold:        0.3,
		ConfidenceThreshold: 0.01,
		TopK:                400,
		KeepTopK:            200,
		BackgroundLabel:     0,
	}
}

// NumPriors derives the proposal count from the flattened proposal tensor.
func NumPriors(proposalLen int) (int, error) {
	if proposalLen <= 0 || proposalLen%priorSize != 0 {
		return 0, fmt.Errorf("%w: len %d", ErrProposalDim, proposalLen)
	}
	return proposalLen / priorSize, nil
}

// NumClasses guesses the class count from the regression tensor. A remainder
// means the named output tensors do not belong to this topology.
func NumClasses(bboxLen, numPriors int) (int, error) {
	if numPriors <= 0 || bboxLen%(numPriors*4) != 0 {
		return 0, fmt.Errorf("%w: bbox len %d, %d priors", ErrClassCount, bboxLen, numPriors)
	}
	return bboxLen / (numPriors * 4), nil
}

// DetectionOutput executes the post-processing over raw tensors on the host.
type DetectionOutput struct {
	params     Params
	numPriors  int
	numClasses int
}

// New validates the three raw tensor lengths against each other and derives
// the prior and class counts.
func New(params Params, bboxLen, probLen, proposalLen int) (*DetectionOutput, error) {
	numPriors, err := NumPriors(proposalLen)
	if err != nil {
		return nil, err
	}
	numClasses, err := NumClasses(bboxLen, numPriors)
	if err != nil {
		return nil, err
	}
	if probLen != numPriors*numClasses {
		return nil, fmt.Errorf("%w: prob len %d, want %d", ErrProbDim, probLen, numPriors*numClasses)
	}
	return &DetectionOutput{params: params, numPriors: numPriors, numClasses: numClasses}, nil
}

func (d *DetectionOutput) NumClasses() int { return d.numClasses }
func (d *DetectionOutput) NumPriors() int  { return d.numPriors }

// OutputLen is the size of the flat buffer Execute returns.
func (d *DetectionOutput) OutputLen() int { return d.params.KeepTopK * DetectionSize }

// Execute decodes, scores and suppresses the raw outputs into a flat
// [KeepTopK][7] buffer of normalized-coordinate tuples, ranked by
// confidence. Unused slots have image_id set to -1.
func (d *DetectionOutput) Execute(bbox, prob, proposal []float32) []float32 {
	var kept []candidate
	for c := 0; c < d.numClasses; c++ {
		if c == d.params.BackgroundLabel {
			continue
		}
		cands := d.decodeClass(bbox, prob, proposal, c)
		kept = append(kept, nonMaxSuppression(cands, d.params.NMSThreshold, d.params.TopK)...)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > d.params.KeepTopK {
		kept = kept[:d.params.KeepTopK]
	}

	out := make([]float32, d.OutputLen())
	for i := len(kept) * DetectionSize; i < len(out); i += DetectionSize {
		out[i] = -1
	}
	for i, k := range kept {
		t := out[i*DetectionSize : (i+1)*DetectionSize]
		t[0] = k.imageID
		t[1] = float32(k.label)
		t[2] = k.score
		t[3] = k.box[0]
		t[4] = k.box[1]
		t[5] = k.box[2]
		t[6] = k.box[3]
	}
	return out
}

// decodeClass applies the CENTER_SIZE decoding for one class over all
// priors. Proposals are in input-pixel coordinates; decoded boxes are
// normalized and clipped to [0,1].
func (d *DetectionOutput) decodeClass(bbox, prob, proposal []float32, class int) []candidate {
	w := float32(d.params.InputWidth)
	h := float32(d.params.InputHeight)

	var cands []candidate
	for p := 0; p < d.numPriors; p++ {
		score := prob[p*d.numClasses+class]
		if score < d.params.ConfidenceThreshold {
			continue
		}

		px1 := proposal[p*priorSize+1] / w
		py1 := proposal[p*priorSize+2] / h
		px2 := proposal[p*priorSize+3] / w
		py2 := proposal[p*priorSize+4] / h

		pw := px2 - px1
		ph := py2 - py1
		pcx := (px1 + px2) / 2
		pcy := (py1 + py2) / 2

		o := (p*d.numClasses + class) * 4
		dx, dy := bbox[o], bbox[o+1]
		dw, dh := bbox[o+2], bbox[o+3]

		cx := dx*pw + pcx
		cy := dy*ph + pcy
		bw := float32(math.Exp(float64(dw))) * pw
		bh := float32(math.Exp(float64(dh))) * ph

		cands = append(cands, candidate{
			box: [4]float32{
				clamp01(cx - bw/2),
				clamp01(cy - bh/2),
				clamp01(cx + bw/2),
				clamp01(cy + bh/2),
			},
			score:   score,
			label:   class,
			imageID: proposal[p*priorSize],
		})
	}
	return cands
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
