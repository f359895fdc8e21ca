package main

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dguevar1/open-model-zoo/internal/engine"
	"github.com/dguevar1/open-model-zoo/internal/postprocess"
	"github.com/dguevar1/open-model-zoo/internal/stats"
	"github.com/dguevar1/open-model-zoo/internal/vision"
)

// runDemo is the whole sample: load network, graft DetectionOutput onto the
// raw region-proposal outputs, run a timed loop, decode and write bitmaps.
func runDemo(o options) error {
	var labels []string
	if o.labelPath != "" {
		var err error
		labels, err = vision.LoadLabels(o.labelPath)
		if err != nil {
			return fmt.Errorf("load labels: %w", err)
		}
	}

	log.WithFields(log.Fields{"model": o.modelPath, "device": o.device}).Info("loading network")
	eng, err := engine.New(engine.Config{ModelPath: o.modelPath, Device: o.device, Threads: o.threads})
	if err != nil {
		return err
	}
	defer eng.Close()

	input := eng.Input()
	inputShape := engine.Shape(input)
	if len(inputShape) != 4 {
		return fmt.Errorf("demo supports 4D image inputs, network input has %d dims", len(inputShape))
	}
	batchSize, inputHeight, inputWidth := inputShape[0], inputShape[1], inputShape[2]
	log.Infof("batch size is %d", batchSize)

	bboxT, err := eng.OutputByName(o.bboxName)
	if err != nil {
		return err
	}
	probT, err := eng.OutputByName(o.probName)
	if err != nil {
		return err
	}
	proposalT, err := eng.OutputByName(o.proposalName)
	if err != nil {
		return err
	}

	var mats []gocv.Mat
	var widths, heights []int
	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()
	for _, path := range o.inputs {
		img, err := vision.ReadImage(path)
		if err != nil {
			log.Warnf("image %s cannot be read, skipping", path)
			continue
		}
		mats = append(mats, img)
		widths = append(widths, img.Cols())
		heights = append(heights, img.Rows())
	}
	if len(mats) == 0 {
		return errors.New("valid input images were not found")
	}

	batch := batchSize
	if len(mats) != batchSize {
		log.Warnf("number of images %d doesn't match batch size %d", len(mats), batchSize)
		batch = min(batchSize, len(mats))
		log.Warnf("%d images will be processed", batch)
	}

	fillStart := time.Now()
	for batchID := 0; batchID < batch; batchID++ {
		if err := vision.FillInput(input, mats[batchID], batchID); err != nil {
			return fmt.Errorf("fill input tensor: %w", err)
		}
	}
	fillTime := time.Since(fillStart)

	log.Infof("start inference (%d iterations)", o.iterations)
	total, err := eng.Run(o.iterations)
	if err != nil {
		return err
	}

	decodeStart := time.Now()
	bbox, err := engine.Floats(bboxT)
	if err != nil {
		return err
	}
	prob, err := engine.Floats(probT)
	if err != nil {
		return err
	}
	proposal, err := engine.Floats(proposalT)
	if err != nil {
		return err
	}

	detOut, err := postprocess.New(postprocess.DefaultParams(inputWidth, inputHeight),
		len(bbox), len(prob), len(proposal))
	if err != nil {
		return err
	}
	log.Infof("num_classes guessed: %d", detOut.NumClasses())

	raw := detOut.Execute(bbox, prob, proposal)
	dets := postprocess.Decode(raw, widths[:batch], heights[:batch], float32(o.threshold))
	decodeTime := time.Since(decodeStart)

	for i, d := range dets {
		fmt.Printf("[%d,%d] element, prob = %.6f    (%d,%d)-(%d,%d) batch id : %d\n",
			i, d.Label, d.Confidence,
			d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y, d.ImageID)
	}

	for batchID := 0; batchID < batch; batchID++ {
		vision.DrawDetections(&mats[batchID], dets, labels, batchID)
		name := fmt.Sprintf("out_%d.bmp", batchID)
		if err := vision.WriteBMP(name, mats[batchID]); err != nil {
			return err
		}
		log.Infof("image %s created", name)
	}

	report := stats.Report{Total: total, Iterations: o.iterations, BatchSize: batch}
	fmt.Println(report.String())

	if o.perfCounts {
		fmt.Printf("input fill: %.2f ms\npost-processing: %.2f ms\n",
			float64(fillTime)/float64(time.Millisecond),
			float64(decodeTime)/float64(time.Millisecond))
	}

	log.Info("execution successful")
	return nil
}
