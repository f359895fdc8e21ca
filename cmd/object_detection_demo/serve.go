package main

import (
	"fmt"
	"image"
	"net/http"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/dguevar1/open-model-zoo/internal/engine"
	"github.com/dguevar1/open-model-zoo/internal/middleware"
	"github.com/dguevar1/open-model-zoo/internal/postprocess"
	"github.com/dguevar1/open-model-zoo/internal/vision"
)

var (
	serveAddr string
	staticDir string
)

var serveCmd = &cobra.Command{
	Use:           "serve",
	Short:         "Serve the detection model over HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(opts)
	},
}

type detectionItem struct {
	Box       image.Rectangle `json:"box"`
	Score     float32         `json:"score"`
	ClassID   int             `json:"class_id"`
	ClassName string          `json:"class_name"`
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&staticDir, "static", "./static", "static assets directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(o options) error {
	if o.modelPath == "" {
		return errParameterM
	}
	if o.bboxName == "" || o.probName == "" || o.proposalName == "" {
		return errTensorNames
	}

	var labels []string
	if o.labelPath != "" {
		var err error
		labels, err = vision.LoadLabels(o.labelPath)
		if err != nil {
			return err
		}
	}

	eng, err := engine.New(engine.Config{ModelPath: o.modelPath, Device: o.device, Threads: o.threads})
	if err != nil {
		return err
	}
	defer eng.Close()

	inputShape := engine.Shape(eng.Input())
	if len(inputShape) != 4 {
		return fmt.Errorf("demo supports 4D image inputs, network input has %d dims", len(inputShape))
	}
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

	detOut, err := postprocess.New(
		postprocess.DefaultParams(inputShape[2], inputShape[1]),
		len(bbox), len(prob), len(proposal))
	if err != nil {
		return err
	}

	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(static.Serve("/", static.LocalFile(staticDir, false)))

	router.POST("/runmodel", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		img, err := gocv.IMDecode(body, gocv.IMReadColor)
		if err != nil || img.Empty() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image cannot be decoded"})
			return
		}
		defer img.Close()

		if err := vision.FillInput(eng.Input(), img, 0); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := eng.Invoke(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		bbox, err := engine.Floats(bboxT)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		prob, err := engine.Floats(probT)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		proposal, err := engine.Floats(proposalT)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		raw := detOut.Execute(bbox, prob, proposal)
		dets := postprocess.Decode(raw, []int{img.Cols()}, []int{img.Rows()}, float32(o.threshold))

		items := make([]detectionItem, 0, len(dets))
		for _, d := range dets {
			items = append(items, detectionItem{
				Box:       d.Box,
				Score:     d.Confidence,
				ClassID:   d.Label,
				ClassName: vision.Label(labels, d.Label),
			})
		}
		c.JSON(http.StatusOK, items)
	})

	log.Infof("serving on %s", serveAddr)
	return router.Run(serveAddr)
}
