package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dguevar1/open-model-zoo/internal/config"
)

type options struct {
	inputs       []string
	modelPath    string
	labelPath    string
	device       string
	threads      int
	iterations   int
	perfCounts   bool
	bboxName     string
	probName     string
	proposalName string
	threshold    float64
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "object_detection_demo",
	Short: "Faster-RCNN style object detection demo",
	Long: "Loads a converted detection network into the TensorFlow Lite runtime, grafts a\n" +
		"DetectionOutput post-processing step onto the region-proposal outputs, runs a\n" +
		"timed inference loop and writes annotated out_<batch_id>.bmp files.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := opts.validate(); err != nil {
			return err
		}
		return runDemo(opts)
	},
}

func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogger(cfg)
	applyDefaults(cfg)
	return rootCmd.Execute()
}

func init() {
	// Shared between the root run and the serve subcommand.
	rootCmd.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "", "path to the converted .tflite network")
	rootCmd.PersistentFlags().StringVar(&opts.labelPath, "labels", "", "path to a class labels file")
	rootCmd.PersistentFlags().StringVarP(&opts.device, "device", "d", "CPU", "device target (CPU or TPU)")
	rootCmd.PersistentFlags().IntVar(&opts.threads, "threads", 0, "CPU interpreter threads")
	rootCmd.PersistentFlags().StringVar(&opts.bboxName, "bbox_name", "bbox_pred", "name of the bbox regression output tensor")
	rootCmd.PersistentFlags().StringVar(&opts.probName, "prob_name", "cls_prob", "name of the classification probability output tensor")
	rootCmd.PersistentFlags().StringVar(&opts.proposalName, "proposal_name", "proposal", "name of the region proposal output tensor")
	rootCmd.PersistentFlags().Float64VarP(&opts.threshold, "threshold", "t", 0.5, "confidence threshold for drawn detections")

	rootCmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "path to an input image (repeatable)")
	rootCmd.Flags().IntVar(&opts.iterations, "ni", 1, "number of inference iterations")
	rootCmd.Flags().BoolVar(&opts.perfCounts, "pc", false, "report per-stage performance")
}

// applyDefaults layers environment defaults under the flag values; flags
// passed on the command line still win at parse time.
func applyDefaults(cfg *config.Config) {
	opts.device = cfg.Device
	opts.threads = cfg.Threads
}

var (
	errParameterNI = errors.New("parameter --ni should be greater than 0 (default: 1)")
	errParameterI  = errors.New("parameter -i is not set")
	errParameterM  = errors.New("parameter -m is not set")
	errTensorNames = errors.New("output tensor names must not be empty")
)

func (o options) validate() error {
	if o.iterations < 1 {
		return errParameterNI
	}
	if len(o.inputs) == 0 {
		return errParameterI
	}
	if o.modelPath == "" {
		return errParameterM
	}
	if o.bboxName == "" || o.probName == "" || o.proposalName == "" {
		return errTensorNames
	}
	if o.threshold < 0 || o.threshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", o.threshold)
	}
	return nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
