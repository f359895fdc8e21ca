package main

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dguevar1/open-model-zoo/internal/config"
	"github.com/dguevar1/open-model-zoo/internal/descriptor"
	"github.com/dguevar1/open-model-zoo/internal/downloader"
)

var (
	modelName    string
	allModels    bool
	outputDir    string
	modelsDir    string
	printLicense bool
)

var rootCmd = &cobra.Command{
	Use:           "model_downloader",
	Short:         "Download and unpack model packages from their descriptors",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd.Context())
	},
}

func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	initLogger(cfg)
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if modelsDir == "" {
		modelsDir = cfg.ModelsDir
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&modelName, "name", "", "download a single model by name")
	rootCmd.Flags().BoolVar(&allModels, "all", false, "download every model under the models dir")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory to place downloaded files into")
	rootCmd.Flags().StringVar(&modelsDir, "models-dir", "", "directory holding model.yml descriptors")
	rootCmd.Flags().BoolVar(&printLicense, "print-license", false, "print each model's license URL before downloading")
}

func runDownload(ctx context.Context) error {
	if modelName == "" && !allModels {
		return errors.New("either --name or --all is required")
	}

	models, err := descriptor.LoadAll(modelsDir)
	if err != nil {
		return err
	}
	if !allModels {
		models = filterByName(models, modelName)
		if len(models) == 0 {
			return fmt.Errorf("no descriptor found for model %q under %s", modelName, modelsDir)
		}
	}

	d := downloader.New(outputDir)
	for _, m := range models {
		if printLicense {
			fmt.Printf("%s: %s\n", m.Name, m.License)
		}
		log.WithFields(log.Fields{"model": m.Name, "framework": m.Framework}).Info("downloading model package")
		if err := d.Get(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func filterByName(models []*descriptor.Model, name string) []*descriptor.Model {
	var out []*descriptor.Model
	for _, m := range models {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
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
