// Command superres reconstructs high resolution images with a super
// resolution network and writes them as sr_<n>.png.
package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/config"
	"github.com/Brownie44l1/superres/internal/model"
	"github.com/Brownie44l1/superres/internal/pipeline"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = new(logrus.TextFormatter)
	log.Out = os.Stderr
	log.Level = logrus.InfoLevel
}

func main() {
	os.Exit(run(os.Args, os.Getenv))
}

// run is the single error boundary: every failure, panics included, ends
// up as exit status 1.
func run(args []string, getenv func(string) string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Unknown/internal exception happened: %v", r)
			code = 1
		}
	}()

	params, err := config.Parse(args[0], args[1:], getenv, os.Stdout)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Error(err)
		return 1
	}

	log.Info("Loading Inference Engine")
	backend, err := model.NewRuntime(model.Options{
		Device:      params.Device,
		LibraryPath: params.PluginPath,
		Logger:      log,
	})
	if err != nil {
		log.Error(err)
		return 1
	}
	defer backend.Close()
	log.Info("InferenceEngine: " + backend.Version())

	report, err := pipeline.Run(pipeline.Options{
		Params:  params,
		Backend: backend,
		Logger:  log,
		Out:     os.Stdout,
	})
	if err != nil {
		log.Error(err)
		return 1
	}
	for _, name := range report.Written {
		log.Infof("Image %s created!", name)
	}
	log.Info("Execution successful")
	return 0
}
