// Package pipeline drives one super resolution run: it binds images to a
// network, times the inference loop and writes the reconstructed images.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/config"
	"github.com/Brownie44l1/superres/internal/imaging"
	"github.com/Brownie44l1/superres/internal/infer"
)

// Options carries the validated parameters and the injected collaborators.
type Options struct {
	Params  config.Params
	Backend infer.Backend
	Codec   imaging.Codec
	Logger  logrus.FieldLogger
	// Clock times the inference loop. Defaults to time.Now.
	Clock func() time.Time
	// Out receives the latency line and performance counters.
	Out io.Writer
}

// Report summarizes a finished run.
type Report struct {
	Accepted    []string
	Skipped     []Skipped
	BatchSize   int
	Latency     Latency
	OutputShape infer.Shape
	Written     []string
}

// OutputName is the file name of the i-th result, counting from 0.
func OutputName(i int) string {
	return fmt.Sprintf("sr_%d.png", i+1)
}

func (o *Options) setDefaults() {
	if o.Codec == nil {
		o.Codec = imaging.Default
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

// Run executes every stage in order. Any error is a *StageError; images
// that cannot be used are reported in Report.Skipped instead.
func Run(opts Options) (*Report, error) {
	opts.setDefaults()
	p := opts.Params
	log := opts.Logger
	if err := p.Validate(); err != nil {
		return nil, fail(StageInputs, err)
	}
	report := &Report{}

	names, err := config.ExpandInputs(p.Inputs)
	if err != nil {
		return nil, fail(StageInputs, err)
	}

	if p.CPUExtension != "" {
		if err := opts.Backend.AddExtension(p.CPUExtension); err != nil {
			return nil, fail(StageDevice, err)
		}
		log.Infof("CPU Extension loaded: %s", p.CPUExtension)
	}
	if p.GPUExtension != "" {
		if err := opts.Backend.SetConfig(infer.KeyConfigFile, p.GPUExtension); err != nil {
			return nil, fail(StageDevice, err)
		}
		log.Infof("GPU Extension loaded: %s", p.GPUExtension)
	}

	log.Info("Loading network files")
	net, err := opts.Backend.ReadNetwork(p.ModelPath, infer.CompanionPath(p.ModelPath))
	if err != nil {
		return nil, fail(StageLoad, err)
	}

	log.Info("Preparing input blobs")
	binding, err := bindInputs(net)
	if err != nil {
		return nil, fail(StageBind, err)
	}
	order, err := channelOrder(net)
	if err != nil {
		return nil, fail(StageBind, err)
	}
	images, accepted, skipped := CollectImages(opts.Codec, names, int(binding.lr.Shape.W()), int(binding.lr.Shape.H()), log)
	report.Accepted, report.Skipped = accepted, skipped
	if len(images) == 0 {
		return report, fail(StageBind, ErrNoValidImages)
	}

	if err := net.SetBatchSize(len(images)); err != nil {
		return report, fail(StageBind, err)
	}
	report.BatchSize = net.BatchSize()
	log.Infof("Batch size is %d", report.BatchSize)

	log.Info("Preparing output blobs")
	outputName, err := bindOutputs(net)
	if err != nil {
		return report, fail(StageOutputs, err)
	}

	log.Info("Loading model to the plugin")
	exe, err := opts.Backend.LoadNetwork(net)
	if err != nil {
		return report, fail(StageCompile, err)
	}
	defer exe.Close()

	log.Info("Create infer request")
	req, err := exe.CreateInferRequest()
	if err != nil {
		return report, fail(StageCompile, err)
	}
	defer req.Close()

	if err := fillInputs(req, binding, images, opts.Codec, order); err != nil {
		return report, fail(StageFill, err)
	}

	log.Infof("Start inference (%d iterations)", p.Iterations)
	report.Latency, err = measure(req, p.Iterations, opts.Clock)
	if err != nil {
		return report, fail(StageInfer, err)
	}
	fmt.Fprintf(opts.Out, "\nAverage running time of one iteration: %g ms\n", report.Latency.Average)

	if p.PerfCounters {
		counters, err := req.PerformanceCounts()
		if err != nil {
			return report, fail(StageInfer, err)
		}
		if err := infer.WritePerformanceCounts(opts.Out, counters); err != nil {
			return report, fail(StageInfer, err)
		}
	}

	results, shape, err := Materialize(req, outputName, order)
	report.OutputShape = shape
	if shape != nil {
		logOutputSize(log, shape)
	}
	if err != nil {
		return report, fail(StageResult, err)
	}
	if err := writeResults(opts, results, report); err != nil {
		return report, fail(StageResult, err)
	}
	return report, nil
}

// writeResults optionally shows and then saves every result. Save errors
// are logged and the image is left out of report.Written.
func writeResults(opts Options, results []image.Image, report *Report) error {
	log := opts.Logger
	dir := opts.Params.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnf("Cannot create output directory %s: %v", dir, err)
	}

	show := opts.Params.Show
	for i, img := range results {
		if show {
			fmt.Fprintln(opts.Out, "To close the application, press 'CTRL+C' or any key with focus on the output window")
			err := opts.Codec.Show("result", img)
			if errors.Is(err, imaging.ErrDisplayUnavailable) {
				log.Warn("Result display is not available in this build, continuing without it")
				show = false
			} else if err != nil {
				return err
			}
		}

		name := filepath.Join(dir, OutputName(i))
		if err := opts.Codec.Encode(name, img); err != nil {
			log.Warnf("Cannot write %s: %v", name, err)
			continue
		}
		report.Written = append(report.Written, name)
	}
	return nil
}
