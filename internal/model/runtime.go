// Package model runs super resolution networks with ONNX Runtime.
package model

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/superres/internal/infer"
)

// ErrExtensionUnsupported is returned for CPU extension libraries, which
// ONNX Runtime cannot load.
var ErrExtensionUnsupported = errors.New("extension libraries are not supported by onnxruntime")

type Options struct {
	Device string
	// LibraryPath is the onnxruntime shared library. Empty uses the
	// binding's default lookup.
	LibraryPath string
	Logger      logrus.FieldLogger
}

// Runtime implements infer.Backend on top of onnxruntime_go.
type Runtime struct {
	device     Device
	configFile string
	log        logrus.FieldLogger
}

var _ infer.Backend = (*Runtime)(nil)

func NewRuntime(opts Options) (*Runtime, error) {
	device, err := ParseDevice(opts.Device)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	if opts.LibraryPath != "" {
		if _, err := os.Stat(opts.LibraryPath); err != nil {
			return nil, fmt.Errorf("onnxruntime library: %w", err)
		}
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	log.WithField("device", device.Name).Debug("onnxruntime environment ready")

	return &Runtime{device: device, log: log}, nil
}

func (r *Runtime) Version() string {
	return "onnxruntime_go on " + r.device.String()
}

func (r *Runtime) Device() Device { return r.device }

func (r *Runtime) AddExtension(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("extension %s cannot be located: %w", path, err)
	}
	return fmt.Errorf("%w: %s", ErrExtensionUnsupported, path)
}

func (r *Runtime) SetConfig(key, value string) error {
	if key != infer.KeyConfigFile {
		return fmt.Errorf("unknown config key %q", key)
	}
	if r.device.Provider != ProviderOpenVINO {
		return fmt.Errorf("config file %s needs an OpenVINO device, have %s", value, r.device.Name)
	}
	if _, err := os.Stat(value); err != nil {
		return fmt.Errorf("config file %s cannot be located: %w", value, err)
	}
	r.configFile = value
	return nil
}

func (r *Runtime) ReadNetwork(modelPath, companionPath string) (infer.Network, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	metadata, err := LoadMetadata(companionPath)
	if err != nil {
		return nil, err
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model %s: %w", modelPath, err)
	}
	return newNetwork(modelPath, metadata, inputInfo, outputInfo)
}

func (r *Runtime) LoadNetwork(net infer.Network) (infer.Executable, error) {
	n, ok := net.(*Network)
	if !ok {
		return nil, fmt.Errorf("network %T was not read by onnxruntime", net)
	}
	if err := n.compile(); err != nil {
		return nil, err
	}
	options, err := r.device.sessionOptions(r.configFile)
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"model":    n.modelPath,
		"batch":    n.batch,
		"provider": r.device.Provider,
	}).Debug("network compiled")
	return &Executable{net: n, options: options, provider: r.device.Provider.String()}, nil
}

func (r *Runtime) Close() error {
	return ort.DestroyEnvironment()
}
