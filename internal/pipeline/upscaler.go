package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/imaging"
	"github.com/Brownie44l1/superres/internal/infer"
)

// PortSummary describes a network port for API clients.
type PortSummary struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
}

type ModelInfo struct {
	Model        string        `json:"model"`
	Backend      string        `json:"backend"`
	ChannelOrder string        `json:"channel_order"`
	Inputs       []PortSummary `json:"inputs"`
	Outputs      []PortSummary `json:"outputs"`
}

// Upscaler keeps one compiled batch-1 request and serializes calls to it.
type Upscaler struct {
	mu      sync.Mutex
	exe     infer.Executable
	req     infer.Request
	binding inputBinding
	output  string
	order   imaging.ChannelOrder
	codec   imaging.Codec
	log     logrus.FieldLogger
	info    ModelInfo
}

func NewUpscaler(backend infer.Backend, modelPath string, codec imaging.Codec, log logrus.FieldLogger) (*Upscaler, error) {
	if codec == nil {
		codec = imaging.Default
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	net, err := backend.ReadNetwork(modelPath, infer.CompanionPath(modelPath))
	if err != nil {
		return nil, fail(StageLoad, err)
	}
	binding, err := bindInputs(net)
	if err != nil {
		return nil, fail(StageBind, err)
	}
	order, err := channelOrder(net)
	if err != nil {
		return nil, fail(StageBind, err)
	}
	if err := net.SetBatchSize(1); err != nil {
		return nil, fail(StageBind, err)
	}
	output, err := bindOutputs(net)
	if err != nil {
		return nil, fail(StageOutputs, err)
	}

	exe, err := backend.LoadNetwork(net)
	if err != nil {
		return nil, fail(StageCompile, err)
	}
	req, err := exe.CreateInferRequest()
	if err != nil {
		exe.Close()
		return nil, fail(StageCompile, err)
	}
	if blob, err := req.Blob(output); err == nil {
		logOutputSize(log, blob.Shape)
	}

	u := &Upscaler{
		exe:     exe,
		req:     req,
		binding: binding,
		output:  output,
		order:   order,
		codec:   codec,
		log:     log,
		info: ModelInfo{
			Model:        modelPath,
			Backend:      backend.Version(),
			ChannelOrder: order.String(),
			Inputs:       summarize(net.Inputs()),
			Outputs:      summarize(net.Outputs()),
		},
	}
	return u, nil
}

func summarize(ports []infer.PortInfo) []PortSummary {
	out := make([]PortSummary, len(ports))
	for i, p := range ports {
		out[i] = PortSummary{Name: p.Name, Shape: p.Shape.Clone()}
	}
	return out
}

func (u *Upscaler) Info() ModelInfo { return u.info }

// InputSize is the width and height every image passed to Upscale must have.
func (u *Upscaler) InputSize() (width, height int) {
	return int(u.binding.lr.Shape.W()), int(u.binding.lr.Shape.H())
}

// Upscale runs one forward pass on img. It returns ErrSizeMismatch when img
// does not have the low resolution input size.
func (u *Upscaler) Upscale(img image.Image) (image.Image, time.Duration, error) {
	w, h := u.InputSize()
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		return nil, 0, fmt.Errorf("%w: %dx%d, want %dx%d", ErrSizeMismatch, b.Dx(), b.Dy(), w, h)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := fillInputs(u.req, u.binding, []image.Image{img}, u.codec, u.order); err != nil {
		return nil, 0, fail(StageFill, err)
	}
	lat, err := measure(u.req, 1, time.Now)
	if err != nil {
		return nil, 0, fail(StageInfer, err)
	}
	results, _, err := Materialize(u.req, u.output, u.order)
	if err != nil {
		return nil, 0, fail(StageResult, err)
	}
	elapsed := time.Duration(lat.Average * float64(time.Millisecond))
	u.log.Debugf("Upscaled %dx%d in %v", w, h, elapsed)
	return results[0], elapsed, nil
}

func (u *Upscaler) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return errors.Join(u.req.Close(), u.exe.Close())
}
