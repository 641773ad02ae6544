// Package infertest provides an in-memory infer.Backend for tests.
package infertest

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/superres/internal/infer"
)

// Backend is a scriptable infer.Backend. Ports are copied into every
// network it reads; Forward runs on each Infer call.
type Backend struct {
	InputPorts  []infer.PortInfo
	OutputPorts []infer.PortInfo

	// Forward fills the output blobs. iter counts Infer calls on the
	// request starting at 1.
	Forward func(iter int, r *Request) error

	Counters []infer.LayerCounter

	// Order is reported by every network's ChannelOrder.
	Order string

	ReadErr      error
	LoadErr      error
	ExtensionErr error

	// CloseErr is returned by every request Close.
	CloseErr error

	Extensions []string
	Config     map[string]string

	// Reads counts ReadNetwork calls; Networks and Requests record every
	// object handed out.
	Reads    int
	Networks []*Network
	Requests []*Request
	Closed   bool

	// ExecutablesClosed counts Executable.Close calls.
	ExecutablesClosed int
}

// Port returns an FP32 tensor port.
func Port(name string, dims ...int64) infer.PortInfo {
	return infer.PortInfo{Name: name, Shape: infer.NewShape(dims...), Precision: infer.FP32, Tensor: true}
}

func (b *Backend) Version() string { return "infertest" }

func (b *Backend) AddExtension(path string) error {
	if b.ExtensionErr != nil {
		return b.ExtensionErr
	}
	b.Extensions = append(b.Extensions, path)
	return nil
}

func (b *Backend) SetConfig(key, value string) error {
	if b.Config == nil {
		b.Config = make(map[string]string)
	}
	b.Config[key] = value
	return nil
}

func (b *Backend) ReadNetwork(modelPath, companionPath string) (infer.Network, error) {
	b.Reads++
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	n := &Network{
		ModelPath:     modelPath,
		CompanionPath: companionPath,
		order:         b.Order,
		inputs:        clonePorts(b.InputPorts),
		outputs:       clonePorts(b.OutputPorts),
		batch:         1,
	}
	b.Networks = append(b.Networks, n)
	return n, nil
}

func (b *Backend) LoadNetwork(net infer.Network) (infer.Executable, error) {
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	n, ok := net.(*Network)
	if !ok {
		return nil, fmt.Errorf("infertest: foreign network %T", net)
	}
	n.compiled = true
	return &Executable{backend: b, net: n}, nil
}

func (b *Backend) Close() error {
	b.Closed = true
	return nil
}

// LastRequest returns the most recently created request, or nil.
func (b *Backend) LastRequest() *Request {
	if len(b.Requests) == 0 {
		return nil
	}
	return b.Requests[len(b.Requests)-1]
}

type Network struct {
	ModelPath     string
	CompanionPath string
	Precisions    map[string]infer.Precision

	order    string
	inputs   []infer.PortInfo
	outputs  []infer.PortInfo
	batch    int
	compiled bool
}

func (n *Network) ChannelOrder() string { return n.order }

func (n *Network) Inputs() []infer.PortInfo  { return clonePorts(n.inputs) }
func (n *Network) Outputs() []infer.PortInfo { return clonePorts(n.outputs) }
func (n *Network) BatchSize() int            { return n.batch }

func (n *Network) SetBatchSize(size int) error {
	if n.compiled {
		return errors.New("infertest: network already compiled")
	}
	if size < 1 {
		return fmt.Errorf("infertest: invalid batch size %d", size)
	}
	n.batch = size
	return nil
}

func (n *Network) SetOutputPrecision(name string, p infer.Precision) error {
	if n.compiled {
		return errors.New("infertest: network already compiled")
	}
	for i := range n.outputs {
		if n.outputs[i].Name == name {
			n.outputs[i].Precision = p
			if n.Precisions == nil {
				n.Precisions = make(map[string]infer.Precision)
			}
			n.Precisions[name] = p
			return nil
		}
	}
	return fmt.Errorf("infertest: no output %q", name)
}

type Executable struct {
	backend *Backend
	net     *Network
}

func (e *Executable) CreateInferRequest() (infer.Request, error) {
	r := &Request{
		Blobs:    make(map[string]*infer.Blob),
		counters: e.backend.Counters,
		forward:  e.backend.Forward,
		closeErr: e.backend.CloseErr,
	}
	for _, p := range append(e.net.Inputs(), e.net.Outputs()...) {
		shape := p.Shape.WithBatch(e.net.batch)
		if !shape.Static() {
			return nil, fmt.Errorf("infertest: port %s has dynamic shape %s", p.Name, shape)
		}
		r.Blobs[p.Name] = &infer.Blob{Name: p.Name, Shape: shape, Data: make([]float32, shape.Size())}
	}
	e.backend.Requests = append(e.backend.Requests, r)
	return r, nil
}

func (e *Executable) Close() error {
	e.backend.ExecutablesClosed++
	return nil
}

type Request struct {
	Blobs map[string]*infer.Blob

	// Calls counts Infer invocations.
	Calls  int
	Closed bool

	counters []infer.LayerCounter
	forward  func(int, *Request) error
	closeErr error
}

func (r *Request) Blob(name string) (*infer.Blob, error) {
	b, ok := r.Blobs[name]
	if !ok {
		return nil, fmt.Errorf("infertest: no blob %q", name)
	}
	return b, nil
}

func (r *Request) Infer() error {
	r.Calls++
	if r.forward == nil {
		return nil
	}
	return r.forward(r.Calls, r)
}

func (r *Request) PerformanceCounts() ([]infer.LayerCounter, error) {
	return append([]infer.LayerCounter(nil), r.counters...), nil
}

func (r *Request) Close() error {
	r.Closed = true
	return r.closeErr
}

func clonePorts(ports []infer.PortInfo) []infer.PortInfo {
	out := make([]infer.PortInfo, len(ports))
	for i, p := range ports {
		p.Shape = p.Shape.Clone()
		out[i] = p
	}
	return out
}
