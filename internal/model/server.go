package model

import (
	"fmt"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/superres/internal/infer"
)

// Executable holds a compiled network and the session options for its device.
type Executable struct {
	net      *Network
	options  *ort.SessionOptions
	provider string
}

func (e *Executable) CreateInferRequest() (infer.Request, error) {
	r := &Request{
		provider: e.provider,
		tensors:  make(map[string]*ort.Tensor[float32]),
		blobs:    make(map[string]*infer.Blob),
	}

	inputs, inputNames, err := r.allocate(e.net.Inputs(), e.net.batch)
	if err != nil {
		r.Close()
		return nil, err
	}
	outputs, outputNames, err := r.allocate(e.net.Outputs(), e.net.batch)
	if err != nil {
		r.Close()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(e.net.modelPath,
		inputNames, outputNames,
		inputs, outputs,
		e.options)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	r.session = session
	return r, nil
}

func (e *Executable) Close() error {
	if e.options != nil {
		return e.options.Destroy()
	}
	return nil
}

// Request binds one float32 tensor per port to an AdvancedSession.
type Request struct {
	session  *ort.AdvancedSession
	tensors  map[string]*ort.Tensor[float32]
	blobs    map[string]*infer.Blob
	provider string
	lastRun  time.Duration
	runs     int
}

func (r *Request) allocate(ports []infer.PortInfo, batch int) ([]ort.ArbitraryTensor, []string, error) {
	tensors := make([]ort.ArbitraryTensor, 0, len(ports))
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		shape := p.Shape.WithBatch(batch)
		tensor, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create tensor %s: %w", p.Name, err)
		}
		r.tensors[p.Name] = tensor
		r.blobs[p.Name] = &infer.Blob{Name: p.Name, Shape: shape, Data: tensor.GetData()}
		tensors = append(tensors, tensor)
		names = append(names, p.Name)
	}
	return tensors, names, nil
}

func (r *Request) Blob(name string) (*infer.Blob, error) {
	b, ok := r.blobs[name]
	if !ok {
		return nil, fmt.Errorf("no blob %q", name)
	}
	return b, nil
}

func (r *Request) Infer() error {
	start := time.Now()
	if err := r.session.Run(); err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}
	r.lastRun = time.Since(start)
	r.runs++
	return nil
}

// PerformanceCounts reports the whole session as one layer; the binding
// does not expose per node profiling.
func (r *Request) PerformanceCounts() ([]infer.LayerCounter, error) {
	status := infer.StatusExecuted
	if r.runs == 0 {
		status = infer.StatusNotRun
	}
	return []infer.LayerCounter{{
		Layer:    "session",
		Status:   status,
		Type:     "Session",
		ExecType: r.provider,
		RealTime: r.lastRun,
	}}, nil
}

func (r *Request) Close() error {
	if r.session != nil {
		r.session.Destroy()
		r.session = nil
	}
	for _, t := range r.tensors {
		t.Destroy()
	}
	r.tensors = nil
	r.blobs = nil
	return nil
}
