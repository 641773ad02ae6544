package model

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/superres/internal/infer"
)

// Network is a model inspected by ONNX Runtime and reconciled with its
// metadata file.
type Network struct {
	modelPath    string
	channelOrder string
	inputs       []infer.PortInfo
	outputs      []infer.PortInfo
	native       map[string]ort.TensorElementDataType
	batch        int
	compiled     bool
}

var _ infer.Network = (*Network)(nil)

func newNetwork(modelPath string, metadata Metadata, inputInfo, outputInfo []ort.InputOutputInfo) (*Network, error) {
	n := &Network{
		modelPath:    modelPath,
		channelOrder: metadata.ChannelOrder,
		native:       make(map[string]ort.TensorElementDataType),
		batch:        1,
	}
	var err error
	if n.inputs, err = n.mergePorts("input", inputInfo, metadata.Inputs); err != nil {
		return nil, err
	}
	if n.outputs, err = n.mergePorts("output", outputInfo, metadata.Outputs); err != nil {
		return nil, err
	}
	if len(n.inputs) > 0 && n.inputs[0].Shape.N() > 0 {
		n.batch = int(n.inputs[0].Shape.N())
	}
	return n, nil
}

// mergePorts orders the model ports as the metadata lists them, followed
// by any port the metadata leaves out, and fills dynamic C, H and W
// dimensions from the metadata shapes.
func (n *Network) mergePorts(kind string, infos []ort.InputOutputInfo, declared []PortMetadata) ([]infer.PortInfo, error) {
	byName := make(map[string]ort.InputOutputInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	var ports []infer.PortInfo
	seen := make(map[string]bool)
	for _, d := range declared {
		info, ok := byName[d.Name]
		if !ok {
			return nil, fmt.Errorf("%s %q from metadata is not in model %s", kind, d.Name, n.modelPath)
		}
		shape, err := mergeShape(infer.Shape(info.Dimensions), infer.Shape(d.Shape))
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, d.Name, err)
		}
		ports = append(ports, n.port(info, shape))
		seen[d.Name] = true
	}
	for _, info := range infos {
		if !seen[info.Name] {
			ports = append(ports, n.port(info, infer.NewShape(info.Dimensions...)))
		}
	}
	return ports, nil
}

// port converts info. Values that are not tensors carry no element type.
func (n *Network) port(info ort.InputOutputInfo, shape infer.Shape) infer.PortInfo {
	n.native[info.Name] = info.DataType
	return infer.PortInfo{
		Name:      info.Name,
		Shape:     shape,
		Precision: precisionOf(info.DataType),
		Tensor:    info.DataType != ort.TensorElementDataTypeUndefined,
	}
}

func mergeShape(model, declared infer.Shape) (infer.Shape, error) {
	if len(declared) == 0 {
		return model.Clone(), nil
	}
	if len(model) != len(declared) {
		return nil, fmt.Errorf("inconsistent shape: model %s, metadata %s", model, declared)
	}
	out := model.Clone()
	for i := range out {
		switch {
		case i == 0 && out[i] < 0:
			// a dynamic batch stays dynamic; SetBatchSize fills it
		case out[i] < 0:
			out[i] = declared[i]
		case declared[i] >= 0 && declared[i] != out[i]:
			return nil, fmt.Errorf("inconsistent shape: model %s, metadata %s", model, declared)
		}
	}
	return out, nil
}

func precisionOf(t ort.TensorElementDataType) infer.Precision {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return infer.FP32
	case ort.TensorElementDataTypeFloat16:
		return infer.FP16
	case ort.TensorElementDataTypeUint8:
		return infer.U8
	}
	return infer.PrecisionUnspecified
}

func (n *Network) Inputs() []infer.PortInfo  { return clonePorts(n.inputs) }
func (n *Network) Outputs() []infer.PortInfo { return clonePorts(n.outputs) }
func (n *Network) BatchSize() int            { return n.batch }

// ChannelOrder is the plane order named by the metadata, empty for default.
func (n *Network) ChannelOrder() string { return n.channelOrder }

// SetBatchSize fails when the model pins a port's leading dimension to
// another value.
func (n *Network) SetBatchSize(size int) error {
	if n.compiled {
		return errors.New("batch size cannot change after the network is compiled")
	}
	if size < 1 {
		return fmt.Errorf("invalid batch size %d", size)
	}
	for _, p := range append(n.Inputs(), n.Outputs()...) {
		if b := p.Shape.N(); b > 0 && int(b) != size {
			return fmt.Errorf("model fixes the batch of %s to %d, cannot run %d images", p.Name, b, size)
		}
	}
	n.batch = size
	return nil
}

// SetOutputPrecision accepts FP32 only; the model must produce float.
func (n *Network) SetOutputPrecision(name string, p infer.Precision) error {
	if n.compiled {
		return errors.New("output precision cannot change after the network is compiled")
	}
	for i := range n.outputs {
		if n.outputs[i].Name != name {
			continue
		}
		if p != infer.FP32 {
			return fmt.Errorf("output %s: precision %s is not supported", name, p)
		}
		if n.native[name] != ort.TensorElementDataTypeFloat {
			return fmt.Errorf("output %s: cannot convert %s to FP32", name, n.outputs[i].Precision)
		}
		n.outputs[i].Precision = p
		return nil
	}
	return fmt.Errorf("no output %q", name)
}

func (n *Network) compile() error {
	for _, p := range append(n.Inputs(), n.Outputs()...) {
		if !p.Tensor {
			return fmt.Errorf("port %s is not a tensor", p.Name)
		}
		if n.native[p.Name] != ort.TensorElementDataTypeFloat {
			return fmt.Errorf("port %s has element type %s, only float is bound", p.Name, p.Precision)
		}
		if shape := p.Shape.WithBatch(n.batch); !shape.Static() {
			return fmt.Errorf("port %s has dynamic shape %s; declare it in the metadata file", p.Name, shape)
		}
	}
	n.compiled = true
	return nil
}

func clonePorts(ports []infer.PortInfo) []infer.PortInfo {
	out := make([]infer.PortInfo, len(ports))
	for i, p := range ports {
		p.Shape = p.Shape.Clone()
		out[i] = p
	}
	return out
}
