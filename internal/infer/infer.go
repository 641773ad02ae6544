// Package infer declares the contracts the super resolution pipeline needs
// from an inference runtime. Implementations live elsewhere (internal/model
// for onnxruntime, internal/infer/infertest for tests).
package infer

import (
	"path/filepath"
	"strings"
	"time"
)

// KeyConfigFile is the SetConfig key for a device extension description file.
const KeyConfigFile = "CONFIG_FILE"

// CompanionExt is the extension of the file that accompanies every model.
const CompanionExt = ".json"

type Precision int

const (
	PrecisionUnspecified Precision = iota
	FP32
	FP16
	U8
)

func (p Precision) String() string {
	switch p {
	case FP32:
		return "FP32"
	case FP16:
		return "FP16"
	case U8:
		return "U8"
	}
	return "UNSPECIFIED"
}

// PortInfo describes one network input or output.
// Tensor is false when the port carries something the pipeline cannot bind
// (maps, sequences, or a port the runtime could not describe).
type PortInfo struct {
	Name      string
	Shape     Shape
	Precision Precision
	Tensor    bool
}

// Blob is a float32 view over a request buffer. Data aliases backend memory,
// so writes land directly in the tensor the runtime reads.
type Blob struct {
	Name  string
	Shape Shape
	Data  []float32
}

// Plane returns the h*w slice of channel c for batch element n.
func (b *Blob) Plane(n, c int) []float32 {
	size := int(b.Shape.H() * b.Shape.W())
	off := (n*int(b.Shape.C()) + c) * size
	return b.Data[off : off+size]
}

// LayerCounter is one row of runtime performance statistics.
type LayerCounter struct {
	Layer    string
	Status   string
	Type     string
	ExecType string
	RealTime time.Duration
	CPUTime  time.Duration
}

// Backend is a handle to an inference runtime bound to one device.
type Backend interface {
	Version() string
	AddExtension(path string) error
	SetConfig(key, value string) error
	ReadNetwork(modelPath, companionPath string) (Network, error)
	LoadNetwork(net Network) (Executable, error)
	Close() error
}

// Network is a loaded, not yet compiled model. Batch size and output
// precision may only be changed before LoadNetwork.
type Network interface {
	Inputs() []PortInfo
	Outputs() []PortInfo
	SetBatchSize(n int) error
	BatchSize() int
	SetOutputPrecision(name string, p Precision) error
}

// Layout is implemented by networks whose metadata names the color plane
// order ("BGR" or "RGB") of their image tensors.
type Layout interface {
	ChannelOrder() string
}

type Executable interface {
	CreateInferRequest() (Request, error)
	Close() error
}

// Request owns the input and output buffers of one compiled network.
// It is not safe for concurrent use.
type Request interface {
	Blob(name string) (*Blob, error)
	Infer() error
	PerformanceCounts() ([]LayerCounter, error)
	Close() error
}

// CompanionPath returns the path of the file expected next to a model:
// same directory and basename, CompanionExt extension.
func CompanionPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + CompanionExt
}
