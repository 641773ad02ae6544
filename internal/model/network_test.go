package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/superres/internal/infer"
)

func info(name string, dims ...int64) ort.InputOutputInfo {
	return ort.InputOutputInfo{
		Name:       name,
		Dimensions: ort.NewShape(dims...),
		DataType:   ort.TensorElementDataTypeFloat,
	}
}

func TestNewNetworkOrdersAndFillsShapes(t *testing.T) {
	meta := Metadata{
		Inputs: []PortMetadata{
			{Name: "lr", Shape: []int64{-1, 3, 270, 480}},
			{Name: "bic", Shape: []int64{1, 3, 1080, 1920}},
		},
		ChannelOrder: "RGB",
	}
	inputs := []ort.InputOutputInfo{info("bic", -1, 3, -1, -1), info("lr", -1, 3, -1, -1)}
	outputs := []ort.InputOutputInfo{info("sr", -1, 3, 1080, 1920)}

	n, err := newNetwork("m.onnx", meta, inputs, outputs)
	if err != nil {
		t.Fatalf("newNetwork: %v", err)
	}
	in := n.Inputs()
	if len(in) != 2 || in[0].Name != "lr" || in[1].Name != "bic" {
		t.Fatalf("inputs = %+v", in)
	}
	if got := in[0].Shape.String(); got != "[?,3,270,480]" {
		t.Errorf("lr shape = %s", got)
	}
	if got := in[1].Shape.String(); got != "[?,3,1080,1920]" {
		t.Errorf("bic shape = %s", got)
	}
	if n.BatchSize() != 1 || n.ChannelOrder() != "RGB" {
		t.Errorf("batch %d order %q", n.BatchSize(), n.ChannelOrder())
	}
	out := n.Outputs()
	if len(out) != 1 || !out[0].Tensor || out[0].Precision != infer.FP32 {
		t.Errorf("outputs = %+v", out)
	}
}

func TestNewNetworkRejectsInconsistentMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
	}{
		{"unknown port", Metadata{Inputs: []PortMetadata{{Name: "nope"}}}},
		{"rank", Metadata{Inputs: []PortMetadata{{Name: "lr", Shape: []int64{1, 3, 128}}}}},
		{"dimension", Metadata{Inputs: []PortMetadata{{Name: "lr", Shape: []int64{1, 3, 64, 64}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newNetwork("m.onnx", tt.meta, []ort.InputOutputInfo{info("lr", 1, 3, 128, 128)}, nil)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNetworkBatchAndPrecision(t *testing.T) {
	n, err := newNetwork("m.onnx", Metadata{},
		[]ort.InputOutputInfo{info("lr", -1, 3, 8, 8)},
		[]ort.InputOutputInfo{info("sr", -1, 3, 32, 32)})
	if err != nil {
		t.Fatalf("newNetwork: %v", err)
	}
	if err := n.SetBatchSize(4); err != nil {
		t.Fatalf("SetBatchSize: %v", err)
	}
	if err := n.SetOutputPrecision("sr", infer.FP32); err != nil {
		t.Fatalf("SetOutputPrecision: %v", err)
	}
	if err := n.SetOutputPrecision("sr", infer.FP16); err == nil {
		t.Error("FP16 should be rejected")
	}
	if err := n.SetOutputPrecision("missing", infer.FP32); err == nil {
		t.Error("unknown output should be rejected")
	}
	if err := n.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := n.SetBatchSize(2); err == nil {
		t.Error("batch change after compile should fail")
	}
}

func TestNetworkDeclaredBatchStaysDynamic(t *testing.T) {
	meta := Metadata{
		Inputs:  []PortMetadata{{Name: "lr", Shape: []int64{1, 3, 128, 128}}},
		Outputs: []PortMetadata{{Name: "sr", Shape: []int64{1, 3, 512, 512}}},
	}
	n, err := newNetwork("m.onnx", meta,
		[]ort.InputOutputInfo{info("lr", -1, 3, -1, -1)},
		[]ort.InputOutputInfo{info("sr", -1, 3, -1, -1)})
	if err != nil {
		t.Fatalf("newNetwork: %v", err)
	}
	if got := n.Inputs()[0].Shape.String(); got != "[?,3,128,128]" {
		t.Errorf("lr shape = %s", got)
	}
	if err := n.SetBatchSize(2); err != nil {
		t.Fatalf("SetBatchSize(2): %v", err)
	}
	if err := n.SetOutputPrecision("sr", infer.FP32); err != nil {
		t.Fatal(err)
	}
	if err := n.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if n.BatchSize() != 2 {
		t.Errorf("batch = %d", n.BatchSize())
	}
}

func TestNetworkFixedBatch(t *testing.T) {
	n, err := newNetwork("m.onnx", Metadata{}, []ort.InputOutputInfo{info("lr", 1, 3, 8, 8)}, nil)
	if err != nil {
		t.Fatalf("newNetwork: %v", err)
	}
	if err := n.SetBatchSize(1); err != nil {
		t.Errorf("SetBatchSize(1): %v", err)
	}
	if err := n.SetBatchSize(3); err == nil || !strings.Contains(err.Error(), "fixes the batch") {
		t.Errorf("SetBatchSize(3) = %v", err)
	}
}

func TestNetworkCompileRejects(t *testing.T) {
	half := info("sr", 1, 3, 8, 8)
	half.DataType = ort.TensorElementDataTypeFloat16
	seq := info("seq", 1)
	seq.DataType = ort.TensorElementDataTypeUndefined

	tests := []struct {
		name    string
		outputs []ort.InputOutputInfo
	}{
		{"float16", []ort.InputOutputInfo{half}},
		{"sequence", []ort.InputOutputInfo{seq}},
		{"dynamic", []ort.InputOutputInfo{info("sr", 1, 3, -1, -1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newNetwork("m.onnx", Metadata{}, []ort.InputOutputInfo{info("lr", 1, 3, 8, 8)}, tt.outputs)
			if err != nil {
				t.Fatalf("newNetwork: %v", err)
			}
			if err := n.compile(); err == nil {
				t.Error("expected compile error")
			}
		})
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{
		"description": "x4 super resolution",
		"inputs": [{"name": "0", "shape": [1, 3, 270, 480]}, {"name": "1"}],
		"outputs": [{"name": "90"}],
		"channel_order": "BGR"
	}`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMetadata(good)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if len(m.Inputs) != 2 || m.Inputs[0].Shape[3] != 480 || m.Outputs[0].Name != "90" || m.ChannelOrder != "BGR" {
		t.Errorf("metadata = %+v", m)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"inputs": [{"shape": [1]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMetadata(bad); err == nil {
		t.Error("expected error for nameless port")
	}
	if _, err := LoadMetadata(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
