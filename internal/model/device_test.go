package model

import (
	"strings"
	"testing"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in       string
		provider Provider
		id       int
		typ      string
	}{
		{"", ProviderCPU, 0, ""},
		{"cpu", ProviderCPU, 0, ""},
		{"CUDA", ProviderCUDA, 0, ""},
		{"CUDA:2", ProviderCUDA, 2, ""},
		{"OPENVINO", ProviderOpenVINO, 0, "CPU"},
		{"openvino:GPU.1", ProviderOpenVINO, 0, "GPU.1"},
		{"MYRIAD", ProviderOpenVINO, 0, "MYRIAD"},
		{"HETERO:GPU,CPU", ProviderOpenVINO, 0, "HETERO:GPU,CPU"},
	}
	for _, tt := range tests {
		d, err := ParseDevice(tt.in)
		if err != nil {
			t.Errorf("ParseDevice(%q): %v", tt.in, err)
			continue
		}
		if d.Provider != tt.provider || d.ID != tt.id || d.Type != tt.typ {
			t.Errorf("ParseDevice(%q) = %+v", tt.in, d)
		}
	}
}

func TestParseDeviceRejects(t *testing.T) {
	for _, in := range []string{"FPGA", "CUDA:x", "CUDA:-1", "CPU:1"} {
		if _, err := ParseDevice(in); err == nil {
			t.Errorf("ParseDevice(%q) should fail", in)
		}
	}
}

func TestDeviceString(t *testing.T) {
	d, _ := ParseDevice("CPU")
	if s := d.String(); !strings.HasPrefix(s, "CPU (CPUExecutionProvider) ") {
		t.Errorf("String() = %q", s)
	}
	d, _ = ParseDevice("GPU")
	if s := d.String(); s != "GPU (OpenVINOExecutionProvider)" {
		t.Errorf("String() = %q", s)
	}
}
