package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid/v2"
	ort "github.com/yalue/onnxruntime_go"
)

type Provider int

const (
	ProviderCPU Provider = iota
	ProviderCUDA
	ProviderOpenVINO
)

func (p Provider) String() string {
	switch p {
	case ProviderCUDA:
		return "CUDAExecutionProvider"
	case ProviderOpenVINO:
		return "OpenVINOExecutionProvider"
	}
	return "CPUExecutionProvider"
}

// Device is a parsed -d value.
type Device struct {
	Name     string
	Provider Provider
	// CUDA device ordinal.
	ID int
	// OpenVINO device_type, e.g. GPU, MYRIAD, HETERO:GPU,CPU.
	Type string
}

// ParseDevice maps a device string onto an execution provider.
//
//	CPU                    default CPU provider
//	CUDA, CUDA:<id>        CUDA provider
//	OPENVINO[:<type>]      OpenVINO provider, type defaults to CPU
//	GPU, MYRIAD, HDDL, NPU OpenVINO provider on that device
//	HETERO:..., MULTI:..., AUTO:...  passed to OpenVINO verbatim
func ParseDevice(s string) (Device, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	head, tail, hasTail := strings.Cut(name, ":")

	switch head {
	case "", "CPU":
		if hasTail {
			break
		}
		return Device{Name: "CPU", Provider: ProviderCPU}, nil
	case "CUDA":
		d := Device{Name: name, Provider: ProviderCUDA}
		if hasTail {
			id, err := strconv.Atoi(tail)
			if err != nil || id < 0 {
				return Device{}, fmt.Errorf("invalid CUDA device id in %q", s)
			}
			d.ID = id
		}
		return d, nil
	case "OPENVINO":
		t := "CPU"
		if hasTail && tail != "" {
			t = tail
		}
		return Device{Name: name, Provider: ProviderOpenVINO, Type: t}, nil
	case "GPU", "MYRIAD", "HDDL", "NPU", "HETERO", "MULTI", "AUTO":
		return Device{Name: name, Provider: ProviderOpenVINO, Type: name}, nil
	}
	return Device{}, fmt.Errorf("device %q is not supported", s)
}

func (d Device) String() string {
	desc := fmt.Sprintf("%s (%s)", d.Name, d.Provider)
	if d.Provider == ProviderCPU {
		desc += " " + describeCPU()
	}
	return desc
}

func describeCPU() string {
	var features []string
	for _, f := range []cpuid.FeatureID{cpuid.SSE42, cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F, cpuid.ASIMD} {
		if cpuid.CPU.Supports(f) {
			features = append(features, f.String())
		}
	}
	return fmt.Sprintf("%s, %d cores [%s]", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, strings.Join(features, " "))
}

// sessionOptions builds ORT session options for d. configFile, when set,
// is handed to the OpenVINO provider as its load_config file.
func (d Device) sessionOptions(configFile string) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	switch d.Provider {
	case ProviderCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := cudaOptions.Update(map[string]string{"device_id": strconv.Itoa(d.ID)}); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to configure CUDA device %d: %w", d.ID, err)
		}
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to enable CUDA: %w", err)
		}
	case ProviderOpenVINO:
		ovOptions := map[string]string{"device_type": d.Type}
		if configFile != "" {
			ovOptions["load_config"] = configFile
		}
		if err := options.AppendExecutionProviderOpenVINO(ovOptions); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("failed to enable OpenVINO on %s: %w", d.Type, err)
		}
	}
	return options, nil
}
