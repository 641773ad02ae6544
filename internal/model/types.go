package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is the JSON descriptor stored next to every model file. It names
// the ports in the order the pipeline binds them (first input is the low
// resolution image, second the bicubic companion) and fills in dimensions
// the model leaves dynamic.
type Metadata struct {
	Description  string         `json:"description"`
	Inputs       []PortMetadata `json:"inputs"`
	Outputs      []PortMetadata `json:"outputs"`
	ChannelOrder string         `json:"channel_order"`
}

type PortMetadata struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
}

func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	for _, p := range append(metadata.Inputs, metadata.Outputs...) {
		if p.Name == "" {
			return Metadata{}, fmt.Errorf("metadata %s: port without a name", path)
		}
	}
	return metadata, nil
}
