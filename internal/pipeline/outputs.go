package pipeline

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/imaging"
	"github.com/Brownie44l1/superres/internal/infer"
)

// bindOutputs requests FP32 for every output and returns the name of the
// first one, which holds the reconstructed images.
func bindOutputs(net infer.Network) (string, error) {
	outputs := net.Outputs()
	if len(outputs) == 0 {
		return "", fmt.Errorf("%w: the network declares no outputs", ErrInvalidOutput)
	}
	for _, out := range outputs {
		if !out.Tensor {
			return "", fmt.Errorf("%w: output %s data is not valid", ErrInvalidOutput, out.Name)
		}
		if err := net.SetOutputPrecision(out.Name, infer.FP32); err != nil {
			return "", err
		}
	}
	return outputs[0].Name, nil
}

// Materialize turns every batch element of the named output blob into an
// image. The blob must be N,C,H,W with three color planes.
func Materialize(req infer.Request, output string, order imaging.ChannelOrder) ([]image.Image, infer.Shape, error) {
	blob, err := req.Blob(output)
	if err != nil {
		return nil, nil, err
	}
	shape := blob.Shape

	if len(shape) != 4 || shape.C() != 3 {
		return nil, shape, fmt.Errorf("%w: output %s has shape %s, want 3 color planes", ErrInvalidOutput, output, shape)
	}
	if int64(len(blob.Data)) < shape.Size() {
		return nil, shape, fmt.Errorf("%w: output %s holds %d values for shape %s", ErrInvalidOutput, output, len(blob.Data), shape)
	}

	results := make([]image.Image, 0, shape.N())
	for i := 0; i < int(shape.N()); i++ {
		img, err := imaging.PlanesToImage(blob, i, order, 255)
		if err != nil {
			return nil, shape, err
		}
		results = append(results, img)
	}
	return results, shape, nil
}

func logOutputSize(log logrus.FieldLogger, shape infer.Shape) {
	log.Infof("Output size [N,C,H,W]: %d, %d, %d, %d", shape.N(), shape.C(), shape.H(), shape.W())
}
