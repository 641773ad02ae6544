package pipeline

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/imaging"
	"github.com/Brownie44l1/superres/internal/infer"
)

// inputBinding names the low resolution input and, for two input
// topologies, the bicubic companion.
type inputBinding struct {
	lr        infer.PortInfo
	companion *infer.PortInfo
}

func bindInputs(net infer.Network) (inputBinding, error) {
	ports := net.Inputs()
	if len(ports) != 1 && len(ports) != 2 {
		return inputBinding{}, fmt.Errorf("%w, got %d", ErrUnsupportedTopology, len(ports))
	}
	for _, p := range ports {
		if !p.Tensor || len(p.Shape) != 4 || p.Shape.H() <= 0 || p.Shape.W() <= 0 {
			return inputBinding{}, fmt.Errorf("%w: input %s %s is not an NCHW image tensor", ErrUnsupportedTopology, p.Name, p.Shape)
		}
	}
	b := inputBinding{lr: ports[0]}
	if len(ports) == 2 {
		b.companion = &ports[1]
	}
	return b, nil
}

// CollectImages decodes every name and keeps the images that are exactly
// width x height, in input order. Rejected images are logged and returned
// as Skipped.
func CollectImages(codec imaging.Codec, names []string, width, height int, log logrus.FieldLogger) ([]image.Image, []string, []Skipped) {
	var images []image.Image
	var accepted []string
	var skipped []Skipped
	for _, name := range names {
		img, err := codec.Decode(name)
		if err != nil {
			log.Warnf("Image %s cannot be read!", name)
			skipped = append(skipped, Skipped{Path: name, Reason: fmt.Errorf("%w: %v", ErrDecode, err)})
			continue
		}

		b := img.Bounds()
		if b.Dx() != width || b.Dy() != height {
			log.Warnf("Size of the image %s is not equal to WxH = %dx%d", name, width, height)
			skipped = append(skipped, Skipped{
				Path:   name,
				Reason: fmt.Errorf("%w: %dx%d, want %dx%d", ErrSizeMismatch, b.Dx(), b.Dy(), width, height),
			})
			continue
		}
		images = append(images, img)
		accepted = append(accepted, name)
	}
	return images, accepted, skipped
}

// fillInputs writes image i into batch slot i of the low resolution blob
// and, when bound, its cubic resize into the companion blob.
func fillInputs(req infer.Request, binding inputBinding, images []image.Image, codec imaging.Codec, order imaging.ChannelOrder) error {
	lrBlob, err := req.Blob(binding.lr.Name)
	if err != nil {
		return err
	}
	var bicBlob *infer.Blob
	if binding.companion != nil {
		if bicBlob, err = req.Blob(binding.companion.Name); err != nil {
			return err
		}
	}

	for i, img := range images {
		if err := imaging.FillPlanar(img, lrBlob, i, order); err != nil {
			return err
		}
		if bicBlob == nil {
			continue
		}
		resized := codec.Resize(img, int(bicBlob.Shape.W()), int(bicBlob.Shape.H()))
		if err := imaging.FillPlanar(resized, bicBlob, i, order); err != nil {
			return err
		}
	}
	return nil
}

func channelOrder(net infer.Network) (imaging.ChannelOrder, error) {
	if l, ok := net.(infer.Layout); ok {
		return imaging.ParseChannelOrder(l.ChannelOrder())
	}
	return imaging.BGR, nil
}
