// Package imaging converts between image files, decoded images and the
// planar float tensors super resolution models consume and produce.
package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDisplayUnavailable is returned by codecs that cannot open a window.
var ErrDisplayUnavailable = errors.New("imaging: display is not available in this build")

// Codec is the image library the pipeline depends on.
type Codec interface {
	Decode(path string) (image.Image, error)
	// Resize scales img to width x height with cubic interpolation.
	Resize(img image.Image, width, height int) image.Image
	Encode(path string, img image.Image) error
	// Show displays img and blocks until the user presses a key.
	Show(title string, img image.Image) error
}

// Std is a pure Go codec. It decodes png, jpeg, gif, bmp, tiff and webp,
// and always encodes png.
type Std struct{}

func (Std) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func (Std) Resize(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Bicubic)
}

func (Std) Encode(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func (Std) Show(string, image.Image) error {
	return ErrDisplayUnavailable
}
