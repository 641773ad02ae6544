//go:build gocv

package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// CV is an OpenCV backed codec. Unlike Std it can display results.
type CV struct{}

// Default is the codec the command line tools use.
var Default Codec = CV{}

func (CV) Decode(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("image %s cannot be read", path)
	}
	return mat.ToImage()
}

func (CV) Resize(img image.Image, width, height int) image.Image {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Std{}.Resize(img, width, height)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationCubic)

	out, err := dst.ToImage()
	if err != nil {
		return Std{}.Resize(img, width, height)
	}
	return out
}

func (CV) Encode(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}

func (CV) Show(title string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	window := gocv.NewWindow(title)
	defer window.Close()
	window.IMShow(mat)
	window.WaitKey(0)
	return nil
}
