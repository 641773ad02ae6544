package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/Brownie44l1/superres/internal/infer"
)

// ChannelOrder is the order of color planes in a model tensor.
type ChannelOrder int

const (
	// BGR is what models converted from OpenCV pipelines expect.
	BGR ChannelOrder = iota
	RGB
)

func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToUpper(s) {
	case "", "BGR":
		return BGR, nil
	case "RGB":
		return RGB, nil
	}
	return BGR, fmt.Errorf("unknown channel order %q", s)
}

func (o ChannelOrder) String() string {
	if o == RGB {
		return "RGB"
	}
	return "BGR"
}

// planes returns the tensor plane index of red, green and blue.
func (o ChannelOrder) planes() (r, g, b int) {
	if o == RGB {
		return 0, 1, 2
	}
	return 2, 1, 0
}

// FillPlanar copies the 8-bit pixels of img into batch slot n of blob as
// planar floats in [0,255]. The blob must have 1 or 3 channels and the same
// height and width as img.
func FillPlanar(img image.Image, blob *infer.Blob, n int, order ChannelOrder) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if int64(width) != blob.Shape.W() || int64(height) != blob.Shape.H() {
		return fmt.Errorf("image %dx%d does not fit blob %s %s", width, height, blob.Name, blob.Shape)
	}
	if n < 0 || int64(n) >= blob.Shape.N() {
		return fmt.Errorf("batch index %d out of range for blob %s %s", n, blob.Name, blob.Shape)
	}

	switch blob.Shape.C() {
	case 1:
		plane := blob.Plane(n, 0)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				plane[y*width+x] = float32(g.Y)
			}
		}
	case 3:
		ri, gi, bi := order.planes()
		rp, gp, bp := blob.Plane(n, ri), blob.Plane(n, gi), blob.Plane(n, bi)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				pixelIndex := y*width + x
				rp[pixelIndex] = float32(c.R)
				gp[pixelIndex] = float32(c.G)
				bp[pixelIndex] = float32(c.B)
			}
		}
	default:
		return fmt.Errorf("blob %s has %d channels, want 1 or 3", blob.Name, blob.Shape.C())
	}
	return nil
}

// PlanesToImage interleaves the three planes of batch element n into an
// RGBA image. Each value is multiplied by scale, rounded half to even and
// saturated to [0,255].
func PlanesToImage(blob *infer.Blob, n int, order ChannelOrder, scale float32) (*image.RGBA, error) {
	if blob.Shape.C() != 3 {
		return nil, fmt.Errorf("blob %s has %d channels, want 3", blob.Name, blob.Shape.C())
	}
	if n < 0 || int64(n) >= blob.Shape.N() {
		return nil, fmt.Errorf("batch index %d out of range for blob %s %s", n, blob.Name, blob.Shape)
	}
	width, height := int(blob.Shape.W()), int(blob.Shape.H())
	ri, gi, bi := order.planes()
	rp, gp, bp := blob.Plane(n, ri), blob.Plane(n, gi), blob.Plane(n, bi)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		o := i * 4
		img.Pix[o] = Saturate(rp[i] * scale)
		img.Pix[o+1] = Saturate(gp[i] * scale)
		img.Pix[o+2] = Saturate(bp[i] * scale)
		img.Pix[o+3] = 0xff
	}
	return img, nil
}

// Saturate converts v to a byte the way OpenCV's saturate_cast does.
// NaN maps to 0.
func Saturate(v float32) uint8 {
	if v != v {
		return 0
	}
	r := math.RoundToEven(float64(v))
	switch {
	case r <= 0:
		return 0
	case r >= 255:
		return 255
	}
	return uint8(r)
}
