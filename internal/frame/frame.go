package frame

import (
	"context"
	"image"
	"image/draw"
	"strconv"

	"github.com/pkg/errors"
)

// ErrDecode marks a frame the transport could not turn into an image. Such frames are
// skipped downstream.
var ErrDecode = errors.New("frame decode")

// Frame is one unit of input. Exactly one of Image and Err is set.
type Frame struct {
	Seq   int
	Image *image.RGBA
	Err   error
}

// Source delivers frames on out until it is exhausted or ctx is done. It never closes out.
type Source interface {
	Run(ctx context.Context, out chan<- Frame) error
}

// ToRGBA copies img into a new *image.RGBA with a zero origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// DecodeBGR unpacks a bgr24 buffer of the given size.
func DecodeBGR(buf []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrDecode, "bad size %dx%d", width, height)
	}
	if want := width * height * 3; len(buf) != want {
		return nil, errors.Wrapf(ErrDecode, "bgr24 %dx%d wants %d bytes, got %d", width, height, want, len(buf))
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i+2]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// AppendBGR appends img as packed bgr24 to dst.
func AppendBGR(dst []byte, img *image.RGBA) []byte {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			dst = append(dst, row[4*x+2], row[4*x+1], row[4*x])
		}
	}
	return dst
}

func send(ctx context.Context, out chan<- Frame, f Frame) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- f:
		return nil
	}
}

func sizeArg(width, height int) string {
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
