package vision

import (
	"image"

	"github.com/disintegration/gift"
)

// ClassMask is the denoised mask of a single color class.
type ClassMask struct {
	Class ColorClass
	Mask  *image.Gray
}

// Masks is the output of one segmentation. Combined is the union of the class masks.
// All masks are 0 or 255 and share the frame's size with origin (0,0).
type Masks struct {
	Classes  []ClassMask
	Combined *image.Gray
}

// Segmenter thresholds frames into binary masks.
type Segmenter struct {
	cfg    Config
	filter *gift.GIFT
}

func NewSegmenter(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{
		cfg: cfg,
		filter: gift.New(
			// open
			gift.Minimum(cfg.OpenKernel, false),
			gift.Maximum(cfg.OpenKernel, false),
			// close
			gift.Maximum(cfg.CloseKernel, false),
			gift.Minimum(cfg.CloseKernel, false),
		),
	}, nil
}

func (s *Segmenter) Segment(img image.Image) *Masks {
	b := img.Bounds()
	hsv := toHSVPlane(img)

	out := &Masks{
		Classes:  make([]ClassMask, len(s.cfg.Classes)),
		Combined: image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy())),
	}
	for i, class := range s.cfg.Classes {
		raw := threshold(hsv, b.Dx(), b.Dy(), class)
		mask := image.NewGray(s.filter.Bounds(raw.Bounds()))
		s.filter.Draw(mask, raw)
		binarize(mask)
		out.Classes[i] = ClassMask{Class: class, Mask: mask}
		for p, v := range mask.Pix {
			out.Combined.Pix[p] |= v
		}
	}
	return out
}

func toHSVPlane(img image.Image) []HSV {
	b := img.Bounds()
	out := make([]HSV, 0, b.Dx()*b.Dy())
	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				out = append(out, rgbToHSV(row[4*x], row[4*x+1], row[4*x+2]))
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, ToHSV(img.At(x, y)))
		}
	}
	return out
}

func threshold(hsv []HSV, w, h int, class ColorClass) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i, p := range hsv {
		if class.Contains(p) {
			m.Pix[i] = 0xff
		}
	}
	return m
}

// binarize snaps values back to 0/255 after filtering.
func binarize(m *image.Gray) {
	for i, v := range m.Pix {
		if v >= 0x80 {
			m.Pix[i] = 0xff
		} else {
			m.Pix[i] = 0
		}
	}
}
