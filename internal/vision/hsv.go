package vision

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ToHSV converts c to the OpenCV 8-bit HSV scale. Hue is halved to fit a byte and rounds,
// without wrapping, so hues just under 360° come out as 180 like OpenCV's saturate_cast.
func ToHSV(c color.Color) HSV {
	r, g, b, _ := c.RGBA()
	return rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

func rgbToHSV(r, g, b uint8) HSV {
	h, s, v := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Hsv()
	return HSV{
		H: uint8(math.Round(h / 2)),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}
