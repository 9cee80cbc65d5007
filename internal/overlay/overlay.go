package overlay

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"git.sr.ht/~sbinet/gg"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/vision"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const DefaultTrailScale = 1.5

var (
	Red   = color.RGBA{0xff, 0, 0, 0xff}
	White = color.RGBA{0xff, 0xff, 0xff, 0xff}
	Cyan  = color.RGBA{0, 0xff, 0xff, 0xff}
)

type Config struct {
	BoxColor     color.Color
	TrailColor   color.Color
	LabelColor   color.Color
	ContourColor color.Color
	DrawContours bool
	TrailScale   float64
	Face         font.Face
}

func DefaultConfig() Config {
	return Config{
		BoxColor:     Red,
		TrailColor:   Red,
		LabelColor:   White,
		ContourColor: Cyan,
		DrawContours: true,
		TrailScale:   DefaultTrailScale,
		Face:         basicfont.Face7x13,
	}
}

// Renderer draws boxes, trails, labels and contours onto frames.
type Renderer struct {
	cfg      Config
	maxQueue int
}

func NewRenderer(cfg Config, maxQueue int) *Renderer {
	def := DefaultConfig()
	if cfg.BoxColor == nil {
		cfg.BoxColor = def.BoxColor
	}
	if cfg.TrailColor == nil {
		cfg.TrailColor = def.TrailColor
	}
	if cfg.LabelColor == nil {
		cfg.LabelColor = def.LabelColor
	}
	if cfg.ContourColor == nil {
		cfg.ContourColor = def.ContourColor
	}
	if cfg.TrailScale <= 0 {
		cfg.TrailScale = def.TrailScale
	}
	if cfg.Face == nil {
		cfg.Face = def.Face
	}
	return &Renderer{cfg: cfg, maxQueue: maxQueue}
}

// Thickness is the stroke width of trail segment j, the one ending at history[j].
func Thickness(maxQueue, j int, scale float64) int {
	t := int(math.Sqrt(float64(maxQueue)/float64(j+1)) * scale)
	if t < 1 {
		return 1
	}
	return t
}

// Draw annotates dst in place. Contours are drawn for every region; boxes, trails and
// labels only for regions that were assigned to a track. dst must have a zero origin.
func (r *Renderer) Draw(dst *image.RGBA, regions []vision.Region, assignments []track.Assignment, pool *track.Pool) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(r.cfg.Face)

	if r.cfg.DrawContours {
		dc.SetColor(r.cfg.ContourColor)
		for _, reg := range regions {
			for _, p := range reg.Border {
				dc.SetPixel(p.X, p.Y)
			}
		}
	}

	for _, a := range assignments {
		if a.Track < 0 || a.Region < 0 || a.Region >= len(regions) {
			continue
		}
		t := pool.Track(a.Track)
		if t == nil {
			continue
		}
		reg := regions[a.Region]
		r.trail(dc, t.History())

		b := reg.Bounds
		dc.SetColor(r.cfg.BoxColor)
		dc.SetLineWidth(1)
		dc.DrawRectangle(float64(b.Min.X)+0.5, float64(b.Min.Y)+0.5, float64(b.Dx()), float64(b.Dy()))
		dc.Stroke()

		dc.SetColor(r.cfg.LabelColor)
		dc.DrawString(strconv.Itoa(t.ID()+1), float64(b.Min.X), float64(b.Max.Y))
	}
}

func (r *Renderer) trail(dc *gg.Context, history []track.Point) {
	dc.SetColor(r.cfg.TrailColor)
	dc.SetLineCapRound()
	for j := 1; j < len(history); j++ {
		a, b := history[j-1], history[j]
		dc.SetLineWidth(float64(Thickness(r.maxQueue, j, r.cfg.TrailScale)))
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		dc.Stroke()
	}
}
