package vision

import (
	"image"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
)

// Region is one external connected component of a mask.
type Region struct {
	Bounds image.Rectangle
	Center track.Point
	Area   int
	Border []image.Point // outer boundary pixels, in raster order
}

var (
	neighbors4 = [...]image.Point{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	neighbors8 = [...]image.Point{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
)

// Centers returns the region centroids in order.
func Centers(regions []Region) []track.Point {
	out := make([]track.Point, len(regions))
	for i, r := range regions {
		out[i] = r.Center
	}
	return out
}

// Extract finds the external components of mask (any nonzero pixel is foreground).
// Foreground is 8-connected, background 4-connected. Components sitting inside a hole of
// another component are skipped. Regions come back in raster discovery order.
func Extract(mask *image.Gray) []Region {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] != 0
	}

	outside := outsideBackground(w, h, fg)
	// exposed reports whether (x,y) touches the frame edge or the outer background.
	exposed := func(x, y int) bool {
		for _, d := range neighbors4 {
			nx, ny := x+d.X, y+d.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h || outside[ny*w+nx] {
				return true
			}
		}
		return false
	}

	var (
		regions []Region
		seen    = make([]bool, w*h)
		queue   []image.Point
		members []image.Point
	)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if seen[y*w+x] || !fg(x, y) {
				continue
			}
			seen[y*w+x] = true
			queue = append(queue[:0], image.Pt(x, y))
			members = members[:0]
			external := false
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				members = append(members, p)
				if !external && exposed(p.X, p.Y) {
					external = true
				}
				for _, d := range neighbors8 {
					n := p.Add(d)
					if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h {
						continue
					}
					if i := n.Y*w + n.X; !seen[i] && fg(n.X, n.Y) {
						seen[i] = true
						queue = append(queue, n)
					}
				}
			}
			if external {
				regions = append(regions, newRegion(members, b.Min, exposed))
			}
		}
	}
	return regions
}

// outsideBackground marks the background pixels 4-connected to the frame edge.
func outsideBackground(w, h int, fg func(x, y int) bool) []bool {
	outside := make([]bool, w*h)
	var stack []image.Point
	push := func(x, y int) {
		if i := y*w + x; !outside[i] && !fg(x, y) {
			outside[i] = true
			stack = append(stack, image.Pt(x, y))
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbors4 {
			n := p.Add(d)
			if n.X >= 0 && n.Y >= 0 && n.X < w && n.Y < h {
				push(n.X, n.Y)
			}
		}
	}
	return outside
}

func newRegion(members []image.Point, origin image.Point, exposed func(x, y int) bool) Region {
	minX, minY := members[0].X, members[0].Y
	maxX, maxY := minX, minY
	for _, p := range members[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	r := Region{
		Bounds: image.Rect(minX, minY, maxX+1, maxY+1).Add(origin),
		Area:   len(members),
	}
	width, height := float64(r.Bounds.Dx()), float64(r.Bounds.Dy())
	r.Center = track.Pt(float64(r.Bounds.Min.X)+0.5*width, float64(r.Bounds.Min.Y)+0.5*height)

	border := make(map[image.Point]struct{})
	for _, p := range members {
		if exposed(p.X, p.Y) {
			border[p] = struct{}{}
		}
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if _, ok := border[image.Pt(x, y)]; ok {
				r.Border = append(r.Border, image.Pt(x, y).Add(origin))
			}
		}
	}
	return r
}
