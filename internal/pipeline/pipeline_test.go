package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/config"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var (
	background = color.RGBA{0x30, 0x30, 0x30, 0xff}
	green      = color.RGBA{0x20, 0xc0, 0x90, 0xff}
	blue       = color.RGBA{0x20, 0x40, 0xe0, 0xff}
)

type block struct {
	at image.Point
	c  color.RGBA
}

// scene draws 16x16 blocks with their top-left corners at the given points.
func scene(blocks ...block) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	for _, b := range blocks {
		r := image.Rectangle{Min: b.at, Max: b.at.Add(image.Pt(16, 16))}
		draw.Draw(img, r, image.NewUniform(b.c), image.Point{}, draw.Src)
	}
	return img
}

type recorder struct {
	mu   sync.Mutex
	seqs []int
	imgs []*image.RGBA
}

func (r *recorder) Publish(_ context.Context, seq int, img *image.RGBA) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, seq)
	r.imgs = append(r.imgs, img)
	return nil
}

func (r *recorder) Close() error { return nil }

type previewCounter struct{ n int }

func (p *previewCounter) Preview(image.Image) error { p.n++; return nil }

func TestProcess(t *testing.T) {
	p, err := New(config.Default())
	require.NoError(t, err)
	ctx := context.Background()

	first := scene(block{image.Pt(10, 10), green}, block{image.Pt(100, 60), blue})
	res := p.Process(ctx, first)
	require.Len(t, res.Regions, 2)
	require.Equal(t, track.Pt(18, 18), res.Regions[0].Center)
	require.Equal(t, track.Pt(108, 68), res.Regions[1].Center)
	require.Equal(t, []track.Assignment{{Region: 0, Track: 0}, {Region: 1, Track: 1}}, res.Assignments)
	require.Equal(t, track.StateTracking, res.State)

	// both blocks move a little; the blue one now comes first in raster order
	second := scene(block{image.Pt(14, 40), green}, block{image.Pt(104, 30), blue})
	before := append([]byte(nil), second.Pix...)
	res = p.Process(ctx, second)
	require.Equal(t, before, second.Pix, "input frame is not modified")
	require.Equal(t, track.Pt(112, 38), res.Regions[0].Center)
	require.Equal(t, []track.Assignment{{Region: 0, Track: 1}, {Region: 1, Track: 0}}, res.Assignments)
	require.NotEqual(t, second.Pix, res.Annotated.Pix)

	tracks := p.Tracks()
	require.Len(t, tracks, 6)
	require.Equal(t, []track.Point{track.Pt(22, 48), track.Pt(18, 18)}, tracks[0].History)
	require.Equal(t, []track.Point{track.Pt(112, 38), track.Pt(108, 68)}, tracks[1].History)
	require.False(t, tracks[2].Initialized)
}

func TestSeedingFrameHasContoursOnly(t *testing.T) {
	p, err := New(config.Default())
	require.NoError(t, err)

	img := scene(block{image.Pt(40, 40), green})
	res := p.Process(context.Background(), img)

	// the contour is cyan; no box or label on the seeding frame
	require.Equal(t, color.RGBA{0, 0xff, 0xff, 0xff}, res.Annotated.RGBAAt(40, 40))
	require.Equal(t, green, res.Annotated.RGBAAt(48, 48))
	require.Equal(t, background, res.Annotated.RGBAAt(50, 56))
	require.Equal(t, background, res.Annotated.RGBAAt(56, 48))
}

func TestRun(t *testing.T) {
	rec := &recorder{}
	prev := &previewCounter{}
	p, err := New(config.Default(), WithPublisher(rec), WithPreview(prev, 2))
	require.NoError(t, err)

	in := make(chan frame.Frame, 4)
	in <- frame.Frame{Seq: 0, Image: scene(block{image.Pt(10, 10), green})}
	in <- frame.Frame{Seq: 1, Err: errors.Wrap(frame.ErrDecode, "short frame")}
	in <- frame.Frame{Seq: 2, Image: scene(block{image.Pt(12, 10), green})}
	in <- frame.Frame{Seq: 3, Image: scene(block{image.Pt(14, 10), green})}
	close(in)

	require.NoError(t, p.Run(context.Background(), in))
	require.Equal(t, []int{0, 2, 3}, rec.seqs)

	stats := p.Stats()
	require.EqualValues(t, 3, stats.Frames)
	require.EqualValues(t, 1, stats.Skipped)
	require.EqualValues(t, 3, stats.Track.Frames)
	require.EqualValues(t, 3, stats.Track.Updates)
	require.Equal(t, 2, prev.n, "frame counts 0 and 2 are previewed")

	pos := p.Tracks()[0].Position
	require.Equal(t, track.Pt(22, 18), pos)
}

func TestOneShot(t *testing.T) {
	prev := &previewCounter{}
	p, err := New(config.Default(), WithPreview(prev, 0))
	require.NoError(t, err)

	p.OneShot()
	p.OneShot() // coalesced

	in := make(chan frame.Frame, 3)
	for i := 0; i < 3; i++ {
		in <- frame.Frame{Seq: i, Image: scene()}
	}
	close(in)
	require.NoError(t, p.Run(context.Background(), in))
	require.Equal(t, 1, prev.n)
}

func TestRunStopsOnCancel(t *testing.T) {
	p, err := New(config.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx, make(chan frame.Frame)))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Track.MaxBlocks = 0
	_, err := New(cfg)
	require.Error(t, err)

	_, err = New(config.Default(), WithPreview(nil, -1))
	require.Error(t, err)
}

func TestVisualize(t *testing.T) {
	p, err := New(config.Default())
	require.NoError(t, err)
	require.Contains(t, p.Visualize(), "digraph")
	require.Equal(t, track.StateInitializing, p.State())
}

func TestStrategy(t *testing.T) {
	testCases := []struct {
		desc string
		name string
		want string
	}{
		{desc: "default", name: "", want: track.StrategyGreedy},
		{desc: "optimal", name: track.StrategyOptimal, want: track.StrategyOptimal},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			cfg := config.Default()
			cfg.Track.Strategy = tC.name
			p, err := New(cfg)
			require.NoError(t, err)
			require.Equal(t, tC.want, p.Strategy())
		})
	}
}
