package pipeline

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/config"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/overlay"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/publish"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/vision"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Option func(p *Pipeline) error

// Previewer shows an annotated frame to a human, e.g. overlay.Terminal.
type Previewer interface {
	Preview(img image.Image) error
}

// Pipeline is the single frame-processing path. One frame is in flight at a time; every
// read of tracking state from other goroutines goes through the same lock.
type Pipeline struct {
	mu        sync.Mutex
	segmenter *vision.Segmenter
	assigner  *track.Assigner
	renderer  *overlay.Renderer

	// Options
	sink      track.Sink
	publisher publish.Publisher
	preview   Previewer
	ansiEvery int

	oneShot chan struct{}
	frames  atomic.Int64
	skipped atomic.Int64
}

// Result is everything derived from one frame.
type Result struct {
	Masks       *vision.Masks
	Regions     []vision.Region
	Assignments []track.Assignment
	Annotated   *image.RGBA
	State       string // assigner state after the frame
}

func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		publisher: publish.Discard{},
		oneShot:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var err error
	if p.segmenter, err = vision.NewSegmenter(cfg.Vision); err != nil {
		return nil, errors.Wrap(err, "vision.NewSegmenter")
	}
	if p.assigner, err = track.New(cfg.Track, p.sink); err != nil {
		return nil, errors.Wrap(err, "track.New")
	}
	p.renderer = overlay.NewRenderer(cfg.Overlay, cfg.Track.MaxQueue)
	return p, nil
}

// WithSink receives every accepted track point.
func WithSink(s track.Sink) Option {
	return func(p *Pipeline) error {
		p.sink = s
		return nil
	}
}

func WithPublisher(pub publish.Publisher) Option {
	return func(p *Pipeline) error {
		if pub == nil {
			return errors.New("nil publisher")
		}
		p.publisher = pub
		return nil
	}
}

// WithPreview shows every nth annotated frame; n of 0 only shows one-shot requests.
func WithPreview(prev Previewer, every int) Option {
	return func(p *Pipeline) error {
		if every < 0 {
			return errors.Errorf("preview interval must not be negative, got %d", every)
		}
		p.preview, p.ansiEvery = prev, every
		return nil
	}
}

// Process runs one frame through segmentation, extraction, assignment and annotation.
// img is not modified.
func (p *Pipeline) Process(ctx context.Context, img *image.RGBA) *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	log := logger.Entry(ctx)

	masks := p.segmenter.Segment(img)
	regions := vision.Extract(masks.Combined)
	log.WithFields(logrus.Fields{
		"regions": len(regions),
		"classes": len(masks.Classes),
	}).Debug("segmentation complete")
	for i, r := range regions {
		log.WithFields(logrus.Fields{
			"region": i,
			"x":      r.Bounds.Min.X,
			"y":      r.Bounds.Min.Y,
			"w":      r.Bounds.Dx(),
			"h":      r.Bounds.Dy(),
		}).Trace("region extracted")
	}

	tracking := p.assigner.State() == track.StateTracking
	assignments := p.assigner.Assign(ctx, vision.Centers(regions))

	annotated := frame.ToRGBA(img)
	drawn := assignments
	if !tracking {
		// the seeding frame gets contours only
		drawn = nil
	}
	p.renderer.Draw(annotated, regions, drawn, p.assigner.Pool())

	return &Result{
		Masks:       masks,
		Regions:     regions,
		Assignments: assignments,
		Annotated:   annotated,
		State:       p.assigner.State(),
	}
}

// Run consumes frames until in is closed or ctx is done. Undecodable frames are skipped.
func (p *Pipeline) Run(ctx context.Context, in <-chan frame.Frame) error {
	log := logger.Entry(ctx)
	defer func() {
		log.WithFields(p.Stats().Fields()).Info("pipeline stopped")
	}()

	for frameCount := 0; ; frameCount++ {
		var (
			f  frame.Frame
			ok bool
		)
		select {
		case <-ctx.Done():
			return nil
		case f, ok = <-in:
			if !ok {
				return nil
			}
		}

		ctx, log := logger.WithFields(ctx, logrus.Fields{"frame_count": frameCount, "seq": f.Seq})
		if f.Err != nil || f.Image == nil {
			p.skipped.Add(1)
			log.WithError(f.Err).Warn("frame skipped")
			continue
		}
		res := p.Process(ctx, f.Image)
		p.frames.Add(1)

		if err := p.publisher.Publish(ctx, f.Seq, res.Annotated); err != nil {
			log.WithError(err).Warn("publish")
		}
		if err := p.maybePreview(frameCount, res.Annotated); err != nil {
			log.WithError(err).Warn("preview")
		}
	}
}

func (p *Pipeline) maybePreview(frameCount int, img image.Image) error {
	if p.preview == nil {
		return nil
	}
	select {
	case <-p.oneShot:
		return p.preview.Preview(img)
	default:
	}
	if p.ansiEvery == 0 || frameCount%p.ansiEvery != 0 {
		return nil
	}
	return p.preview.Preview(img)
}

// OneShot asks for the next frame to be previewed. It never blocks.
func (p *Pipeline) OneShot() {
	select {
	case p.oneShot <- struct{}{}:
	default:
	}
}

func (p *Pipeline) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assigner.State()
}

// Strategy names the assignment strategy in use.
func (p *Pipeline) Strategy() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assigner.Strategy().Name()
}

func (p *Pipeline) Visualize() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assigner.Visualize()
}

// Tracks snapshots every track's position and trail.
func (p *Pipeline) Tracks() []TrackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracks := p.assigner.Pool().Tracks()
	out := make([]TrackState, len(tracks))
	for i, t := range tracks {
		pos, ok := t.Position()
		out[i] = TrackState{ID: t.ID(), Initialized: ok, Position: pos, History: t.History()}
	}
	return out
}

type TrackState struct {
	ID          int
	Initialized bool
	Position    track.Point
	History     []track.Point
}

type Stats struct {
	Frames  int64
	Skipped int64
	Track   track.Stats
}

func (s Stats) Fields() logrus.Fields {
	f := s.Track.Fields()
	f["processed"] = s.Frames
	f["skipped"] = s.Skipped
	return f
}

func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Frames:  p.frames.Load(),
		Skipped: p.skipped.Load(),
		Track:   p.assigner.Stats(),
	}
}
