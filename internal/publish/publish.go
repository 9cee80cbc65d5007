package publish

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/filter"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
)

// Publisher receives annotated frames in order. Publish is never called concurrently.
type Publisher interface {
	Publish(ctx context.Context, seq int, img *image.RGBA) error
	Close() error
}

// Multi fans a frame out to every publisher. A failing publisher does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, seq int, img *image.RGBA) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, seq, img); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Gated forwards only the frames its filter passes.
type Gated struct {
	Publisher
	Filter filter.FilterFunc

	skipped atomic.Int64
}

func Gate(p Publisher, f filter.FilterFunc) *Gated {
	return &Gated{Publisher: p, Filter: f}
}

func (g *Gated) Publish(ctx context.Context, seq int, img *image.RGBA) error {
	ok, err := g.Filter(ctx, img)
	if err != nil {
		return errors.Wrap(err, "filter")
	}
	if !ok {
		g.skipped.Add(1)
		logger.Entry(ctx).Trace("frame held back by filter")
		return nil
	}
	return g.Publisher.Publish(ctx, seq, img)
}

// Skipped counts frames the filter held back.
func (g *Gated) Skipped() int64 { return g.skipped.Load() }

// Discard drops everything.
type Discard struct{}

func (Discard) Publish(context.Context, int, *image.RGBA) error { return nil }
func (Discard) Close() error                                     { return nil }
