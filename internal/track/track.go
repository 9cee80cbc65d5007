package track

import (
	"github.com/pkg/errors"
)

const (
	DefaultMaxBlocks = 6
	DefaultMaxQueue  = 20
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Sink receives every accepted point. The track history is bounded; a Sink is where the
// complete trajectory goes if anyone wants it. Record must not block.
type Sink interface {
	Record(id int, p Point)
}

// Track is the persistent state of one block.
type Track struct {
	id          int
	pos         Point
	history     []Point // most recent first
	maxQueue    int
	initialized bool
	sink        Sink
}

func newTrack(id, maxQueue int, sink Sink) *Track {
	return &Track{
		id:       id,
		maxQueue: maxQueue,
		history:  make([]Point, 0, maxQueue),
		sink:     sink,
	}
}

func (t *Track) ID() int { return t.id }

func (t *Track) Initialized() bool { return t.initialized }

// Position returns the last accepted centroid. ok is false until the first update.
func (t *Track) Position() (p Point, ok bool) {
	return t.pos, t.initialized
}

// History returns a copy of the trail, most recent first.
func (t *Track) History() []Point {
	h := make([]Point, len(t.history))
	copy(h, t.history)
	return h
}

func (t *Track) Len() int { return len(t.history) }

// Update commits p as the newest position, evicting the oldest history entry when full.
// A non-finite p is rejected and the track is left as it was.
func (t *Track) Update(p Point) error {
	if !p.Finite() {
		return errors.Wrapf(ErrInvalidCoordinate, "track %d: %v", t.id, p)
	}
	t.pos = p
	t.initialized = true
	if len(t.history) < t.maxQueue {
		t.history = append(t.history, Point{})
	}
	copy(t.history[1:], t.history[:len(t.history)-1])
	t.history[0] = p
	if t.sink != nil {
		t.sink.Record(t.id, p)
	}
	return nil
}

// distance from the track's position to p. Callers must only ask initialized tracks.
func (t *Track) distance(p Point) float64 {
	return t.pos.Dist(p)
}
