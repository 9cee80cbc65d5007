package track

import (
	"github.com/pkg/errors"
)

// Pool owns every Track. Its size is fixed at construction.
type Pool struct {
	tracks []*Track
}

func NewPool(maxBlocks, maxQueue int, sink Sink) (*Pool, error) {
	if maxBlocks < 1 {
		return nil, errors.Errorf("max blocks must be positive, got %d", maxBlocks)
	}
	if maxQueue < 1 {
		return nil, errors.Errorf("max queue must be positive, got %d", maxQueue)
	}
	p := &Pool{tracks: make([]*Track, maxBlocks)}
	for i := range p.tracks {
		p.tracks[i] = newTrack(i, maxQueue, sink)
	}
	return p, nil
}

func (p *Pool) Len() int { return len(p.tracks) }

// Track returns the track with the given id, or nil when out of range.
func (p *Pool) Track(id int) *Track {
	if id < 0 || id >= len(p.tracks) {
		return nil
	}
	return p.tracks[id]
}

// Tracks returns the tracks in id order. The slice is a copy; the tracks are not.
func (p *Pool) Tracks() []*Track {
	out := make([]*Track, len(p.tracks))
	copy(out, p.tracks)
	return out
}

// Initialized counts tracks that have received at least one point.
func (p *Pool) Initialized() int {
	n := 0
	for _, t := range p.tracks {
		if t.initialized {
			n++
		}
	}
	return n
}
