package track

import (
	"context"
	"sync/atomic"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	StateInitializing = "initializing"
	StateTracking     = "tracking"

	eventSeeded = "seeded"
)

// Config is fixed for the life of an Assigner.
type Config struct {
	MaxBlocks int
	MaxQueue  int
	Strategy  string
}

func DefaultConfig() Config {
	return Config{
		MaxBlocks: DefaultMaxBlocks,
		MaxQueue:  DefaultMaxQueue,
		Strategy:  StrategyGreedy,
	}
}

func (c Config) Validate() error {
	if c.MaxBlocks < 1 {
		return errors.Errorf("max blocks must be positive, got %d", c.MaxBlocks)
	}
	if c.MaxQueue < 1 {
		return errors.Errorf("max queue must be positive, got %d", c.MaxQueue)
	}
	_, err := StrategyByName(c.Strategy)
	return err
}

// Assignment records where one region of a frame went. Track is -1 when the region
// was dropped, rejected or unmatched.
type Assignment struct {
	Region int
	Track  int
}

// Stats are cumulative since construction.
type Stats struct {
	Frames     int64
	Updates    int64
	Invalid    int64
	Collisions int64
	Unmatched  int64
	Dropped    int64
}

func (s Stats) Fields() logrus.Fields {
	return logrus.Fields{
		"frames":     s.Frames,
		"updates":    s.Updates,
		"invalid":    s.Invalid,
		"collisions": s.Collisions,
		"unmatched":  s.Unmatched,
		"dropped":    s.Dropped,
	}
}

type counters struct {
	frames, updates, invalid, collisions, unmatched, dropped atomic.Int64
}

// Assigner maps each frame's regions onto the pool. It is not safe for concurrent use;
// only Stats may be read from another goroutine.
type Assigner struct {
	pool     *Pool
	strategy Strategy
	fsm      *fsm.FSM
	stats    counters
}

// New builds a pool and an assigner from cfg.
func New(cfg Config, sink Sink) (*Assigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := NewPool(cfg.MaxBlocks, cfg.MaxQueue, sink)
	if err != nil {
		return nil, err
	}
	strategy, err := StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return NewAssigner(pool, strategy), nil
}

func NewAssigner(pool *Pool, strategy Strategy) *Assigner {
	a := &Assigner{
		pool:     pool,
		strategy: strategy,
	}
	a.fsm = fsm.NewFSM(
		StateInitializing,
		fsm.Events{
			{Name: eventSeeded, Src: []string{StateInitializing}, Dst: StateTracking},
		},
		fsm.Callbacks{
			"after_event": func(e *fsm.Event) {
				if e.Src == e.Dst {
					return
				}
				log := logger.Entry(context.Background())
				if len(e.Args) > 0 {
					if l, ok := e.Args[0].(*logrus.Entry); ok {
						log = l
					}
				}
				log.Infof("[%s -> %s] %s", e.Src, e.Dst, e.Event)
			},
		},
	)
	return a
}

func (a *Assigner) Pool() *Pool { return a.pool }

func (a *Assigner) Strategy() Strategy { return a.strategy }

func (a *Assigner) State() string { return a.fsm.Current() }

// Visualize renders the state machine as graphviz source.
func (a *Assigner) Visualize() string { return fsm.Visualize(a.fsm) }

func (a *Assigner) Stats() Stats {
	return Stats{
		Frames:     a.stats.frames.Load(),
		Updates:    a.stats.updates.Load(),
		Invalid:    a.stats.invalid.Load(),
		Collisions: a.stats.collisions.Load(),
		Unmatched:  a.stats.unmatched.Load(),
		Dropped:    a.stats.dropped.Load(),
	}
}

// Assign consumes one frame's centroids in extractor order. It always runs to completion;
// ctx only supplies the log entry. Regions beyond the pool size are dropped.
func (a *Assigner) Assign(ctx context.Context, centers []Point) []Assignment {
	log := logger.Entry(ctx)
	a.stats.frames.Add(1)

	out := make([]Assignment, len(centers))
	for i := range out {
		out[i] = Assignment{Region: i, Track: -1}
	}

	n := len(centers)
	if n > a.pool.Len() {
		a.stats.dropped.Add(int64(n - a.pool.Len()))
		log.WithFields(logrus.Fields{
			"regions":    n,
			"max_blocks": a.pool.Len(),
		}).Warn("more regions than tracks, dropping the excess")
		n = a.pool.Len()
	}
	if n == 0 {
		return out
	}

	if a.fsm.Is(StateInitializing) {
		a.seed(log, centers[:n], out)
	} else {
		a.track(log, centers[:n], out)
	}
	return out
}

// seed feeds region i to track i, then leaves the initializing state.
func (a *Assigner) seed(log *logrus.Entry, centers []Point, out []Assignment) {
	for i, c := range centers {
		t := a.pool.tracks[i]
		if err := t.Update(c); err != nil {
			a.reject(log, i, err)
			continue
		}
		out[i].Track = t.id
		a.stats.updates.Add(1)
		log.WithFields(logrus.Fields{"track": t.id, "x": c.X, "y": c.Y}).Debug("seeded track")
	}
	if err := a.fsm.Event(eventSeeded, log); err != nil {
		log.WithError(err).Error("assigner state")
	}
}

func (a *Assigner) track(log *logrus.Entry, centers []Point, out []Assignment) {
	candidates := make([]*Track, 0, a.pool.Len())
	for _, t := range a.pool.tracks {
		if t.initialized {
			candidates = append(candidates, t)
		}
	}

	valid := make([]Point, 0, len(centers))
	regions := make([]int, 0, len(centers))
	for i, c := range centers {
		if !c.Finite() {
			a.reject(log, i, errors.Wrapf(ErrInvalidCoordinate, "region %d: %v", i, c))
			continue
		}
		valid = append(valid, c)
		regions = append(regions, i)
	}

	written := make(map[int]int, len(candidates))
	for k, m := range a.strategy.Match(candidates, valid) {
		region := regions[k]
		if m < 0 {
			a.stats.unmatched.Add(1)
			log.WithField("region", region).Warn("no track available for region")
			continue
		}
		t := candidates[m]
		if prev, ok := written[t.id]; ok {
			a.stats.collisions.Add(1)
			log.WithFields(logrus.Fields{
				"track":       t.id,
				"region":      region,
				"overwritten": prev,
			}).Warn("collision detected")
		}
		if err := t.Update(valid[k]); err != nil {
			a.reject(log, region, err)
			continue
		}
		written[t.id] = region
		out[region].Track = t.id
		a.stats.updates.Add(1)
	}
}

func (a *Assigner) reject(log *logrus.Entry, region int, err error) {
	a.stats.invalid.Add(1)
	log.WithError(err).WithField("region", region).Warn("invalid coordinate")
}
