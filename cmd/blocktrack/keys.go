package main

import (
	"context"
	"fmt"
	"time"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/pipeline"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/mattn/go-tty"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func scanKeys(ctx context.Context) {
	tty, err := tty.Open()
	if err != nil {
		log.WithError(err).Error("tty.Open")
		return
	}
	defer tty.Close()

	for ctx.Err() == nil {
		r, err := tty.ReadRune()
		if err != nil {
			log.WithError(err).Error("tty.ReadRune")
			return
		}
		h, ok := keyMap[r]
		if !ok {
			continue
		}
		h.cb(ctx)
	}
}

// announceTracking previews the first frame rendered after the tracks are seeded.
func announceTracking(ctx context.Context, p *pipeline.Pipeline) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if p.State() == track.StateTracking {
				p.OneShot()
				return
			}
		}
	}
}

type kmt = map[rune]struct {
	cb   func(context.Context)
	desc string
}

var keyMap kmt

func init() {
	keyMap = kmt{
		13: // enter
		{
			cb:   func(c context.Context) { currentPipeline.OneShot() },
			desc: "Dump ansi art frame",
		},
		'f': {
			cb: func(c context.Context) {
				fmt.Println(currentPipeline.State())
			},
			desc: "Get current state",
		},
		's': {
			cb: func(c context.Context) {
				log.WithFields(currentPipeline.Stats().Fields()).Info("stats")
			},
			desc: "Log counters",
		},
		't': {
			cb: func(c context.Context) {
				for _, ts := range currentPipeline.Tracks() {
					if !ts.Initialized {
						fmt.Printf("%d\t-\n", ts.ID+1)
						continue
					}
					fmt.Printf("%d\t%.1f,%.1f\ttrail %d\n", ts.ID+1, ts.Position.X, ts.Position.Y, len(ts.History))
				}
			},
			desc: "Print tracks",
		},
		'?': {
			desc: "Help",
			cb: func(c context.Context) {
				keys := maps.Keys(keyMap)
				slices.Sort(keys)
				for _, k := range keys {
					fmt.Printf("%q\t%s\n", k, keyMap[k].desc)
				}
			},
		},
	}
}
