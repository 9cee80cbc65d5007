package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/config"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/filter"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/overlay"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/pipeline"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/publish"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/stream"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/tracklog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	log             = logger.Std()
	currentPipeline *pipeline.Pipeline
	someFlags       = getFlags()
)

func main() {
	flag.Parse()
	f := someFlags

	level, err := logrus.ParseLevel(f.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("logrus.ParseLevel")
	}
	log.SetLevel(level)

	cfg, err := config.Load(f.Env)
	if err != nil {
		log.WithError(err).Fatal("config.Load")
	}
	if f.Strategy != "" {
		cfg.Track.Strategy = f.Strategy
	}

	if f.DumpFSM {
		p, err := pipeline.New(cfg)
		if err != nil {
			log.WithError(err).Fatal("pipeline.New")
		}
		fmt.Println(p.Visualize())
		return
	}
	if f.Input == "" {
		log.Fatal("-input is required")
	}

	ctx, ctxCancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	ctx = logger.WithLogEntry(ctx, logrus.NewEntry(log))

	err = run(ctx, f, cfg)
	ctxCancel()
	if err != nil {
		log.WithError(err).Fatal("run")
	}
	log.Info("main exiting")
}

func run(ctx context.Context, f *flags, cfg config.Config) error {
	width, height, err := parseSize(f.Size)
	if err != nil {
		return err
	}
	src, err := newSource(f, width, height)
	if err != nil {
		return err
	}

	pub, cleanup, err := newPublisher(f)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []pipeline.Option{pipeline.WithPublisher(pub)}
	if f.AnsiArt > 0 || f.OneShot || f.Keys {
		opts = append(opts, pipeline.WithPreview(&overlay.Terminal{Flicker: f.Flicker}, f.AnsiArt))
	}

	var tl *tracklog.Log
	if f.TrackLog != "" {
		tl, err = tracklog.Open(f.TrackLog, tracklog.DefaultBuffer)
		if err != nil {
			return errors.Wrap(err, "tracklog.Open")
		}
		defer tl.Close()
		opts = append(opts, pipeline.WithSink(tl))
	}

	currentPipeline, err = pipeline.New(cfg, opts...)
	if err != nil {
		return errors.Wrap(err, "pipeline.New")
	}
	log.WithFields(logrus.Fields{
		"input":      f.Input,
		"strategy":   currentPipeline.Strategy(),
		"max_blocks": cfg.Track.MaxBlocks,
		"max_queue":  cfg.Track.MaxQueue,
	}).Info("tracking")

	// shut everything down once the source is exhausted and the pipeline drained
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	frames := make(chan frame.Frame, 8)
	g.Go(func() error {
		defer close(frames)
		return errors.Wrap(src.Run(ctx, frames), "source")
	})
	g.Go(func() error {
		defer cancel()
		return currentPipeline.Run(ctx, frames)
	})
	if tl != nil {
		g.Go(func() error { return tl.Run(ctx) })
	}
	if f.OneShot {
		go announceTracking(ctx, currentPipeline)
	}
	if f.Keys {
		go scanKeys(ctx)
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newSource(f *flags, width, height int) (frame.Source, error) {
	if u, err := url.Parse(f.Input); err == nil && u.Scheme != "" && strings.HasSuffix(u.Path, ".m3u8") {
		return stream.NewStream(
			stream.WithURL(*u),
			stream.WithFastStart(f.FastStart, f.FastResume),
			stream.WithFrameSize(width, height),
			stream.WithDumpHTTP(f.DumpHTTP),
			stream.WithVerboseDecoder(f.VerboseDecoder),
		)
	}
	if st, err := os.Stat(f.Input); err == nil && st.IsDir() {
		return &frame.DirSource{Path: f.Input}, nil
	}
	return &frame.VideoSource{
		Input:   f.Input,
		Width:   width,
		Height:  height,
		FPS:     f.FPS,
		Verbose: f.VerboseDecoder,
	}, nil
}

func newPublisher(f *flags) (publish.Publisher, func(), error) {
	var pubs publish.Multi
	cleanups := []func() error{}
	cleanup := func() {
		if err := pubs.Close(); err != nil {
			log.WithError(err).Warn("closing publishers")
		}
		for _, c := range cleanups {
			if err := c(); err != nil {
				log.WithError(err).Warn("cleanup")
			}
		}
	}

	switch out := f.Output; {
	case out == "":
	case filepath.Ext(out) == "":
		d, err := publish.NewDir(out)
		if err != nil {
			return nil, nil, err
		}
		pubs = append(pubs, d)
	default:
		pubs = append(pubs, publish.NewVideo(out, f.FPS))
	}

	if f.FIFO {
		mk, rm, err := publish.MkFIFOFactory()
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, rm)
		fifo, err := publish.NewFIFO(mk)
		if err != nil {
			rm()
			return nil, nil, err
		}
		log.Infof("raw bgr24 frames at %s", fifo.Path())
		pubs = append(pubs, fifo)
	}

	var pub publish.Publisher = pubs
	if f.MotionThreshold > 0 {
		pub = publish.Gate(pubs, filter.Motion(filter.DefaultDim, f.MotionThreshold))
	}
	return pub, cleanup, nil
}
