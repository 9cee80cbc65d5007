package stream

import (
	"context"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/grafov/m3u8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func (s *Stream) handleSegments(ctx context.Context, mediapl *m3u8.MediaPlaylist, out chan<- frame.Frame) error {
	log := logger.Entry(ctx)

	count := 0
	for _, seg := range mediapl.Segments {
		if seg != nil {
			count++
		}
	}
	log.WithFields(logrus.Fields{"segments": count, "fast_start": s.fastStart}).Debug("media playlist")
	if !s.fastResume {
		defer func() { s.fastStart = 0 }()
	}

	processed := 0
	for i, seg := range mediapl.Segments {
		if seg == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		tsURL, err := s.url.Parse(seg.URI)
		if err != nil {
			return errors.Wrap(err, "url.Parse")
		}
		if _, ok := s.segmentMap[*tsURL]; ok || (s.fastStart > 0 && s.fastStart+i < count) {
			s.segmentMap[*tsURL] = struct{}{}
			continue
		}
		processed++
		if err := s.decode(ctx, tsURL.String(), out); err != nil {
			log.WithError(err).WithField("segment", tsURL.String()).Error("processing segment")
		}
		s.segmentMap[*tsURL] = struct{}{}
	}
	log.WithField("processed", processed).Debug("segments processed")
	return nil
}

func (s *Stream) decodeSegment(ctx context.Context, name string, out chan<- frame.Frame) error {
	log := logger.Entry(ctx).WithField("segment", name)

	if s.width == 0 || s.height == 0 {
		probe := &frame.VideoSource{Input: name}
		if err := probe.Probe(); err != nil {
			return errors.Wrap(err, "probe")
		}
		s.width, s.height = probe.Width, probe.Height
		log.Infof("frame size %dx%d", s.width, s.height)
	}

	resp, err := s.httpGet(ctx, name)
	if err != nil {
		return errors.Wrap(err, "httpGet")
	}
	defer resp.Body.Close()

	counter := &countingChan{out: out}
	src := &frame.VideoSource{
		Reader:  resp.Body,
		Format:  "mpegts",
		Width:   s.width,
		Height:  s.height,
		Seq:     s.seq,
		Verbose: s.verbose,
	}
	log.Trace("processing")
	err = counter.run(ctx, src)
	s.seq += counter.n
	log.WithField("frames", counter.n).Trace("processed")
	return err
}

// countingChan forwards frames while counting them so sequence numbers continue
// across segments.
type countingChan struct {
	out chan<- frame.Frame
	n   int
}

func (c *countingChan) run(ctx context.Context, src frame.Source) error {
	ch := make(chan frame.Frame)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Run(ctx, ch)
		close(ch)
	}()
	for f := range ch {
		c.n++
		select {
		case c.out <- f:
		case <-ctx.Done():
			// keep draining so the source can exit
		}
	}
	return <-errc
}
