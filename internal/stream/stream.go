package stream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type StreamOption func(s *Stream) error

// Stream follows a live HLS media playlist and decodes every new segment into frames.
type Stream struct {
	// StreamOptions
	url        url.URL
	client     *http.Client
	fastStart  int
	fastResume bool
	dumpHTTP   bool
	verbose    bool
	width      int
	height     int

	// newStream
	segmentMap map[url.URL]struct{}
	seq        int
	decode     func(ctx context.Context, name string, out chan<- frame.Frame) error
}

var _ frame.Source = (*Stream)(nil)

func NewStream(opts ...StreamOption) (*Stream, error) {
	s := newStream()
	for _, opt := range opts {
		err := opt(s)
		if err != nil {
			return nil, err
		}
	}
	if s.url.Scheme == "" {
		return nil, errors.New("stream url is required")
	}
	if s.client == nil {
		s.client = newClient()
	}
	return s, nil
}

func newStream() *Stream {
	s := &Stream{
		fastStart:  1,
		fastResume: true,
		segmentMap: make(map[url.URL]struct{}),
	}
	s.decode = s.decodeSegment
	return s
}

func WithURL(u url.URL) StreamOption {
	return func(s *Stream) error {
		s.url = u
		return nil
	}
}

func WithClient(c *http.Client) StreamOption {
	return func(s *Stream) error {
		s.client = c
		return nil
	}
}

// WithFastStart only processes the newest n segments of the first playlist. With resume set,
// any later poll that sees more than n unseen segments does the same.
func WithFastStart(n int, resume bool) StreamOption {
	return func(s *Stream) error {
		if n < 0 {
			return errors.Errorf("fast start must not be negative, got %d", n)
		}
		s.fastStart, s.fastResume = n, resume
		return nil
	}
}

// WithFrameSize skips probing the first segment for its dimensions.
func WithFrameSize(width, height int) StreamOption {
	return func(s *Stream) error {
		s.width, s.height = width, height
		return nil
	}
}

func WithDumpHTTP(dump bool) StreamOption {
	return func(s *Stream) error {
		s.dumpHTTP = dump
		return nil
	}
}

func WithVerboseDecoder(verbose bool) StreamOption {
	return func(s *Stream) error {
		s.verbose = verbose
		return nil
	}
}

func (s *Stream) Run(ctx context.Context, out chan<- frame.Frame) error {
	ctx, log := logger.WithFields(ctx, logrus.Fields{"url": s.url.String()})

	pollDuration := minPollDuration
	for {
		start := time.Now()
		mediapl, err := s.doPlaylist(ctx, &s.url)
		if err != nil {
			log.WithError(err).Warn("doPlaylist")
			pollDuration = minPollDuration
		} else {
			pollDuration = targetPollDuration(mediapl.TargetDuration)
			if err := s.handleSegments(ctx, mediapl, out); err != nil {
				log.WithError(err).Error("handleSegments")
			}
		}
		elapsed := time.Since(start)
		sleepFor := pollDuration - elapsed
		if sleepFor < minPollDuration {
			sleepFor = minPollDuration
		}
		log.WithFields(logrus.Fields{
			"elapsed":   elapsed,
			"poll":      pollDuration,
			"sleep_for": sleepFor,
		}).Debug("processed playlist")

		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func targetPollDuration(target float64) time.Duration {
	d := time.Duration(target * float64(time.Second))
	switch {
	case d < minPollDuration:
		return minPollDuration
	case d > maxPollDuration:
		return maxPollDuration
	}
	return d
}
