package main

import (
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type flags struct {
	Input           string
	Output          string
	FIFO            bool
	Env             string
	TrackLog        string
	Strategy        string
	LogLevel        string
	AnsiArt         int
	Flicker         bool
	OneShot         bool
	MotionThreshold int
	Size            string
	FPS             int
	FastStart       int
	FastResume      bool
	DumpHTTP        bool
	VerboseDecoder  bool
	DumpFSM         bool
	Keys            bool
}

func getFlags() *flags {
	f := flags{}
	flag.StringVar(&f.Input, "input", "", "image directory, video file or URL, or HLS .m3u8 URL")
	flag.StringVar(&f.Output, "output", "", "directory for annotated PNGs, or a video file to encode")
	flag.BoolVar(&f.FIFO, "fifo", false, "also stream raw bgr24 frames into a named pipe")
	flag.StringVar(&f.Env, "env", "", "dotenv file with BLOCKTRACK_* settings")
	flag.StringVar(&f.TrackLog, "tracklog", "", "sqlite file recording every track point")
	flag.StringVar(&f.Strategy, "strategy", "", "assignment strategy: greedy or optimal (overrides BLOCKTRACK_STRATEGY)")
	flag.StringVar(&f.LogLevel, "log-level", "info", "logrus level")
	flag.IntVar(&f.AnsiArt, "ansi-art", 0, "output ansi art on modulo frame")
	flag.BoolVar(&f.Flicker, "flicker", false, "reset terminal in ansi mode")
	flag.BoolVar(&f.OneShot, "one-shot", true, "render an ansi frame when tracking starts")
	flag.IntVar(&f.MotionThreshold, "motion-threshold", 0, "only publish frames at least this perceptual hash distance from the last one")
	flag.StringVar(&f.Size, "size", "", "frame size WxH for video and HLS input, probed when empty")
	flag.IntVar(&f.FPS, "fps", 0, "decode and encode at this rate, 0 keeps the source rate")
	flag.IntVar(&f.FastStart, "fast-start", 1, "start by only processing this many recent segments")
	flag.BoolVar(&f.FastResume, "fast-resume", true, "if we see a bunch of new segments, behave like fast start")
	flag.BoolVar(&f.DumpHTTP, "dump-http", false, "dumps http headers")
	flag.BoolVar(&f.VerboseDecoder, "verbose", false, "ffmpeg debugging info")
	flag.BoolVar(&f.DumpFSM, "dump-fsm", false, "write graphviz src and exit")
	flag.BoolVar(&f.Keys, "keys", false, "read single key commands from the terminal")
	return &f
}

func parseSize(s string) (width, height int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.Errorf("size %q: want WxH", s)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, errors.Wrap(err, "width")
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, errors.Wrap(err, "height")
	}
	if width <= 0 || height <= 0 {
		return 0, 0, errors.Errorf("size %q must be positive", s)
	}
	return width, height, nil
}
