package frame

import (
	"bufio"
	"context"
	"io"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoSource decodes a video file, URL or stream with ffmpeg into bgr24 frames.
// When Reader is set it is fed to ffmpeg on stdin and Input is ignored.
type VideoSource struct {
	Input  string
	Reader io.Reader
	Format string // input container format, e.g. mpegts for stdin or lavfi
	Width  int
	Height int
	FPS    int // 0 keeps the native rate
	Seq    int // sequence number of the first frame

	Verbose bool // pass ffmpeg's stderr to the log
}

var _ Source = (*VideoSource)(nil)

// Probe fills in Width and Height from ffprobe when either is unset.
func (v *VideoSource) Probe() error {
	if v.Width > 0 && v.Height > 0 {
		return nil
	}
	if v.Reader != nil {
		return errors.New("frame size is required when decoding from a reader")
	}
	out, err := ffmpeg.Probe(v.Input)
	if err != nil {
		return errors.Wrap(err, "ffmpeg.Probe")
	}
	w, h, err := probeSize(out)
	if err != nil {
		return err
	}
	v.Width, v.Height = w, h
	return nil
}

func probeSize(probe string) (width, height int, err error) {
	stream := gjson.Parse(probe).Get(`streams.#(codec_type=="video")`)
	if !stream.Exists() {
		return 0, 0, errors.New("no video stream")
	}
	width, height = int(stream.Get("width").Int()), int(stream.Get("height").Int())
	if width <= 0 || height <= 0 {
		return 0, 0, errors.Errorf("bad video size %dx%d", width, height)
	}
	return width, height, nil
}

func (v *VideoSource) stream(w io.Writer, stderr io.Writer) *ffmpeg.Stream {
	kw := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "bgr24",
		"s":       sizeArg(v.Width, v.Height),
	}
	if v.FPS > 0 {
		kw["r"] = v.FPS
	}
	inKw := ffmpeg.KwArgs{}
	if v.Format != "" {
		inKw["f"] = v.Format
	}
	var in *ffmpeg.Stream
	if v.Reader != nil {
		in = ffmpeg.Input("pipe:0", inKw).WithInput(v.Reader)
	} else {
		in = ffmpeg.Input(v.Input, inKw)
	}
	return in.Output("pipe:1", kw).WithOutput(w).WithErrorOutput(stderr)
}

func (v *VideoSource) Run(ctx context.Context, out chan<- Frame) error {
	if err := v.Probe(); err != nil {
		return err
	}
	log := logger.Entry(ctx).WithFields(logrus.Fields{"width": v.Width, "height": v.Height})

	level := logrus.TraceLevel
	if v.Verbose {
		level = logrus.DebugLevel
	}
	stderr := log.WriterLevel(level)
	defer stderr.Close()

	r, w := io.Pipe()
	defer r.Close()
	cmd := v.stream(w, stderr)
	cmd.Context = ctx

	go func() {
		err := cmd.Run()
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("ffmpeg")
		}
		w.CloseWithError(errors.Wrap(err, "ffmpeg"))
	}()

	return readFrames(ctx, bufio.NewReader(r), v.Width, v.Height, v.Seq, out)
}

// readFrames slices r into bgr24 frames. A short trailing frame is delivered with ErrDecode.
func readFrames(ctx context.Context, r io.Reader, width, height, seq int, out chan<- Frame) error {
	size := width * height * 3
	for i := seq; ; i++ {
		buf := make([]byte, size)
		n, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF:
			return nil
		case err == io.ErrUnexpectedEOF:
			return send(ctx, out, Frame{Seq: i, Err: errors.Wrapf(ErrDecode, "short frame: %d of %d bytes", n, size)})
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		f := Frame{Seq: i}
		f.Image, f.Err = DecodeBGR(buf, width, height)
		if err := send(ctx, out, f); err != nil {
			return nil
		}
	}
}
