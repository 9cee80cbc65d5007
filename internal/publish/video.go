package publish

import (
	"context"
	"image"
	"io"
	"strconv"
	"sync"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Video encodes frames into a file with ffmpeg. The encoder starts on the first frame,
// which also fixes the frame size.
type Video struct {
	Output string
	FPS    int

	mu     sync.Mutex
	w      *io.PipeWriter
	done   chan error
	size   image.Point
	buf    []byte
	stderr *io.PipeWriter
}

func NewVideo(output string, fps int) *Video {
	if fps <= 0 {
		fps = 25
	}
	return &Video{Output: output, FPS: fps}
}

func (v *Video) start(ctx context.Context, size image.Point) {
	log := logger.Entry(ctx).WithField("output", v.Output)
	r, w := io.Pipe()
	v.w, v.size = w, size
	v.done = make(chan error, 1)
	v.stderr = log.WriterLevel(logrus.TraceLevel)

	cmd := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "bgr24",
		"s":       strconv.Itoa(size.X) + "x" + strconv.Itoa(size.Y),
		"r":       v.FPS,
	}).
		Output(v.Output, ffmpeg.KwArgs{"pix_fmt": "yuv420p"}).
		OverWriteOutput().
		WithInput(r).
		WithErrorOutput(v.stderr)

	go func() {
		err := cmd.Run()
		r.CloseWithError(errors.Wrap(err, "ffmpeg"))
		v.done <- err
	}()
	log.Infof("encoding %dx%d at %d fps", size.X, size.Y, v.FPS)
}

func (v *Video) Publish(ctx context.Context, seq int, img *image.RGBA) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	size := img.Bounds().Size()
	if v.w == nil {
		v.start(ctx, size)
	}
	if size != v.size {
		return errors.Errorf("frame %d is %v, encoder was started at %v", seq, size, v.size)
	}
	v.buf = frame.AppendBGR(v.buf[:0], img)
	_, err := v.w.Write(v.buf)
	return errors.Wrap(err, "write frame")
}

// Close flushes the encoder and waits for ffmpeg to exit.
func (v *Video) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.w == nil {
		return nil
	}
	v.w.Close()
	err := <-v.done
	v.stderr.Close()
	v.w = nil
	return errors.Wrap(err, "ffmpeg")
}
