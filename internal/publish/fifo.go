package publish

import (
	"context"
	"image"
	"os"
	"path"
	"strconv"
	"sync/atomic"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/frame"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MkFIFO creates a fresh named pipe and returns its path plus a cleanup that is safe to
// call more than once.
type MkFIFO func() (string, func() error, error)

func MkFIFOFactory() (MkFIFO, func() error, error) {
	dir, err := os.MkdirTemp(os.TempDir(), "blocktrack-")
	if err != nil {
		return nil, nil, errors.Wrap(err, "os.MkdirTemp")
	}
	var counter uint64
	return func() (string, func() error, error) {
			i := atomic.AddUint64(&counter, 1)
			dst := path.Join(dir, strconv.FormatUint(i, 16))
			err := unix.Mkfifo(dst, 0600)
			if err != nil {
				return "", nil, errors.Wrap(err, "unix.Mkfifo")
			}
			return dst, func() error {
				if dst == "" {
					return nil
				}
				defer func() { dst = "" }()
				return os.Remove(dst)
			}, nil
		}, func() error {
			return os.RemoveAll(dir)
		}, nil
}

// FIFO streams raw bgr24 frames into a named pipe, e.g. for
// `ffplay -f rawvideo -pixel_format bgr24 -video_size WxH PATH`.
// Frames published while nobody is reading are dropped.
type FIFO struct {
	path    string
	cleanup func() error
	f       *os.File
	buf     []byte
	dropped atomic.Int64
}

func NewFIFO(mk MkFIFO) (*FIFO, error) {
	p, cleanup, err := mk()
	if err != nil {
		return nil, err
	}
	return &FIFO{path: p, cleanup: cleanup}, nil
}

func (f *FIFO) Path() string { return f.path }

func (f *FIFO) Dropped() int64 { return f.dropped.Load() }

func (f *FIFO) Publish(ctx context.Context, seq int, img *image.RGBA) error {
	if f.f == nil {
		// O_NONBLOCK fails with ENXIO until a reader opens the other end.
		file, err := os.OpenFile(f.path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if errors.Is(err, unix.ENXIO) {
			f.dropped.Add(1)
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "os.OpenFile")
		}
		logger.Entry(ctx).WithField("fifo", f.path).Info("reader attached")
		f.f = file
	}
	f.buf = frame.AppendBGR(f.buf[:0], img)
	if _, err := f.f.Write(f.buf); err != nil {
		f.dropped.Add(1)
		f.f.Close()
		f.f = nil
		if errors.Is(err, unix.EPIPE) {
			logger.Entry(ctx).WithField("fifo", f.path).Info("reader detached")
			return nil
		}
		return errors.Wrap(err, "write")
	}
	return nil
}

func (f *FIFO) Close() error {
	if f.f != nil {
		f.f.Close()
		f.f = nil
	}
	return f.cleanup()
}
