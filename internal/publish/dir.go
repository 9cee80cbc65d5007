package publish

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Dir writes every frame as a numbered PNG.
type Dir struct {
	Path string
}

func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll")
	}
	return &Dir{Path: path}, nil
}

func (d *Dir) Name(seq int) string {
	return filepath.Join(d.Path, fmt.Sprintf("%06d.png", seq))
}

func (d *Dir) Publish(ctx context.Context, seq int, img *image.RGBA) error {
	f, err := os.Create(d.Name(seq))
	if err != nil {
		return errors.Wrap(err, "os.Create")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrap(err, "png.Encode")
	}
	return errors.Wrap(f.Close(), "close")
}

func (d *Dir) Close() error { return nil }
