package frame

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/logger"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// DirSource replays the images in a directory in lexical order.
type DirSource struct {
	Path string
}

var _ Source = (*DirSource)(nil)

// Files lists the image files DirSource will read.
func (d *DirSource) Files() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, errors.Wrap(err, "os.ReadDir")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		files = append(files, filepath.Join(d.Path, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

func (d *DirSource) Run(ctx context.Context, out chan<- Frame) error {
	log := logger.Entry(ctx).WithField("dir", d.Path)
	files, err := d.Files()
	if err != nil {
		return err
	}
	log.Infof("replaying %d images", len(files))
	for i, file := range files {
		f := Frame{Seq: i}
		img, err := load(file)
		if err != nil {
			f.Err = errors.Wrap(ErrDecode, err.Error())
		} else {
			f.Image = img
		}
		if err := send(ctx, out, f); err != nil {
			return nil
		}
	}
	return nil
}

func load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	return ToRGBA(img), nil
}
