package overlay

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/eliukblau/pixterm/pkg/ansimage"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Terminal writes frames as ansi art sized to the controlling terminal.
type Terminal struct {
	Out     io.Writer
	Flicker bool // clear the screen before each frame
}

func (t *Terminal) Preview(img image.Image) error {
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return errors.Wrap(err, "unix.IoctlGetWinsize")
	}
	ansi, err := ansimage.NewScaledFromImage(img, 8*int(ws.Col), 7*int(ws.Row), color.Black, ansimage.ScaleModeFit, ansimage.DitheringWithChars)
	if err != nil {
		return errors.Wrap(err, "ansimage.NewScaledFromImage")
	}
	if t.Flicker {
		fmt.Fprint(out, "\033[H\033[2J")
	}
	_, err = io.WriteString(out, ansi.Render())
	return errors.Wrap(err, "write")
}
