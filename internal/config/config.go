package config

import (
	"image/color"
	"os"
	"strconv"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/overlay"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/vision"
	"github.com/joho/godotenv"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

const prefix = "BLOCKTRACK_"

// Config is read once at startup and never reloaded.
type Config struct {
	Vision  vision.Config
	Track   track.Config
	Overlay overlay.Config
}

func Default() Config {
	return Config{
		Vision:  vision.DefaultConfig(),
		Track:   track.DefaultConfig(),
		Overlay: overlay.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if err := c.Vision.Validate(); err != nil {
		return errors.Wrap(err, "vision")
	}
	if err := c.Track.Validate(); err != nil {
		return errors.Wrap(err, "track")
	}
	return nil
}

// Load starts from Default, applies the dotenv file at path (if any) and then the process
// environment, which wins.
func Load(path string) (Config, error) {
	file := map[string]string{}
	if path != "" {
		var err error
		file, err = godotenv.Read(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "godotenv.Read")
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(prefix + key); ok {
			return v, true
		}
		v, ok := file[prefix+key]
		return v, ok
	}

	c := Default()
	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_BLOCKS", &c.Track.MaxBlocks},
		{"MAX_QUEUE", &c.Track.MaxQueue},
		{"OPEN_KERNEL", &c.Vision.OpenKernel},
		{"CLOSE_KERNEL", &c.Vision.CloseKernel},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, prefix+i.key)
		}
		*i.dst = n
	}

	if v, ok := lookup("STRATEGY"); ok {
		c.Track.Strategy = v
	}
	if v, ok := lookup("CLASSES"); ok {
		classes, err := vision.ParseClasses(v)
		if err != nil {
			return Config{}, errors.Wrap(err, prefix+"CLASSES")
		}
		c.Vision.Classes = classes
	}
	if v, ok := lookup("DRAW_CONTOURS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errors.Wrap(err, prefix+"DRAW_CONTOURS")
		}
		c.Overlay.DrawContours = b
	}

	colors := []struct {
		key string
		dst *color.Color
	}{
		{"BOX_COLOR", &c.Overlay.BoxColor},
		{"TRAIL_COLOR", &c.Overlay.TrailColor},
		{"LABEL_COLOR", &c.Overlay.LabelColor},
		{"CONTOUR_COLOR", &c.Overlay.ContourColor},
	}
	for _, cl := range colors {
		v, ok := lookup(cl.key)
		if !ok {
			continue
		}
		parsed, err := ParseColor(v)
		if err != nil {
			return Config{}, errors.Wrap(err, prefix+cl.key)
		}
		*cl.dst = parsed
	}

	return c, c.Validate()
}

// ParseColor reads a hex color such as "#00ffff".
func ParseColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, errors.Wrap(err, "colorful.Hex")
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xff}, nil
}
