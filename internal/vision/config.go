package vision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HSV is a color on the OpenCV 8-bit scale: H in 0..180, S and V in 0..255. Class bounds
// stop at 179, so a pixel hue of 180 matches no class.
type HSV struct {
	H, S, V uint8
}

func (c HSV) String() string {
	return fmt.Sprintf("%d,%d,%d", c.H, c.S, c.V)
}

// ColorClass is an inclusive HSV box. Hue does not wrap; Lower.H must not exceed Upper.H.
type ColorClass struct {
	Name  string
	Lower HSV
	Upper HSV
}

func (c ColorClass) Contains(p HSV) bool {
	return p.H >= c.Lower.H && p.H <= c.Upper.H &&
		p.S >= c.Lower.S && p.S <= c.Upper.S &&
		p.V >= c.Lower.V && p.V <= c.Upper.V
}

func (c ColorClass) String() string {
	if c.Name == "" {
		return c.Lower.String() + "-" + c.Upper.String()
	}
	return c.Name + "=" + c.Lower.String() + "-" + c.Upper.String()
}

func (c ColorClass) validate() error {
	if c.Lower.H > 179 || c.Upper.H > 179 {
		return errors.Errorf("class %q: hue is 0..179", c.Name)
	}
	if c.Lower.H > c.Upper.H || c.Lower.S > c.Upper.S || c.Lower.V > c.Upper.V {
		return errors.Errorf("class %q: lower bound %v exceeds upper bound %v", c.Name, c.Lower, c.Upper)
	}
	return nil
}

var (
	Green = ColorClass{Name: "green", Lower: HSV{77, 80, 40}, Upper: HSV{102, 255, 255}}
	Blue  = ColorClass{Name: "blue", Lower: HSV{110, 80, 40}, Upper: HSV{130, 255, 255}}
)

const DefaultKernel = 5

type Config struct {
	Classes     []ColorClass
	OpenKernel  int
	CloseKernel int
}

func DefaultConfig() Config {
	return Config{
		Classes:     []ColorClass{Green, Blue},
		OpenKernel:  DefaultKernel,
		CloseKernel: DefaultKernel,
	}
}

func (c Config) Validate() error {
	if len(c.Classes) == 0 {
		return errors.New("at least one color class is required")
	}
	for _, cl := range c.Classes {
		if err := cl.validate(); err != nil {
			return err
		}
	}
	for name, k := range map[string]int{"open": c.OpenKernel, "close": c.CloseKernel} {
		if k < 1 || k%2 == 0 {
			return errors.Errorf("%s kernel must be odd and positive, got %d", name, k)
		}
	}
	return nil
}

// ParseClass reads "name=h,s,v-h,s,v"; the name is optional.
func ParseClass(s string) (ColorClass, error) {
	var c ColorClass
	s = strings.TrimSpace(s)
	if name, rest, ok := strings.Cut(s, "="); ok {
		c.Name, s = strings.TrimSpace(name), rest
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return c, errors.Errorf("color class %q: want lower-upper", s)
	}
	var err error
	if c.Lower, err = parseHSV(lo); err != nil {
		return c, errors.Wrap(err, "lower")
	}
	if c.Upper, err = parseHSV(hi); err != nil {
		return c, errors.Wrap(err, "upper")
	}
	return c, c.validate()
}

// ParseClasses reads a semicolon separated list of classes.
func ParseClasses(s string) ([]ColorClass, error) {
	var out []ColorClass
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseClass(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, errors.Errorf("no color classes in %q", s)
	}
	return out, nil
}

func parseHSV(s string) (HSV, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return HSV{}, errors.Errorf("%q: want h,s,v", s)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return HSV{}, errors.Wrap(err, "strconv.ParseUint")
		}
		v[i] = uint8(n)
	}
	return HSV{v[0], v[1], v[2]}, nil
}
