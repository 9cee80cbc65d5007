package filter

import (
	"context"
	"image"
)

// FilterFunc reports whether an image should pass. It must be safe for concurrent use.
type FilterFunc func(context.Context, image.Image) (bool, error)
