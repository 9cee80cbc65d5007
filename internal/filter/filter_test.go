package filter

import (
	"context"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func noise(size int, seed int64) image.Image {
	r := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	r.Read(img.Pix)
	return img
}

func TestMotion(t *testing.T) {
	ctx := context.Background()
	f := Motion(DefaultDim, 10)

	a := noise(64, 1)
	b := noise(64, 2)

	ok, err := f(ctx, a)
	require.NoError(t, err)
	require.True(t, ok, "first frame passes")

	ok, err = f(ctx, a)
	require.NoError(t, err)
	require.False(t, ok, "identical frame is still")

	ok, err = f(ctx, b)
	require.NoError(t, err)
	require.True(t, ok, "different frame moved")

	ok, err = f(ctx, b)
	require.NoError(t, err)
	require.False(t, ok, "compared against the last passed frame")
}
