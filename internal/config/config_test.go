package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/WIZARDISHUNGRY/blocktrack/internal/track"
	"github.com/WIZARDISHUNGRY/blocktrack/internal/vision"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), c)
	require.Equal(t, 6, c.Track.MaxBlocks)
	require.Equal(t, 20, c.Track.MaxQueue)
	require.Equal(t, []vision.ColorClass{vision.Green, vision.Blue}, c.Vision.Classes)
}

func TestLoad(t *testing.T) {
	p := writeEnv(t, `
BLOCKTRACK_MAX_BLOCKS=3
BLOCKTRACK_MAX_QUEUE=8
BLOCKTRACK_STRATEGY=optimal
BLOCKTRACK_CLASSES="red=0,120,70-10,255,255"
BLOCKTRACK_BOX_COLOR="#00ff00"
BLOCKTRACK_DRAW_CONTOURS=false
`)
	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 3, c.Track.MaxBlocks)
	require.Equal(t, 8, c.Track.MaxQueue)
	require.Equal(t, track.StrategyOptimal, c.Track.Strategy)
	require.Equal(t, []vision.ColorClass{{
		Name:  "red",
		Lower: vision.HSV{H: 0, S: 120, V: 70},
		Upper: vision.HSV{H: 10, S: 255, V: 255},
	}}, c.Vision.Classes)
	require.Equal(t, color.RGBA{0, 0xff, 0, 0xff}, c.Overlay.BoxColor)
	require.False(t, c.Overlay.DrawContours)
}

func TestEnvironmentWins(t *testing.T) {
	p := writeEnv(t, "BLOCKTRACK_MAX_BLOCKS=3\n")
	t.Setenv("BLOCKTRACK_MAX_BLOCKS", "4")
	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 4, c.Track.MaxBlocks)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		desc string
		body string
	}{
		{desc: "not a number", body: "BLOCKTRACK_MAX_QUEUE=lots"},
		{desc: "even kernel", body: "BLOCKTRACK_OPEN_KERNEL=4"},
		{desc: "zero blocks", body: "BLOCKTRACK_MAX_BLOCKS=0"},
		{desc: "unknown strategy", body: "BLOCKTRACK_STRATEGY=kalman"},
		{desc: "bad color", body: "BLOCKTRACK_TRAIL_COLOR=crimson"},
		{desc: "bad class", body: "BLOCKTRACK_CLASSES=1,2,3"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := Load(writeEnv(t, tC.body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
