package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
)

// MustVector builds a Vector literal or fails the test.
func MustVector(t *testing.T, genes ...int) core.Vector {
	t.Helper()
	v, err := core.NewVector(genes)
	require.NoError(t, err)
	return v
}

// WritePNG writes a width x height solid-color PNG to path.
func WritePNG(t *testing.T, path string, width, height int, c color.NRGBA) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// WriteCorpusDir populates dir with one small valid PNG per name and returns
// the matching corpus in the given order.
func WriteCorpusDir(t *testing.T, dir string, names ...string) core.Corpus {
	t.Helper()

	corpus := make(core.Corpus, 0, len(names))
	for i, name := range names {
		path := filepath.Join(dir, name)
		WritePNG(t, path, 4, 4, color.NRGBA{R: uint8(40 * i), G: 80, B: 120, A: 255})
		corpus = append(corpus, core.ImageRef{Name: name, Path: path})
	}
	return corpus
}
