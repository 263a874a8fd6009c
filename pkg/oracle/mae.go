package oracle

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// MeanAbsError computes the mean absolute difference between the 8-bit RGB
// renderings of two PNG images. Alpha is dropped, not composited, matching
// the plain RGB comparison the corpus validation guarantees is meaningful.
func MeanAbsError(pathA, pathB string) (float64, error) {
	imgA, err := decodePNG(pathA)
	if err != nil {
		return 0, err
	}
	imgB, err := decodePNG(pathB)
	if err != nil {
		return 0, err
	}

	boundsA, boundsB := imgA.Bounds(), imgB.Bounds()
	if boundsA.Dx() != boundsB.Dx() || boundsA.Dy() != boundsB.Dy() {
		return 0, fmt.Errorf("image dimensions don't match: %dx%d vs %dx%d",
			boundsA.Dx(), boundsA.Dy(), boundsB.Dx(), boundsB.Dy())
	}

	var sum float64
	for y := 0; y < boundsA.Dy(); y++ {
		for x := 0; x < boundsA.Dx(); x++ {
			a := color.NRGBAModel.Convert(imgA.At(boundsA.Min.X+x, boundsA.Min.Y+y)).(color.NRGBA)
			b := color.NRGBAModel.Convert(imgB.At(boundsB.Min.X+x, boundsB.Min.Y+y)).(color.NRGBA)
			sum += absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
		}
	}

	pixels := boundsA.Dx() * boundsA.Dy()
	return sum / float64(pixels*3), nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func absDiff(a, b uint8) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
