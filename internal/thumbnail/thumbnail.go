// Package thumbnail produces the bounded JPEG preview stored next to each
// original image.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// ContentType of every generated thumbnail.
const ContentType = "image/jpeg"

// Generator turns an original image into thumbnail bytes.
type Generator interface {
	Generate(src []byte) ([]byte, error)
}

// ImagingGenerator fits the image inside Size×Size (never upscaling) and
// encodes it as JPEG at Quality.
type ImagingGenerator struct {
	Size    int
	Quality int
}

func NewImagingGenerator(size, quality int) *ImagingGenerator {
	return &ImagingGenerator{Size: size, Quality: quality}
}

var ErrEmptySource = errors.New("empty image source")

func (g *ImagingGenerator) Generate(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmptySource
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, g.Size, g.Size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(g.Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Key returns the object key of the thumbnail for an image.
func Key(prefix, owner, imageID string) string {
	return fmt.Sprintf("%s/%s/%s.jpg", prefix, owner, imageID)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(src []byte) ([]byte, error)

func (f GeneratorFunc) Generate(src []byte) ([]byte, error) { return f(src) }
