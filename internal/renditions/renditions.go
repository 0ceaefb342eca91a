package renditions

import (
	"bytes"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// Sizes derived from every upload. Zero means keep the source dimensions.
const (
	SizeOriginal  = "original"
	SizeMedium    = "medium"
	SizeThumbnail = "thumbnail"

	mediumPx    = 800
	thumbnailPx = 200
)

const (
	FormatWebP = "webp"
	FormatAVIF = "avif"
)

var sizes = []struct {
	name string
	px   int
}{
	{SizeOriginal, 0},
	{SizeMedium, mediumPx},
	{SizeThumbnail, thumbnailPx},
}

var formats = []string{FormatWebP, FormatAVIF}

// Output is one encoded rendition ready for upload.
type Output struct {
	Size        string
	Format      string
	Data        []byte
	ContentType string
}

// Generate decodes the uploaded bytes and produces every size x format
// rendition. Resizing fits inside the bounding box and never enlarges.
func Generate(data []byte) ([]Output, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("renditions: decode: %w", err)
	}

	outputs := make([]Output, 0, len(sizes)*len(formats))
	for _, size := range sizes {
		img := resize(src, size.px)
		for _, format := range formats {
			encoded, err := encode(img, format)
			if err != nil {
				return nil, fmt.Errorf("renditions: encode %s %s: %w", size.name, format, err)
			}
			outputs = append(outputs, Output{
				Size:        size.name,
				Format:      format,
				Data:        encoded,
				ContentType: "image/" + format,
			})
		}
	}
	return outputs, nil
}

func resize(src image.Image, px int) image.Image {
	if px <= 0 {
		return src
	}
	bounds := src.Bounds()
	if bounds.Dx() <= px && bounds.Dy() <= px {
		return src
	}
	return imaging.Fit(src, px, px, imaging.Lanczos)
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		if err := webp.Encode(&buf, img, webp.Options{Quality: 80}); err != nil {
			return nil, err
		}
	case FormatAVIF:
		if err := avif.Encode(&buf, img, avif.Options{Quality: 60, Speed: 8}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), nil
}

// BaseName strips the directory and extension from an original upload key.
func BaseName(originalKey string) string {
	base := path.Base(originalKey)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ObjectKey is the deterministic storage key for one rendition. Determinism
// makes redelivered jobs overwrite their own outputs instead of piling up.
func ObjectKey(productID, baseName, size, format string) string {
	return fmt.Sprintf("products/%s/%s-%s.%s", productID, baseName, size, format)
}
