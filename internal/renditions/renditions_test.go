package renditions

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc-123", BaseName("uploads/abc-123.jpg"))
	assert.Equal(t, "photo", BaseName("photo.png"))
	assert.Equal(t, "noext", BaseName("dir/noext"))
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	key := ObjectKey("65f0c1d2", "abc", SizeMedium, FormatWebP)
	assert.Equal(t, "products/65f0c1d2/abc-medium.webp", key)
}

func TestGenerateProducesAllRenditions(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 1200, 900))
	for x := 0; x < 1200; x += 10 {
		for y := 0; y < 900; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	outputs, err := Generate(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, outputs, 6)

	seen := map[string]bool{}
	for _, out := range outputs {
		seen[out.Size+"/"+out.Format] = true
		assert.NotEmpty(t, out.Data)
		assert.Equal(t, "image/"+out.Format, out.ContentType)
	}
	for _, size := range []string{SizeOriginal, SizeMedium, SizeThumbnail} {
		for _, format := range []string{FormatWebP, FormatAVIF} {
			assert.True(t, seen[size+"/"+format], "missing %s %s", size, format)
		}
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Generate([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestResizeNeverEnlarges(t *testing.T) {
	t.Parallel()

	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	resized := resize(small, mediumPx)
	assert.Equal(t, 100, resized.Bounds().Dx())
	assert.Equal(t, 50, resized.Bounds().Dy())

	large := image.NewRGBA(image.Rect(0, 0, 1600, 800))
	shrunk := resize(large, mediumPx)
	assert.LessOrEqual(t, shrunk.Bounds().Dx(), mediumPx)
	assert.LessOrEqual(t, shrunk.Bounds().Dy(), mediumPx)
}
