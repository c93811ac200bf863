package resize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the payload is not an image any registered decoder
// understands, or when the resized image cannot be encoded again.
var ErrDecode = errors.New("decode image")

// ToWidth downscales data so that its width does not exceed maxWidth, keeping the
// aspect ratio and the source encoding. Images that already fit are returned as is.
func ToWidth(data []byte, maxWidth int) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= maxWidth {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	height := TargetHeight(cfg.Width, cfg.Height, maxWidth)
	resized := imaging.Resize(img, maxWidth, height, imaging.Lanczos)

	buffer := &bytes.Buffer{}
	if err := encode(buffer, resized, format); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// encode writes img in the named format. Codec failures are reported as ErrDecode
// so callers see a single image-codec error class.
func encode(w io.Writer, img image.Image, format string) error {
	if err := imaging.Encode(w, img, outputFormat(format)); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrDecode, format, err)
	}
	return nil
}

// TargetHeight is round(width * h / w), never below one pixel.
func TargetHeight(w, h, width int) int {
	height := int(math.Round(float64(width) * float64(h) / float64(w)))
	if height < 1 {
		height = 1
	}
	return height
}

// outputFormat maps a decoder name to an encoder, falling back to PNG
// for formats imaging cannot write (webp).
func outputFormat(format string) imaging.Format {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return imaging.PNG
	}
	return f
}
