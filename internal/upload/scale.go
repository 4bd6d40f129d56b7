package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
)

// ResizeScaler shrinks images wider than MaxWidth, keeping the aspect ratio.
// Narrower images are stored as uploaded, and so is WebP, which can be decoded
// but not re-encoded.
type ResizeScaler struct {
	MaxWidth uint
}

func NewResizeScaler(maxWidth uint) *ResizeScaler {
	return &ResizeScaler{MaxWidth: maxWidth}
}

func (s *ResizeScaler) Scale(data []byte, name string) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("%s is not a supported image", name), err)
	}
	if format == "webp" || s.MaxWidth == 0 || uint(cfg.Width) <= s.MaxWidth {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("%s is not a supported image", name), err)
	}
	scaled := resize.Resize(s.MaxWidth, 0, img, resize.Lanczos3)

	var out bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&out, scaled)
	case "gif":
		err = gif.Encode(&out, scaled, nil)
	default:
		err = jpeg.Encode(&out, scaled, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out.Bytes(), nil
}
