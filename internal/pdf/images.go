package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	// Decoders for image.Decode / image.DecodeConfig.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an uploaded image.
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Aspect returns width/height.
func (i ImageInfo) Aspect() float64 {
	if i.Height == 0 {
		return 1
	}
	return float64(i.Width) / float64(i.Height)
}

// InspectImage decodes the image header of data.
func InspectImage(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ImageContentTypes lists the sniffed content types accepted for uploads.
var ImageContentTypes = map[string][]string{
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
	"image/bmp":  {".bmp"},
}

// SniffImage returns the content type of data if it is an accepted image.
func SniffImage(data []byte) (string, bool) {
	ct := http.DetectContentType(data)
	_, ok := ImageContentTypes[ct]
	return ct, ok
}

type encoder func(io.Writer, image.Image) error

func encodePNG(w io.Writer, img image.Image) error { return png.Encode(w, img) }

func encodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 92})
}

// reencode decodes data and encodes it again with each encoder in turn,
// returning the first result that fn accepts.
func reencode[T any](data []byte, fn func([]byte) (T, error), encoders ...encoder) (T, error) {
	var zero T
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	lastErr := err
	for _, enc := range encoders {
		var buf bytes.Buffer
		if err := enc(&buf, img); err != nil {
			lastErr = err
			continue
		}
		v, err := fn(buf.Bytes())
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w: %v", ErrUnsupportedImage, lastErr)
}

// normalizeImage returns data unchanged for PNG and JPEG and re-encodes
// every other decodable format as PNG.
func normalizeImage(data []byte) ([]byte, error) {
	info, err := InspectImage(data)
	if err != nil {
		return nil, err
	}
	if info.Format == "png" || info.Format == "jpeg" {
		return data, nil
	}
	return reencode(data, func(b []byte) ([]byte, error) { return b, nil }, encodePNG)
}
