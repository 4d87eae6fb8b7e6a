package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"go-pdftools/internal/overlay"
)

// TextWatermark is a centered text watermark applied to whole pages.
type TextWatermark struct {
	Text     string  `json:"text"`
	FontSize int     `json:"fontSize"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
	Color    string  `json:"color"`
}

// TextStamp is a text overlay placed with an overlay.Descriptor.
type TextStamp struct {
	Text     string `json:"text"`
	FontSize int    `json:"fontSize"`
	Color    string `json:"color"`
}

const (
	defaultFont      = "Helvetica"
	defaultFontSize  = 24
	defaultColor     = "#000000"
	watermarkColor   = "#808080"
	watermarkOpacity = 0.3
	// Average Helvetica glyph width as a fraction of the font size, used to
	// estimate the box of a text stamp.
	glyphWidth = 0.5
)

// pdfcpu rotates counter-clockwise in [-180,180]; overlays rotate clockwise
// in screen space.
func pdfRotation(screenDeg float64) float64 {
	r := overlay.NormalizeRotation(-screenDeg)
	if r > 180 {
		r -= 360
	}
	return r
}

func sanitizeColor(c, fallback string) string {
	c = strings.TrimSpace(c)
	if len(c) != 7 || c[0] != '#' {
		return fallback
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fallback
		}
	}
	return c
}

// centerOffset returns the displacement of point (x, y) from the page center,
// which is how pdfcpu positions a watermark with "position:c".
func centerOffset(x, y float64, page overlay.Size) (float64, float64) {
	return x - page.Width/2, y - page.Height/2
}

func pageSize(rs io.ReadSeeker, page int, password string) (overlay.Size, error) {
	sizes, err := PageSizes(rs, password)
	if err != nil {
		return overlay.Size{}, err
	}
	if page < 0 || page >= len(sizes) {
		return overlay.Size{}, fmt.Errorf("page index %d of %d pages: %w", page, len(sizes), ErrPageOutOfRange)
	}
	return sizes[page], nil
}

func applyWatermark(rs io.ReadSeeker, w io.Writer, indices []int, wm *model.Watermark, password string) error {
	if err := rewind(rs); err != nil {
		return err
	}
	var sel []string
	if len(indices) > 0 {
		sel = selection(indices)
	}
	return wrap("add watermark", pdfapi.AddWatermarks(rs, w, sel, wm, newConfig(password)))
}

// Watermark stamps a text watermark at the center of the pages at indices,
// or of every page when indices is empty.
func Watermark(rs io.ReadSeeker, w io.Writer, tw TextWatermark, indices []int, password string) error {
	if strings.TrimSpace(tw.Text) == "" {
		return fmt.Errorf("watermark: %w", ErrEmptyText)
	}
	if len(indices) > 0 {
		count, err := PageCount(rs, password)
		if err != nil {
			return err
		}
		if indices, err = CheckIndices(indices, count); err != nil {
			return err
		}
	}
	size := tw.FontSize
	if size <= 0 {
		size = 48
	}
	opacity := tw.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = watermarkOpacity
	}
	desc := fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, position:c, rotation:%.2f, opacity:%.2f, fillcolor:%s",
		defaultFont, size, pdfRotation(tw.Rotation), opacity, sanitizeColor(tw.Color, watermarkColor))
	wm, err := pdfapi.TextWatermark(tw.Text, desc, true, false, types.POINTS)
	if err != nil {
		return wrap("text watermark", err)
	}
	return applyWatermark(rs, w, indices, wm, password)
}

// StampImage places img on page according to desc and returns the rectangle
// it occupies in page points. If pdfcpu cannot embed the image as uploaded,
// it is re-encoded as PNG and then as JPEG before giving up.
func StampImage(rs io.ReadSeeker, w io.Writer, img []byte, page int, desc overlay.Descriptor, password string) (overlay.PageRect, error) {
	if err := desc.Validate(); err != nil {
		return overlay.PageRect{}, err
	}
	info, err := InspectImage(img)
	if err != nil {
		return overlay.PageRect{}, err
	}
	size, err := pageSize(rs, page, password)
	if err != nil {
		return overlay.PageRect{}, err
	}

	d := desc.Normalize(overlay.DefaultScaleBounds)
	rect := overlay.ToPageCoordinates(d.Position(), d.Scale, size, info.Aspect())
	dx, dy := centerOffset(rect.X+rect.Width/2, rect.Y+rect.Height/2, size)
	spec := fmt.Sprintf("scalefactor:%.6f abs, position:c, offset:%.2f %.2f, rotation:%.2f, opacity:%.2f",
		rect.Width/float64(info.Width), dx, dy, pdfRotation(d.Rotation), d.Opacity)

	build := func(b []byte) (*model.Watermark, error) {
		return pdfapi.ImageWatermarkForReader(bytes.NewReader(b), spec, true, false, types.POINTS)
	}
	wm, err := build(img)
	if err != nil {
		if wm, err = reencode(img, build, encodePNG, encodeJPEG); err != nil {
			return overlay.PageRect{}, err
		}
	}
	if err := applyWatermark(rs, w, []int{page}, wm, password); err != nil {
		return overlay.PageRect{}, err
	}
	return rect, nil
}

// StampText places a text overlay centered on the descriptor position. The
// returned rectangle is an estimate based on average glyph width.
func StampText(rs io.ReadSeeker, w io.Writer, ts TextStamp, page int, desc overlay.Descriptor, password string) (overlay.PageRect, error) {
	if strings.TrimSpace(ts.Text) == "" {
		return overlay.PageRect{}, fmt.Errorf("text stamp: %w", ErrEmptyText)
	}
	if err := desc.Validate(); err != nil {
		return overlay.PageRect{}, err
	}
	size, err := pageSize(rs, page, password)
	if err != nil {
		return overlay.PageRect{}, err
	}
	fontSize := ts.FontSize
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}

	d := desc.Normalize(overlay.DefaultScaleBounds)
	boxW := glyphWidth * float64(fontSize) * float64(len([]rune(ts.Text)))
	boxH := float64(fontSize)
	scale := boxW / size.Width * 100
	rect := overlay.ToPageCoordinates(d.Position(), scale, size, boxW/boxH)
	dx, dy := centerOffset(rect.X+rect.Width/2, rect.Y+rect.Height/2, size)

	spec := fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, position:c, offset:%.2f %.2f, rotation:%.2f, opacity:%.2f, fillcolor:%s",
		defaultFont, fontSize, dx, dy, pdfRotation(d.Rotation), d.Opacity, sanitizeColor(ts.Color, defaultColor))
	wm, err := pdfapi.TextWatermark(ts.Text, spec, true, false, types.POINTS)
	if err != nil {
		return overlay.PageRect{}, wrap("text stamp", err)
	}
	if err := applyWatermark(rs, w, []int{page}, wm, password); err != nil {
		return overlay.PageRect{}, err
	}
	return rect, nil
}
