// Package render rasterizes PDF pages into bitmaps for thumbnails, previews
// and page-to-image export.
//
// Pages are rendered one after another in page order. Each Render call opens
// its own document handle; nothing is shared between calls.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

var (
	ErrPasswordRequired = errors.New("document is encrypted")
	ErrNoPages          = errors.New("document has no pages")
	ErrPageOutOfRange   = errors.New("page index out of range")
)

// Document is the part of a rendering engine document used here.
type Document interface {
	NumPage() int
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

// Opener opens a document from memory.
type Opener func(data []byte) (Document, error)

// OpenFitz opens data with MuPDF.
func OpenFitz(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, ErrPasswordRequired
		}
		return nil, err
	}
	return doc, nil
}

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// ParseFormat accepts png, jpg and jpeg.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "png":
		return PNG, true
	case "jpg", "jpeg":
		return JPEG, true
	}
	return "", false
}

func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return ".png"
}

// Options controls a render call.
type Options struct {
	// Scale is the pixel scale; 1 renders one pixel per point (72 DPI).
	Scale float64
	// MaxWidth downscales wider bitmaps, keeping the aspect ratio. Zero
	// keeps the rendered size.
	MaxWidth int
	Format   Format
	// Quality is the JPEG quality; zero means 85.
	Quality int
	// Pages selects 0-based page indices in output order. Empty means all.
	Pages []int
	// Limit caps the number of rendered pages. Zero means no limit.
	Limit int
}

// Page is one rendered page.
type Page struct {
	Index       int    `json:"index"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// DataURL returns the bitmap as a data: URL.
func (p Page) DataURL() string {
	return "data:" + p.ContentType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Result lists the rendered pages. Truncated is set when Limit excluded
// some selected pages.
type Result struct {
	Pages      []Page
	TotalPages int
	Truncated  bool
}

type Rasterizer struct {
	open   Opener
	logger logrus.FieldLogger
}

// NewRasterizer returns a rasterizer using open, or MuPDF when open is nil.
func NewRasterizer(open Opener, logger logrus.FieldLogger) *Rasterizer {
	if open == nil {
		open = OpenFitz
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Rasterizer{open: open, logger: logger}
}

// Render rasterizes the selected pages of data. ctx is checked before every
// page and progress, if not nil, is called after every page.
func (r *Rasterizer) Render(ctx context.Context, data []byte, opts Options, progress func(done, total int)) (*Result, error) {
	doc, err := r.open(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total <= 0 {
		return nil, ErrNoPages
	}
	pages := opts.Pages
	if len(pages) == 0 {
		pages = make([]int, total)
		for i := range pages {
			pages[i] = i
		}
	}
	for _, p := range pages {
		if p < 0 || p >= total {
			return nil, fmt.Errorf("page %d of %d: %w", p, total, ErrPageOutOfRange)
		}
	}

	res := &Result{TotalPages: total}
	if opts.Limit > 0 && len(pages) > opts.Limit {
		pages = pages[:opts.Limit]
		res.Truncated = true
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	format := opts.Format
	if format == "" {
		format = PNG
	}

	for i, idx := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		page, err := r.renderPage(doc, idx, scale, opts.MaxWidth, format, opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", idx+1, err)
		}
		res.Pages = append(res.Pages, page)
		r.logger.WithFields(logrus.Fields{
			"page":     idx + 1,
			"width":    page.Width,
			"height":   page.Height,
			"duration": time.Since(start),
		}).Debug("page rendered")
		if progress != nil {
			progress(i+1, len(pages))
		}
	}
	return res, nil
}

func (r *Rasterizer) renderPage(doc Document, idx int, scale float64, maxWidth int, format Format, quality int) (Page, error) {
	img, err := doc.ImageDPI(idx, 72*scale)
	if err != nil {
		return Page{}, err
	}
	var out image.Image = img
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		out = Thumbnail(img, maxWidth)
	}
	data, err := Encode(out, format, quality)
	if err != nil {
		return Page{}, err
	}
	b := out.Bounds()
	return Page{
		Index:       idx,
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Thumbnail scales src to width pixels wide with Catmull-Rom resampling.
func Thumbnail(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Encode serializes img as PNG or JPEG.
func Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case JPEG:
		if quality <= 0 || quality > 100 {
			quality = 85
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
