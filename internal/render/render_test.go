package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pdftools/internal/testutil"
)

// fakeDoc renders every page as a solid 100x200 bitmap at 72 DPI.
type fakeDoc struct {
	pages    int
	rendered []int
	dpis     []float64
	closed   bool
	failAt   int
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) ImageDPI(n int, dpi float64) (*image.RGBA, error) {
	if d.failAt > 0 && n == d.failAt {
		return nil, errors.New("broken page")
	}
	d.rendered = append(d.rendered, n)
	d.dpis = append(d.dpis, dpi)
	f := dpi / 72
	img := image.NewRGBA(image.Rect(0, 0, int(100*f), int(200*f)))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

func newRasterizer(doc *fakeDoc) *Rasterizer {
	return NewRasterizer(func([]byte) (Document, error) { return doc, nil }, nil)
}

func TestRenderAllPagesInOrder(t *testing.T) {
	doc := &fakeDoc{pages: 3}
	var progress [][2]int
	res, err := newRasterizer(doc).Render(context.Background(), nil, Options{Scale: 2}, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, doc.rendered)
	assert.Equal(t, []float64{144, 144, 144}, doc.dpis)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
	assert.True(t, doc.closed)

	require.Len(t, res.Pages, 3)
	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.Truncated)
	assert.Equal(t, 200, res.Pages[0].Width)
	assert.Equal(t, 400, res.Pages[0].Height)

	img, err := png.Decode(bytes.NewReader(res.Pages[2].Data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestRenderLimitAndThumbnail(t *testing.T) {
	doc := &fakeDoc{pages: 60}
	res, err := newRasterizer(doc).Render(context.Background(), nil, Options{Scale: 1, MaxWidth: 50, Limit: 50, Format: JPEG}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Pages, 50)
	assert.True(t, res.Truncated)
	assert.Equal(t, 60, res.TotalPages)
	assert.Equal(t, 50, res.Pages[0].Width)
	assert.Equal(t, 100, res.Pages[0].Height)
	assert.Equal(t, "image/jpeg", res.Pages[0].ContentType)
	assert.True(t, strings.HasPrefix(res.Pages[0].DataURL(), "data:image/jpeg;base64,"))
}

func TestRenderSelectedPages(t *testing.T) {
	doc := &fakeDoc{pages: 5}
	res, err := newRasterizer(doc).Render(context.Background(), nil, Options{Pages: []int{4, 1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, doc.rendered)
	assert.Equal(t, 4, res.Pages[0].Index)

	_, err = newRasterizer(&fakeDoc{pages: 5}).Render(context.Background(), nil, Options{Pages: []int{5}}, nil)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestRenderCanceledBetweenPages(t *testing.T) {
	doc := &fakeDoc{pages: 10}
	ctx, cancel := context.WithCancel(context.Background())
	_, err := newRasterizer(doc).Render(ctx, nil, Options{}, func(done, total int) {
		if done == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0, 1}, doc.rendered)
	assert.True(t, doc.closed)
}

func TestRenderErrors(t *testing.T) {
	_, err := newRasterizer(&fakeDoc{pages: 0}).Render(context.Background(), nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrNoPages)

	_, err = newRasterizer(&fakeDoc{pages: 3, failAt: 1}).Render(context.Background(), nil, Options{}, nil)
	assert.ErrorContains(t, err, "render page 2")

	r := NewRasterizer(func([]byte) (Document, error) { return nil, ErrPasswordRequired }, nil)
	_, err = r.Render(context.Background(), nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestThumbnailKeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 150))
	src.Set(0, 0, color.Black)
	th := Thumbnail(src, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 50), th.Bounds())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": PNG, "png": PNG, "jpg": JPEG, "jpeg": JPEG} {
		got, ok := ParseFormat(in)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParseFormat("gif")
	assert.False(t, ok)
	assert.Equal(t, ".jpg", JPEG.Ext())
	assert.Equal(t, "image/png", PNG.ContentType())
}

func TestRenderWithMuPDF(t *testing.T) {
	// testutil pages are (40+i) x 60 points.
	res, err := NewRasterizer(nil, nil).Render(context.Background(), testutil.PDF(t, 2), Options{Scale: 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalPages)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, 80, res.Pages[0].Width)
	assert.Equal(t, 120, res.Pages[0].Height)
	assert.Equal(t, 82, res.Pages[1].Width)

	img, err := png.Decode(bytes.NewReader(res.Pages[0].Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 80, 120), img.Bounds())
}

func TestRenderWithMuPDFEncrypted(t *testing.T) {
	_, err := NewRasterizer(nil, nil).Render(context.Background(), testutil.EncryptedPDF(t, 1, "secret"), Options{}, nil)
	assert.ErrorIs(t, err, ErrPasswordRequired)
}
