package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pdftools/internal/overlay"
	"go-pdftools/internal/testutil"
)

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	n, err := PageCount(bytes.NewReader(data), "")
	require.NoError(t, err)
	return n
}

func rotations(t *testing.T, data []byte) []int {
	t.Helper()
	r, err := PageRotations(bytes.NewReader(data), "")
	require.NoError(t, err)
	return r
}

func rotate(t *testing.T, data []byte, deg int, indices ...int) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Rotate(bytes.NewReader(data), &out, deg, indices, ""))
	return out.Bytes()
}

func TestSniff(t *testing.T) {
	assert.True(t, Sniff(testutil.PDF(t, 1)))
	assert.False(t, Sniff([]byte("hello")))
	assert.False(t, Sniff(nil))
}

func TestMergeKeepsOrderAndCounts(t *testing.T) {
	a := testutil.PDF(t, 1)
	b := rotate(t, testutil.PDF(t, 2), 90)
	c := testutil.PDF(t, 3)

	var calls []int
	var out bytes.Buffer
	err := Merge(context.Background(),
		[]io.ReadSeeker{bytes.NewReader(a), bytes.NewReader(b), bytes.NewReader(c)},
		&out, func(done, total int) {
			calls = append(calls, done)
			assert.Equal(t, 4, total)
		})
	require.NoError(t, err)

	assert.Equal(t, 6, pageCount(t, out.Bytes()))
	assert.Equal(t, []int{0, 90, 90, 0, 0, 0}, rotations(t, out.Bytes()))
	assert.Equal(t, []int{1, 2, 3, 4}, calls)
}

func TestMergeErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, Merge(context.Background(), nil, &out, nil), ErrNoInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Merge(ctx, []io.ReadSeeker{bytes.NewReader(testutil.PDF(t, 1))}, &out, nil)
	assert.ErrorIs(t, err, context.Canceled)

	err = Merge(context.Background(), []io.ReadSeeker{bytes.NewReader([]byte("not a pdf"))}, &out, nil)
	assert.Error(t, err)
	assert.Zero(t, out.Len())
}

func TestDeletePages(t *testing.T) {
	// mark pages 0 and 2 so they can be recognized after the deletion
	src := rotate(t, testutil.PDF(t, 3), 90, 0)
	src = rotate(t, src, 180, 2)

	var out bytes.Buffer
	require.NoError(t, DeletePages(bytes.NewReader(src), &out, []int{1}, ""))
	assert.Equal(t, 2, pageCount(t, out.Bytes()))
	assert.Equal(t, []int{90, 180}, rotations(t, out.Bytes()))
}

func TestDeletePagesSubset(t *testing.T) {
	src := testutil.PDF(t, 6)
	for _, sel := range [][]int{{0}, {5}, {1, 3}, {0, 2, 4}, {4, 4, 1}} {
		var out bytes.Buffer
		require.NoError(t, DeletePages(bytes.NewReader(src), &out, sel, ""))
		want := 6 - len(uniq(sel))
		assert.Equal(t, want, pageCount(t, out.Bytes()), "%v", sel)
	}
}

func uniq(in []int) map[int]struct{} {
	m := map[int]struct{}{}
	for _, i := range in {
		m[i] = struct{}{}
	}
	return m
}

func TestDeletePagesInvalidSelection(t *testing.T) {
	src := testutil.PDF(t, 3)
	var out bytes.Buffer
	assert.ErrorIs(t, DeletePages(bytes.NewReader(src), &out, nil, ""), ErrNoPagesSelected)
	assert.ErrorIs(t, DeletePages(bytes.NewReader(src), &out, []int{0, 1, 2}, ""), ErrAllPagesSelected)
	assert.ErrorIs(t, DeletePages(bytes.NewReader(src), &out, []int{3}, ""), ErrPageOutOfRange)
	assert.ErrorIs(t, DeletePages(bytes.NewReader(src), &out, []int{-1}, ""), ErrPageOutOfRange)
	assert.Zero(t, out.Len())
}

func TestRotateFourTimesIsIdentity(t *testing.T) {
	src := testutil.PDF(t, 2)
	doc := src
	for i := 0; i < 4; i++ {
		doc = rotate(t, doc, 90, 1)
		if i < 3 {
			assert.Equal(t, (i+1)*90, rotations(t, doc)[1])
		}
	}
	assert.Equal(t, rotations(t, src), rotations(t, doc))
}

func TestRotateValidation(t *testing.T) {
	src := testutil.PDF(t, 1)
	var out bytes.Buffer
	assert.ErrorIs(t, Rotate(bytes.NewReader(src), &out, 45, nil, ""), ErrInvalidRotation)
	assert.ErrorIs(t, Rotate(bytes.NewReader(src), &out, 90, []int{1}, ""), ErrPageOutOfRange)

	require.NoError(t, Rotate(bytes.NewReader(src), &out, 360, nil, ""))
	assert.Equal(t, src, out.Bytes())

	assert.Equal(t, []int{270}, rotations(t, rotate(t, src, -90)))
}

func TestSplitAndExtract(t *testing.T) {
	src := testutil.PDF(t, 5)

	parts, err := Split(bytes.NewReader(src), SplitEvery(5, 2), "")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, 2, pageCount(t, parts[0]))
	assert.Equal(t, 2, pageCount(t, parts[1]))
	assert.Equal(t, 1, pageCount(t, parts[2]))

	_, err = Split(bytes.NewReader(src), []PageRange{{From: 3, To: 5}}, "")
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	var out bytes.Buffer
	require.NoError(t, ExtractPages(bytes.NewReader(src), &out, []int{4, 0}, ""))
	assert.Equal(t, 2, pageCount(t, out.Bytes()))
}

func TestParseRanges(t *testing.T) {
	got, err := ParseRanges("1-2, 4,5-", 6)
	require.NoError(t, err)
	assert.Equal(t, []PageRange{{0, 1}, {3, 3}, {4, 5}}, got)
	assert.Equal(t, "1-2", got[0].String())
	assert.Equal(t, "4", got[1].String())

	for _, bad := range []string{"0", "7", "3-2", "x", ""} {
		_, err := ParseRanges(bad, 6)
		assert.Error(t, err, bad)
	}
}

func TestCheckIndices(t *testing.T) {
	got, err := CheckIndices([]int{3, 1, 3, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, got)

	_, err = CheckIndices([]int{4}, 4)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestPasswords(t *testing.T) {
	src := testutil.EncryptedPDF(t, 2, "secret")

	_, err := PageCount(bytes.NewReader(src), "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	n, err := PageCount(bytes.NewReader(src), "secret")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var plain bytes.Buffer
	require.NoError(t, Unlock(bytes.NewReader(src), &plain, "secret"))
	assert.Equal(t, 2, pageCount(t, plain.Bytes()))

	var locked bytes.Buffer
	require.NoError(t, Protect(bytes.NewReader(plain.Bytes()), &locked, "pw", ""))
	_, err = PageCount(bytes.NewReader(locked.Bytes()), "nope")
	assert.ErrorIs(t, err, ErrWrongPassword)

	assert.ErrorIs(t, Protect(bytes.NewReader(plain.Bytes()), &locked, "", ""), ErrWrongPassword)
}

func TestStampImage(t *testing.T) {
	src := testutil.PDF(t, 2)
	sig := testutil.PNG(t, 200, 100, color.RGBA{A: 255})
	sizes, err := PageSizes(bytes.NewReader(src), "")
	require.NoError(t, err)

	desc := overlay.Descriptor{X: 50, Y: 80, Scale: 40, Opacity: 0.8}
	var out bytes.Buffer
	rect, err := StampImage(bytes.NewReader(src), &out, sig, 1, desc, "")
	require.NoError(t, err)

	want := overlay.ToPageCoordinates(overlay.Position{X: 50, Y: 80}, 40, sizes[1], 2)
	assert.InDelta(t, want.X, rect.X, 1e-9)
	assert.InDelta(t, want.Y, rect.Y, 1e-9)
	assert.InDelta(t, rect.Width/2, rect.Height, 1e-9)
	assert.Equal(t, 2, pageCount(t, out.Bytes()))

	_, err = StampImage(bytes.NewReader(src), &out, sig, 2, desc, "")
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = StampImage(bytes.NewReader(src), &out, []byte("nope"), 0, desc, "")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestStampTextAndWatermark(t *testing.T) {
	src := testutil.PDF(t, 3)

	var out bytes.Buffer
	rect, err := StampText(bytes.NewReader(src), &out, TextStamp{Text: "APPROVED", FontSize: 20}, 0,
		overlay.Descriptor{X: 50, Y: 50, Rotation: 15}, "")
	require.NoError(t, err)
	assert.InDelta(t, 80, rect.Width, 1e-9)
	assert.InDelta(t, 20, rect.Height, 1e-9)
	assert.Equal(t, 3, pageCount(t, out.Bytes()))

	out.Reset()
	require.NoError(t, Watermark(bytes.NewReader(src), &out, TextWatermark{Text: "DRAFT", Rotation: 45}, nil, ""))
	assert.Equal(t, 3, pageCount(t, out.Bytes()))

	out.Reset()
	assert.Error(t, Watermark(bytes.NewReader(src), &out, TextWatermark{Text: " "}, nil, ""))
	assert.ErrorIs(t, Watermark(bytes.NewReader(src), &out, TextWatermark{Text: "x"}, []int{9}, ""), ErrPageOutOfRange)
}

func TestPDFRotation(t *testing.T) {
	assert.Equal(t, 0.0, pdfRotation(0))
	assert.Equal(t, -90.0, pdfRotation(90))
	assert.Equal(t, 90.0, pdfRotation(270))
	assert.Equal(t, 180.0, pdfRotation(180))
}

func TestSanitizeColor(t *testing.T) {
	assert.Equal(t, "#ff0000", sanitizeColor("#ff0000", "#000000"))
	assert.Equal(t, "#000000", sanitizeColor("red", "#000000"))
	assert.Equal(t, "#000000", sanitizeColor("#gg0000", "#000000"))
}

func TestImagesToPDF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 30, 20), color.Palette{color.White, color.Black})
	var g bytes.Buffer
	require.NoError(t, gif.Encode(&g, pal, nil))

	imgs := [][]byte{testutil.PNG(t, 20, 30, color.White), g.Bytes()}
	var out bytes.Buffer
	var last int
	require.NoError(t, ImagesToPDF(context.Background(), imgs, &out, func(done, total int) { last = done }))
	assert.Equal(t, 2, pageCount(t, out.Bytes()))
	assert.Equal(t, 3, last)

	out.Reset()
	assert.ErrorIs(t, ImagesToPDF(context.Background(), [][]byte{[]byte("junk")}, &out, nil), ErrUnsupportedImage)
	assert.ErrorIs(t, ImagesToPDF(context.Background(), nil, &out, nil), ErrNoInput)
}

func TestExtractImages(t *testing.T) {
	src := testutil.PDF(t, 2)
	imgs, err := ExtractImages(bytes.NewReader(src), nil, "")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, 0, imgs[0].Page)
	assert.Equal(t, 1, imgs[1].Page)
	assert.NotEmpty(t, imgs[0].Data)
	assert.Contains(t, imgs[1].Filename(), "page002_")
}

func TestCompress(t *testing.T) {
	src := testutil.PDF(t, 3)
	var out bytes.Buffer
	require.NoError(t, Compress(bytes.NewReader(src), &out, ""))
	assert.Equal(t, 3, pageCount(t, out.Bytes()))
}

func TestInspectImage(t *testing.T) {
	info, err := InspectImage(testutil.PNG(t, 40, 10, color.White))
	require.NoError(t, err)
	assert.Equal(t, ImageInfo{Format: "png", Width: 40, Height: 10}, info)
	assert.Equal(t, 4.0, info.Aspect())

	ct, ok := SniffImage(testutil.PNG(t, 1, 1, color.White))
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	_, ok = SniffImage([]byte("%PDF-1.7"))
	assert.False(t, ok)
}

// setFieldValue rewrites the value of the text field named field in
// exported form JSON.
func setFieldValue(t *testing.T, data []byte, field, value string) []byte {
	t.Helper()
	var group map[string]any
	require.NoError(t, json.Unmarshal(data, &group))
	forms, _ := group["forms"].([]any)
	require.NotEmpty(t, forms)
	for _, f := range forms {
		fields, _ := f.(map[string]any)["textfield"].([]any)
		for _, tf := range fields {
			m := tf.(map[string]any)
			if m["name"] == field || m["id"] == field {
				m["value"] = value
			}
		}
	}
	out, err := json.Marshal(group)
	require.NoError(t, err)
	return out
}

// fieldValue returns the value of the text field named field.
func fieldValue(t *testing.T, data []byte, field string) string {
	t.Helper()
	var group struct {
		Forms []struct {
			TextFields []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"textfield"`
		} `json:"forms"`
	}
	require.NoError(t, json.Unmarshal(data, &group))
	for _, f := range group.Forms {
		for _, tf := range f.TextFields {
			if tf.Name == field || tf.ID == field {
				return tf.Value
			}
		}
	}
	t.Fatalf("field %q not exported: %s", field, data)
	return ""
}

func TestExportAndFillForm(t *testing.T) {
	src := testutil.FormPDF(t, "applicant", "Alice")

	var exported bytes.Buffer
	require.NoError(t, ExportForm(bytes.NewReader(src), &exported, "form.pdf", ""))
	assert.Equal(t, "Alice", fieldValue(t, exported.Bytes(), "applicant"))

	var filled bytes.Buffer
	form := setFieldValue(t, exported.Bytes(), "applicant", "Bob")
	require.NoError(t, FillForm(bytes.NewReader(src), bytes.NewReader(form), &filled, ""))

	var reexported bytes.Buffer
	require.NoError(t, ExportForm(bytes.NewReader(filled.Bytes()), &reexported, "filled.pdf", ""))
	assert.Equal(t, "Bob", fieldValue(t, reexported.Bytes(), "applicant"))
}

func TestFormsRequireAcroForm(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, ExportForm(bytes.NewReader(testutil.PDF(t, 1)), &out, "plain.pdf", ""), ErrNoForm)

	locked := testutil.EncryptedPDF(t, 1, "secret")
	err := ExportForm(bytes.NewReader(locked), &out, "locked.pdf", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = FillForm(bytes.NewReader(locked), bytes.NewReader([]byte(`{"forms":[]}`)), &out, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}
