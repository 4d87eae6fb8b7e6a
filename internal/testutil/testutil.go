// Package testutil builds PDF and image fixtures in memory for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"fmt"
	"io"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PNG returns a solid w x h PNG image.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pageColor makes every page distinguishable.
func pageColor(i int) color.Color {
	return color.RGBA{R: uint8(40 * i), G: uint8(255 - 30*i), B: 128, A: 255}
}

// PDF returns a document with the given number of pages, one imported image
// per page.
func PDF(t testing.TB, pages int) []byte {
	t.Helper()
	imgs := make([]io.Reader, pages)
	for i := range imgs {
		imgs[i] = bytes.NewReader(PNG(t, 40+i, 60, pageColor(i)))
	}
	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := pdfapi.ImportImages(nil, &buf, imgs, pdfcpu.DefaultImportConfig(), conf); err != nil {
		t.Fatalf("build %d-page pdf: %v", pages, err)
	}
	return buf.Bytes()
}

// EncryptedPDF returns a password protected document.
func EncryptedPDF(t testing.TB, pages int, password string) []byte {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	conf.EncryptUsingAES = true
	conf.EncryptKeyLength = 256
	var buf bytes.Buffer
	if err := pdfapi.Encrypt(bytes.NewReader(PDF(t, pages)), &buf, conf); err != nil {
		t.Fatalf("encrypt pdf: %v", err)
	}
	return buf.Bytes()
}

const formLayout = `{
	"paper": "A4P",
	"origin": "LowerLeft",
	"fonts": {
		"input": {"name": "Helvetica", "size": 12}
	},
	"pages": {
		"1": {
			"content": {
				"textfield": [
					{"id": %q, "value": %q, "pos": [100, 700], "width": 200}
				]
			}
		}
	}
}`

// FormPDF returns a one-page document with a single AcroForm text field.
func FormPDF(t testing.TB, field, value string) []byte {
	t.Helper()
	var buf bytes.Buffer
	layout := strings.NewReader(fmt.Sprintf(formLayout, field, value))
	if err := pdfapi.Create(nil, layout, &buf, model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("build form pdf: %v", err)
	}
	return buf.Bytes()
}
