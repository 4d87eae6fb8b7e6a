package pdf

import (
	"errors"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExportForm writes the AcroForm fields of the document as pdfcpu form
// JSON. The same JSON, with values edited, is accepted by FillForm.
func ExportForm(rs io.ReadSeeker, w io.Writer, source, password string) error {
	if err := rewind(rs); err != nil {
		return err
	}
	err := pdfapi.ExportFormJSON(rs, w, source, newConfig(password))
	if errors.Is(err, pdfapi.ErrNoFormFieldsAffected) {
		return fmt.Errorf("export form: %w", ErrNoForm)
	}
	return wrap("export form", err)
}

// FillForm fills the document's form fields from pdfcpu form JSON.
func FillForm(rs io.ReadSeeker, form io.Reader, w io.Writer, password string) error {
	if err := rewind(rs); err != nil {
		return err
	}
	return wrap("fill form", pdfapi.FillForm(rs, form, w, newConfig(password)))
}
