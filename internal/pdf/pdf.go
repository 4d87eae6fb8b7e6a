// Package pdf wraps pdfcpu for the document tools.
//
// Every operation reads from an io.ReadSeeker and writes the mutated document
// to an io.Writer, the same way the handlers receive uploads and serve
// outputs. Page indices are 0-based throughout the package and are converted
// to pdfcpu's 1-based page selections internally.
//
// Functions:
//   - Sniff: checks the %PDF- header.
//   - PageCount, PageSizes, PageRotations: document loader queries.
//   - Merge: concatenates documents in order and strips the bookmarks pdfcpu adds.
//   - DeletePages, ExtractPages, Split, Rotate: page-level mutations (pages.go).
//   - Watermark, StampImage, StampText: overlays (stamp.go).
//   - Compress, Protect, Unlock, ImagesToPDF, ExtractImages: conversions (convert.go).
//   - ExportForm, FillForm: AcroForm support (form.go).
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"go-pdftools/internal/overlay"
)

var (
	ErrNotPDF           = errors.New("not a PDF document")
	ErrWrongPassword    = errors.New("wrong or missing password")
	ErrPageOutOfRange   = errors.New("page index out of range")
	ErrNoPagesSelected  = errors.New("no pages selected")
	ErrAllPagesSelected = errors.New("cannot remove every page")
	ErrInvalidRotation  = errors.New("rotation must be a multiple of 90")
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrNoInput          = errors.New("no input documents")
	ErrEmptyText        = errors.New("empty text")
	ErrNoForm           = errors.New("no form fields")
)

// Progress is called after each unit of work with the number of completed
// units and the total.
type Progress func(done, total int)

func (p Progress) report(done, total int) {
	if p != nil {
		p(done, total)
	}
}

// Sniff reports whether data starts with a PDF header.
func Sniff(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func newConfig(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// wrap annotates err with op and maps pdfcpu's password error onto
// ErrWrongPassword.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func rewind(rs io.ReadSeeker) error {
	_, err := rs.Seek(0, io.SeekStart)
	return err
}

// PageCount returns the number of pages of the document.
func PageCount(rs io.ReadSeeker, password string) (int, error) {
	if err := rewind(rs); err != nil {
		return 0, err
	}
	n, err := pdfapi.PageCount(rs, newConfig(password))
	if err != nil {
		return 0, wrap("page count", err)
	}
	return n, nil
}

// PageSizes returns the displayed size of every page in points.
func PageSizes(rs io.ReadSeeker, password string) ([]overlay.Size, error) {
	if err := rewind(rs); err != nil {
		return nil, err
	}
	dims, err := pdfapi.PageDims(rs, newConfig(password))
	if err != nil {
		return nil, wrap("page dimensions", err)
	}
	sizes := make([]overlay.Size, len(dims))
	for i, d := range dims {
		sizes[i] = overlay.Size{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// PageRotations returns the effective /Rotate value of every page,
// normalized to [0,360).
func PageRotations(rs io.ReadSeeker, password string) ([]int, error) {
	if err := rewind(rs); err != nil {
		return nil, err
	}
	ctx, err := pdfapi.ReadValidateAndOptimize(rs, newConfig(password))
	if err != nil {
		return nil, wrap("read document", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, wrap("page count", err)
	}
	rotations := make([]int, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, wrap(fmt.Sprintf("page %d", i), err)
		}
		rotations[i-1] = normalizeDegrees(inh.Rotate)
	}
	return rotations, nil
}

// Merge concatenates inputs in order into w. Each input is validated first;
// ctx is checked between inputs and progress is reported per input.
func Merge(ctx context.Context, inputs []io.ReadSeeker, w io.Writer, progress Progress) error {
	if len(inputs) == 0 {
		return ErrNoInput
	}
	total := len(inputs) + 1
	for i, rs := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := PageCount(rs, ""); err != nil {
			return fmt.Errorf("input %d: %w", i+1, err)
		}
		if err := rewind(rs); err != nil {
			return err
		}
		progress.report(i+1, total)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var merged bytes.Buffer
	if err := pdfapi.MergeRaw(inputs, &merged, false, newConfig("")); err != nil {
		return wrap("merge", err)
	}
	if err := RemoveBookmarks(bytes.NewReader(merged.Bytes()), w); err != nil {
		// Nothing to strip; hand out the merge result unchanged.
		if _, err := w.Write(merged.Bytes()); err != nil {
			return err
		}
	}
	progress.report(total, total)
	return nil
}

// RemoveBookmarks strips the outline tree. Merging creates one bookmark per
// input document, which the merge tool does not want in its output.
func RemoveBookmarks(rs io.ReadSeeker, w io.Writer) error {
	var buf bytes.Buffer
	if err := pdfapi.RemoveBookmarks(rs, &buf, newConfig("")); err != nil {
		return wrap("remove bookmarks", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
