package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/overlay"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/render"
	"go-pdftools/internal/session"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		key    i18n.Key
	}{
		{fmt.Errorf("unlock: %w", pdf.ErrWrongPassword), http.StatusUnauthorized, i18n.WrongPassword},
		{fmt.Errorf("open document: %w", render.ErrPasswordRequired), http.StatusUnauthorized, i18n.WrongPassword},
		{session.ErrJobRunning, http.StatusConflict, i18n.JobRunning},
		{context.Canceled, http.StatusConflict, i18n.Canceled},
		{session.ErrFileNotFound, http.StatusNotFound, i18n.FileNotFound},
		{errUnknownTool, http.StatusNotFound, i18n.UnknownTool},
		{errTooLarge, http.StatusRequestEntityTooLarge, i18n.FileTooLarge},
		{fmt.Errorf("range: %w", pdf.ErrPageOutOfRange), http.StatusBadRequest, i18n.PageOutOfRange},
		{pdf.ErrNoPagesSelected, http.StatusBadRequest, i18n.NoPagesSelected},
		{pdf.ErrAllPagesSelected, http.StatusBadRequest, i18n.AllPagesDeleted},
		{pdf.ErrInvalidRotation, http.StatusBadRequest, i18n.InvalidRotation},
		{pdf.ErrUnsupportedImage, http.StatusBadRequest, i18n.InvalidImage},
		{pdf.ErrNoInput, http.StatusBadRequest, i18n.NoFiles},
		{overlay.ErrInvalidDescriptor, http.StatusBadRequest, i18n.InvalidRequest},
		{fmt.Errorf("watermark: %w", pdf.ErrEmptyText), http.StatusBadRequest, i18n.InvalidRequest},
		{fmt.Errorf("export form: %w", pdf.ErrNoForm), http.StatusBadRequest, i18n.NoForm},
		{fmt.Errorf("pdfcpu: corrupt xref"), http.StatusInternalServerError, i18n.ProcessFailed},
	}
	for _, tt := range tests {
		status, key := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.key, key, tt.err.Error())
	}
}
